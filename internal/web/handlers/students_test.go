package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jkratochvil/facemark/internal/detect"
	"github.com/jkratochvil/facemark/internal/store"
	"github.com/jkratochvil/facemark/internal/store/mock"
)

type stubEnroller struct {
	path string
	err  error

	gotCode string
	gotName string
}

func (s *stubEnroller) AddPhoto(ctx context.Context, code, name string, imageData []byte) (string, error) {
	s.gotCode = code
	s.gotName = name
	return s.path, s.err
}

func TestStudentsHandler_Create(t *testing.T) {
	repo := mock.NewRepo()
	handler := NewStudentsHandler(repo, &stubEnroller{})

	req := jsonRequest(t, "POST", "/api/v1/students", createStudentRequest{
		Code: "12", Name: "Jane", Year: "3", Section: "A",
	})
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	student, err := repo.GetStudent(context.Background(), "12")
	if err != nil {
		t.Fatalf("student not stored: %v", err)
	}
	if student.Name != "Jane" || student.Year != "3" {
		t.Errorf("unexpected student %+v", student)
	}

	// Creating the same code again conflicts.
	recorder = httptest.NewRecorder()
	handler.Create(recorder, jsonRequest(t, "POST", "/api/v1/students", createStudentRequest{Code: "12", Name: "Jane"}))
	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestStudentsHandler_Create_Validation(t *testing.T) {
	handler := NewStudentsHandler(mock.NewRepo(), &stubEnroller{})
	recorder := httptest.NewRecorder()
	handler.Create(recorder, jsonRequest(t, "POST", "/api/v1/students", createStudentRequest{Code: "12"}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestStudentsHandler_List_Scoped(t *testing.T) {
	repo := mock.NewRepo()
	seedStudent(t, repo, "1", "A")
	if err := repo.CreateStudent(context.Background(), &store.Student{Code: "2", Name: "B", Year: "4"}); err != nil {
		t.Fatal(err)
	}
	handler := NewStudentsHandler(repo, &stubEnroller{})

	req := httptest.NewRequest("GET", "/api/v1/students?year=4", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var students []store.Student
	parseJSONResponse(t, recorder, &students)
	if len(students) != 1 || students[0].Code != "2" {
		t.Errorf("unexpected students %+v", students)
	}
}

func photoRequest(t *testing.T, code string) *http.Request {
	t.Helper()
	body, contentType := multipartImage(t, []byte("fakeimage"), nil)
	req := httptest.NewRequest("POST", "/api/v1/students/"+code+"/photos", body)
	req.Header.Set("Content-Type", contentType)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", code)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestStudentsHandler_AddPhoto(t *testing.T) {
	repo := mock.NewRepo()
	seedStudent(t, repo, "12", "Jane")
	enroller := &stubEnroller{path: "12_Jane/face_01.jpg"}
	handler := NewStudentsHandler(repo, enroller)

	recorder := httptest.NewRecorder()
	handler.AddPhoto(recorder, photoRequest(t, "12"))

	assertStatusCode(t, recorder, http.StatusCreated)
	if enroller.gotCode != "12" || enroller.gotName != "Jane" {
		t.Errorf("enroller called with %q/%q", enroller.gotCode, enroller.gotName)
	}
}

func TestStudentsHandler_AddPhoto_Errors(t *testing.T) {
	t.Run("unknown student", func(t *testing.T) {
		handler := NewStudentsHandler(mock.NewRepo(), &stubEnroller{})
		recorder := httptest.NewRecorder()
		handler.AddPhoto(recorder, photoRequest(t, "99"))
		assertStatusCode(t, recorder, http.StatusNotFound)
	})

	t.Run("no face in photo", func(t *testing.T) {
		repo := mock.NewRepo()
		seedStudent(t, repo, "12", "Jane")
		handler := NewStudentsHandler(repo, &stubEnroller{err: detect.ErrNoFace})
		recorder := httptest.NewRecorder()
		handler.AddPhoto(recorder, photoRequest(t, "12"))
		assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	})
}
