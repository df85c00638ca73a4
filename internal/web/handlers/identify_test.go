package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jkratochvil/facemark/internal/detect"
	"github.com/jkratochvil/facemark/internal/identify"
	"github.com/jkratochvil/facemark/internal/store"
	"github.com/jkratochvil/facemark/internal/store/mock"
)

type stubIdentifier struct {
	detections []identify.Detection
	err        error
}

func (s *stubIdentifier) Identify(ctx context.Context, image []byte) ([]identify.Detection, error) {
	return s.detections, s.err
}

func seedStudent(t *testing.T, repo *mock.Repo, code, name string) {
	t.Helper()
	if err := repo.CreateStudent(context.Background(), &store.Student{Code: code, Name: name}); err != nil {
		t.Fatal(err)
	}
}

func TestIdentifyHandler_MarksKnownFaces(t *testing.T) {
	repo := mock.NewRepo()
	seedStudent(t, repo, "12", "Jane")

	id := &stubIdentifier{detections: []identify.Detection{
		{Region: detect.Region{Top: 0, Right: 10, Bottom: 10, Left: 0}, Label: "12", Name: "Jane", Known: true, Distance: 0.3},
		{Region: detect.Region{Top: 20, Right: 30, Bottom: 30, Left: 20}, Label: "34", Known: false, Distance: 0.9},
	}}
	handler := NewIdentifyHandler(id, testResolver(repo), repo)

	body, contentType := multipartImage(t, []byte("fakeimage"), map[string]string{
		"subject": "Math",
		"date":    "2026-03-02",
		"time":    "10:05",
	})
	req := httptest.NewRequest("POST", "/api/v1/identify", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	handler.Identify(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp identifyResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Faces != 2 {
		t.Errorf("expected 2 faces, got %d", resp.Faces)
	}
	if resp.Marked != 1 {
		t.Errorf("expected 1 marked, got %d", resp.Marked)
	}
	if resp.Detections[0].Action != "CreateNewPresent" {
		t.Errorf("known face action %q, want CreateNewPresent", resp.Detections[0].Action)
	}
	if resp.Detections[1].Action != "" {
		t.Errorf("unknown face must not be marked, got action %q", resp.Detections[1].Action)
	}

	recs := repo.Records()
	if len(recs) != 1 || recs[0].StudentCode != "12" {
		t.Errorf("expected one record for student 12, got %+v", recs)
	}
	if len(repo.Detections()) != 2 {
		t.Errorf("expected 2 audit entries, got %d", len(repo.Detections()))
	}
}

func TestIdentifyHandler_SecondUploadSuppressed(t *testing.T) {
	repo := mock.NewRepo()
	seedStudent(t, repo, "12", "Jane")
	id := &stubIdentifier{detections: []identify.Detection{
		{Label: "12", Known: true, Distance: 0.3},
	}}
	handler := NewIdentifyHandler(id, testResolver(repo), repo)

	send := func(clock string) identifyResponse {
		body, contentType := multipartImage(t, []byte("img"), map[string]string{
			"subject": "Math",
			"date":    "2026-03-02",
			"time":    clock,
		})
		req := httptest.NewRequest("POST", "/api/v1/identify", body)
		req.Header.Set("Content-Type", contentType)
		recorder := httptest.NewRecorder()
		handler.Identify(recorder, req)
		assertStatusCode(t, recorder, http.StatusOK)
		var resp identifyResponse
		parseJSONResponse(t, recorder, &resp)
		return resp
	}

	first := send("10:05")
	if first.Marked != 1 {
		t.Fatalf("first upload should mark, got %d", first.Marked)
	}
	second := send("10:20")
	if second.Marked != 0 {
		t.Errorf("second upload in the same window should be suppressed, got %d marked", second.Marked)
	}
	if second.Detections[0].Action != "Suppress" {
		t.Errorf("expected Suppress, got %q", second.Detections[0].Action)
	}
}

func TestIdentifyHandler_InheritsActiveSlotSubject(t *testing.T) {
	repo := mock.NewRepo()
	seedStudent(t, repo, "12", "Jane")
	// Monday 2026-03-02, Math runs 10:00-11:00.
	err := repo.CreateSlot(context.Background(), &store.ScheduleSlot{
		ID: "s1", Subject: "Math", Weekday: 1, Start: "10:00", End: "11:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	id := &stubIdentifier{detections: []identify.Detection{{Label: "12", Known: true}}}
	handler := NewIdentifyHandler(id, testResolver(repo), repo)

	// No subject field: the running class is used.
	body, contentType := multipartImage(t, []byte("img"), map[string]string{
		"date": "2026-03-02",
		"time": "10:15",
	})
	req := httptest.NewRequest("POST", "/api/v1/identify", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	handler.Identify(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	recs := repo.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Subject != "Math" {
		t.Errorf("record subject %q, want Math from the active slot", recs[0].Subject)
	}
}

func TestIdentifyHandler_DryRun(t *testing.T) {
	repo := mock.NewRepo()
	seedStudent(t, repo, "12", "Jane")
	id := &stubIdentifier{detections: []identify.Detection{{Label: "12", Known: true}}}
	handler := NewIdentifyHandler(id, testResolver(repo), repo)

	body, contentType := multipartImage(t, []byte("img"), map[string]string{"dry_run": "true"})
	req := httptest.NewRequest("POST", "/api/v1/identify", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	handler.Identify(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if got := len(repo.Records()); got != 0 {
		t.Errorf("dry run must not create records, got %d", got)
	}
}

func TestIdentifyHandler_Errors(t *testing.T) {
	repo := mock.NewRepo()

	t.Run("missing image", func(t *testing.T) {
		handler := NewIdentifyHandler(&stubIdentifier{}, testResolver(repo), repo)
		req := httptest.NewRequest("POST", "/api/v1/identify", nil)
		recorder := httptest.NewRecorder()
		handler.Identify(recorder, req)
		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("invalid mode", func(t *testing.T) {
		handler := NewIdentifyHandler(&stubIdentifier{}, testResolver(repo), repo)
		body, contentType := multipartImage(t, []byte("img"), map[string]string{"mode": "psychic"})
		req := httptest.NewRequest("POST", "/api/v1/identify", body)
		req.Header.Set("Content-Type", contentType)
		recorder := httptest.NewRecorder()
		handler.Identify(recorder, req)
		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("pipeline failure", func(t *testing.T) {
		handler := NewIdentifyHandler(&stubIdentifier{err: errors.New("sidecar down")}, testResolver(repo), repo)
		body, contentType := multipartImage(t, []byte("img"), nil)
		req := httptest.NewRequest("POST", "/api/v1/identify", body)
		req.Header.Set("Content-Type", contentType)
		recorder := httptest.NewRecorder()
		handler.Identify(recorder, req)
		assertStatusCode(t, recorder, http.StatusBadGateway)
	})
}

func TestIdentifyHandler_ListDetections(t *testing.T) {
	repo := mock.NewRepo()
	if err := repo.SaveDetection(context.Background(), &store.DetectionEvent{ID: "d1", StudentCode: "12", Known: true}); err != nil {
		t.Fatal(err)
	}
	handler := NewIdentifyHandler(&stubIdentifier{}, testResolver(repo), repo)

	req := httptest.NewRequest("GET", "/api/v1/detections?student=12", nil)
	recorder := httptest.NewRecorder()
	handler.ListDetections(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var events []store.DetectionEvent
	parseJSONResponse(t, recorder, &events)
	if len(events) != 1 || events[0].ID != "d1" {
		t.Errorf("unexpected events %+v", events)
	}
}
