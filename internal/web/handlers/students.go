package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jkratochvil/facemark/internal/detect"
	"github.com/jkratochvil/facemark/internal/store"
)

// PhotoEnroller adds a training photo to a student's dataset folder.
type PhotoEnroller interface {
	AddPhoto(ctx context.Context, code, name string, imageData []byte) (string, error)
}

// StudentsHandler handles roster management endpoints.
type StudentsHandler struct {
	students store.StudentRepository
	enroller PhotoEnroller
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(students store.StudentRepository, enroller PhotoEnroller) *StudentsHandler {
	return &StudentsHandler{students: students, enroller: enroller}
}

// List handles GET /students. The year and section query parameters
// optionally scope the result.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.ListRoster(r.Context(), r.URL.Query().Get("year"), r.URL.Query().Get("section"))
	if err != nil {
		log.Printf("list students: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	if students == nil {
		students = []store.Student{}
	}
	respondJSON(w, http.StatusOK, students)
}

type createStudentRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Year    string `json:"year"`
	Section string `json:"section"`
}

// Create handles POST /students.
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}
	if _, err := h.students.GetStudent(r.Context(), req.Code); err == nil {
		respondError(w, http.StatusConflict, "student already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("check student %s: %v", sanitizeForLog(req.Code), err)
		respondError(w, http.StatusInternalServerError, "failed to create student")
		return
	}

	student := &store.Student{
		Code:    req.Code,
		Name:    req.Name,
		Year:    req.Year,
		Section: req.Section,
	}
	if err := h.students.CreateStudent(r.Context(), student); err != nil {
		log.Printf("create student %s: %v", sanitizeForLog(req.Code), err)
		respondError(w, http.StatusInternalServerError, "failed to create student")
		return
	}

	respondJSON(w, http.StatusCreated, student)
}

// AddPhoto handles POST /students/{code}/photos. The multipart form carries
// the image; the largest detected face is cropped into the dataset.
func (h *StudentsHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	student, err := h.students.GetStudent(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		log.Printf("get student %s: %v", sanitizeForLog(code), err)
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	path, err := h.enroller.AddPhoto(r.Context(), student.Code, student.Name, imageData)
	if errors.Is(err, detect.ErrNoFace) {
		respondError(w, http.StatusUnprocessableEntity, "no face found in image")
		return
	}
	if err != nil {
		log.Printf("enroll photo for %s: %v", sanitizeForLog(code), err)
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"path": path})
}
