package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jkratochvil/facemark/internal/attendance"
	"github.com/jkratochvil/facemark/internal/store"
)

// AttendanceHandler handles the attendance ledger endpoints.
type AttendanceHandler struct {
	resolver *attendance.Resolver
	records  store.AttendanceRepository
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(resolver *attendance.Resolver, records store.AttendanceRepository) *AttendanceHandler {
	return &AttendanceHandler{resolver: resolver, records: records}
}

// List handles GET /attendance. The date query parameter defaults to today,
// subject optionally filters.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "invalid date")
		return
	}

	records, err := h.records.ListAttendanceByDate(r.Context(), date, r.URL.Query().Get("subject"))
	if err != nil {
		log.Printf("list attendance: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

type manualRecordRequest struct {
	StudentCode string `json:"student_code"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type markResponse struct {
	StudentCode string `json:"student_code"`
	Action      string `json:"action"`
	Reason      string `json:"reason,omitempty"`
}

// CreateManual handles POST /attendance/manual.
func (h *AttendanceHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StudentCode == "" {
		respondError(w, http.StatusBadRequest, "student_code is required")
		return
	}

	eventTime, err := parseEventTime(req.Date, req.Time)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date or time")
		return
	}

	act, err := h.resolver.Mark(r.Context(), req.StudentCode, req.Subject, eventTime, attendance.ModeManual, req.Time != "")
	if err != nil {
		log.Printf("manual mark %s failed: %v", sanitizeForLog(req.StudentCode), err)
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}

	respondJSON(w, http.StatusOK, markResponse{
		StudentCode: req.StudentCode,
		Action:      act.Kind.String(),
		Reason:      act.Reason,
	})
}

type bulkImportRequest struct {
	Records []manualRecordRequest `json:"records"`
}

type bulkImportResponse struct {
	Results    []markResponse `json:"results"`
	Created    int            `json:"created"`
	Suppressed int            `json:"suppressed"`
}

// BulkImport handles POST /attendance/bulk.
func (h *AttendanceHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	var req bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Records) == 0 {
		respondError(w, http.StatusBadRequest, "records is required")
		return
	}

	resp := bulkImportResponse{Results: make([]markResponse, 0, len(req.Records))}
	for _, rec := range req.Records {
		if rec.StudentCode == "" {
			respondError(w, http.StatusBadRequest, "student_code is required on every record")
			return
		}
		eventTime, err := parseEventTime(rec.Date, rec.Time)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date or time for "+sanitizeForLog(rec.StudentCode))
			return
		}

		act, err := h.resolver.Mark(r.Context(), rec.StudentCode, rec.Subject, eventTime, attendance.ModeBulk, rec.Time != "")
		if err != nil {
			log.Printf("bulk mark %s failed: %v", sanitizeForLog(rec.StudentCode), err)
			respondError(w, http.StatusInternalServerError, "failed to import records")
			return
		}

		resp.Results = append(resp.Results, markResponse{
			StudentCode: rec.StudentCode,
			Action:      act.Kind.String(),
			Reason:      act.Reason,
		})
		if act.Kind == attendance.Suppress {
			resp.Suppressed++
		} else {
			resp.Created++
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

type absenteesRequest struct {
	Subject  string   `json:"subject"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Year     string   `json:"year"`
	Section  string   `json:"section"`
	Detected []string `json:"detected"`
}

// MarkAbsentees handles POST /attendance/absentees.
func (h *AttendanceHandler) MarkAbsentees(w http.ResponseWriter, r *http.Request) {
	var req absenteesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Subject == "" {
		respondError(w, http.StatusBadRequest, "subject is required")
		return
	}

	eventTime, err := parseEventTime(req.Date, req.Time)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date or time")
		return
	}

	created, err := h.resolver.MarkAbsentees(r.Context(), req.Subject, eventTime, req.Year, req.Section, req.Detected)
	if err != nil {
		log.Printf("mark absentees failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to mark absentees")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"absent": created})
}
