package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jkratochvil/facemark/internal/attendance"
	"github.com/jkratochvil/facemark/internal/identify"
	"github.com/jkratochvil/facemark/internal/store"
)

// FaceIdentifier runs the recognition pipeline for one image.
type FaceIdentifier interface {
	Identify(ctx context.Context, image []byte) ([]identify.Detection, error)
}

// IdentifyHandler handles face identification uploads.
type IdentifyHandler struct {
	identifier FaceIdentifier
	resolver   *attendance.Resolver
	detections store.DetectionRepository
}

// NewIdentifyHandler creates a new identify handler. detections may be nil
// to disable the audit log.
func NewIdentifyHandler(identifier FaceIdentifier, resolver *attendance.Resolver, detections store.DetectionRepository) *IdentifyHandler {
	return &IdentifyHandler{
		identifier: identifier,
		resolver:   resolver,
		detections: detections,
	}
}

type detectionResult struct {
	identify.Detection
	Action string `json:"action,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type identifyResponse struct {
	Detections []detectionResult `json:"detections"`
	Faces      int               `json:"faces"`
	Marked     int               `json:"marked"`
}

// Identify handles POST /identify. The multipart form carries the image
// plus optional subject, date, time and mode fields. Known faces are marked
// in the attendance ledger unless dry_run is set.
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
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

	subject := r.FormValue("subject")
	mode, err := parseMode(r.FormValue("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	explicitTime := r.FormValue("time") != ""
	eventTime, err := parseEventTime(r.FormValue("date"), r.FormValue("time"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date or time")
		return
	}
	dryRun, _ := strconv.ParseBool(r.FormValue("dry_run"))

	// A camera frame without a subject inherits the running class, if any.
	if subject == "" && mode == attendance.ModeLive && h.resolver != nil {
		slot, err := h.resolver.ActiveSlot(r.Context(), eventTime)
		if err != nil {
			log.Printf("active slot lookup: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to resolve schedule")
			return
		}
		if slot != nil {
			subject = slot.Subject
		}
	}

	detections, err := h.identifier.Identify(r.Context(), imageData)
	if err != nil {
		log.Printf("identify failed: %v", err)
		respondError(w, http.StatusBadGateway, "face identification failed")
		return
	}
	detections = identify.DedupeByLabel(detections)

	resp := identifyResponse{Detections: make([]detectionResult, 0, len(detections)), Faces: len(detections)}
	for _, det := range detections {
		h.audit(r.Context(), det, eventTime)

		result := detectionResult{Detection: det}
		if det.Known && !dryRun && h.resolver != nil {
			act, err := h.resolver.Mark(r.Context(), det.Label, subject, eventTime, mode, explicitTime)
			if err != nil {
				log.Printf("mark %s failed: %v", sanitizeForLog(det.Label), err)
				respondError(w, http.StatusInternalServerError, "failed to record attendance")
				return
			}
			result.Action = act.Kind.String()
			result.Reason = act.Reason
			if act.Kind != attendance.Suppress {
				resp.Marked++
			}
		}
		resp.Detections = append(resp.Detections, result)
	}

	respondJSON(w, http.StatusOK, resp)
}

// audit appends the detection to the audit log. Failures are logged and
// otherwise ignored so a broken audit table cannot block attendance.
func (h *IdentifyHandler) audit(ctx context.Context, det identify.Detection, eventTime time.Time) {
	if h.detections == nil {
		return
	}
	code := ""
	if det.Known {
		code = det.Label
	}
	ev := &store.DetectionEvent{
		ID:          uuid.NewString(),
		StudentCode: code,
		Label:       det.Label,
		Distance:    det.Distance,
		Known:       det.Known,
		Top:         det.Region.Top,
		Right:       det.Region.Right,
		Bottom:      det.Region.Bottom,
		Left:        det.Region.Left,
		Embedding:   det.Embedding,
		Source:      "upload",
		CreatedAt:   eventTime,
	}
	if err := h.detections.SaveDetection(ctx, ev); err != nil {
		log.Printf("save detection event: %v", err)
	}
}

// ListDetections handles GET /detections.
func (h *IdentifyHandler) ListDetections(w http.ResponseWriter, r *http.Request) {
	if h.detections == nil {
		respondError(w, http.StatusNotFound, "detection log is disabled")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	events, err := h.detections.ListDetections(r.Context(), r.URL.Query().Get("student"), limit)
	if err != nil {
		log.Printf("list detections: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list detections")
		return
	}
	if events == nil {
		events = []store.DetectionEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

func parseMode(value string) (attendance.Mode, error) {
	switch value {
	case "", "live":
		return attendance.ModeLive, nil
	case "manual":
		return attendance.ModeManual, nil
	case "bulk":
		return attendance.ModeBulk, nil
	default:
		return 0, fmt.Errorf("invalid mode %q", value)
	}
}
