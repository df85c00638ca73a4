package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/jkratochvil/facemark/internal/schedule"
	"github.com/jkratochvil/facemark/internal/store"
)

// maxTimetableSize limits uploaded timetable files to 1 MB.
const maxTimetableSize = 1 << 20

// ScheduleHandler handles timetable endpoints.
type ScheduleHandler struct {
	slots store.ScheduleRepository
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(slots store.ScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{slots: slots}
}

// List handles GET /schedule.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ListSlots(r.Context())
	if err != nil {
		log.Printf("list slots: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list schedule")
		return
	}
	if slots == nil {
		slots = []store.ScheduleSlot{}
	}
	respondJSON(w, http.StatusOK, slots)
}

// Import handles POST /schedule/import. The request body is the YAML
// timetable document.
func (h *ScheduleHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxTimetableSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "timetable body is required")
		return
	}

	created, err := schedule.Import(r.Context(), h.slots, data)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int{"slots": created})
}
