package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/jkratochvil/facemark/internal/classifier"
)

// ModelTrainer rebuilds the classifier from the dataset.
type ModelTrainer interface {
	Train(ctx context.Context) (*classifier.Summary, error)
}

// TrainHandler handles model training requests.
type TrainHandler struct {
	trainer ModelTrainer
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(trainer ModelTrainer) *TrainHandler {
	return &TrainHandler{trainer: trainer}
}

// Train handles POST /train. Training runs synchronously; the trainer
// serializes concurrent requests internally.
func (h *TrainHandler) Train(w http.ResponseWriter, r *http.Request) {
	summary, err := h.trainer.Train(r.Context())
	if err != nil {
		log.Printf("training failed: %v", err)
		respondError(w, http.StatusInternalServerError, "training failed")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
