package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jkratochvil/facemark/internal/classifier"
	"github.com/jkratochvil/facemark/internal/store"
	"github.com/jkratochvil/facemark/internal/store/mock"
)

const timetableYAML = `
slots:
  - subject: Math
    weekday: monday
    start: "10:00"
    end: "11:00"
`

func TestScheduleHandler_Import(t *testing.T) {
	repo := mock.NewRepo()
	handler := NewScheduleHandler(repo)

	req := httptest.NewRequest("POST", "/api/v1/schedule/import", strings.NewReader(timetableYAML))
	recorder := httptest.NewRecorder()
	handler.Import(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	slots, err := repo.ListSlots(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || slots[0].Subject != "Math" {
		t.Errorf("unexpected slots %+v", slots)
	}
}

func TestScheduleHandler_Import_Invalid(t *testing.T) {
	handler := NewScheduleHandler(mock.NewRepo())

	t.Run("empty body", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Import(recorder, httptest.NewRequest("POST", "/api/v1/schedule/import", strings.NewReader("")))
		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("bad yaml", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Import(recorder, httptest.NewRequest("POST", "/api/v1/schedule/import", strings.NewReader("slots: [{}]")))
		assertStatusCode(t, recorder, http.StatusBadRequest)
	})
}

func TestScheduleHandler_List(t *testing.T) {
	repo := mock.NewRepo()
	if err := repo.CreateSlot(context.Background(), &store.ScheduleSlot{ID: "s1", Subject: "Math", Start: "10:00", End: "11:00"}); err != nil {
		t.Fatal(err)
	}
	handler := NewScheduleHandler(repo)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/schedule", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var slots []store.ScheduleSlot
	parseJSONResponse(t, recorder, &slots)
	if len(slots) != 1 {
		t.Errorf("expected 1 slot, got %d", len(slots))
	}
}

type stubTrainer struct {
	summary *classifier.Summary
	err     error
}

func (s *stubTrainer) Train(ctx context.Context) (*classifier.Summary, error) {
	return s.summary, s.err
}

func TestTrainHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := NewTrainHandler(&stubTrainer{summary: &classifier.Summary{Identities: 2, Samples: 6}})
		recorder := httptest.NewRecorder()
		handler.Train(recorder, httptest.NewRequest("POST", "/api/v1/train", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var summary classifier.Summary
		parseJSONResponse(t, recorder, &summary)
		if summary.Identities != 2 || summary.Samples != 6 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("failure", func(t *testing.T) {
		handler := NewTrainHandler(&stubTrainer{err: errors.New("no face data")})
		recorder := httptest.NewRecorder()
		handler.Train(recorder, httptest.NewRequest("POST", "/api/v1/train", nil))
		assertStatusCode(t, recorder, http.StatusInternalServerError)
	})
}
