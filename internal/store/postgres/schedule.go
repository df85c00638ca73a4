package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jkratochvil/facemark/internal/store"
)

// CreateSlot inserts a new timetable entry. The normalized subject is
// stored alongside for lookups.
func (r *Repo) CreateSlot(ctx context.Context, slot *store.ScheduleSlot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_slots (id, subject, subject_norm, weekday, start_time, end_time, teacher, year, section)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, slot.ID, slot.Subject, store.NormalizeSubject(slot.Subject), int(slot.Weekday), slot.Start, slot.End, slot.Teacher, slot.Year, slot.Section)
	if err != nil {
		return fmt.Errorf("insert schedule slot: %w", err)
	}
	return nil
}

// ListSlots returns the whole timetable ordered by weekday and start time.
func (r *Repo) ListSlots(ctx context.Context) ([]store.ScheduleSlot, error) {
	return r.listSlots(ctx, `
		SELECT id, subject, weekday, start_time, end_time, teacher, year, section
		FROM schedule_slots
		ORDER BY weekday, start_time
	`)
}

// SlotsFor returns slots for the subject on the weekday, earliest start
// first. Subjects match on their normalized form, so case and diacritics
// are ignored.
func (r *Repo) SlotsFor(ctx context.Context, subject string, weekday time.Weekday) ([]store.ScheduleSlot, error) {
	return r.listSlots(ctx, `
		SELECT id, subject, weekday, start_time, end_time, teacher, year, section
		FROM schedule_slots
		WHERE subject_norm = $1 AND weekday = $2
		ORDER BY start_time
	`, store.NormalizeSubject(subject), int(weekday))
}

// SlotsOn returns all slots on the weekday, earliest start first.
func (r *Repo) SlotsOn(ctx context.Context, weekday time.Weekday) ([]store.ScheduleSlot, error) {
	return r.listSlots(ctx, `
		SELECT id, subject, weekday, start_time, end_time, teacher, year, section
		FROM schedule_slots
		WHERE weekday = $1
		ORDER BY start_time
	`, int(weekday))
}

func (r *Repo) listSlots(ctx context.Context, query string, args ...any) ([]store.ScheduleSlot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedule slots: %w", err)
	}
	defer rows.Close()

	var slots []store.ScheduleSlot
	for rows.Next() {
		var (
			slot    store.ScheduleSlot
			weekday int
		)
		if err := rows.Scan(&slot.ID, &slot.Subject, &weekday, &slot.Start, &slot.End, &slot.Teacher, &slot.Year, &slot.Section); err != nil {
			return nil, fmt.Errorf("scan schedule slot: %w", err)
		}
		slot.Weekday = time.Weekday(weekday)
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule slots: %w", err)
	}
	return slots, nil
}
