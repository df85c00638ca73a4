// Package attendance decides what a face detection means for the attendance
// ledger: create a record, flip an absent one, or suppress a duplicate.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/store"
)

// Mode describes how an attendance event reached the resolver. It selects
// the fallback window width when no schedule slot covers the event.
type Mode int

const (
	// ModeLive is a detection from a camera or an uploaded photo.
	ModeLive Mode = iota
	// ModeManual is a single record entered by an operator.
	ModeManual
	// ModeBulk is an import of historical records.
	ModeBulk
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeManual:
		return "manual"
	case ModeBulk:
		return "bulk"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ActionKind is the resolver's decision for one attendance event.
type ActionKind int

const (
	// CreateNewPresent records a new Present row.
	CreateNewPresent ActionKind = iota
	// FlipAbsentToPresent upgrades an existing Absent row in the same window.
	FlipAbsentToPresent
	// Suppress drops the event because an equivalent record already exists.
	Suppress
)

func (k ActionKind) String() string {
	switch k {
	case CreateNewPresent:
		return "CreateNewPresent"
	case FlipAbsentToPresent:
		return "FlipAbsentToPresent"
	case Suppress:
		return "Suppress"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is the resolved outcome for one event. Record points at the
// existing row for FlipAbsentToPresent and Suppress, and at the newly
// created row after Mark executes a CreateNewPresent.
type Action struct {
	Kind    ActionKind
	Reason  string
	Record  *store.AttendanceRecord
	SlotKey string
}

// Window is the time span an event is matched against. Slot is non-nil
// when a schedule slot produced the span.
type Window struct {
	Start time.Time
	End   time.Time
	Slot  *store.ScheduleSlot
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Resolver decides what each attendance event does to the ledger. All
// timestamps are interpreted in UTC.
type Resolver struct {
	records  store.AttendanceRepository
	schedule store.ScheduleRepository
	students store.StudentRepository
	cfg      config.AttendanceConfig
}

// NewResolver creates a resolver on top of the given repositories.
func NewResolver(records store.AttendanceRepository, schedule store.ScheduleRepository, students store.StudentRepository, cfg config.AttendanceConfig) *Resolver {
	return &Resolver{
		records:  records,
		schedule: schedule,
		students: students,
		cfg:      cfg,
	}
}

// Resolve decides the action for one event without writing anything. An
// empty subject means a bare camera event, which is deduplicated by a
// global cooldown instead of a subject window.
func (r *Resolver) Resolve(ctx context.Context, studentCode, subject string, eventTime time.Time, mode Mode) (Action, error) {
	eventTime = eventTime.UTC()

	if subject == "" {
		return r.resolveBare(ctx, studentCode, eventTime)
	}

	win, err := r.WindowFor(ctx, subject, eventTime, mode)
	if err != nil {
		return Action{}, err
	}

	date := eventTime.Format("2006-01-02")
	recs, err := r.records.GetAttendance(ctx, studentCode, subject, date)
	if err != nil {
		return Action{}, fmt.Errorf("load attendance for %s: %w", studentCode, err)
	}

	slotKey := slotKeyFor(win, eventTime)
	for i := range recs {
		rec := &recs[i]
		if !win.Contains(rec.RecordedAt) {
			continue
		}
		if rec.Status == store.StatusAbsent {
			return Action{Kind: FlipAbsentToPresent, Record: rec, SlotKey: slotKey}, nil
		}
		return Action{
			Kind:    Suppress,
			Reason:  fmt.Sprintf("already marked %s at %s", rec.Status, rec.RecordedAt.Format(time.RFC3339)),
			Record:  rec,
			SlotKey: slotKey,
		}, nil
	}

	return Action{Kind: CreateNewPresent, SlotKey: slotKey}, nil
}

func (r *Resolver) resolveBare(ctx context.Context, studentCode string, eventTime time.Time) (Action, error) {
	latest, err := r.records.LatestAttendance(ctx, studentCode)
	if errors.Is(err, store.ErrNotFound) {
		return Action{Kind: CreateNewPresent, SlotKey: bareSlotKey(eventTime)}, nil
	}
	if err != nil {
		return Action{}, fmt.Errorf("load latest attendance for %s: %w", studentCode, err)
	}

	cooldown := time.Duration(r.cfg.CooldownMin) * time.Minute
	elapsed := eventTime.Sub(latest.RecordedAt)
	if elapsed < cooldown {
		return Action{
			Kind:    Suppress,
			Reason:  fmt.Sprintf("seen %s ago, cooldown %s", elapsed.Round(time.Second), cooldown),
			Record:  latest,
			SlotKey: bareSlotKey(eventTime),
		}, nil
	}
	return Action{Kind: CreateNewPresent, SlotKey: bareSlotKey(eventTime)}, nil
}

// Mark resolves the event and applies the resulting action. A duplicate
// insert lost to a concurrent writer degrades into a Suppress. In manual
// and bulk modes a flip also rewrites the record's event time, but only
// when explicitTime says the caller supplied one rather than defaulting
// to the current clock.
func (r *Resolver) Mark(ctx context.Context, studentCode, subject string, eventTime time.Time, mode Mode, explicitTime bool) (Action, error) {
	act, err := r.Resolve(ctx, studentCode, subject, eventTime, mode)
	if err != nil {
		return Action{}, err
	}

	switch act.Kind {
	case CreateNewPresent:
		rec := &store.AttendanceRecord{
			ID:          uuid.NewString(),
			StudentCode: studentCode,
			Date:        eventTime.UTC().Format("2006-01-02"),
			RecordedAt:  eventTime.UTC(),
			Status:      store.StatusPresent,
			Subject:     subject,
			SlotKey:     act.SlotKey,
		}
		if err := r.records.CreateAttendance(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicateRecord) {
				return Action{Kind: Suppress, Reason: "lost race to concurrent write", SlotKey: act.SlotKey}, nil
			}
			return Action{}, err
		}
		act.Record = rec

	case FlipAbsentToPresent:
		var at *time.Time
		if explicitTime && (mode == ModeManual || mode == ModeBulk) {
			t := eventTime.UTC()
			at = &t
		}
		if err := r.records.SetAttendanceStatus(ctx, act.Record.ID, store.StatusPresent, at); err != nil {
			return Action{}, fmt.Errorf("flip record %s: %w", act.Record.ID, err)
		}
		act.Record.Status = store.StatusPresent
		if at != nil {
			act.Record.RecordedAt = *at
		}
	}

	return act, nil
}

// ActiveSlot returns the schedule slot whose buffered span covers the
// given time, or nil when no class is running. Camera events without an
// explicit subject use it to inherit the running class's subject.
func (r *Resolver) ActiveSlot(ctx context.Context, at time.Time) (*store.ScheduleSlot, error) {
	at = at.UTC()

	slots, err := r.schedule.SlotsOn(ctx, at.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	buffer := time.Duration(r.cfg.SlotBufferMin) * time.Minute
	for i := range slots {
		slot := &slots[i]
		start, end, err := slotSpan(slot, at)
		if err != nil {
			return nil, err
		}
		win := Window{Start: start.Add(-buffer), End: end.Add(buffer), Slot: slot}
		if win.Contains(at) {
			return slot, nil
		}
	}
	return nil, nil
}

// WindowFor computes the matching window for a subject event. When a
// schedule slot for the subject covers the event time (including the slot
// buffer on both sides) the slot's buffered span is used, otherwise a
// symmetric window around the event whose half-width depends on the mode.
func (r *Resolver) WindowFor(ctx context.Context, subject string, eventTime time.Time, mode Mode) (Window, error) {
	eventTime = eventTime.UTC()

	slots, err := r.schedule.SlotsFor(ctx, subject, eventTime.Weekday())
	if err != nil {
		return Window{}, fmt.Errorf("load slots for %q: %w", subject, err)
	}

	buffer := time.Duration(r.cfg.SlotBufferMin) * time.Minute
	for i := range slots {
		slot := &slots[i]
		start, end, err := slotSpan(slot, eventTime)
		if err != nil {
			return Window{}, err
		}
		win := Window{Start: start.Add(-buffer), End: end.Add(buffer), Slot: slot}
		if win.Contains(eventTime) {
			return win, nil
		}
	}

	half := r.fallbackHalfWidth(mode)
	return Window{Start: eventTime.Add(-half), End: eventTime.Add(half)}, nil
}

func (r *Resolver) fallbackHalfWidth(mode Mode) time.Duration {
	switch mode {
	case ModeManual:
		return time.Duration(r.cfg.WindowManualMin) * time.Minute
	case ModeBulk:
		return time.Duration(r.cfg.WindowBulkMin) * time.Minute
	default:
		return time.Duration(r.cfg.WindowLiveMin) * time.Minute
	}
}

// slotSpan anchors a slot's clock times to the event's UTC date.
func slotSpan(slot *store.ScheduleSlot, eventTime time.Time) (time.Time, time.Time, error) {
	start, err := clockOn(slot.Start, eventTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("slot %s start: %w", slot.ID, err)
	}
	end, err := clockOn(slot.End, eventTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("slot %s end: %w", slot.ID, err)
	}
	return start, end, nil
}

func clockOn(clock string, day time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	y, m, d := day.UTC().Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// slotKeyFor builds the duplicate-guard key for a record. Slot-sourced
// windows key on the slot so a second period of the same subject on the
// same day stays a separate record. Fallback windows key on the event's
// hour bucket, which catches concurrent duplicates of the same event while
// letting a genuinely later event through.
func slotKeyFor(win Window, eventTime time.Time) string {
	if win.Slot != nil {
		return "slot:" + win.Slot.ID
	}
	return "t:" + eventTime.UTC().Format("2006-01-02T15")
}

func bareSlotKey(eventTime time.Time) string {
	return "t:" + eventTime.UTC().Format("2006-01-02T15")
}
