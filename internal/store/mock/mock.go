// Package mock provides an in-memory implementation of store.Repository
// for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jkratochvil/facemark/internal/store"
)

// sameSubject mirrors the normalized subject matching of the PostgreSQL
// repositories.
func sameSubject(a, b string) bool {
	return store.NormalizeSubject(a) == store.NormalizeSubject(b)
}

// Repo is an in-memory implementation of store.Repository. The exported
// error fields inject failures into individual operations.
type Repo struct {
	mu         sync.RWMutex
	students   map[string]store.Student
	records    map[string]store.AttendanceRecord
	slots      []store.ScheduleSlot
	detections []store.DetectionEvent

	// Error injection
	CreateStudentError    error
	GetStudentError       error
	ListStudentsError     error
	CreateAttendanceError error
	SetStatusError        error
	GetAttendanceError    error
	LatestError           error
	ListByDateError       error
	CreateSlotError       error
	ListSlotsError        error
	SaveDetectionError    error
	ListDetectionsError   error
}

// NewRepo creates a new empty in-memory repository.
func NewRepo() *Repo {
	return &Repo{
		students: make(map[string]store.Student),
		records:  make(map[string]store.AttendanceRecord),
	}
}

// CreateStudent inserts a new student row.
func (m *Repo) CreateStudent(ctx context.Context, s *store.Student) error {
	if m.CreateStudentError != nil {
		return m.CreateStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *s
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.students[s.Code] = stored
	return nil
}

// GetStudent retrieves a student by code.
func (m *Repo) GetStudent(ctx context.Context, code string) (*store.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

// ListStudents returns all students ordered by code.
func (m *Repo) ListStudents(ctx context.Context) ([]store.Student, error) {
	return m.ListRoster(ctx, "", "")
}

// ListRoster returns students in the given year/section scope.
func (m *Repo) ListRoster(ctx context.Context, year, section string) ([]store.Student, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var students []store.Student
	for _, s := range m.students {
		if year != "" && s.Year != year {
			continue
		}
		if section != "" && s.Section != section {
			continue
		}
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Code < students[j].Code })
	return students, nil
}

// CreateAttendance inserts a new record, enforcing the duplicate-guard key
// the same way the PostgreSQL unique index does.
func (m *Repo) CreateAttendance(ctx context.Context, rec *store.AttendanceRecord) error {
	if m.CreateAttendanceError != nil {
		return m.CreateAttendanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.StudentCode == rec.StudentCode &&
			existing.Date == rec.Date &&
			sameSubject(existing.Subject, rec.Subject) &&
			existing.SlotKey == rec.SlotKey {
			return store.ErrDuplicateRecord
		}
	}
	stored := *rec
	stored.RecordedAt = rec.RecordedAt.UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.records[rec.ID] = stored
	return nil
}

// SetAttendanceStatus mutates the status of an existing record.
func (m *Repo) SetAttendanceStatus(ctx context.Context, id string, status store.Status, recordedAt *time.Time) error {
	if m.SetStatusError != nil {
		return m.SetStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Status = status
	if recordedAt != nil {
		rec.RecordedAt = recordedAt.UTC()
	}
	m.records[id] = rec
	return nil
}

// GetAttendance returns records for the student, date and subject, newest first.
func (m *Repo) GetAttendance(ctx context.Context, studentCode, subject, date string) ([]store.AttendanceRecord, error) {
	if m.GetAttendanceError != nil {
		return nil, m.GetAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []store.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentCode == studentCode && rec.Date == date && sameSubject(rec.Subject, subject) {
			records = append(records, rec)
		}
	}
	sortNewestFirst(records)
	return records, nil
}

// LatestAttendance returns the most recent record for the student.
func (m *Repo) LatestAttendance(ctx context.Context, studentCode string) (*store.AttendanceRecord, error) {
	if m.LatestError != nil {
		return nil, m.LatestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *store.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentCode != studentCode {
			continue
		}
		if latest == nil || rec.RecordedAt.After(latest.RecordedAt) {
			r := rec
			latest = &r
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

// ListAttendanceByDate returns every record on the civil date.
func (m *Repo) ListAttendanceByDate(ctx context.Context, date, subject string) ([]store.AttendanceRecord, error) {
	if m.ListByDateError != nil {
		return nil, m.ListByDateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []store.AttendanceRecord
	for _, rec := range m.records {
		if rec.Date != date {
			continue
		}
		if subject != "" && !sameSubject(rec.Subject, subject) {
			continue
		}
		records = append(records, rec)
	}
	sortNewestFirst(records)
	return records, nil
}

// CreateSlot inserts a new timetable entry.
func (m *Repo) CreateSlot(ctx context.Context, slot *store.ScheduleSlot) error {
	if m.CreateSlotError != nil {
		return m.CreateSlotError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = append(m.slots, *slot)
	return nil
}

// ListSlots returns the whole timetable ordered by weekday and start time.
func (m *Repo) ListSlots(ctx context.Context) ([]store.ScheduleSlot, error) {
	if m.ListSlotsError != nil {
		return nil, m.ListSlotsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]store.ScheduleSlot, len(m.slots))
	copy(slots, m.slots)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Weekday != slots[j].Weekday {
			return slots[i].Weekday < slots[j].Weekday
		}
		return slots[i].Start < slots[j].Start
	})
	return slots, nil
}

// SlotsFor returns slots for the subject on the weekday, earliest start first.
func (m *Repo) SlotsFor(ctx context.Context, subject string, weekday time.Weekday) ([]store.ScheduleSlot, error) {
	if m.ListSlotsError != nil {
		return nil, m.ListSlotsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var slots []store.ScheduleSlot
	for _, slot := range m.slots {
		if slot.Weekday == weekday && sameSubject(slot.Subject, subject) {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots, nil
}

// SlotsOn returns all slots on the weekday, earliest start first.
func (m *Repo) SlotsOn(ctx context.Context, weekday time.Weekday) ([]store.ScheduleSlot, error) {
	if m.ListSlotsError != nil {
		return nil, m.ListSlotsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var slots []store.ScheduleSlot
	for _, slot := range m.slots {
		if slot.Weekday == weekday {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots, nil
}

// SaveDetection appends one audit-log entry.
func (m *Repo) SaveDetection(ctx context.Context, ev *store.DetectionEvent) error {
	if m.SaveDetectionError != nil {
		return m.SaveDetectionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *ev
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.detections = append(m.detections, stored)
	return nil
}

// ListDetections returns the most recent audit-log entries, newest first.
func (m *Repo) ListDetections(ctx context.Context, studentCode string, limit int) ([]store.DetectionEvent, error) {
	if m.ListDetectionsError != nil {
		return nil, m.ListDetectionsError
	}
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []store.DetectionEvent
	for i := len(m.detections) - 1; i >= 0 && len(events) < limit; i-- {
		ev := m.detections[i]
		if studentCode != "" && ev.StudentCode != studentCode {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Records returns a copy of all stored attendance records, for assertions.
func (m *Repo) Records() []store.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]store.AttendanceRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sortNewestFirst(records)
	return records
}

// Detections returns a copy of all stored detection events, for assertions.
func (m *Repo) Detections() []store.DetectionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]store.DetectionEvent, len(m.detections))
	copy(events, m.detections)
	return events
}

func sortNewestFirst(records []store.AttendanceRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].RecordedAt.After(records[j].RecordedAt)
	})
}
