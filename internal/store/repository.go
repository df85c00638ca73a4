package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRecord is returned when inserting an attendance record
	// that collides with the duplicate-guard index. Callers treat it as a
	// concurrent equivalent write, not a failure.
	ErrDuplicateRecord = errors.New("duplicate attendance record")
)

// StudentRepository manages the enrolled roster.
type StudentRepository interface {
	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, code string) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	// ListRoster returns students in the given year/section scope. Empty
	// year and section mean the whole roster.
	ListRoster(ctx context.Context, year, section string) ([]Student, error)
}

// AttendanceRepository manages attendance records. Every query compares
// subjects in their NormalizeSubject form, so case and diacritics are
// ignored.
type AttendanceRepository interface {
	// CreateAttendance inserts a new record. Returns ErrDuplicateRecord
	// when (student, date, subject, slot key) already exists.
	CreateAttendance(ctx context.Context, rec *AttendanceRecord) error
	// SetAttendanceStatus mutates the status of an existing record. When
	// recordedAt is non-nil the event timestamp is rewritten as well.
	SetAttendanceStatus(ctx context.Context, id string, status Status, recordedAt *time.Time) error
	// GetAttendance returns all records for the student, civil date and
	// subject, newest first. An empty subject matches bare-camera records.
	GetAttendance(ctx context.Context, studentCode, subject, date string) ([]AttendanceRecord, error)
	// LatestAttendance returns the most recent record for the student
	// across all subjects and dates, or ErrNotFound.
	LatestAttendance(ctx context.Context, studentCode string) (*AttendanceRecord, error)
	// ListAttendanceByDate returns every record on the civil date,
	// optionally filtered by subject.
	ListAttendanceByDate(ctx context.Context, date, subject string) ([]AttendanceRecord, error)
}

// ScheduleRepository manages the timetable.
type ScheduleRepository interface {
	CreateSlot(ctx context.Context, slot *ScheduleSlot) error
	ListSlots(ctx context.Context) ([]ScheduleSlot, error)
	// SlotsFor returns slots for the subject on the weekday, earliest
	// start first. Subjects match in their NormalizeSubject form.
	SlotsFor(ctx context.Context, subject string, weekday time.Weekday) ([]ScheduleSlot, error)
	// SlotsOn returns all slots on the weekday, earliest start first.
	SlotsOn(ctx context.Context, weekday time.Weekday) ([]ScheduleSlot, error)
}

// DetectionRepository persists the per-region audit log.
type DetectionRepository interface {
	SaveDetection(ctx context.Context, ev *DetectionEvent) error
	ListDetections(ctx context.Context, studentCode string, limit int) ([]DetectionEvent, error)
}

// Repository aggregates all persistence concerns behind one handle.
type Repository interface {
	StudentRepository
	AttendanceRepository
	ScheduleRepository
	DetectionRepository
}
