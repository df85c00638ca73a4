// Package store defines the persisted domain types and repository interfaces.
// Implementations live in the postgres and mock subpackages.
package store

import (
	"time"
)

// Student is one enrolled identity. Code is the stable short identity code
// used as the classifier label and as the dataset folder prefix.
type Student struct {
	Code      string
	Name      string
	Year      string
	Section   string
	CreatedAt time.Time
}

// Status is the attendance state of a record.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// AttendanceRecord is one attendance event. Date is the civil date in UTC;
// RecordedAt is the full event timestamp and always carries an explicit
// offset (stored in UTC). Status is the only field mutated after creation.
type AttendanceRecord struct {
	ID          string
	StudentCode string
	Date        string // "2006-01-02", UTC civil date
	RecordedAt  time.Time
	Status      Status
	Subject     string // empty for bare-camera records
	SlotKey     string // duplicate-guard key, see attendance.Resolver
	CreatedAt   time.Time
}

// ScheduleSlot is one timetable entry. Start and End are "15:04" clock
// strings interpreted in UTC. Year and Section optionally scope the slot to
// a roster; Teacher is informational.
type ScheduleSlot struct {
	ID      string
	Subject string
	Weekday time.Weekday
	Start   string
	End     string
	Teacher string
	Year    string
	Section string
}

// DetectionEvent is one audit-log entry per classified face region. The
// stored vector allows re-scoring detections offline when tuning the
// acceptance threshold.
type DetectionEvent struct {
	ID          string
	StudentCode string // empty for unknown faces
	Label       string // raw classifier label, kept even when unresolvable
	Distance    float64
	Known       bool
	Top         int
	Right       int
	Bottom      int
	Left        int
	Embedding   []float32
	Source      string // "upload" or "live"
	CreatedAt   time.Time
}
