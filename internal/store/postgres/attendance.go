package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jkratochvil/facemark/internal/store"
)

const uniqueViolation = "23505"

// CreateAttendance inserts a new attendance record. The subject is stored
// as given plus in its normalized form, which the duplicate-guard index and
// all subject lookups use. Returns store.ErrDuplicateRecord when the index
// rejects the row.
func (r *Repo) CreateAttendance(ctx context.Context, rec *store.AttendanceRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_records (id, student_code, date, recorded_at, status, subject, subject_norm, slot_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, rec.ID, rec.StudentCode, rec.Date, rec.RecordedAt.UTC(), string(rec.Status), rec.Subject, store.NormalizeSubject(rec.Subject), rec.SlotKey)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return store.ErrDuplicateRecord
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// SetAttendanceStatus mutates the status of an existing record. When
// recordedAt is non-nil the event timestamp is rewritten as well.
func (r *Repo) SetAttendanceStatus(ctx context.Context, id string, status store.Status, recordedAt *time.Time) error {
	var (
		result sql.Result
		err    error
	)
	if recordedAt != nil {
		result, err = r.pool.Exec(ctx, `
			UPDATE attendance_records SET status = $2, recorded_at = $3 WHERE id = $1
		`, id, string(status), recordedAt.UTC())
	} else {
		result, err = r.pool.Exec(ctx, `
			UPDATE attendance_records SET status = $2 WHERE id = $1
		`, id, string(status))
	}
	if err != nil {
		return fmt.Errorf("update attendance status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetAttendance returns all records for the student, civil date and subject,
// newest first. Subjects match on their normalized form, so case and
// diacritics are ignored; an empty subject matches bare-camera records.
func (r *Repo) GetAttendance(ctx context.Context, studentCode, subject, date string) ([]store.AttendanceRecord, error) {
	return r.listAttendance(ctx, `
		SELECT id, student_code, date, recorded_at, status, subject, slot_key, created_at
		FROM attendance_records
		WHERE student_code = $1 AND date = $2 AND subject_norm = $3
		ORDER BY recorded_at DESC
	`, studentCode, date, store.NormalizeSubject(subject))
}

// LatestAttendance returns the most recent record for the student across all
// subjects and dates, or store.ErrNotFound.
func (r *Repo) LatestAttendance(ctx context.Context, studentCode string) (*store.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, student_code, date, recorded_at, status, subject, slot_key, created_at
		FROM attendance_records
		WHERE student_code = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, studentCode)

	var rec store.AttendanceRecord
	err := scanAttendance(row.Scan, &rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan attendance record: %w", err)
	}
	return &rec, nil
}

// ListAttendanceByDate returns every record on the civil date, optionally
// filtered by subject.
func (r *Repo) ListAttendanceByDate(ctx context.Context, date, subject string) ([]store.AttendanceRecord, error) {
	return r.listAttendance(ctx, `
		SELECT id, student_code, date, recorded_at, status, subject, slot_key, created_at
		FROM attendance_records
		WHERE date = $1 AND ($2 = '' OR subject_norm = $2)
		ORDER BY recorded_at DESC
	`, date, store.NormalizeSubject(subject))
}

func (r *Repo) listAttendance(ctx context.Context, query string, args ...any) ([]store.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		if err := scanAttendance(rows.Scan, &rec); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

func scanAttendance(scan func(...any) error, rec *store.AttendanceRecord) error {
	var (
		date   time.Time
		status string
	)
	if err := scan(&rec.ID, &rec.StudentCode, &date, &rec.RecordedAt, &status, &rec.Subject, &rec.SlotKey, &rec.CreatedAt); err != nil {
		return err
	}
	rec.Date = date.Format("2006-01-02")
	rec.Status = store.Status(status)
	rec.RecordedAt = rec.RecordedAt.UTC()
	return nil
}
