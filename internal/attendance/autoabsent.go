package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jkratochvil/facemark/internal/store"
)

// MarkAbsentees writes Absent records for every roster student without a
// record in the subject's window. Students in the detected set and students
// who already have any record in the window are left alone, so running it
// twice is a no-op and a Present row is never downgraded. Returns the
// number of Absent records created.
func (r *Resolver) MarkAbsentees(ctx context.Context, subject string, eventTime time.Time, year, section string, detected []string) (int, error) {
	if subject == "" {
		return 0, errors.New("subject is required for absentee marking")
	}
	eventTime = eventTime.UTC()

	roster, err := r.students.ListRoster(ctx, year, section)
	if err != nil {
		return 0, fmt.Errorf("load roster: %w", err)
	}

	seen := make(map[string]bool, len(detected))
	for _, code := range detected {
		seen[code] = true
	}

	win, err := r.WindowFor(ctx, subject, eventTime, ModeLive)
	if err != nil {
		return 0, err
	}
	slotKey := slotKeyFor(win, eventTime)
	date := eventTime.Format("2006-01-02")

	created := 0
	for _, student := range roster {
		if seen[student.Code] {
			continue
		}

		recs, err := r.records.GetAttendance(ctx, student.Code, subject, date)
		if err != nil {
			return created, fmt.Errorf("load attendance for %s: %w", student.Code, err)
		}
		covered := false
		for i := range recs {
			if win.Contains(recs[i].RecordedAt) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}

		rec := &store.AttendanceRecord{
			ID:          uuid.NewString(),
			StudentCode: student.Code,
			Date:        date,
			RecordedAt:  eventTime,
			Status:      store.StatusAbsent,
			Subject:     subject,
			SlotKey:     slotKey,
		}
		if err := r.records.CreateAttendance(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicateRecord) {
				continue
			}
			return created, fmt.Errorf("mark %s absent: %w", student.Code, err)
		}
		created++
	}

	return created, nil
}
