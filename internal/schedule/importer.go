// Package schedule imports timetable definitions from YAML files.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jkratochvil/facemark/internal/store"
)

type timetableFile struct {
	Slots []slotEntry `yaml:"slots"`
}

type slotEntry struct {
	Subject string `yaml:"subject"`
	Weekday string `yaml:"weekday"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Teacher string `yaml:"teacher"`
	Year    string `yaml:"year"`
	Section string `yaml:"section"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parse reads a YAML timetable and returns validated slots with fresh IDs.
func Parse(data []byte) ([]store.ScheduleSlot, error) {
	var file timetableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse timetable: %w", err)
	}
	if len(file.Slots) == 0 {
		return nil, fmt.Errorf("timetable contains no slots")
	}

	slots := make([]store.ScheduleSlot, 0, len(file.Slots))
	for i, entry := range file.Slots {
		slot, err := entry.toSlot()
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (e slotEntry) toSlot() (store.ScheduleSlot, error) {
	if e.Subject == "" {
		return store.ScheduleSlot{}, fmt.Errorf("subject is required")
	}
	weekday, ok := weekdays[strings.ToLower(strings.TrimSpace(e.Weekday))]
	if !ok {
		return store.ScheduleSlot{}, fmt.Errorf("invalid weekday %q", e.Weekday)
	}
	start, err := parseClock(e.Start)
	if err != nil {
		return store.ScheduleSlot{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseClock(e.End)
	if err != nil {
		return store.ScheduleSlot{}, fmt.Errorf("end: %w", err)
	}
	if end <= start {
		return store.ScheduleSlot{}, fmt.Errorf("end %q is not after start %q", e.End, e.Start)
	}

	return store.ScheduleSlot{
		ID:      uuid.NewString(),
		Subject: e.Subject,
		Weekday: weekday,
		Start:   e.Start,
		End:     e.End,
		Teacher: e.Teacher,
		Year:    e.Year,
		Section: e.Section,
	}, nil
}

// parseClock validates a "15:04" string and returns minutes from midnight.
func parseClock(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Import parses the YAML timetable and stores every slot. Returns the
// number of slots created.
func Import(ctx context.Context, repo store.ScheduleRepository, data []byte) (int, error) {
	slots, err := Parse(data)
	if err != nil {
		return 0, err
	}
	for i := range slots {
		if err := repo.CreateSlot(ctx, &slots[i]); err != nil {
			return i, fmt.Errorf("store slot %s %s: %w", slots[i].Subject, slots[i].Start, err)
		}
	}
	return len(slots), nil
}
