package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/jkratochvil/facemark/internal/store/mock"
)

const validTimetable = `
slots:
  - subject: Math
    weekday: Monday
    start: "10:00"
    end: "11:00"
    teacher: Novak
    year: "3"
    section: A
  - subject: Physics
    weekday: tuesday
    start: "08:15"
    end: "09:00"
`

func TestParse(t *testing.T) {
	slots, err := Parse([]byte(validTimetable))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Weekday != time.Monday || slots[0].Subject != "Math" {
		t.Errorf("unexpected first slot %+v", slots[0])
	}
	if slots[1].Weekday != time.Tuesday {
		t.Errorf("weekday parsing should be case-insensitive, got %v", slots[1].Weekday)
	}
	if slots[0].ID == "" || slots[0].ID == slots[1].ID {
		t.Errorf("slots must get distinct IDs")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty file", "slots: []"},
		{"bad weekday", "slots:\n  - subject: Math\n    weekday: someday\n    start: \"10:00\"\n    end: \"11:00\""},
		{"bad clock", "slots:\n  - subject: Math\n    weekday: monday\n    start: \"25:00\"\n    end: \"26:00\""},
		{"end before start", "slots:\n  - subject: Math\n    weekday: monday\n    start: \"11:00\"\n    end: \"10:00\""},
		{"missing subject", "slots:\n  - weekday: monday\n    start: \"10:00\"\n    end: \"11:00\""},
		{"not yaml", "{{{"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}

func TestImport(t *testing.T) {
	repo := mock.NewRepo()
	n, err := Import(context.Background(), repo, []byte(validTimetable))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported slots, got %d", n)
	}
	slots, err := repo.ListSlots(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Errorf("expected 2 stored slots, got %d", len(slots))
	}
}
