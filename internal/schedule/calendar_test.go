package schedule

import (
	"testing"
	"time"

	"github.com/spec-kit/govdesk/internal/domain"
)

func TestSlots(t *testing.T) {
	base := &domain.Department{ID: "d1", OpenHour: 8, CloseHour: 16}

	tests := []struct {
		name        string
		dept        *domain.Department
		granularity int
		wantLen     int
		wantFirst   string
		wantLast    string
	}{
		{
			name:        "quarter hour full day",
			dept:        base,
			granularity: 15,
			wantLen:     32,
			wantFirst:   "08:00",
			wantLast:    "15:45",
		},
		{
			name:        "half hour granularity",
			dept:        base,
			granularity: 30,
			wantLen:     16,
			wantFirst:   "08:00",
			wantLast:    "15:30",
		},
		{
			name:        "ten minute granularity keeps 15:50 rule",
			dept:        base,
			granularity: 10,
			wantLen:     48,
			wantFirst:   "08:00",
			wantLast:    "15:50",
		},
		{
			name:        "zero granularity falls back to default",
			dept:        base,
			granularity: 0,
			wantLen:     32,
			wantFirst:   "08:00",
			wantLast:    "15:45",
		},
		{
			name:        "lunch break removes midday slots",
			dept:        &domain.Department{ID: "d2", OpenHour: 8, CloseHour: 16, LunchBreak: true},
			granularity: 15,
			wantLen:     28,
			wantFirst:   "08:00",
			wantLast:    "15:45",
		},
		{
			name:        "short afternoon window",
			dept:        &domain.Department{ID: "d3", OpenHour: 13, CloseHour: 15},
			granularity: 15,
			wantLen:     8,
			wantFirst:   "13:00",
			wantLast:    "14:45",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slots := Slots(tc.dept, tc.granularity)
			if len(slots) != tc.wantLen {
				t.Fatalf("got %d slots, want %d: %v", len(slots), tc.wantLen, slots)
			}
			if slots[0] != tc.wantFirst {
				t.Errorf("first slot = %s, want %s", slots[0], tc.wantFirst)
			}
			if slots[len(slots)-1] != tc.wantLast {
				t.Errorf("last slot = %s, want %s", slots[len(slots)-1], tc.wantLast)
			}
		})
	}
}

func TestSlotsLunchBreakExcluded(t *testing.T) {
	dept := &domain.Department{ID: "d1", OpenHour: 8, CloseHour: 16, LunchBreak: true}
	for _, slot := range Slots(dept, 15) {
		if slot >= "12:00" && slot < "13:00" {
			t.Fatalf("lunch slot %s should not be bookable", slot)
		}
	}
}

func TestParseSlot(t *testing.T) {
	at, err := ParseSlot("2025-03-10", "09:15", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("got %v, want %v", at, want)
	}

	for _, bad := range []struct{ date, tod string }{
		{"2025-13-01", "09:00"},
		{"2025-03-10", "25:00"},
		{"10/03/2025", "09:00"},
		{"2025-03-10", "9am"},
		{"", ""},
	} {
		if _, err := ParseSlot(bad.date, bad.tod, time.UTC); err == nil {
			t.Errorf("ParseSlot(%q, %q) should fail", bad.date, bad.tod)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC)
	if got := FormatDate(at); got != "2025-03-10" {
		t.Errorf("FormatDate = %s", got)
	}
	if got := FormatTime(at); got != "09:15" {
		t.Errorf("FormatTime = %s", got)
	}
}
