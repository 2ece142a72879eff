package core

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodDueDate(t *testing.T) {
	tests := []struct {
		year, month int
		want        string
	}{
		{2025, 12, "2026-01-10"},
		{2026, 5, "2026-06-10"},
		{2026, 1, "2026-02-10"},
		{2024, 11, "2024-12-10"},
	}
	for _, tt := range tests {
		got := Period{Year: tt.year, Month: tt.month}.DueDate().Format(DateLayout)
		if got != tt.want {
			t.Errorf("DueDate(%d-%d) = %s, want %s", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestNewPeriodValidation(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if _, err := NewPeriod(2025, m); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("NewPeriod(2025, %d) err = %v, want ErrInvalidPeriod", m, err)
		}
	}
	p, err := NewPeriod(2025, 7)
	if err != nil || p.Key() != "2025-7" || p.Label() != "2025년 7월" {
		t.Fatalf("unexpected period %+v err=%v", p, err)
	}
}

func TestPeriodWindowAndNavigation(t *testing.T) {
	w := Period{Year: 2026, Month: 2}.Window(4)
	want := []string{"2025-11", "2025-12", "2026-1", "2026-2"}
	for i, p := range w {
		if p.Key() != want[i] {
			t.Fatalf("window[%d] = %s, want %s", i, p.Key(), want[i])
		}
	}
	if !(Period{2025, 12}).Before(Period{2026, 1}) {
		t.Fatalf("expected 2025-12 before 2026-1")
	}
	if got := PeriodOf(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)); got != (Period{2025, 3}) {
		t.Fatalf("PeriodOf = %+v", got)
	}
}
