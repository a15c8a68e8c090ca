package adapters

import (
	"testing"
	"time"
)

func TestNYSEHolidaysFallOnLocalDates(t *testing.T) {
	a, err := NewNYSE(Config{BaseURL: "http://provider.test"}, nil, nil, 2026)
	if err != nil {
		t.Fatalf("NewNYSE: %v", err)
	}
	cal := a.Calendar()
	ny := cal.Location()

	newYears := time.Date(2026, time.January, 1, 12, 0, 0, 0, ny)
	if !cal.IsHoliday(newYears) {
		t.Fatalf("IsHoliday(%v) = false, want true", newYears)
	}
	if cal.IsOpen(newYears) {
		t.Fatalf("IsOpen(%v) = true, want false", newYears)
	}

	// The prior trading day must not inherit the holiday.
	eve := time.Date(2025, time.December, 31, 12, 0, 0, 0, ny)
	if cal.IsHoliday(eve) {
		t.Fatalf("IsHoliday(%v) = true, want false", eve)
	}
	if !cal.IsOpen(eve) {
		t.Fatalf("IsOpen(%v) = false, want true", eve)
	}

	next, err := cal.NextOpen(newYears)
	if err != nil {
		t.Fatalf("NextOpen: %v", err)
	}
	want := time.Date(2026, time.January, 2, 9, 30, 0, 0, ny)
	if !next.Equal(want) {
		t.Fatalf("NextOpen(%v) = %v, want %v", newYears, next, want)
	}
}

func TestTSEHolidaysFallOnLocalDates(t *testing.T) {
	a, err := NewTSE(Config{BaseURL: "http://provider.test"}, nil, nil, 2026)
	if err != nil {
		t.Fatalf("NewTSE: %v", err)
	}
	cal := a.Calendar()
	tokyo := cal.Location()

	newYears := time.Date(2026, time.January, 1, 10, 0, 0, 0, tokyo)
	if !cal.IsHoliday(newYears) {
		t.Fatalf("IsHoliday(%v) = false, want true", newYears)
	}

	// Jan 5 is the first trading day of 2026 (Jan 1-2 closed, then weekend).
	open := time.Date(2026, time.January, 5, 10, 0, 0, 0, tokyo)
	if !cal.IsOpen(open) {
		t.Fatalf("IsOpen(%v) = false, want true", open)
	}
}
