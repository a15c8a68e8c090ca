package market

import (
	"errors"
	"testing"
	"time"

	"marketpulse/internal/domain/models"
)

var weekdaysMonFri = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// 09:30-16:00 UTC, Monday through Friday.
func newTestCalendar(t *testing.T, holidays []Holiday) *Calendar {
	t.Helper()
	cal, err := NewCalendar("TEST", time.UTC, SessionWindow{
		OpenMinute:  570,
		CloseMinute: 960,
		Weekdays:    weekdaysMonFri,
	}, holidays)
	if err != nil {
		t.Fatalf("NewCalendar: %v", err)
	}
	return cal
}

func TestNewCalendarRejectsInvalidWindow(t *testing.T) {
	_, err := NewCalendar("X", time.UTC, SessionWindow{OpenMinute: 600, CloseMinute: 600, Weekdays: weekdaysMonFri}, nil)
	if err == nil {
		t.Fatalf("expected error for open >= close")
	}
	_, err = NewCalendar("X", time.UTC, SessionWindow{OpenMinute: 570, CloseMinute: 960}, nil)
	if err == nil {
		t.Fatalf("expected error for empty weekday set")
	}
	_, err = NewCalendar("X", nil, SessionWindow{OpenMinute: 570, CloseMinute: 960, Weekdays: weekdaysMonFri}, nil)
	if err == nil {
		t.Fatalf("expected error for nil location")
	}
}

func TestNewCalendarRejectsDuplicateHoliday(t *testing.T) {
	d := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	_, err := NewCalendar("X", time.UTC, SessionWindow{OpenMinute: 570, CloseMinute: 960, Weekdays: weekdaysMonFri}, []Holiday{
		{Date: d, Label: "a"},
		{Date: d, Label: "b"},
	})
	if err == nil {
		t.Fatalf("expected duplicate holiday error")
	}
}

func TestIsOpenWeekend(t *testing.T) {
	cal := newTestCalendar(t, nil)
	sat := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	if cal.IsOpen(sat) {
		t.Fatalf("expected closed on Saturday")
	}
}

func TestIsOpenBoundsInclusive(t *testing.T) {
	cal := newTestCalendar(t, nil)
	mon := func(h, m int) time.Time {
		return time.Date(2026, 1, 5, h, m, 0, 0, time.UTC)
	}
	cases := []struct {
		at   time.Time
		want bool
	}{
		{mon(9, 29), false},
		{mon(9, 30), true},
		{mon(16, 0), true},
		{mon(16, 1), false},
	}
	for _, c := range cases {
		if got := cal.IsOpen(c.at); got != c.want {
			t.Fatalf("IsOpen(%v) = %v, want %v", c.at, got, c.want)
		}
	}
}

func TestHolidayDominatesSession(t *testing.T) {
	holiday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // a Monday
	cal := newTestCalendar(t, []Holiday{{Date: holiday, Label: "closed"}})

	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	if !cal.IsHoliday(at) {
		t.Fatalf("expected holiday")
	}
	if cal.IsOpen(at) {
		t.Fatalf("expected closed on holiday despite session window")
	}
}

func TestNextOpenAlreadyOpen(t *testing.T) {
	cal := newTestCalendar(t, nil)
	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	got, err := cal.NextOpen(at)
	if err != nil {
		t.Fatalf("NextOpen: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("expected same instant, got %v", got)
	}
}

func TestNextOpenFromWeekend(t *testing.T) {
	cal := newTestCalendar(t, nil)
	sat := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	got, err := cal.NextOpen(sat)
	if err != nil {
		t.Fatalf("NextOpen: %v", err)
	}
	want := time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextOpen = %v, want %v", got, want)
	}
}

func TestNextOpenSkipsHoliday(t *testing.T) {
	holiday := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC) // Monday
	cal := newTestCalendar(t, []Holiday{{Date: holiday, Label: "closed"}})
	sat := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	got, err := cal.NextOpen(sat)
	if err != nil {
		t.Fatalf("NextOpen: %v", err)
	}
	want := time.Date(2026, 1, 13, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextOpen = %v, want %v", got, want)
	}
}

func TestNextOpenExhausted(t *testing.T) {
	start := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	holidays := make([]Holiday, 0, maxScanDays+2)
	for d := 0; d <= maxScanDays+1; d++ {
		holidays = append(holidays, Holiday{Date: start.AddDate(0, 0, d), Label: "closed"})
	}
	cal := newTestCalendar(t, holidays)

	_, err := cal.NextOpen(start)
	if !errors.Is(err, models.ErrCalendarExhausted) {
		t.Fatalf("expected ErrCalendarExhausted, got %v", err)
	}
}

func TestHolidaysSorted(t *testing.T) {
	cal := newTestCalendar(t, []Holiday{
		{Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	})
	hs := cal.Holidays()
	for i := 1; i < len(hs); i++ {
		if hs[i].Date.Before(hs[i-1].Date) {
			t.Fatalf("holidays not sorted: %v before %v", hs[i].Date, hs[i-1].Date)
		}
	}
}

func TestHolidayKeyedByOwnDateInWesternZone(t *testing.T) {
	// UTC-midnight holiday dates must name the same local day in a zone
	// west of UTC, not the evening before.
	est := time.FixedZone("EST", -5*3600)
	cal, err := NewCalendar("WEST", est, SessionWindow{
		OpenMinute:  570,
		CloseMinute: 960,
		Weekdays:    weekdaysMonFri,
	}, []Holiday{
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Label: "New Year's Day"},
	})
	if err != nil {
		t.Fatalf("NewCalendar: %v", err)
	}

	holiday := time.Date(2026, 1, 1, 12, 0, 0, 0, est) // Thursday
	if !cal.IsHoliday(holiday) {
		t.Fatalf("IsHoliday(%v) = false, want true", holiday)
	}
	if cal.IsOpen(holiday) {
		t.Fatalf("IsOpen(%v) = true, want false on the holiday", holiday)
	}

	eve := time.Date(2025, 12, 31, 12, 0, 0, 0, est) // Wednesday
	if cal.IsHoliday(eve) {
		t.Fatalf("IsHoliday(%v) = true, want false on the prior trading day", eve)
	}
	if !cal.IsOpen(eve) {
		t.Fatalf("IsOpen(%v) = false, want true", eve)
	}
}
