package market

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"marketpulse/internal/domain/models"
)

// stubAdapter carries only a calendar; data operations are out of scope for
// schedule computation.
type stubAdapter struct {
	id  string
	cal *Calendar
}

func (a *stubAdapter) ID() string          { return a.id }
func (a *stubAdapter) Calendar() *Calendar { return a.cal }

func (a *stubAdapter) Quote(context.Context, string) (*models.Quote, error) {
	return nil, errors.New("not implemented")
}
func (a *stubAdapter) Indicators(context.Context, string, string) (*models.IndicatorSet, error) {
	return nil, errors.New("not implemented")
}
func (a *stubAdapter) Fundamentals(context.Context, string) (*models.Fundamentals, error) {
	return nil, errors.New("not implemented")
}
func (a *stubAdapter) Overview(context.Context) (*models.MarketOverview, error) {
	return nil, errors.New("not implemented")
}
func (a *stubAdapter) Sentiment(context.Context, string) ([]models.SentimentRecord, error) {
	return nil, errors.New("not implemented")
}

func stubMarket(t *testing.T, id string, loc *time.Location, open, close int) *stubAdapter {
	t.Helper()
	cal, err := NewCalendar(id, loc, SessionWindow{
		OpenMinute:  open,
		CloseMinute: close,
		Weekdays:    weekdaysMonFri,
	}, nil)
	if err != nil {
		t.Fatalf("NewCalendar(%s): %v", id, err)
	}
	return &stubAdapter{id: id, cal: cal}
}

// Two UTC markets: A trades 01:00-05:00, B trades 04:00-08:00.
func overlapScheduler(t *testing.T) *Scheduler {
	t.Helper()
	reg := NewRegistry(
		stubMarket(t, "A", time.UTC, 60, 300),
		stubMarket(t, "B", time.UTC, 240, 480),
	)
	return NewScheduler(reg)
}

func TestGlobalSchedule(t *testing.T) {
	s := overlapScheduler(t)
	at := time.Date(2026, 1, 5, 1, 30, 0, 0, time.UTC) // Monday 01:30
	got := s.GlobalSchedule(at)
	if !got["A"] {
		t.Fatalf("expected A open at %v", at)
	}
	if got["B"] {
		t.Fatalf("expected B closed at %v", at)
	}
}

func TestOptimalWindowsPartition(t *testing.T) {
	s := overlapScheduler(t)
	seq, err := s.OptimalWindows("A")
	if err != nil {
		t.Fatalf("OptimalWindows: %v", err)
	}
	ws := slices.Collect(seq)

	if len(ws) == 0 || ws[0].StartMinute != 0 || ws[len(ws)-1].EndMinute != minutesPerDay {
		t.Fatalf("windows do not span the day: %+v", ws)
	}
	for i := 1; i < len(ws); i++ {
		if ws[i].StartMinute != ws[i-1].EndMinute {
			t.Fatalf("gap between windows %d and %d: %+v", i-1, i, ws)
		}
	}

	want := []OptimizedWindow{
		{Markets: nil, StartMinute: 0, EndMinute: 60, OverlapCount: 0},
		{Markets: []string{"A"}, StartMinute: 60, EndMinute: 240, OverlapCount: 1},
		{Markets: []string{"A", "B"}, StartMinute: 240, EndMinute: 315, OverlapCount: 2},
		{Markets: []string{"B"}, StartMinute: 315, EndMinute: 495, OverlapCount: 1},
		{Markets: nil, StartMinute: 495, EndMinute: minutesPerDay, OverlapCount: 0},
	}
	if len(ws) != len(want) {
		t.Fatalf("got %d windows, want %d: %+v", len(ws), len(want), ws)
	}
	for i := range want {
		if ws[i].StartMinute != want[i].StartMinute ||
			ws[i].EndMinute != want[i].EndMinute ||
			ws[i].OverlapCount != want[i].OverlapCount ||
			!slices.Equal(ws[i].Markets, want[i].Markets) {
			t.Fatalf("window %d = %+v, want %+v", i, ws[i], want[i])
		}
	}
}

func TestOptimalWindowsUnknownMarket(t *testing.T) {
	s := overlapScheduler(t)
	_, err := s.OptimalWindows("ZZZ")
	if !errors.Is(err, models.ErrUnknownMarket) {
		t.Fatalf("expected ErrUnknownMarket, got %v", err)
	}
}

func TestOptimalWindowsRestartable(t *testing.T) {
	s := overlapScheduler(t)
	seq, err := s.OptimalWindows("A")
	if err != nil {
		t.Fatalf("OptimalWindows: %v", err)
	}
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if len(first) != len(second) {
		t.Fatalf("second pass yielded %d windows, first %d", len(second), len(first))
	}
	for i := range first {
		if first[i].StartMinute != second[i].StartMinute || first[i].EndMinute != second[i].EndMinute {
			t.Fatalf("window %d differs between passes", i)
		}
	}
}

func TestOptimalWindowsTimezoneProjection(t *testing.T) {
	ist := time.FixedZone("IST", 330*60)
	reg := NewRegistry(stubMarket(t, "M", ist, 555, 930)) // 09:15-15:30 local
	s := NewScheduler(reg)

	seq, err := s.OptimalWindows("M")
	if err != nil {
		t.Fatalf("OptimalWindows: %v", err)
	}
	var open *OptimizedWindow
	for w := range seq {
		if w.OverlapCount == 1 {
			open = &w
			break
		}
	}
	if open == nil {
		t.Fatalf("no open window found")
	}
	// 09:15 IST is 03:45 UTC; 15:30 IST is 10:00 UTC, closed after the
	// last covered slot at 10:00.
	if open.StartMinute != 225 || open.EndMinute != 615 {
		t.Fatalf("open window [%d, %d), want [225, 615)", open.StartMinute, open.EndMinute)
	}
	if open.Start() != "03:45" || open.End() != "10:15" {
		t.Fatalf("formatted window %s-%s", open.Start(), open.End())
	}
}

func TestBestWindowHighestOverlap(t *testing.T) {
	s := overlapScheduler(t)
	best, err := s.BestWindow("A")
	if err != nil {
		t.Fatalf("BestWindow: %v", err)
	}
	if best.OverlapCount != 2 || best.StartMinute != 240 || best.EndMinute != 315 {
		t.Fatalf("best = %+v, want overlap window [240, 315)", best)
	}
}

func TestBestWindowTieBreakPrefersPeak(t *testing.T) {
	// X trades the whole UTC morning; Y overlaps its first half, Z its
	// second. Both overlap windows count 2; the one inside X's peak span
	// must win.
	reg := NewRegistry(
		stubMarket(t, "X", time.UTC, 0, 600),
		stubMarket(t, "Y", time.UTC, 0, 120),
		stubMarket(t, "Z", time.UTC, 480, 600),
	)
	s := NewScheduler(reg)

	best, err := s.BestWindow("X")
	if err != nil {
		t.Fatalf("BestWindow: %v", err)
	}
	if best.StartMinute != 0 || best.OverlapCount != 2 {
		t.Fatalf("best = %+v, want the early overlap window", best)
	}
	if !slices.Equal(best.Markets, []string{"X", "Y"}) {
		t.Fatalf("best markets = %v", best.Markets)
	}
}

func TestBestWindowUnknownMarket(t *testing.T) {
	s := overlapScheduler(t)
	_, err := s.BestWindow("ZZZ")
	if !errors.Is(err, models.ErrUnknownMarket) {
		t.Fatalf("expected ErrUnknownMarket, got %v", err)
	}
}
