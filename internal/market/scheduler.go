package market

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Slot granularity for cross-market overlap computation.
const slotMinutes = 15

const minutesPerDay = 24 * 60

// refDate resolves each zone's UTC offset when projecting recurring session
// windows onto the reference timeline. Any fixed date works; a Monday keeps
// the projection stable across runs.
var refDate = time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

// OptimizedWindow is one run of the reference (UTC) day during which the
// same set of markets is simultaneously open. Recomputed on demand, never
// persisted.
type OptimizedWindow struct {
	Markets      []string `json:"markets"`
	StartMinute  int      `json:"start_minute"` // minutes from UTC midnight, inclusive
	EndMinute    int      `json:"end_minute"`   // exclusive
	OverlapCount int      `json:"overlap_count"`
}

// Start formats the window start as HH:MM UTC.
func (w OptimizedWindow) Start() string { return formatMinute(w.StartMinute) }

// End formats the window end as HH:MM UTC.
func (w OptimizedWindow) End() string { return formatMinute(w.EndMinute) }

func formatMinute(m int) string {
	m = m % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Scheduler composes registered market calendars into a global schedule and
// computes cross-market overlap windows. It performs no I/O.
type Scheduler struct {
	reg *Registry
}

func NewScheduler(reg *Registry) *Scheduler {
	return &Scheduler{reg: reg}
}

// GlobalSchedule evaluates every registered market's calendar at the given
// instant. O(number of markets).
func (s *Scheduler) GlobalSchedule(at time.Time) map[string]bool {
	out := make(map[string]bool)
	for _, a := range s.reg.All() {
		out[a.ID()] = a.Calendar().IsOpen(at)
	}
	return out
}

// utcSpan is a market's recurring session projected onto UTC minutes of day.
// The span may wrap midnight (open > close).
type utcSpan struct {
	open, close int
}

func (sp utcSpan) covers(minute int) bool {
	if sp.open <= sp.close {
		return minute >= sp.open && minute <= sp.close
	}
	return minute >= sp.open || minute <= sp.close
}

func spanFor(c *Calendar) utcSpan {
	_, offset := refDate.In(c.Location()).Zone()
	shift := func(local int) int {
		m := (local - offset/60) % minutesPerDay
		if m < 0 {
			m += minutesPerDay
		}
		return m
	}
	w := c.Session()
	return utcSpan{open: shift(w.OpenMinute), close: shift(w.CloseMinute)}
}

// OptimalWindows partitions the 24-hour UTC timeline into fixed slots,
// computes the set of markets whose recurring session covers each slot
// (holiday-independent), and run-length-encodes equal-set runs into windows
// ordered by start time. The returned sequence is lazy and restartable.
// An unregistered market id fails eagerly with models.ErrUnknownMarket.
func (s *Scheduler) OptimalWindows(marketID string) (iter.Seq[OptimizedWindow], error) {
	if _, err := s.reg.Get(marketID); err != nil {
		return nil, err
	}

	// Snapshot spans so each iteration of the sequence sees one consistent
	// view of the registry.
	ids := s.reg.IDs()
	spans := make(map[string]utcSpan, len(ids))
	for _, id := range ids {
		a, err := s.reg.Get(id)
		if err != nil {
			continue
		}
		spans[id] = spanFor(a.Calendar())
	}

	openSet := func(minute int) []string {
		var set []string
		for _, id := range ids {
			if spans[id].covers(minute) {
				set = append(set, id)
			}
		}
		return set
	}

	seq := func(yield func(OptimizedWindow) bool) {
		start := 0
		cur := openSet(0)
		for m := slotMinutes; m < minutesPerDay; m += slotMinutes {
			set := openSet(m)
			if slices.Equal(set, cur) {
				continue
			}
			if !yield(OptimizedWindow{Markets: cur, StartMinute: start, EndMinute: m, OverlapCount: len(cur)}) {
				return
			}
			start, cur = m, set
		}
		yield(OptimizedWindow{Markets: cur, StartMinute: start, EndMinute: minutesPerDay, OverlapCount: len(cur)})
	}
	return seq, nil
}

// BestWindow picks the window with the highest overlap count for the given
// market. Ties are broken by preferring the window with the most minutes
// inside the market's peak-liquidity span (the first half of its session),
// then by earlier start.
func (s *Scheduler) BestWindow(marketID string) (OptimizedWindow, error) {
	a, err := s.reg.Get(marketID)
	if err != nil {
		return OptimizedWindow{}, err
	}
	windows, err := s.OptimalWindows(marketID)
	if err != nil {
		return OptimizedWindow{}, err
	}

	sp := spanFor(a.Calendar())
	sessionLen := sp.close - sp.open
	if sessionLen < 0 {
		sessionLen += minutesPerDay
	}
	peak := utcSpan{open: sp.open, close: (sp.open + sessionLen/2) % minutesPerDay}

	var best OptimizedWindow
	bestPeak := -1
	for w := range windows {
		p := peakMinutes(w, peak)
		if w.OverlapCount > best.OverlapCount ||
			(w.OverlapCount == best.OverlapCount && p > bestPeak) {
			best, bestPeak = w, p
		}
	}
	return best, nil
}

func peakMinutes(w OptimizedWindow, peak utcSpan) int {
	n := 0
	for m := w.StartMinute; m < w.EndMinute; m++ {
		if peak.covers(m) {
			n++
		}
	}
	return n
}
