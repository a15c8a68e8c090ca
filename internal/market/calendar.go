package market

import (
	"fmt"
	"sort"
	"time"

	"marketpulse/internal/domain/models"
)

// maxScanDays bounds NextOpen's forward scan so a degenerate all-holiday
// calendar cannot loop forever.
const maxScanDays = 400

// SessionWindow is the recurring daily open/close range for one market,
// expressed as minutes of the local day.
type SessionWindow struct {
	OpenMinute  int
	CloseMinute int
	Weekdays    []time.Weekday
}

func (w SessionWindow) openOn(d time.Weekday) bool {
	for _, wd := range w.Weekdays {
		if wd == d {
			return true
		}
	}
	return false
}

// Holiday is one closed calendar day.
type Holiday struct {
	Date     time.Time // date component only; time-of-day ignored
	Label    string
	Category string
}

// Calendar answers session questions for one market. It is a pure function
// of the injected instant: construction validates and freezes the session
// window and holiday table, and refreshes replace the whole calendar.
type Calendar struct {
	market   string
	loc      *time.Location
	session  SessionWindow
	holidays map[string]Holiday // keyed by local date, "2006-01-02"
}

// NewCalendar builds an immutable calendar.
func NewCalendar(marketID string, loc *time.Location, session SessionWindow, holidays []Holiday) (*Calendar, error) {
	if loc == nil {
		return nil, fmt.Errorf("calendar %s: location is required", marketID)
	}
	if session.OpenMinute < 0 || session.CloseMinute >= 24*60 || session.OpenMinute >= session.CloseMinute {
		return nil, fmt.Errorf("calendar %s: invalid session window [%d, %d]", marketID, session.OpenMinute, session.CloseMinute)
	}
	if len(session.Weekdays) == 0 {
		return nil, fmt.Errorf("calendar %s: no open weekdays", marketID)
	}

	table := make(map[string]Holiday, len(holidays))
	for _, h := range holidays {
		// The date's own Y/M/D names the closed local day; converting the
		// instant into loc would shift it for zones west of the date's zone.
		key := h.Date.Format(time.DateOnly)
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("calendar %s: duplicate holiday %s", marketID, key)
		}
		table[key] = h
	}

	return &Calendar{
		market:   marketID,
		loc:      loc,
		session:  session,
		holidays: table,
	}, nil
}

// Market returns the owning market id.
func (c *Calendar) Market() string { return c.market }

// Location returns the market's time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Session returns the recurring session window.
func (c *Calendar) Session() SessionWindow { return c.session }

// Holidays returns the holiday table ordered by date.
func (c *Calendar) Holidays() []Holiday {
	out := make([]Holiday, 0, len(c.holidays))
	for _, h := range c.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// IsHoliday reports whether the local date of t is in the holiday table.
// Total over any instant.
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[t.In(c.loc).Format(time.DateOnly)]
	return ok
}

// IsOpen reports whether the market trades at instant t. Holidays dominate,
// then the weekday set, then the session window with both bounds inclusive.
// Total over any instant.
func (c *Calendar) IsOpen(t time.Time) bool {
	lt := t.In(c.loc)
	if c.IsHoliday(lt) {
		return false
	}
	if !c.session.openOn(lt.Weekday()) {
		return false
	}
	min := lt.Hour()*60 + lt.Minute()
	return min >= c.session.OpenMinute && min <= c.session.CloseMinute
}

// NextOpen returns the smallest instant at or after t at which IsOpen is
// true, scanning forward day by day. The scan is capped at maxScanDays;
// exhausting it returns models.ErrCalendarExhausted.
func (c *Calendar) NextOpen(t time.Time) (time.Time, error) {
	if c.IsOpen(t) {
		return t, nil
	}
	lt := t.In(c.loc)
	for day := 0; day <= maxScanDays; day++ {
		d := lt.AddDate(0, 0, day)
		open := time.Date(d.Year(), d.Month(), d.Day(),
			c.session.OpenMinute/60, c.session.OpenMinute%60, 0, 0, c.loc)
		if open.Before(lt) {
			// today's open already passed
			continue
		}
		if c.IsOpen(open) {
			return open, nil
		}
	}
	return time.Time{}, fmt.Errorf("market %s: %w", c.market, models.ErrCalendarExhausted)
}
