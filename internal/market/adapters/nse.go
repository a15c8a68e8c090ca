package adapters

import (
	"time"

	"marketpulse/internal/market"
	"marketpulse/pkg/logger"
)

// NSE trades 09:15-15:30 IST, Monday through Friday.
const (
	nseOpenMinute  = 9*60 + 15
	nseCloseMinute = 15*60 + 30
)

func nseHolidays(year int) []market.Holiday {
	d := func(m time.Month, day int, label, category string) market.Holiday {
		return market.Holiday{Date: time.Date(year, m, day, 0, 0, 0, 0, time.UTC), Label: label, Category: category}
	}
	switch year {
	case 2026:
		return []market.Holiday{
			d(time.January, 26, "Republic Day", "national"),
			d(time.March, 4, "Holi", "religious"),
			d(time.March, 20, "Id-Ul-Fitr", "religious"),
			d(time.April, 3, "Good Friday", "religious"),
			d(time.April, 14, "Dr. Ambedkar Jayanti", "national"),
			d(time.May, 1, "Maharashtra Day", "regional"),
			d(time.August, 15, "Independence Day", "national"),
			d(time.October, 2, "Gandhi Jayanti", "national"),
			d(time.November, 10, "Diwali Laxmi Pujan", "religious"),
			d(time.November, 11, "Diwali Balipratipada", "religious"),
			d(time.December, 25, "Christmas", "religious"),
		}
	default:
		// Fixed-date national holidays only; exchange-specific dates must be
		// refreshed from the published calendar for other years.
		return []market.Holiday{
			d(time.January, 26, "Republic Day", "national"),
			d(time.August, 15, "Independence Day", "national"),
			d(time.October, 2, "Gandhi Jayanti", "national"),
			d(time.December, 25, "Christmas", "religious"),
		}
	}
}

// NewNSE builds the National Stock Exchange of India adapter.
func NewNSE(cfg Config, stream QuoteSource, log *logger.Logger, year int) (market.Adapter, error) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return nil, err
	}
	cal, err := market.NewCalendar("NSE", loc, market.SessionWindow{
		OpenMinute:  nseOpenMinute,
		CloseMinute: nseCloseMinute,
		Weekdays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}, nseHolidays(year))
	if err != nil {
		return nil, err
	}
	return newProviderAdapter("NSE", cal, cfg, stream, log), nil
}
