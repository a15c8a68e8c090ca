package adapters

import (
	"time"

	"marketpulse/internal/market"
	"marketpulse/pkg/logger"
)

// LSE trades 08:00-16:30 London time, Monday through Friday.
const (
	lseOpenMinute  = 8 * 60
	lseCloseMinute = 16*60 + 30
)

func lseHolidays(year int) []market.Holiday {
	d := func(m time.Month, day int, label string) market.Holiday {
		return market.Holiday{Date: time.Date(year, m, day, 0, 0, 0, 0, time.UTC), Label: label, Category: "exchange"}
	}
	switch year {
	case 2026:
		return []market.Holiday{
			d(time.January, 1, "New Year's Day"),
			d(time.April, 3, "Good Friday"),
			d(time.April, 6, "Easter Monday"),
			d(time.May, 4, "Early May Bank Holiday"),
			d(time.May, 25, "Spring Bank Holiday"),
			d(time.August, 31, "Summer Bank Holiday"),
			d(time.December, 25, "Christmas"),
			d(time.December, 28, "Boxing Day (observed)"),
		}
	default:
		return []market.Holiday{
			d(time.January, 1, "New Year's Day"),
			d(time.December, 25, "Christmas"),
			d(time.December, 26, "Boxing Day"),
		}
	}
}

// NewLSE builds the London Stock Exchange adapter.
func NewLSE(cfg Config, stream QuoteSource, log *logger.Logger, year int) (market.Adapter, error) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return nil, err
	}
	cal, err := market.NewCalendar("LSE", loc, market.SessionWindow{
		OpenMinute:  lseOpenMinute,
		CloseMinute: lseCloseMinute,
		Weekdays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}, lseHolidays(year))
	if err != nil {
		return nil, err
	}
	return newProviderAdapter("LSE", cal, cfg, stream, log), nil
}
