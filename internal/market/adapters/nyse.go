package adapters

import (
	"time"

	"marketpulse/internal/market"
	"marketpulse/pkg/logger"
)

// NYSE trades 09:30-16:00 Eastern, Monday through Friday.
const (
	nyseOpenMinute  = 9*60 + 30
	nyseCloseMinute = 16 * 60
)

func nyseHolidays(year int) []market.Holiday {
	d := func(m time.Month, day int, label string) market.Holiday {
		return market.Holiday{Date: time.Date(year, m, day, 0, 0, 0, 0, time.UTC), Label: label, Category: "exchange"}
	}
	switch year {
	case 2026:
		return []market.Holiday{
			d(time.January, 1, "New Year's Day"),
			d(time.January, 19, "Martin Luther King Jr. Day"),
			d(time.February, 16, "Washington's Birthday"),
			d(time.April, 3, "Good Friday"),
			d(time.May, 25, "Memorial Day"),
			d(time.June, 19, "Juneteenth"),
			d(time.July, 3, "Independence Day (observed)"),
			d(time.September, 7, "Labor Day"),
			d(time.November, 26, "Thanksgiving Day"),
			d(time.December, 25, "Christmas"),
		}
	default:
		return []market.Holiday{
			d(time.January, 1, "New Year's Day"),
			d(time.July, 4, "Independence Day"),
			d(time.December, 25, "Christmas"),
		}
	}
}

// NewNYSE builds the New York Stock Exchange adapter.
func NewNYSE(cfg Config, stream QuoteSource, log *logger.Logger, year int) (market.Adapter, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	cal, err := market.NewCalendar("NYSE", loc, market.SessionWindow{
		OpenMinute:  nyseOpenMinute,
		CloseMinute: nyseCloseMinute,
		Weekdays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}, nyseHolidays(year))
	if err != nil {
		return nil, err
	}
	return newProviderAdapter("NYSE", cal, cfg, stream, log), nil
}
