package adapters

import (
	"time"

	"marketpulse/internal/market"
	"marketpulse/pkg/logger"
)

// TSE trades 09:00-15:00 Tokyo time, Monday through Friday. The midday
// break is treated as part of the session.
const (
	tseOpenMinute  = 9 * 60
	tseCloseMinute = 15 * 60
)

func tseHolidays(year int) []market.Holiday {
	d := func(m time.Month, day int, label string) market.Holiday {
		return market.Holiday{Date: time.Date(year, m, day, 0, 0, 0, 0, time.UTC), Label: label, Category: "national"}
	}
	switch year {
	case 2026:
		return []market.Holiday{
			d(time.January, 1, "New Year's Day"),
			d(time.January, 2, "Market Holiday"),
			d(time.January, 12, "Coming of Age Day"),
			d(time.February, 11, "National Foundation Day"),
			d(time.February, 23, "Emperor's Birthday"),
			d(time.March, 20, "Vernal Equinox Day"),
			d(time.April, 29, "Showa Day"),
			d(time.May, 4, "Greenery Day"),
			d(time.May, 5, "Children's Day"),
			d(time.May, 6, "Constitution Day (observed)"),
			d(time.July, 20, "Marine Day"),
			d(time.September, 21, "Respect for the Aged Day"),
			d(time.September, 22, "Autumnal Equinox Day"),
			d(time.October, 12, "Sports Day"),
			d(time.November, 3, "Culture Day"),
			d(time.November, 23, "Labor Thanksgiving Day"),
			d(time.December, 31, "Market Holiday"),
		}
	default:
		return []market.Holiday{
			d(time.January, 1, "New Year's Day"),
			d(time.February, 11, "National Foundation Day"),
			d(time.November, 3, "Culture Day"),
		}
	}
}

// NewTSE builds the Tokyo Stock Exchange adapter.
func NewTSE(cfg Config, stream QuoteSource, log *logger.Logger, year int) (market.Adapter, error) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return nil, err
	}
	cal, err := market.NewCalendar("TSE", loc, market.SessionWindow{
		OpenMinute:  tseOpenMinute,
		CloseMinute: tseCloseMinute,
		Weekdays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}, tseHolidays(year))
	if err != nil {
		return nil, err
	}
	return newProviderAdapter("TSE", cal, cfg, stream, log), nil
}
