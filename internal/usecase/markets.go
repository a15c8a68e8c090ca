package usecase

import (
	"context"
	"slices"
	"time"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/market"
	"marketpulse/pkg/logger"
)

// MarketStatus is the session snapshot for one market at one instant.
type MarketStatus struct {
	Market    string     `json:"market"`
	Open      bool       `json:"open"`
	Holiday   bool       `json:"holiday"`
	NextOpen  *time.Time `json:"next_open,omitempty"`
	LocalTime string     `json:"local_time"`
	Timezone  string     `json:"timezone"`
}

// MarketService answers schedule and market-data queries over the registry.
type MarketService struct {
	markets   *market.Registry
	scheduler *market.Scheduler
	log       *logger.Logger
	now       func() time.Time
}

func NewMarketService(markets *market.Registry, scheduler *market.Scheduler, log *logger.Logger) *MarketService {
	return &MarketService{markets: markets, scheduler: scheduler, log: log, now: time.Now}
}

// SetClock overrides the time source.
func (s *MarketService) SetClock(now func() time.Time) { s.now = now }

// GlobalSchedule reports open/closed per registered market at the given
// instant. A zero instant means now.
func (s *MarketService) GlobalSchedule(at time.Time) map[string]bool {
	if at.IsZero() {
		at = s.now()
	}
	return s.scheduler.GlobalSchedule(at)
}

// Status builds the full session snapshot for one market.
func (s *MarketService) Status(marketID string) (*MarketStatus, error) {
	a, err := s.markets.Get(marketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	cal := a.Calendar()
	st := &MarketStatus{
		Market:    a.ID(),
		Open:      cal.IsOpen(now),
		Holiday:   cal.IsHoliday(now),
		LocalTime: now.In(cal.Location()).Format("15:04:05"),
		Timezone:  cal.Location().String(),
	}
	if !st.Open {
		next, err := cal.NextOpen(now)
		if err != nil {
			return nil, err
		}
		st.NextOpen = &next
	}
	return st, nil
}

// Windows materializes the market's overlap windows for one reference day.
func (s *MarketService) Windows(marketID string) ([]market.OptimizedWindow, error) {
	seq, err := s.scheduler.OptimalWindows(marketID)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// BestWindow returns the single highest-overlap window for the market.
func (s *MarketService) BestWindow(marketID string) (market.OptimizedWindow, error) {
	return s.scheduler.BestWindow(marketID)
}

// Quote fetches the current quote through the market's adapter.
func (s *MarketService) Quote(ctx context.Context, marketID, symbol string) (*models.Quote, error) {
	a, err := s.markets.Get(marketID)
	if err != nil {
		return nil, err
	}
	return a.Quote(ctx, symbol)
}

// Overview fetches the market's headline index snapshot.
func (s *MarketService) Overview(ctx context.Context, marketID string) (*models.MarketOverview, error) {
	a, err := s.markets.Get(marketID)
	if err != nil {
		return nil, err
	}
	return a.Overview(ctx)
}

// Markets lists registered market ids.
func (s *MarketService) Markets() []string {
	return s.markets.IDs()
}
