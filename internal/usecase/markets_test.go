package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketpulse/internal/market"
)

type calAdapter struct {
	bareAdapter
	cal *market.Calendar
}

func (a *calAdapter) Calendar() *market.Calendar { return a.cal }

func newCalAdapter(t *testing.T, id string, open, close int) *calAdapter {
	t.Helper()
	cal, err := market.NewCalendar(id, time.UTC, market.SessionWindow{
		OpenMinute:  open,
		CloseMinute: close,
		Weekdays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
	}, nil)
	require.NoError(t, err)
	return &calAdapter{bareAdapter: bareAdapter{id: id}, cal: cal}
}

func newMarketService(t *testing.T) *MarketService {
	t.Helper()
	reg := market.NewRegistry(
		newCalAdapter(t, "NSE", 555, 930),
		newCalAdapter(t, "NYSE", 870, 1260),
	)
	svc := NewMarketService(reg, market.NewScheduler(reg), testLogger(t))
	svc.SetClock(func() time.Time { return testBase }) // Monday 12:00 UTC
	return svc
}

func TestGlobalScheduleDefaultsToNow(t *testing.T) {
	svc := newMarketService(t)
	// 12:00 UTC Monday: inside NSE's 09:15-15:30 UTC test session, before
	// NYSE's 14:30 open.
	got := svc.GlobalSchedule(time.Time{})
	require.True(t, got["NSE"])
	require.False(t, got["NYSE"])
}

func TestGlobalScheduleExplicitInstant(t *testing.T) {
	svc := newMarketService(t)
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	got := svc.GlobalSchedule(at)
	require.True(t, got["NSE"])
	require.True(t, got["NYSE"])
}

func TestMarketStatusOpen(t *testing.T) {
	svc := newMarketService(t)
	st, err := svc.Status("NSE")
	require.NoError(t, err)
	require.True(t, st.Open)
	require.False(t, st.Holiday)
	require.Nil(t, st.NextOpen, "open market carries no next_open")
	require.Equal(t, "UTC", st.Timezone)
}

func TestMarketStatusClosedHasNextOpen(t *testing.T) {
	svc := newMarketService(t)
	st, err := svc.Status("NYSE")
	require.NoError(t, err)
	require.False(t, st.Open)
	require.NotNil(t, st.NextOpen)
	want := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	require.True(t, st.NextOpen.Equal(want), "next open = %v", st.NextOpen)
}

func TestMarketStatusUnknown(t *testing.T) {
	svc := newMarketService(t)
	_, err := svc.Status("XOM")
	require.Error(t, err)
}

func TestWindowsCoverDay(t *testing.T) {
	svc := newMarketService(t)
	ws, err := svc.Windows("NSE")
	require.NoError(t, err)
	require.NotEmpty(t, ws)
	require.Equal(t, 0, ws[0].StartMinute)
	require.Equal(t, 24*60, ws[len(ws)-1].EndMinute)
}
