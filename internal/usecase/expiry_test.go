package usecase

import (
	"testing"
	"time"
)

func TestSignalExpiry(t *testing.T) {
	cases := []struct {
		timeframe string
		want      time.Duration
	}{
		{"1m", time.Hour},
		{"15m", time.Hour},
		{"30m", 4 * time.Hour},
		{"1h", 4 * time.Hour},
		{"4h", 24 * time.Hour},
		{"1d", 72 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"unknown", 4 * time.Hour},
	}
	for _, c := range cases {
		if got := SignalExpiry(c.timeframe); got != c.want {
			t.Fatalf("SignalExpiry(%q) = %v, want %v", c.timeframe, got, c.want)
		}
	}
}
