package usecase

import "time"

// SignalExpiry maps a timeframe to how long a synthesized signal stays
// actionable. Unknown timeframes get the mid-range default.
func SignalExpiry(timeframe string) time.Duration {
	switch timeframe {
	case "1m", "5m", "15m":
		return time.Hour
	case "30m", "1h":
		return 4 * time.Hour
	case "4h":
		return 24 * time.Hour
	case "1d":
		return 72 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return 4 * time.Hour
	}
}
