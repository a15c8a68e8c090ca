package models

import "time"

// Quote is a point-in-time price snapshot for one instrument.
type Quote struct {
	Symbol    string
	Market    string
	Price     float64
	Open      float64
	High      float64
	Low       float64
	PrevClose float64
	Volume    float64
	Currency  string
	AsOf      time.Time
}

// ChangePct returns the percent change versus the previous close.
func (q Quote) ChangePct() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}

// IndicatorSet bundles the technical indicators a market adapter exposes
// for one instrument and timeframe.
type IndicatorSet struct {
	Symbol     string
	Timeframe  string
	RSI        float64
	MACD       float64
	MACDSignal float64
	SMA50      float64
	SMA200     float64
	EMA20      float64
	ATR        float64
	AsOf       time.Time
}

// Fundamentals holds per-instrument fundamental figures.
type Fundamentals struct {
	Symbol        string
	MarketCap     float64
	PERatio       float64
	EPS           float64
	DividendYield float64
	BookValue     float64
	DebtToEquity  float64
	AsOf          time.Time
}

// MarketOverview summarizes one market's headline index and breadth.
type MarketOverview struct {
	Market     string
	IndexName  string
	IndexLevel float64
	ChangePct  float64
	Advancers  int
	Decliners  int
	Unchanged  int
	AsOf       time.Time
}

// SentimentRecord is one observed sentiment reading for an instrument.
// Score is normalized to [-1, 1]: negative bearish, positive bullish.
type SentimentRecord struct {
	ID         string
	Instrument string
	Source     string
	Score      float64
	Summary    string
	ObservedAt time.Time
}

// Prediction is a stored model prediction used as synthesis input.
type Prediction struct {
	ID         string
	Instrument string
	Timeframe  string
	Kind       string // "price", "volatility", "volume"
	Value      float64
	Confidence float64
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
