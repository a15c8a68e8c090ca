package models

import (
	"fmt"
	"time"
)

// AnalysisKind distinguishes the two AI analysis streams.
type AnalysisKind string

const (
	KindPattern AnalysisKind = "pattern"
	KindSignal  AnalysisKind = "signal"
)

// AnalysisSubject identifies one cacheable analysis stream.
type AnalysisSubject struct {
	Instrument string
	Timeframe  string
	Kind       AnalysisKind
}

// Key returns the canonical cache/dedup key for the subject.
func (s AnalysisSubject) Key() string {
	return fmt.Sprintf("%s:%s:%s", s.Instrument, s.Timeframe, s.Kind)
}

// CachedAnalysis is one append-only cache record. Records are never updated
// in place; the newest record inside its freshness window is the live one.
type CachedAnalysis struct {
	Subject   AnalysisSubject
	CreatedAt time.Time
	Freshness time.Duration
	Payload   []byte
}

// Fresh reports whether the record is still reusable at the given instant.
func (c *CachedAnalysis) Fresh(now time.Time) bool {
	return now.Sub(c.CreatedAt) < c.Freshness
}

// SignalType enumerates the actionable signal classes.
type SignalType string

const (
	SignalBuy        SignalType = "BUY"
	SignalSell       SignalType = "SELL"
	SignalHold       SignalType = "HOLD"
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalStrongSell SignalType = "STRONG_SELL"
)

// Valid reports whether t is a member of the closed enumeration.
func (t SignalType) Valid() bool {
	switch t {
	case SignalBuy, SignalSell, SignalHold, SignalStrongBuy, SignalStrongSell:
		return true
	}
	return false
}

// SignalStatus is time-derived: a signal is ACTIVE until its expiry passes.
type SignalStatus string

const (
	SignalActive  SignalStatus = "ACTIVE"
	SignalExpired SignalStatus = "EXPIRED"
)

// SynthesizedSignal is one validated trading signal produced by synthesis.
type SynthesizedSignal struct {
	ID          string       `json:"id"`
	Instrument  string       `json:"instrument"`
	Timeframe   string       `json:"timeframe"`
	Strategy    string       `json:"strategy"`
	Type        SignalType   `json:"type"`
	Strength    float64      `json:"strength"`
	Confidence  float64      `json:"confidence"`
	PriceTarget float64      `json:"price_target"`
	StopLoss    float64      `json:"stop_loss"`
	RiskReward  float64      `json:"risk_reward"`
	Rationale   string       `json:"rationale"`
	KeyFactors  []string     `json:"key_factors,omitempty"`
	TimeHorizon string       `json:"time_horizon,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Status      SignalStatus `json:"status"`
}

// StatusAt computes the time-derived status at the given instant.
func (s *SynthesizedSignal) StatusAt(now time.Time) SignalStatus {
	if now.Before(s.ExpiresAt) {
		return SignalActive
	}
	return SignalExpired
}

// PatternDirection enumerates chart pattern directions.
type PatternDirection string

const (
	DirectionBullish PatternDirection = "bullish"
	DirectionBearish PatternDirection = "bearish"
)

// Valid reports whether d is a member of the closed enumeration.
func (d PatternDirection) Valid() bool {
	return d == DirectionBullish || d == DirectionBearish
}

// PatternStatus enumerates the pattern lifecycle states asserted by the oracle.
type PatternStatus string

const (
	PatternForming   PatternStatus = "FORMING"
	PatternConfirmed PatternStatus = "CONFIRMED"
	PatternFailed    PatternStatus = "FAILED"
	PatternCompleted PatternStatus = "COMPLETED"
)

// Valid reports whether s is a member of the closed enumeration.
func (s PatternStatus) Valid() bool {
	switch s {
	case PatternForming, PatternConfirmed, PatternFailed, PatternCompleted:
		return true
	}
	return false
}

// Terminal reports whether the pattern can no longer evolve.
func (s PatternStatus) Terminal() bool {
	return s == PatternFailed || s == PatternCompleted
}

// RecognizedPattern is one validated chart pattern produced by synthesis.
type RecognizedPattern struct {
	ID          string           `json:"id"`
	Instrument  string           `json:"instrument"`
	Timeframe   string           `json:"timeframe"`
	PatternType string           `json:"pattern_type"`
	Direction   PatternDirection `json:"direction"`
	Confidence  float64          `json:"confidence"`
	Status      PatternStatus    `json:"status"`
	StartPrice  float64          `json:"start_price"`
	EndPrice    float64          `json:"end_price"`
	TargetPrice *float64         `json:"target_price,omitempty"`
	StopPrice   *float64         `json:"stop_price,omitempty"`
	Description string           `json:"description,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// PatternBatch is the result of one pattern synthesis run. TotalPatterns
// counts only entries that survived validation.
type PatternBatch struct {
	Instrument    string              `json:"instrument"`
	Timeframe     string              `json:"timeframe"`
	Patterns      []RecognizedPattern `json:"patterns"`
	TotalPatterns int                 `json:"total_patterns"`
	Skipped       int                 `json:"skipped"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Clamp01 bounds v into [0, 1]. Oracle-provided scores pass through this
// before any record is persisted.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
