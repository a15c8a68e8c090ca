package service

import (
	"context"

	"marketpulse/internal/domain/models"
)

// AnalysisContext is the gathered input handed to the oracle. Every field
// except Instrument/Timeframe may be empty; absence only narrows the
// oracle's context, it is never an error.
type AnalysisContext struct {
	Instrument   string
	Market       string
	Timeframe    string
	Strategy     string
	Quote        *models.Quote
	Indicators   *models.IndicatorSet
	Predictions  []models.Prediction
	Sentiment    []models.SentimentRecord
	OpenPatterns []models.RecognizedPattern
}

// PatternCandidate is one unvalidated pattern entry as returned by the
// oracle. Enumerated fields stay raw strings until validation.
type PatternCandidate struct {
	PatternType string   `json:"patternType"`
	Direction   string   `json:"direction"`
	Confidence  float64  `json:"confidence"`
	Status      string   `json:"status"`
	StartPrice  float64  `json:"startPrice"`
	EndPrice    float64  `json:"endPrice"`
	TargetPrice *float64 `json:"targetPrice,omitempty"`
	StopPrice   *float64 `json:"stopPrice,omitempty"`
	Description string   `json:"description"`
}

// SignalCandidate is the single unvalidated signal object returned by the
// oracle.
type SignalCandidate struct {
	SignalType  string   `json:"signalType"`
	Strength    float64  `json:"strength"`
	Confidence  float64  `json:"confidence"`
	PriceTarget float64  `json:"priceTarget"`
	StopLoss    float64  `json:"stopLoss"`
	RiskReward  float64  `json:"riskReward"`
	Reasoning   string   `json:"reasoning"`
	KeyFactors  []string `json:"keyFactors"`
	TimeHorizon string   `json:"timeHorizon"`
}

// Oracle is the external analysis service. It is the single point of
// external I/O in a synthesis run; calls must honor ctx deadlines and
// report failures as models.ErrOracleUnavailable or models.ErrOracleMalformed.
type Oracle interface {
	RecognizePatterns(ctx context.Context, ac AnalysisContext) ([]PatternCandidate, error)
	GenerateSignal(ctx context.Context, ac AnalysisContext) (*SignalCandidate, error)
}
