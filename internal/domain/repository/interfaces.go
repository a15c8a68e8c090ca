package repository

import (
	"context"
	"time"

	"marketpulse/internal/domain/models"
)

// AnalysisStore is the append-only record store shared by all requests.
// Writers append, readers take the newest record within a window; records are
// immutable once written, so no locking is required around the store itself.
type AnalysisStore interface {
	// InsertAnalysis appends one cache record. Existing records for the same
	// subject are superseded, never overwritten.
	InsertAnalysis(ctx context.Context, rec *models.CachedAnalysis) error

	// LatestAnalysis returns the newest record for the subject created at or
	// after cutoff, or nil when none qualifies.
	LatestAnalysis(ctx context.Context, subject models.AnalysisSubject, cutoff time.Time) (*models.CachedAnalysis, error)

	InsertSignal(ctx context.Context, sig *models.SynthesizedSignal) error

	// LatestSignal returns the newest signal for (instrument, timeframe)
	// created at or after cutoff, or nil when none qualifies. Status is not
	// filtered here; callers derive it from expiry.
	LatestSignal(ctx context.Context, instrument, timeframe string, cutoff time.Time) (*models.SynthesizedSignal, error)

	InsertPatterns(ctx context.Context, patterns []models.RecognizedPattern) error

	// ListOpenPatterns returns up to limit patterns in non-terminal status
	// for the instrument, newest first.
	ListOpenPatterns(ctx context.Context, instrument string, limit int) ([]models.RecognizedPattern, error)

	// ListPredictions returns up to limit unexpired predictions for the
	// instrument at the given instant, newest first.
	ListPredictions(ctx context.Context, instrument string, now time.Time, limit int) ([]models.Prediction, error)

	InsertSentiment(ctx context.Context, rec *models.SentimentRecord) error

	// ListSentiment returns up to limit sentiment records observed at or
	// after since, newest first.
	ListSentiment(ctx context.Context, instrument string, since time.Time, limit int) ([]models.SentimentRecord, error)

	Health(ctx context.Context) error
}

// EventPublisher emits persisted analysis results to downstream consumers.
// Publishing is best-effort; a failed publish never fails the request.
type EventPublisher interface {
	PublishSignal(ctx context.Context, sig *models.SynthesizedSignal) error
	PublishPatterns(ctx context.Context, batch *models.PatternBatch) error
	Close() error
}

// Metrics records domain-level observations.
type Metrics interface {
	RecordOracleCall(kind, result string)
	RecordCacheLookup(kind, outcome string)
	RecordSignal(signalType string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
