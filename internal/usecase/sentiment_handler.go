package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	pkgkafka "marketpulse/pkg/kafka"
)

// SentimentHandler consumes sentiment events and appends them to the store.
// Records feed the context gathered for later synthesis runs.
type SentimentHandler struct {
	topic   string
	store   repository.AnalysisStore
	metrics repository.Metrics
}

func NewSentimentHandler(topic string, store repository.AnalysisStore, metrics repository.Metrics) *SentimentHandler {
	return &SentimentHandler{topic: topic, store: store, metrics: metrics}
}

func (h *SentimentHandler) Topic() string { return h.topic }

// incoming message schema: {instrument, source, score, summary, t}
func (h *SentimentHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Instrument string  `json:"instrument"`
		Source     string  `json:"source"`
		Score      float64 `json:"score"`
		Summary    string  `json:"summary"`
		T          int64   `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("sentiment_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}

	// Out-of-range scores are clamped rather than dropped.
	if m.Score > 1 {
		m.Score = 1
	} else if m.Score < -1 {
		m.Score = -1
	}

	start := time.Now()
	err := h.store.InsertSentiment(ctx, &models.SentimentRecord{
		ID:         uuid.NewString(),
		Instrument: m.Instrument,
		Source:     m.Source,
		Score:      m.Score,
		Summary:    m.Summary,
		ObservedAt: time.Unix(m.T, 0).UTC(),
	})
	h.metrics.RecordLatency("sentiment_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("sentiment_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*SentimentHandler)(nil)
