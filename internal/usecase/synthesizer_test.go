package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	dservice "marketpulse/internal/domain/service"
	"marketpulse/internal/market"
	"marketpulse/internal/service/analysiscache"
	"marketpulse/pkg/logger"
)

var testBase = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu        sync.Mutex
	analyses  []*models.CachedAnalysis
	signals   []*models.SynthesizedSignal
	patterns  []models.RecognizedPattern
	sentiment []*models.SentimentRecord

	insertSignalErr   error
	insertAnalysisErr error
}

func (f *fakeStore) InsertAnalysis(_ context.Context, rec *models.CachedAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertAnalysisErr != nil {
		return f.insertAnalysisErr
	}
	f.analyses = append(f.analyses, rec)
	return nil
}

func (f *fakeStore) LatestAnalysis(_ context.Context, subject models.AnalysisSubject, cutoff time.Time) (*models.CachedAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *models.CachedAnalysis
	for _, rec := range f.analyses {
		if rec.Subject != subject || rec.CreatedAt.Before(cutoff) {
			continue
		}
		if newest == nil || rec.CreatedAt.After(newest.CreatedAt) {
			newest = rec
		}
	}
	return newest, nil
}

func (f *fakeStore) InsertSignal(_ context.Context, sig *models.SynthesizedSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertSignalErr != nil {
		return f.insertSignalErr
	}
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeStore) LatestSignal(_ context.Context, instrument, timeframe string, cutoff time.Time) (*models.SynthesizedSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *models.SynthesizedSignal
	for _, sig := range f.signals {
		if sig.Instrument != instrument || sig.Timeframe != timeframe || sig.CreatedAt.Before(cutoff) {
			continue
		}
		if newest == nil || sig.CreatedAt.After(newest.CreatedAt) {
			newest = sig
		}
	}
	return newest, nil
}

func (f *fakeStore) InsertPatterns(_ context.Context, patterns []models.RecognizedPattern) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, patterns...)
	return nil
}

func (f *fakeStore) ListOpenPatterns(_ context.Context, _ string, _ int) ([]models.RecognizedPattern, error) {
	return nil, nil
}

func (f *fakeStore) ListPredictions(_ context.Context, _ string, _ time.Time, _ int) ([]models.Prediction, error) {
	return nil, nil
}

func (f *fakeStore) InsertSentiment(_ context.Context, rec *models.SentimentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentiment = append(f.sentiment, rec)
	return nil
}

func (f *fakeStore) ListSentiment(_ context.Context, _ string, _ time.Time, _ int) ([]models.SentimentRecord, error) {
	return nil, nil
}

func (f *fakeStore) Health(_ context.Context) error { return nil }

type fakeOracle struct {
	mu       sync.Mutex
	signal   *dservice.SignalCandidate
	patterns []dservice.PatternCandidate
	err      error
	calls    int
	onCall   func()
}

func (f *fakeOracle) GenerateSignal(_ context.Context, _ dservice.AnalysisContext) (*dservice.SignalCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	return f.signal, f.err
}

func (f *fakeOracle) RecognizePatterns(_ context.Context, _ dservice.AnalysisContext) ([]dservice.PatternCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	return f.patterns, f.err
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMetrics struct{}

func (m *fakeMetrics) RecordOracleCall(string, string)  {}
func (m *fakeMetrics) RecordCacheLookup(string, string) {}
func (m *fakeMetrics) RecordSignal(string)              {}
func (m *fakeMetrics) RecordError(string)               {}
func (m *fakeMetrics) RecordLatency(string, float64)    {}

type fakePublisher struct {
	mu      sync.Mutex
	signals int
	batches int
}

func (p *fakePublisher) PublishSignal(_ context.Context, _ *models.SynthesizedSignal) error {
	p.mu.Lock()
	p.signals++
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) PublishPatterns(_ context.Context, _ *models.PatternBatch) error {
	p.mu.Lock()
	p.batches++
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type bareAdapter struct {
	id string
}

func (a *bareAdapter) ID() string                 { return a.id }
func (a *bareAdapter) Calendar() *market.Calendar { return nil }

func (a *bareAdapter) Quote(context.Context, string) (*models.Quote, error) {
	return nil, errors.New("no feed")
}
func (a *bareAdapter) Indicators(context.Context, string, string) (*models.IndicatorSet, error) {
	return nil, errors.New("no feed")
}
func (a *bareAdapter) Fundamentals(context.Context, string) (*models.Fundamentals, error) {
	return nil, errors.New("no feed")
}
func (a *bareAdapter) Overview(context.Context) (*models.MarketOverview, error) {
	return nil, errors.New("no feed")
}
func (a *bareAdapter) Sentiment(context.Context, string) ([]models.SentimentRecord, error) {
	return nil, errors.New("no feed")
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestSynthesizer(t *testing.T, orc *fakeOracle, store *fakeStore, pub *fakePublisher) *Synthesizer {
	t.Helper()
	log := testLogger(t)
	metrics := &fakeMetrics{}
	reg := market.NewRegistry(&bareAdapter{id: "NSE"})
	cache := analysiscache.New(store, nil, metrics, log)
	var events repository.EventPublisher
	if pub != nil {
		events = pub
	}
	s := NewSynthesizer(reg, orc, cache, store, events, metrics, log)
	s.SetClock(func() time.Time { return testBase })
	return s
}

func validCandidate() *dservice.SignalCandidate {
	return &dservice.SignalCandidate{
		SignalType:  "BUY",
		Strength:    0.8,
		Confidence:  0.7,
		PriceTarget: 105,
		StopLoss:    95,
		RiskReward:  2,
		Reasoning:   "momentum",
		KeyFactors:  []string{"volume"},
		TimeHorizon: "days",
	}
}

func TestSynthesizeSignalUnknownMarket(t *testing.T) {
	s := newTestSynthesizer(t, &fakeOracle{}, &fakeStore{}, nil)
	_, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "XOM", Timeframe: "1h",
	})
	require.ErrorIs(t, err, models.ErrUnknownMarket)
}

func TestSynthesizeSignal(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	orc := &fakeOracle{signal: validCandidate()}
	s := newTestSynthesizer(t, orc, store, pub)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h", Strategy: "swing",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sig.ID)
	require.Equal(t, models.SignalBuy, sig.Type)
	require.Equal(t, models.SignalActive, sig.Status)
	require.Equal(t, "swing", sig.Strategy)
	require.True(t, sig.CreatedAt.Equal(testBase))
	require.True(t, sig.ExpiresAt.Equal(testBase.Add(4*time.Hour)), "1h signals expire after 4h")

	require.Len(t, store.signals, 1)
	require.Len(t, store.analyses, 1, "result must land in the analysis cache")
	require.Equal(t, 1, pub.signals)
}

func TestSynthesizeSignalClampsScores(t *testing.T) {
	cand := validCandidate()
	cand.Strength = 1.4
	cand.Confidence = -0.2
	s := newTestSynthesizer(t, &fakeOracle{signal: cand}, &fakeStore{}, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, sig.Strength)
	require.Equal(t, 0.0, sig.Confidence)
}

func TestSynthesizeSignalCacheHit(t *testing.T) {
	store := &fakeStore{}
	cached := &models.SynthesizedSignal{
		ID: "cached", Instrument: "RELIANCE", Timeframe: "1h",
		Type: models.SignalHold, CreatedAt: testBase.Add(-10 * time.Minute),
		ExpiresAt: testBase.Add(2 * time.Hour), Status: models.SignalActive,
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	store.analyses = append(store.analyses, &models.CachedAnalysis{
		Subject:   models.AnalysisSubject{Instrument: "RELIANCE", Timeframe: "1h", Kind: models.KindSignal},
		CreatedAt: testBase.Add(-10 * time.Minute),
		Freshness: analysiscache.SignalFreshness,
		Payload:   payload,
	})

	orc := &fakeOracle{signal: validCandidate()}
	s := newTestSynthesizer(t, orc, store, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.NoError(t, err)
	require.Equal(t, "cached", sig.ID)
	require.Equal(t, 0, orc.callCount(), "fresh cache must skip the oracle")
}

func TestSynthesizeSignalStaleCacheMisses(t *testing.T) {
	store := &fakeStore{}
	store.analyses = append(store.analyses, &models.CachedAnalysis{
		Subject:   models.AnalysisSubject{Instrument: "RELIANCE", Timeframe: "1h", Kind: models.KindSignal},
		CreatedAt: testBase.Add(-45 * time.Minute),
		Freshness: analysiscache.SignalFreshness,
		Payload:   []byte(`{}`),
	})
	orc := &fakeOracle{signal: validCandidate()}
	s := newTestSynthesizer(t, orc, store, nil)

	_, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.NoError(t, err)
	require.Equal(t, 1, orc.callCount(), "stale record must trigger a fresh run")
}

func TestSynthesizeSignalForceBypassesCache(t *testing.T) {
	store := &fakeStore{}
	cached := &models.SynthesizedSignal{ID: "cached", Type: models.SignalHold, ExpiresAt: testBase.Add(time.Hour)}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	store.analyses = append(store.analyses, &models.CachedAnalysis{
		Subject:   models.AnalysisSubject{Instrument: "RELIANCE", Timeframe: "1h", Kind: models.KindSignal},
		CreatedAt: testBase.Add(-time.Minute),
		Freshness: analysiscache.SignalFreshness,
		Payload:   payload,
	})
	orc := &fakeOracle{signal: validCandidate()}
	s := newTestSynthesizer(t, orc, store, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h", Force: true,
	})
	require.NoError(t, err)
	require.NotEqual(t, "cached", sig.ID)
	require.Equal(t, 1, orc.callCount())
}

func TestSynthesizeSignalMalformedType(t *testing.T) {
	cand := validCandidate()
	cand.SignalType = "MAYBE"
	store := &fakeStore{}
	s := newTestSynthesizer(t, &fakeOracle{signal: cand}, store, nil)

	_, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.ErrorIs(t, err, models.ErrOracleMalformed)
	require.Empty(t, store.signals, "malformed result must not persist")
}

func TestSynthesizeSignalOracleUnavailable(t *testing.T) {
	s := newTestSynthesizer(t, &fakeOracle{err: models.ErrOracleUnavailable}, &fakeStore{}, nil)
	_, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.ErrorIs(t, err, models.ErrOracleUnavailable)
}

func TestSynthesizeSignalDedupsOnRecentSignalRow(t *testing.T) {
	store := &fakeStore{}
	store.signals = append(store.signals, &models.SynthesizedSignal{
		ID: "recent", Instrument: "RELIANCE", Timeframe: "1h",
		Type: models.SignalBuy, CreatedAt: testBase.Add(-10 * time.Minute),
		ExpiresAt: testBase.Add(2 * time.Hour), Status: models.SignalActive,
	})
	orc := &fakeOracle{signal: validCandidate()}
	s := newTestSynthesizer(t, orc, store, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.NoError(t, err)
	require.Equal(t, "recent", sig.ID, "an active signal row dedups even without an analysis record")
	require.Equal(t, 0, orc.callCount())
}

func TestSynthesizeSignalExpiredRowDoesNotDedup(t *testing.T) {
	store := &fakeStore{}
	store.signals = append(store.signals, &models.SynthesizedSignal{
		ID: "expired", Instrument: "RELIANCE", Timeframe: "1h",
		Type: models.SignalBuy, CreatedAt: testBase.Add(-10 * time.Minute),
		ExpiresAt: testBase.Add(-time.Minute), Status: models.SignalActive,
	})
	orc := &fakeOracle{signal: validCandidate()}
	s := newTestSynthesizer(t, orc, store, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.NoError(t, err)
	require.NotEqual(t, "expired", sig.ID)
	require.Equal(t, 1, orc.callCount())
}

func TestSynthesizeSignalAnalysisRecordWriteNonFatal(t *testing.T) {
	store := &fakeStore{insertAnalysisErr: errors.New("disk full")}
	s := newTestSynthesizer(t, &fakeOracle{signal: validCandidate()}, store, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h", Force: true,
	})
	require.NoError(t, err, "a persisted signal must be returned even if the freshness record fails")
	require.NotNil(t, sig)
	require.Len(t, store.signals, 1)
}

func TestSynthesizeSignalPersistFailure(t *testing.T) {
	store := &fakeStore{insertSignalErr: errors.New("disk full")}
	s := newTestSynthesizer(t, &fakeOracle{signal: validCandidate()}, store, nil)

	_, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.ErrorIs(t, err, models.ErrPersistenceFailure)
}

func TestSynthesizeSignalCancelledBeforePersist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &fakeStore{}
	orc := &fakeOracle{signal: validCandidate(), onCall: cancel}
	s := newTestSynthesizer(t, orc, store, nil)

	_, err := s.SynthesizeSignal(ctx, models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h",
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, store.signals, "cancelled request must not persist")
}

func TestSynthesizePatternsSkipsInvalid(t *testing.T) {
	tgt := 120.0
	orc := &fakeOracle{patterns: []dservice.PatternCandidate{
		{PatternType: "double_bottom", Direction: "bullish", Status: "FORMING", Confidence: 0.9, TargetPrice: &tgt},
		{PatternType: "head_shoulders", Direction: "sideways", Status: "FORMING"},
		{PatternType: "", Direction: "bearish", Status: "CONFIRMED"},
	}}
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestSynthesizer(t, orc, store, pub)

	batch, err := s.SynthesizePatterns(context.Background(), models.PatternRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1d",
	})
	require.NoError(t, err)
	require.Equal(t, 1, batch.TotalPatterns)
	require.Equal(t, 2, batch.Skipped)
	require.Len(t, store.patterns, 1)
	require.Equal(t, models.DirectionBullish, store.patterns[0].Direction)
	require.Equal(t, 1, pub.batches)
}

func TestSynthesizePatternsCacheHit(t *testing.T) {
	store := &fakeStore{}
	batch := &models.PatternBatch{Instrument: "RELIANCE", Timeframe: "1d", TotalPatterns: 2}
	payload, err := json.Marshal(batch)
	require.NoError(t, err)
	store.analyses = append(store.analyses, &models.CachedAnalysis{
		Subject:   models.AnalysisSubject{Instrument: "RELIANCE", Timeframe: "1d", Kind: models.KindPattern},
		CreatedAt: testBase.Add(-time.Hour),
		Freshness: analysiscache.PatternFreshness,
		Payload:   payload,
	})
	orc := &fakeOracle{}
	s := newTestSynthesizer(t, orc, store, nil)

	got, err := s.SynthesizePatterns(context.Background(), models.PatternRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "1d",
	})
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalPatterns)
	require.Equal(t, 0, orc.callCount(), "patterns stay fresh for two hours")
}

func TestSynthesizeSignalNormalizesTimeframe(t *testing.T) {
	store := &fakeStore{}
	s := newTestSynthesizer(t, &fakeOracle{signal: validCandidate()}, store, nil)

	sig, err := s.SynthesizeSignal(context.Background(), models.SignalRequest{
		Instrument: "RELIANCE", Market: "NSE", Timeframe: "7h",
	})
	require.NoError(t, err)
	require.Equal(t, "1h", sig.Timeframe)
}
