package analysiscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain/models"
	"marketpulse/pkg/cache"
	"marketpulse/pkg/logger"
)

var testBase = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func testSubject(kind models.AnalysisKind) models.AnalysisSubject {
	return models.AnalysisSubject{Instrument: "RELIANCE", Timeframe: "1h", Kind: kind}
}

type recordingStore struct {
	records     []*models.CachedAnalysis
	latestCalls int
	insertErr   error
}

func (s *recordingStore) InsertAnalysis(_ context.Context, rec *models.CachedAnalysis) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) LatestAnalysis(_ context.Context, subject models.AnalysisSubject, cutoff time.Time) (*models.CachedAnalysis, error) {
	s.latestCalls++
	var newest *models.CachedAnalysis
	for _, rec := range s.records {
		if rec.Subject != subject || rec.CreatedAt.Before(cutoff) {
			continue
		}
		if newest == nil || rec.CreatedAt.After(newest.CreatedAt) {
			newest = rec
		}
	}
	return newest, nil
}

func (s *recordingStore) InsertSignal(context.Context, *models.SynthesizedSignal) error { return nil }
func (s *recordingStore) LatestSignal(context.Context, string, string, time.Time) (*models.SynthesizedSignal, error) {
	return nil, nil
}
func (s *recordingStore) InsertPatterns(context.Context, []models.RecognizedPattern) error {
	return nil
}
func (s *recordingStore) ListOpenPatterns(context.Context, string, int) ([]models.RecognizedPattern, error) {
	return nil, nil
}
func (s *recordingStore) ListPredictions(context.Context, string, time.Time, int) ([]models.Prediction, error) {
	return nil, nil
}
func (s *recordingStore) InsertSentiment(context.Context, *models.SentimentRecord) error { return nil }
func (s *recordingStore) ListSentiment(context.Context, string, time.Time, int) ([]models.SentimentRecord, error) {
	return nil, nil
}
func (s *recordingStore) Health(context.Context) error { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordOracleCall(string, string)  {}
func (noopMetrics) RecordCacheLookup(string, string) {}
func (noopMetrics) RecordSignal(string)              {}
func (noopMetrics) RecordError(string)               {}
func (noopMetrics) RecordLatency(string, float64)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func TestFreshnessFor(t *testing.T) {
	require.Equal(t, SignalFreshness, FreshnessFor(models.KindSignal))
	require.Equal(t, PatternFreshness, FreshnessFor(models.KindPattern))
}

func TestLookupMiss(t *testing.T) {
	c := New(&recordingStore{}, nil, noopMetrics{}, testLogger(t))
	rec, err := c.Lookup(context.Background(), testSubject(models.KindSignal), testBase)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestStoreThenLookup(t *testing.T) {
	store := &recordingStore{}
	c := New(store, nil, noopMetrics{}, testLogger(t))
	subject := testSubject(models.KindSignal)

	err := c.Store(context.Background(), subject, map[string]string{"k": "v"}, testBase)
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	require.Equal(t, SignalFreshness, store.records[0].Freshness)

	rec, err := c.Lookup(context.Background(), subject, testBase.Add(10*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.JSONEq(t, `{"k":"v"}`, string(rec.Payload))
}

func TestLookupStaleRecord(t *testing.T) {
	store := &recordingStore{}
	c := New(store, nil, noopMetrics{}, testLogger(t))
	subject := testSubject(models.KindSignal)

	require.NoError(t, c.Store(context.Background(), subject, "old", testBase))

	rec, err := c.Lookup(context.Background(), subject, testBase.Add(SignalFreshness+time.Minute))
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestLookupHotLayerSkipsStore(t *testing.T) {
	store := &recordingStore{}
	hot := cache.NewMemoryCache()
	defer hot.Close()
	c := New(store, hot, noopMetrics{}, testLogger(t))
	subject := testSubject(models.KindPattern)

	require.NoError(t, c.Store(context.Background(), subject, "payload", testBase))

	rec, err := c.Lookup(context.Background(), subject, testBase.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, 0, store.latestCalls, "warm hot layer must answer without a store read")
}

type brokenHot struct {
	cache.Service
}

func (brokenHot) Get(context.Context, string, interface{}) error {
	return errors.New("connection reset")
}

func (brokenHot) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection reset")
}

func TestLookupDegradesWhenHotFails(t *testing.T) {
	store := &recordingStore{}
	c := New(store, brokenHot{}, noopMetrics{}, testLogger(t))
	subject := testSubject(models.KindSignal)

	require.NoError(t, c.Store(context.Background(), subject, "payload", testBase))

	rec, err := c.Lookup(context.Background(), subject, testBase.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, rec, "hot layer failure must degrade to a store read")
}

func TestStorePropagatesInsertError(t *testing.T) {
	store := &recordingStore{insertErr: errors.New("disk full")}
	c := New(store, nil, noopMetrics{}, testLogger(t))

	err := c.Store(context.Background(), testSubject(models.KindSignal), "payload", testBase)
	require.Error(t, err)
}
