package analysiscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	"marketpulse/pkg/cache"
	"marketpulse/pkg/logger"
)

// Freshness windows per analysis kind.
const (
	PatternFreshness = 2 * time.Hour
	SignalFreshness  = 30 * time.Minute
)

const keyPrefix = "marketpulse:analysis"

// FreshnessFor maps an analysis kind to its reuse window.
func FreshnessFor(kind models.AnalysisKind) time.Duration {
	if kind == models.KindSignal {
		return SignalFreshness
	}
	return PatternFreshness
}

// Cache answers "is there a fresh result for this subject" over the
// append-only store, with an optional hot layer in front. Records are
// appended, never updated; the newest record inside the window wins.
type Cache struct {
	store   repository.AnalysisStore
	hot     cache.Service // nil disables the hot layer
	metrics repository.Metrics
	log     *logger.Logger
}

func New(store repository.AnalysisStore, hot cache.Service, metrics repository.Metrics, log *logger.Logger) *Cache {
	return &Cache{store: store, hot: hot, metrics: metrics, log: log}
}

// Lookup returns the freshest reusable record for the subject at the given
// instant, or nil on a miss. A hot-layer failure degrades to a store read.
func (c *Cache) Lookup(ctx context.Context, subject models.AnalysisSubject, now time.Time) (*models.CachedAnalysis, error) {
	window := FreshnessFor(subject.Kind)
	cutoff := now.Add(-window)

	if c.hot != nil {
		var rec models.CachedAnalysis
		err := c.hot.Get(ctx, c.hotKey(subject), &rec)
		switch {
		case err == nil:
			if rec.Fresh(now) {
				c.metrics.RecordCacheLookup(string(subject.Kind), "hot_hit")
				return &rec, nil
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			c.log.Warn("analysis hot cache read failed",
				logger.String("subject", subject.Key()),
				logger.Error(err))
		}
	}

	rec, err := c.store.LatestAnalysis(ctx, subject, cutoff)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Fresh(now) {
		c.metrics.RecordCacheLookup(string(subject.Kind), "miss")
		return nil, nil
	}
	c.metrics.RecordCacheLookup(string(subject.Kind), "store_hit")
	c.warmHot(ctx, rec, now)
	return rec, nil
}

// Store appends a new record for the subject and warms the hot layer.
func (c *Cache) Store(ctx context.Context, subject models.AnalysisSubject, payload interface{}, now time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	rec := &models.CachedAnalysis{
		Subject:   subject,
		CreatedAt: now,
		Freshness: FreshnessFor(subject.Kind),
		Payload:   raw,
	}
	if err := c.store.InsertAnalysis(ctx, rec); err != nil {
		return err
	}
	c.warmHot(ctx, rec, now)
	return nil
}

func (c *Cache) warmHot(ctx context.Context, rec *models.CachedAnalysis, now time.Time) {
	if c.hot == nil {
		return
	}
	ttl := rec.Freshness - now.Sub(rec.CreatedAt)
	if ttl <= 0 {
		return
	}
	if err := c.hot.Set(ctx, c.hotKey(rec.Subject), rec, ttl); err != nil {
		c.log.Warn("analysis hot cache write failed",
			logger.String("subject", rec.Subject.Key()),
			logger.Error(err))
	}
}

func (c *Cache) hotKey(subject models.AnalysisSubject) string {
	return cache.GenerateKey(keyPrefix, subject.Key())
}
