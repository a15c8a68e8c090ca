package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	dservice "marketpulse/internal/domain/service"
	"marketpulse/internal/market"
	"marketpulse/internal/service/analysiscache"
	"marketpulse/pkg/logger"
)

const (
	sentimentWindow = 24 * time.Hour
	maxSentiment    = 10
	maxPredictions  = 5
	maxOpenPatterns = 5
)

// Synthesizer runs the freshness-gated analysis pipeline: cache check,
// context gathering, one oracle call, validation, persist, publish.
// Concurrent requests for the same subject collapse into a single run.
type Synthesizer struct {
	markets *market.Registry
	oracle  dservice.Oracle
	cache   *analysiscache.Cache
	store   repository.AnalysisStore
	events  repository.EventPublisher
	metrics repository.Metrics
	log     *logger.Logger

	group singleflight.Group
	now   func() time.Time
}

func NewSynthesizer(
	markets *market.Registry,
	oracle dservice.Oracle,
	cache *analysiscache.Cache,
	store repository.AnalysisStore,
	events repository.EventPublisher,
	metrics repository.Metrics,
	log *logger.Logger,
) *Synthesizer {
	return &Synthesizer{
		markets: markets,
		oracle:  oracle,
		cache:   cache,
		store:   store,
		events:  events,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (s *Synthesizer) SetClock(now func() time.Time) { s.now = now }

// SynthesizeSignal produces a trading signal for the request, reusing a
// fresh cached one unless Force is set.
func (s *Synthesizer) SynthesizeSignal(ctx context.Context, req models.SignalRequest) (*models.SynthesizedSignal, error) {
	start := s.now()
	defer func() { s.metrics.RecordLatency("signal", time.Since(start).Seconds()) }()

	if _, err := s.markets.Get(req.Market); err != nil {
		return nil, err
	}

	subject := models.AnalysisSubject{
		Instrument: req.Instrument,
		Timeframe:  string(repository.NormalizeTimeframe(req.Timeframe)),
		Kind:       models.KindSignal,
	}

	if !req.Force {
		if sig, err := s.cachedSignal(ctx, subject); err == nil && sig != nil {
			return sig, nil
		}
	}

	v, err, shared := s.group.Do(subject.Key(), func() (interface{}, error) {
		return s.runSignal(ctx, req, subject)
	})
	if err != nil {
		s.metrics.RecordError(errorKind(err))
		return nil, err
	}
	if shared {
		s.metrics.RecordCacheLookup(string(models.KindSignal), "coalesced")
	}
	return v.(*models.SynthesizedSignal), nil
}

func (s *Synthesizer) runSignal(ctx context.Context, req models.SignalRequest, subject models.AnalysisSubject) (*models.SynthesizedSignal, error) {
	now := s.now()

	// Re-check under the flight: a concurrent run may have landed a record
	// between the caller's miss and this execution.
	if !req.Force {
		if sig, err := s.cachedSignal(ctx, subject); err == nil && sig != nil {
			return sig, nil
		}
	}

	ac := s.gatherContext(ctx, req.Instrument, req.Market, subject.Timeframe, req.Strategy)

	cand, err := s.oracle.GenerateSignal(ctx, ac)
	if err != nil {
		s.metrics.RecordOracleCall("signal", "error")
		return nil, err
	}
	s.metrics.RecordOracleCall("signal", "ok")

	sig, err := s.validateSignal(cand, subject, req.Strategy, now)
	if err != nil {
		return nil, err
	}

	// One result computed, possibly many waiters. Persist only if the
	// driving request is still live.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.InsertSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailure, err)
	}
	// The signal row is the durable result; the freshness record only
	// affects reuse, so its write never fails a request that persisted.
	if err := s.cache.Store(ctx, subject, sig, now); err != nil {
		s.metrics.RecordError("analysis_record")
		s.log.Warn("analysis record write failed", logger.String("subject", subject.Key()), logger.Error(err))
	}

	s.metrics.RecordSignal(string(sig.Type))
	s.publishSignal(sig)
	return sig, nil
}

func (s *Synthesizer) validateSignal(cand *dservice.SignalCandidate, subject models.AnalysisSubject, strategy string, now time.Time) (*models.SynthesizedSignal, error) {
	t := models.SignalType(cand.SignalType)
	if !t.Valid() {
		return nil, fmt.Errorf("%w: signal type %q", models.ErrOracleMalformed, cand.SignalType)
	}
	expiry := SignalExpiry(subject.Timeframe)
	sig := &models.SynthesizedSignal{
		ID:          uuid.NewString(),
		Instrument:  subject.Instrument,
		Timeframe:   subject.Timeframe,
		Strategy:    strategy,
		Type:        t,
		Strength:    models.Clamp01(cand.Strength),
		Confidence:  models.Clamp01(cand.Confidence),
		PriceTarget: cand.PriceTarget,
		StopLoss:    cand.StopLoss,
		RiskReward:  cand.RiskReward,
		Rationale:   cand.Reasoning,
		KeyFactors:  cand.KeyFactors,
		TimeHorizon: cand.TimeHorizon,
		CreatedAt:   now,
		ExpiresAt:   now.Add(expiry),
		Status:      models.SignalActive,
	}
	return sig, nil
}

// SynthesizePatterns produces a pattern batch for the request. Invalid
// candidates are dropped individually and counted in Skipped.
func (s *Synthesizer) SynthesizePatterns(ctx context.Context, req models.PatternRequest) (*models.PatternBatch, error) {
	start := s.now()
	defer func() { s.metrics.RecordLatency("patterns", time.Since(start).Seconds()) }()

	if _, err := s.markets.Get(req.Market); err != nil {
		return nil, err
	}

	subject := models.AnalysisSubject{
		Instrument: req.Instrument,
		Timeframe:  string(repository.NormalizeTimeframe(req.Timeframe)),
		Kind:       models.KindPattern,
	}

	if !req.Force {
		if batch, err := s.cachedPatterns(ctx, subject); err == nil && batch != nil {
			return batch, nil
		}
	}

	v, err, _ := s.group.Do(subject.Key(), func() (interface{}, error) {
		return s.runPatterns(ctx, req, subject)
	})
	if err != nil {
		s.metrics.RecordError(errorKind(err))
		return nil, err
	}
	return v.(*models.PatternBatch), nil
}

func (s *Synthesizer) runPatterns(ctx context.Context, req models.PatternRequest, subject models.AnalysisSubject) (*models.PatternBatch, error) {
	now := s.now()

	if !req.Force {
		if batch, err := s.cachedPatterns(ctx, subject); err == nil && batch != nil {
			return batch, nil
		}
	}

	ac := s.gatherContext(ctx, req.Instrument, req.Market, subject.Timeframe, "")

	cands, err := s.oracle.RecognizePatterns(ctx, ac)
	if err != nil {
		s.metrics.RecordOracleCall("patterns", "error")
		return nil, err
	}
	s.metrics.RecordOracleCall("patterns", "ok")

	batch := &models.PatternBatch{
		Instrument: subject.Instrument,
		Timeframe:  subject.Timeframe,
		CreatedAt:  now,
	}
	for _, c := range cands {
		p, ok := s.validatePattern(c, subject, now)
		if !ok {
			batch.Skipped++
			continue
		}
		batch.Patterns = append(batch.Patterns, p)
	}
	batch.TotalPatterns = len(batch.Patterns)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.InsertPatterns(ctx, batch.Patterns); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceFailure, err)
	}
	if err := s.cache.Store(ctx, subject, batch, now); err != nil {
		s.metrics.RecordError("analysis_record")
		s.log.Warn("analysis record write failed", logger.String("subject", subject.Key()), logger.Error(err))
	}

	s.publishPatterns(batch)
	return batch, nil
}

func (s *Synthesizer) validatePattern(c dservice.PatternCandidate, subject models.AnalysisSubject, now time.Time) (models.RecognizedPattern, bool) {
	dir := models.PatternDirection(c.Direction)
	status := models.PatternStatus(c.Status)
	if c.PatternType == "" || !dir.Valid() || !status.Valid() {
		s.log.Warn("pattern candidate dropped",
			logger.String("instrument", subject.Instrument),
			logger.String("pattern_type", c.PatternType),
			logger.String("direction", c.Direction),
			logger.String("status", c.Status))
		return models.RecognizedPattern{}, false
	}
	return models.RecognizedPattern{
		ID:          uuid.NewString(),
		Instrument:  subject.Instrument,
		Timeframe:   subject.Timeframe,
		PatternType: c.PatternType,
		Direction:   dir,
		Confidence:  models.Clamp01(c.Confidence),
		Status:      status,
		StartPrice:  c.StartPrice,
		EndPrice:    c.EndPrice,
		TargetPrice: c.TargetPrice,
		StopPrice:   c.StopPrice,
		Description: c.Description,
		CreatedAt:   now,
	}, true
}

// gatherContext pulls every available input for the oracle. Each source is
// best-effort: a failed lookup narrows the context instead of failing the
// request.
func (s *Synthesizer) gatherContext(ctx context.Context, instrument, marketID, timeframe, strategy string) dservice.AnalysisContext {
	now := s.now()
	ac := dservice.AnalysisContext{
		Instrument: instrument,
		Market:     marketID,
		Timeframe:  timeframe,
		Strategy:   strategy,
	}

	adapter, err := s.markets.Get(marketID)
	if err == nil {
		if q, err := adapter.Quote(ctx, instrument); err == nil {
			ac.Quote = q
		} else {
			s.log.Warn("context quote unavailable", logger.String("instrument", instrument), logger.Error(err))
		}
		if in, err := adapter.Indicators(ctx, instrument, timeframe); err == nil {
			ac.Indicators = in
		} else {
			s.log.Warn("context indicators unavailable", logger.String("instrument", instrument), logger.Error(err))
		}
	}

	if preds, err := s.store.ListPredictions(ctx, instrument, now, maxPredictions); err == nil {
		ac.Predictions = preds
	} else {
		s.log.Warn("context predictions unavailable", logger.String("instrument", instrument), logger.Error(err))
	}
	if sent, err := s.store.ListSentiment(ctx, instrument, now.Add(-sentimentWindow), maxSentiment); err == nil {
		ac.Sentiment = sent
	} else {
		s.log.Warn("context sentiment unavailable", logger.String("instrument", instrument), logger.Error(err))
	}
	if pats, err := s.store.ListOpenPatterns(ctx, instrument, maxOpenPatterns); err == nil {
		ac.OpenPatterns = pats
	} else {
		s.log.Warn("context open patterns unavailable", logger.String("instrument", instrument), logger.Error(err))
	}
	return ac
}

func (s *Synthesizer) cachedSignal(ctx context.Context, subject models.AnalysisSubject) (*models.SynthesizedSignal, error) {
	now := s.now()
	rec, err := s.cache.Lookup(ctx, subject, now)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return s.recentActiveSignal(ctx, subject, now)
	}
	var sig models.SynthesizedSignal
	if err := json.Unmarshal(rec.Payload, &sig); err != nil {
		s.log.Warn("cached signal payload unreadable", logger.String("subject", subject.Key()), logger.Error(err))
		return nil, nil
	}
	sig.Status = sig.StatusAt(now)
	return &sig, nil
}

// recentActiveSignal dedups against the signal table itself. A signal row
// can exist without a readable freshness record, so a cache miss alone does
// not prove no recent synthesis landed.
func (s *Synthesizer) recentActiveSignal(ctx context.Context, subject models.AnalysisSubject, now time.Time) (*models.SynthesizedSignal, error) {
	sig, err := s.store.LatestSignal(ctx, subject.Instrument, subject.Timeframe, now.Add(-analysiscache.SignalFreshness))
	if err != nil || sig == nil {
		return nil, err
	}
	if sig.StatusAt(now) != models.SignalActive {
		return nil, nil
	}
	s.metrics.RecordCacheLookup(string(models.KindSignal), "signal_dedup")
	sig.Status = models.SignalActive
	return sig, nil
}

func (s *Synthesizer) cachedPatterns(ctx context.Context, subject models.AnalysisSubject) (*models.PatternBatch, error) {
	rec, err := s.cache.Lookup(ctx, subject, s.now())
	if err != nil || rec == nil {
		return nil, err
	}
	var batch models.PatternBatch
	if err := json.Unmarshal(rec.Payload, &batch); err != nil {
		s.log.Warn("cached pattern payload unreadable", logger.String("subject", subject.Key()), logger.Error(err))
		return nil, nil
	}
	return &batch, nil
}

// publishSignal emits the event without failing the request. The publish
// context is detached so a cancelled caller does not lose the event.
func (s *Synthesizer) publishSignal(sig *models.SynthesizedSignal) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.PublishSignal(pctx, sig); err != nil {
		s.log.Warn("signal event publish failed", logger.String("id", sig.ID), logger.Error(err))
	}
}

func (s *Synthesizer) publishPatterns(batch *models.PatternBatch) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.PublishPatterns(pctx, batch); err != nil {
		s.log.Warn("pattern batch publish failed", logger.String("instrument", batch.Instrument), logger.Error(err))
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, models.ErrUnknownMarket):
		return "unknown_market"
	case errors.Is(err, models.ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, models.ErrOracleMalformed):
		return "oracle_malformed"
	case errors.Is(err, models.ErrPersistenceFailure):
		return "persistence"
	default:
		return "other"
	}
}
