package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketpulse/internal/domain/models"
	pkgch "marketpulse/pkg/clickhouse"
	applogger "marketpulse/pkg/logger"
)

// CHAnalysisStore implements AnalysisStore backed by ClickHouse. Every table
// is append-only; reads take the newest row within the caller's window.
type CHAnalysisStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHAnalysisStore(ch *pkgch.Client) *CHAnalysisStore {
	return &CHAnalysisStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHAnalysisStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHAnalysisStore) InsertAnalysis(ctx context.Context, rec *models.CachedAnalysis) error {
	const q = `
		INSERT INTO marketpulse.analysis_records
			(instrument, timeframe, kind, created_at, freshness_sec, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		rec.Subject.Instrument, rec.Subject.Timeframe, string(rec.Subject.Kind),
		rec.CreatedAt, int64(rec.Freshness.Seconds()), string(rec.Payload))
	if err != nil {
		s.logErr("insert_analysis", err, applogger.String("subject", rec.Subject.Key()))
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (s *CHAnalysisStore) LatestAnalysis(ctx context.Context, subject models.AnalysisSubject, cutoff time.Time) (*models.CachedAnalysis, error) {
	const q = `
		SELECT created_at, freshness_sec, payload
		FROM marketpulse.analysis_records
		WHERE instrument = ? AND timeframe = ? AND kind = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	var (
		createdAt    time.Time
		freshnessSec int64
		payload      string
	)
	err := s.db.QueryRowContext(ctx, q, subject.Instrument, subject.Timeframe, string(subject.Kind), cutoff).
		Scan(&createdAt, &freshnessSec, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logErr("latest_analysis", err, applogger.String("subject", subject.Key()))
		return nil, fmt.Errorf("latest analysis: %w", err)
	}
	return &models.CachedAnalysis{
		Subject:   subject,
		CreatedAt: createdAt,
		Freshness: time.Duration(freshnessSec) * time.Second,
		Payload:   []byte(payload),
	}, nil
}

func (s *CHAnalysisStore) InsertSignal(ctx context.Context, sig *models.SynthesizedSignal) error {
	const q = `
		INSERT INTO marketpulse.signals
			(id, instrument, timeframe, strategy, signal_type, strength, confidence,
			 price_target, stop_loss, risk_reward, rationale, key_factors, time_horizon,
			 created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		sig.ID, sig.Instrument, sig.Timeframe, sig.Strategy, string(sig.Type),
		sig.Strength, sig.Confidence, sig.PriceTarget, sig.StopLoss, sig.RiskReward,
		sig.Rationale, strings.Join(sig.KeyFactors, "|"), sig.TimeHorizon,
		sig.CreatedAt, sig.ExpiresAt)
	if err != nil {
		s.logErr("insert_signal", err,
			applogger.String("instrument", sig.Instrument),
			applogger.String("timeframe", sig.Timeframe))
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *CHAnalysisStore) LatestSignal(ctx context.Context, instrument, timeframe string, cutoff time.Time) (*models.SynthesizedSignal, error) {
	const q = `
		SELECT id, instrument, timeframe, strategy, signal_type, strength, confidence,
			   price_target, stop_loss, risk_reward, rationale, key_factors, time_horizon,
			   created_at, expires_at
		FROM marketpulse.signals
		WHERE instrument = ? AND timeframe = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	var (
		sig        models.SynthesizedSignal
		sigType    string
		keyFactors string
	)
	err := s.db.QueryRowContext(ctx, q, instrument, timeframe, cutoff).Scan(
		&sig.ID, &sig.Instrument, &sig.Timeframe, &sig.Strategy, &sigType,
		&sig.Strength, &sig.Confidence, &sig.PriceTarget, &sig.StopLoss, &sig.RiskReward,
		&sig.Rationale, &keyFactors, &sig.TimeHorizon, &sig.CreatedAt, &sig.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logErr("latest_signal", err,
			applogger.String("instrument", instrument),
			applogger.String("timeframe", timeframe))
		return nil, fmt.Errorf("latest signal: %w", err)
	}
	sig.Type = models.SignalType(sigType)
	if keyFactors != "" {
		sig.KeyFactors = strings.Split(keyFactors, "|")
	}
	return &sig, nil
}

func (s *CHAnalysisStore) InsertPatterns(ctx context.Context, patterns []models.RecognizedPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	const q = `
		INSERT INTO marketpulse.patterns
			(id, instrument, timeframe, pattern_type, direction, confidence, status,
			 start_price, end_price, target_price, stop_price, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patterns tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare patterns: %w", err)
	}
	defer stmt.Close()
	for _, p := range patterns {
		var target, stop interface{}
		if p.TargetPrice != nil {
			target = *p.TargetPrice
		}
		if p.StopPrice != nil {
			stop = *p.StopPrice
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Instrument, p.Timeframe, p.PatternType, string(p.Direction),
			p.Confidence, string(p.Status), p.StartPrice, p.EndPrice,
			target, stop, p.Description, p.CreatedAt); err != nil {
			_ = tx.Rollback()
			s.logErr("insert_patterns", err, applogger.String("instrument", p.Instrument))
			return fmt.Errorf("insert pattern: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patterns: %w", err)
	}
	return nil
}

func (s *CHAnalysisStore) ListOpenPatterns(ctx context.Context, instrument string, limit int) ([]models.RecognizedPattern, error) {
	const q = `
		SELECT id, instrument, timeframe, pattern_type, direction, confidence, status,
			   start_price, end_price, target_price, stop_price, description, created_at
		FROM marketpulse.patterns
		WHERE instrument = ? AND status IN ('FORMING', 'CONFIRMED')
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, instrument, limit)
	if err != nil {
		s.logErr("list_open_patterns", err, applogger.String("instrument", instrument))
		return nil, fmt.Errorf("list open patterns: %w", err)
	}
	defer rows.Close()

	out := make([]models.RecognizedPattern, 0, limit)
	for rows.Next() {
		var (
			p            models.RecognizedPattern
			direction    string
			status       string
			target, stop sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.Instrument, &p.Timeframe, &p.PatternType,
			&direction, &p.Confidence, &status, &p.StartPrice, &p.EndPrice,
			&target, &stop, &p.Description, &p.CreatedAt); err != nil {
			s.logErr("list_open_patterns scan", err, applogger.String("instrument", instrument))
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Direction = models.PatternDirection(direction)
		p.Status = models.PatternStatus(status)
		if target.Valid {
			v := target.Float64
			p.TargetPrice = &v
		}
		if stop.Valid {
			v := stop.Float64
			p.StopPrice = &v
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHAnalysisStore) ListPredictions(ctx context.Context, instrument string, now time.Time, limit int) ([]models.Prediction, error) {
	const q = `
		SELECT id, instrument, timeframe, kind, value, confidence, created_at, expires_at
		FROM marketpulse.predictions
		WHERE instrument = ? AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, instrument, now, limit)
	if err != nil {
		s.logErr("list_predictions", err, applogger.String("instrument", instrument))
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Prediction, 0, limit)
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.Instrument, &p.Timeframe, &p.Kind,
			&p.Value, &p.Confidence, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHAnalysisStore) InsertSentiment(ctx context.Context, rec *models.SentimentRecord) error {
	const q = `
		INSERT INTO marketpulse.sentiment
			(id, instrument, source, score, summary, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.Instrument, rec.Source, rec.Score, rec.Summary, rec.ObservedAt)
	if err != nil {
		s.logErr("insert_sentiment", err, applogger.String("instrument", rec.Instrument))
		return fmt.Errorf("insert sentiment: %w", err)
	}
	return nil
}

func (s *CHAnalysisStore) ListSentiment(ctx context.Context, instrument string, since time.Time, limit int) ([]models.SentimentRecord, error) {
	const q = `
		SELECT id, instrument, source, score, summary, observed_at
		FROM marketpulse.sentiment
		WHERE instrument = ? AND observed_at >= ?
		ORDER BY observed_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, instrument, since, limit)
	if err != nil {
		s.logErr("list_sentiment", err, applogger.String("instrument", instrument))
		return nil, fmt.Errorf("list sentiment: %w", err)
	}
	defer rows.Close()

	out := make([]models.SentimentRecord, 0, limit)
	for rows.Next() {
		var r models.SentimentRecord
		if err := rows.Scan(&r.ID, &r.Instrument, &r.Source, &r.Score, &r.Summary, &r.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHAnalysisStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHAnalysisStore) logErr(op string, err error, fields ...applogger.Field) {
	if s.l == nil {
		return
	}
	fields = append(fields, applogger.Error(err))
	s.l.Error("clickhouse "+op+" error", fields...)
}
