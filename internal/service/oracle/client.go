package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketpulse/internal/domain/models"
	dservice "marketpulse/internal/domain/service"
	"marketpulse/pkg/logger"
)

// Config holds Kronos connection settings.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client talks to the Kronos analysis service over HTTP. Transport and
// timeout failures surface as models.ErrOracleUnavailable; undecodable or
// schema-violating responses surface as models.ErrOracleMalformed.
type Client struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		log: log,
	}
}

type patternsResponse struct {
	Patterns []dservice.PatternCandidate `json:"patterns"`
}

type signalResponse struct {
	Signal *dservice.SignalCandidate `json:"signal"`
}

// RecognizePatterns asks Kronos for pattern candidates. Candidates come
// back unvalidated; the caller decides which entries to keep.
func (c *Client) RecognizePatterns(ctx context.Context, ac dservice.AnalysisContext) ([]dservice.PatternCandidate, error) {
	var resp patternsResponse
	if err := c.post(ctx, "/v1/analyze/patterns", buildPayload(ac), &resp); err != nil {
		return nil, err
	}
	if resp.Patterns == nil {
		return nil, fmt.Errorf("%w: patterns field missing", models.ErrOracleMalformed)
	}
	return resp.Patterns, nil
}

// GenerateSignal asks Kronos for a single trading signal candidate.
func (c *Client) GenerateSignal(ctx context.Context, ac dservice.AnalysisContext) (*dservice.SignalCandidate, error) {
	var resp signalResponse
	if err := c.post(ctx, "/v1/analyze/signal", buildPayload(ac), &resp); err != nil {
		return nil, err
	}
	if resp.Signal == nil {
		return nil, fmt.Errorf("%w: signal field missing", models.ErrOracleMalformed)
	}
	return resp.Signal, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", models.ErrOracleUnavailable, ctx.Err())
			case <-time.After(c.cfg.RetryBackoff * time.Duration(attempt)):
			}
			c.log.Warn("oracle retry",
				logger.String("path", path),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
		}

		lastErr = c.doOnce(ctx, path, body, dest)
		if lastErr == nil {
			return nil
		}
		// Malformed responses stay malformed; retrying won't fix the schema.
		if errors.Is(lastErr, models.ErrOracleMalformed) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, path string, body []byte, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d: %s", models.ErrOracleUnavailable, resp.StatusCode, raw)
		}
		return fmt.Errorf("%w: status %d: %s", models.ErrOracleMalformed, resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrOracleMalformed, err)
	}
	return nil
}
