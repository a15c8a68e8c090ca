package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain/models"
	dservice "marketpulse/internal/domain/service"
	"marketpulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestClient(t *testing.T, srv *httptest.Server, retries int) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
	}, testLogger(t))
}

func testContext() dservice.AnalysisContext {
	return dservice.AnalysisContext{Instrument: "RELIANCE", Market: "NSE", Timeframe: "1h"}
}

func TestGenerateSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/analyze/signal", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"signal":{"signalType":"BUY","strength":0.8,"confidence":0.7}}`))
	}))
	defer srv.Close()

	cand, err := newTestClient(t, srv, 0).GenerateSignal(context.Background(), testContext())
	require.NoError(t, err)
	require.Equal(t, "BUY", cand.SignalType)
	require.Equal(t, 0.8, cand.Strength)
}

func TestGenerateSignalMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).GenerateSignal(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleMalformed)
}

func TestGenerateSignalBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"signal":`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).GenerateSignal(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleMalformed)
}

func TestGenerateSignalServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).GenerateSignal(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleUnavailable)
}

func TestGenerateSignalClientErrorIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).GenerateSignal(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleMalformed)
}

func TestGenerateSignalRetriesOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"signal":{"signalType":"SELL"}}`))
	}))
	defer srv.Close()

	cand, err := newTestClient(t, srv, 2).GenerateSignal(context.Background(), testContext())
	require.NoError(t, err)
	require.Equal(t, "SELL", cand.SignalType)
	require.Equal(t, int32(2), hits.Load())
}

func TestGenerateSignalDoesNotRetryMalformed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).GenerateSignal(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleMalformed)
	require.Equal(t, int32(1), hits.Load())
}

func TestGenerateSignalUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(t, srv, 0).GenerateSignal(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleUnavailable)
}

func TestRecognizePatterns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/analyze/patterns", r.URL.Path)
		w.Write([]byte(`{"patterns":[{"patternType":"double_bottom","direction":"bullish","status":"FORMING","confidence":0.9}]}`))
	}))
	defer srv.Close()

	cands, err := newTestClient(t, srv, 0).RecognizePatterns(context.Background(), testContext())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, "double_bottom", cands[0].PatternType)
}

func TestRecognizePatternsEmptyListIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"patterns":[]}`))
	}))
	defer srv.Close()

	cands, err := newTestClient(t, srv, 0).RecognizePatterns(context.Background(), testContext())
	require.NoError(t, err)
	require.Empty(t, cands)
}

func TestRecognizePatternsMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).RecognizePatterns(context.Background(), testContext())
	require.ErrorIs(t, err, models.ErrOracleMalformed)
}
