package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	"marketpulse/internal/service/metrics"
	"marketpulse/internal/service/ratelimit"
	"marketpulse/internal/usecase"
	xhttp "marketpulse/pkg/http"
	xlogger "marketpulse/pkg/logger"
)

// AnalysisHandler exposes the synthesis endpoints.
type AnalysisHandler struct {
	logger *xlogger.Logger
	synth  *usecase.Synthesizer
	store  repository.AnalysisStore
	rl     *ratelimit.Limiter
}

func NewAnalysisHandler(logger *xlogger.Logger, synth *usecase.Synthesizer, store repository.AnalysisStore) *AnalysisHandler {
	metrics.Register()
	return &AnalysisHandler{logger: logger, synth: synth, store: store, rl: ratelimit.New()}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/analysis")
	g.POST("/signal", h.Signal)
	g.POST("/patterns", h.Patterns)
	g.GET("/patterns/open", h.OpenPatterns)
	g.GET("/sentiment", h.Sentiment)
}

func (h *AnalysisHandler) Signal(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.AnalysisLatency.WithLabelValues("http_signal").Observe(time.Since(start).Seconds()) }()

	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow("signal:"+c.RealIP(), 10, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
	}

	sig, err := h.synth.SynthesizeSignal(c.Request().Context(), *req)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("http_signal").Inc()
		h.logger.Error("signal synthesis error",
			xlogger.String("instrument", req.Instrument),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *AnalysisHandler) Patterns(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.AnalysisLatency.WithLabelValues("http_patterns").Observe(time.Since(start).Seconds()) }()

	req := &models.PatternRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow("patterns:"+c.RealIP(), 10, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
	}

	batch, err := h.synth.SynthesizePatterns(c.Request().Context(), *req)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("http_patterns").Inc()
		h.logger.Error("pattern synthesis error",
			xlogger.String("instrument", req.Instrument),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, batch)
}

func (h *AnalysisHandler) OpenPatterns(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.AnalysisLatency.WithLabelValues("http_open_patterns").Observe(time.Since(start).Seconds())
	}()

	instrument := c.QueryParam("instrument")
	if instrument == "" {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_VALIDATION", "instrument", "instrument is required", http.StatusBadRequest))
	}
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 20)
	if limit > 100 {
		limit = 100
	}

	patterns, err := h.store.ListOpenPatterns(c.Request().Context(), instrument, limit)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("http_open_patterns").Inc()
		h.logger.Error("open patterns query error",
			xlogger.String("instrument", instrument),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("query failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, patterns)
}

func (h *AnalysisHandler) Sentiment(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.AnalysisLatency.WithLabelValues("http_sentiment").Observe(time.Since(start).Seconds())
	}()

	instrument := c.QueryParam("instrument")
	if instrument == "" {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_VALIDATION", "instrument", "instrument is required", http.StatusBadRequest))
	}
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Now().UTC().Add(-24*time.Hour))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 50)
	if limit > 500 {
		limit = 500
	}

	records, err := h.store.ListSentiment(c.Request().Context(), instrument, since, limit)
	if err != nil {
		metrics.AnalysisErrors.WithLabelValues("http_sentiment").Inc()
		h.logger.Error("sentiment query error",
			xlogger.String("instrument", instrument),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("query failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, records)
}

// mapDomainError translates the domain taxonomy onto transport errors.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrUnknownMarket):
		return xhttp.NewAppError("ERR_UNKNOWN_MARKET", "market", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrOracleUnavailable):
		return xhttp.NewAppError("ERR_ORACLE_UNAVAILABLE", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, models.ErrOracleMalformed):
		return xhttp.NewAppError("ERR_ORACLE_MALFORMED", "", err.Error(), http.StatusBadGateway).WithError(err)
	case errors.Is(err, models.ErrCalendarExhausted):
		return xhttp.InternalError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrPersistenceFailure):
		return xhttp.InternalError(err.Error()).WithError(err)
	default:
		return err
	}
}
