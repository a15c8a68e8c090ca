package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "marketpulse/internal/domain/models"
	"marketpulse/internal/usecase"
	xhttp "marketpulse/pkg/http"
	xlogger "marketpulse/pkg/logger"
)

// MarketsHandler exposes schedule and market-data endpoints.
type MarketsHandler struct {
	logger  *xlogger.Logger
	markets *usecase.MarketService
}

func NewMarketsHandler(logger *xlogger.Logger, markets *usecase.MarketService) *MarketsHandler {
	return &MarketsHandler{logger: logger, markets: markets}
}

func (h *MarketsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/markets")
	g.GET("", h.List)
	g.GET("/schedule", h.Schedule)
	g.GET("/:id/status", h.Status)
	g.GET("/:id/windows", h.Windows)
	g.GET("/:id/windows/best", h.BestWindow)
	g.GET("/:id/quote", h.Quote)
	g.GET("/:id/overview", h.Overview)
}

func (h *MarketsHandler) List(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.markets.Markets())
}

func (h *MarketsHandler) Schedule(c echo.Context) error {
	at := xhttp.ParseTimeDefault(c.QueryParam("at"), time.Time{})
	return xhttp.SuccessResponse(c, h.markets.GlobalSchedule(at))
}

func (h *MarketsHandler) Status(c echo.Context) error {
	st, err := h.markets.Status(c.Param("id"))
	if err != nil {
		h.logger.Error("market status error", xlogger.String("market", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *MarketsHandler) Windows(c echo.Context) error {
	windows, err := h.markets.Windows(c.Param("id"))
	if err != nil {
		h.logger.Error("market windows error", xlogger.String("market", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, windows)
}

func (h *MarketsHandler) BestWindow(c echo.Context) error {
	w, err := h.markets.BestWindow(c.Param("id"))
	if err != nil {
		h.logger.Error("market best window error", xlogger.String("market", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *MarketsHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	q, err := h.markets.Quote(c.Request().Context(), c.Param("id"), req.Symbol)
	if err != nil {
		h.logger.Error("market quote error",
			xlogger.String("market", c.Param("id")),
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, q)
}

func (h *MarketsHandler) Overview(c echo.Context) error {
	ov, err := h.markets.Overview(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("market overview error", xlogger.String("market", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, ov)
}
