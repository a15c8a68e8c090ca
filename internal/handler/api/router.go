package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"marketpulse/internal/domain/repository"
	xhttp "marketpulse/pkg/http"
)

// Router composes all API handlers plus the health endpoint.
type Router struct {
	analysis *AnalysisHandler
	markets  *MarketsHandler
	store    repository.AnalysisStore
}

func NewRouter(analysis *AnalysisHandler, markets *MarketsHandler, store repository.AnalysisStore) *Router {
	return &Router{analysis: analysis, markets: markets, store: store}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.analysis.RegisterRoutes(e)
	r.markets.RegisterRoutes(e)
	e.GET("/health", r.Health)
}

func (r *Router) Health(c echo.Context) error {
	if err := r.store.Health(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

var _ xhttp.Handler = (*Router)(nil)
