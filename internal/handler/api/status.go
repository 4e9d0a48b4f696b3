package api

import (
	"context"
	"time"

	domrepo "MacroCompass/internal/domain/repository"
	"MacroCompass/internal/service/alphavantage"
	"MacroCompass/internal/service/breaker"
	"MacroCompass/internal/service/fred"
	"MacroCompass/internal/service/yahoo"
	"MacroCompass/internal/services/regime"
	xhttp "MacroCompass/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"
)

const historyPingTimeout = 2 * time.Second

// StatusReport is the body of GET /api/status.
type StatusReport struct {
	Degraded  bool              `json:"degraded"`
	Providers map[string]string `json:"providers"`
	History   string            `json:"history"`
	Pending   int               `json:"pending_snapshots"`
	Weights   regime.Weights    `json:"weights"`
}

type pendingCounter interface {
	Pending() int
}

// StatusHandler reports provider breaker states, history store health and
// the snapshot backlog.
type StatusHandler struct {
	breakers *breaker.Group
	history  domrepo.SnapshotStore
	pipeline pendingCounter
	weights  regime.Weights
}

// NewStatusHandler creates the handler. breakers, history and pipeline may be
// nil.
func NewStatusHandler(breakers *breaker.Group, history domrepo.SnapshotStore, pipeline pendingCounter, agg *regime.Aggregator) *StatusHandler {
	h := &StatusHandler{breakers: breakers, history: history, pipeline: pipeline, weights: regime.DefaultWeights}
	if agg != nil {
		h.weights = agg.Weights()
	}
	return h
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/status", h.Status)
}

func (h *StatusHandler) Status(c echo.Context) error {
	rep := StatusReport{
		Providers: map[string]string{},
		History:   "disabled",
		Weights:   h.weights,
	}
	for _, name := range []string{fred.BreakerName, yahoo.BreakerName, alphavantage.BreakerName} {
		state := gobreaker.StateClosed
		if h.breakers != nil {
			state = h.breakers.State(name)
		}
		rep.Providers[name] = state.String()
		if state != gobreaker.StateClosed {
			rep.Degraded = true
		}
	}
	if h.history != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), historyPingTimeout)
		defer cancel()
		rep.History = "ok"
		if err := h.history.Health(ctx); err != nil {
			rep.History = "unavailable"
			rep.Degraded = true
		}
	}
	if h.pipeline != nil {
		rep.Pending = h.pipeline.Pending()
	}
	return xhttp.SuccessResponse(c, rep)
}
