package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	models "MacroCompass/internal/domain/models"
	domrepo "MacroCompass/internal/domain/repository"
	domsvc "MacroCompass/internal/domain/service"
	pkgcache "MacroCompass/pkg/cache"
	xhttp "MacroCompass/pkg/http"
	xlogger "MacroCompass/pkg/logger"
	"MacroCompass/web"

	"github.com/labstack/echo/v4"
)

const chartTTL = 10 * time.Minute

// RegimeEchoHandler serves the regime API, the dashboard page and the live
// push socket.
type RegimeEchoHandler struct {
	logger       *xlogger.Logger
	provider     domsvc.RegimeProvider
	history      domrepo.SnapshotStore
	charts       pkgcache.Store
	page         []byte
	pushInterval time.Duration
	origins      []string
}

// NewRegimeEchoHandler creates the handler. history and charts may be nil.
func NewRegimeEchoHandler(
	logger *xlogger.Logger,
	provider domsvc.RegimeProvider,
	history domrepo.SnapshotStore,
	charts pkgcache.Store,
	pushInterval time.Duration,
) *RegimeEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if pushInterval <= 0 {
		pushInterval = time.Minute
	}
	return &RegimeEchoHandler{
		logger:       logger,
		provider:     provider,
		history:      history,
		charts:       charts,
		page:         web.IndexHTML,
		pushInterval: pushInterval,
	}
}

// AllowOrigins limits websocket clients to same-host pages and origins.
// Without it any origin may connect.
func (h *RegimeEchoHandler) AllowOrigins(origins ...string) *RegimeEchoHandler {
	h.origins = origins
	return h
}

func (h *RegimeEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Page)
	e.GET("/sw.js", h.ServiceWorker)
	e.GET("/ws/regime", h.Stream)

	g := e.Group("/api/regime")
	g.GET("", h.Regime)
	g.GET("/history", h.History)
	g.GET("/momentum.png", h.MomentumChart)
}

func (h *RegimeEchoHandler) current(c echo.Context) (*models.RegimeResult, error) {
	res, err := h.provider.Current(c.Request().Context())
	if err != nil {
		h.logger.Error("regime computation failed",
			xlogger.String("path", c.Path()),
			xlogger.Error(err),
		)
		return nil, xhttp.ComputationError(err)
	}
	return res, nil
}

// Regime returns the current regime result.
func (h *RegimeEchoHandler) Regime(c echo.Context) error {
	res, err := h.current(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CachedResponse(c, res, 30*time.Second)
}

// History lists stored snapshots, newest first.
func (h *RegimeEchoHandler) History(c echo.Context) error {
	if h.history == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("snapshot history is not configured"))
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, to := req.Range()
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_RANGE", "to", "to must not precede from"))
	}

	rows, err := h.history.Query(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history query failed").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// MomentumChart renders the momentum history of the current result as PNG.
func (h *RegimeEchoHandler) MomentumChart(c echo.Context) error {
	res, err := h.current(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	key := pkgcache.GenerateKey("chart", "momentum", res.ID)
	png, err := pkgcache.Remember(c.Request().Context(), h.charts, key, chartTTL,
		func() ([]byte, error) { return RenderMomentumChart(res.Raw.Market.MomentumHistory) },
		func(err error) { h.logger.Warn("cache momentum chart", xlogger.Error(err)) },
	)
	if errors.Is(err, ErrNoChartData) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("ERR_NO_DATA", "no momentum history available"))
	}
	if err != nil {
		h.logger.Error("render momentum chart", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("chart rendering failed").WithError(err))
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Page serves the dashboard with the current result embedded.
func (h *RegimeEchoHandler) Page(c echo.Context) error {
	res, err := h.current(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("encode regime: %v", err))
	}
	page, err := InjectData(h.page, data)
	if err != nil {
		h.logger.Error("page injection failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not find injection markers in index.html"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.HTMLBlob(http.StatusOK, page)
}

// ServiceWorker serves the offline cache worker.
func (h *RegimeEchoHandler) ServiceWorker(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.Blob(http.StatusOK, "application/javascript", web.ServiceWorker)
}

var _ xhttp.Handler = (*RegimeEchoHandler)(nil)
