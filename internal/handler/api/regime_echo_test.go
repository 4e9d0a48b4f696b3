package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MacroCompass/internal/domain/models"
	pkgcache "MacroCompass/pkg/cache"
	xhttp "MacroCompass/pkg/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	res *models.RegimeResult
	err error
}

func (p *stubProvider) Current(context.Context) (*models.RegimeResult, error) {
	return p.res, p.err
}

type stubHistory struct {
	from, to time.Time
	limit     int
	rows      []*models.Snapshot
	healthErr error
}

func (s *stubHistory) Init(context.Context) error                    { return nil }
func (s *stubHistory) Store(context.Context, *models.Snapshot) error { return nil }
func (s *stubHistory) Health(context.Context) error                  { return s.healthErr }
func (s *stubHistory) Close() error                                  { return nil }
func (s *stubHistory) Query(_ context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error) {
	s.from, s.to, s.limit = from, to, limit
	return s.rows, nil
}

func result() *models.RegimeResult {
	dates := []string{"2024-04-01", "2024-04-02", "2024-04-03"}
	values := map[string][]float64{}
	for i, t := range models.Basket {
		values[t] = []float64{0.01 * float64(i), 0.02, -0.01}
	}
	return &models.RegimeResult{
		ID:         "r-1",
		ComputedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Composite:  0.42,
		Components: models.Components{Liquidity: 0.5},
		Raw: models.Raw{Market: models.MarketMetrics{
			MomentumHistory: models.MomentumHistory{Dates: dates, Values: values},
		}},
	}
}

func newEcho(h xhttp.Handler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRegimeEndpoint(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, 0))

	rec := get(e, "/api/regime")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status int                 `json:"status"`
		Data   models.RegimeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 200, body.Status)
	assert.Equal(t, 0.42, body.Data.Composite)
	assert.Equal(t, 0.5, body.Data.Components.Liquidity)
	assert.Contains(t, rec.Body.String(), `"Monetary-Conditions"`)
}

func TestRegimeEndpointFailure(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{err: errors.New("non-finite composite")}, nil, nil, 0))

	rec := get(e, "/api/regime")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
}

func TestHistoryUnavailableWithoutStore(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, 0))
	rec := get(e, "/api/regime/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNAVAILABLE")
}

func TestHistoryQuery(t *testing.T) {
	store := &stubHistory{rows: []*models.Snapshot{{ID: "b"}, {ID: "a"}}}
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, store, nil, 0))

	rec := get(e, "/api/regime/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, store.limit)
	assert.True(t, store.from.IsZero())
	assert.Contains(t, rec.Body.String(), `"total":2`)

	rec = get(e, "/api/regime/history?limit=5&from=2024-04-01&to=2024-05-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.limit)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), store.to)
}

func TestHistoryRejectsBadQuery(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, &stubHistory{}, nil, 0))

	for _, target := range []string{
		"/api/regime/history?limit=0",
		"/api/regime/history?limit=5000",
		"/api/regime/history?from=yesterday",
		"/api/regime/history?from=2024-05-02&to=2024-05-01",
	} {
		rec := get(e, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestPageInjectsData(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, 0))

	rec := get(e, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `const DATA = {"id":"r-1"`)
	assert.NotContains(t, body, "const DATA = null;")
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML))
}

func TestPageRendersDriverAndHedgeDetails(t *testing.T) {
	res := result()
	res.Summaries.Driver = models.DriverSummary{TopDriver: "Liquidity", TopScore: 0.5, Weakest: "Credit", WeakScore: -0.4, Friction: true}
	res.Summaries.Correlation.HedgeNote = "Bonds are hedging equities (QQQ/TLT correlation -0.45)."
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: res}, nil, nil, 0))

	body := get(e, "/").Body.String()
	assert.Contains(t, body, `"friction":true`)
	assert.Contains(t, body, `"hedge_note":"Bonds are hedging equities`)
	for _, field := range []string{"s.top_driver", "s.weakest_score", "s.friction", "s.hedge_note"} {
		assert.Contains(t, body, field)
	}
}

func TestPageWithoutMarkersFails(t *testing.T) {
	h := NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, 0)
	h.page = []byte("<html><script>const DATA = null;</script></html>")

	rec := get(newEcho(h), "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInjectDataReplacesBlock(t *testing.T) {
	page := []byte("a // --- DATA INJECTION POINT --- old // --- END DATA INJECTION --- z")
	out, err := InjectData(page, []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, "a // --- DATA INJECTION POINT ---\n        const DATA = {\"x\":1};\n        // --- END DATA INJECTION --- z", string(out))

	_, err = InjectData([]byte("// --- END DATA INJECTION --- // --- DATA INJECTION POINT ---"), nil)
	assert.ErrorIs(t, err, ErrMissingMarkers)
}

func TestServiceWorker(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, 0))
	rec := get(e, "/sw.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "addEventListener")
}

func TestMomentumChart(t *testing.T) {
	charts := pkgcache.NewMemoryCache()
	defer charts.Close()
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, charts, 0))

	rec := get(e, "/api/regime/momentum.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	var png []byte
	require.NoError(t, charts.Get(context.Background(), "chart:momentum:r-1", &png))
	assert.Equal(t, rec.Body.Bytes(), png)
}

func TestMomentumChartWithoutHistory(t *testing.T) {
	res := result()
	res.Raw.Market.MomentumHistory = models.MomentumHistory{Dates: []string{}, Values: map[string][]float64{}}
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: res}, nil, nil, 0))

	rec := get(e, "/api/regime/momentum.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamPushesOnConnect(t *testing.T) {
	e := newEcho(NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, time.Hour))
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/regime"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got models.RegimeResult
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, 0.42, got.Composite)
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	h := NewRegimeEchoHandler(nil, &stubProvider{res: result()}, nil, nil, time.Hour).
		AllowOrigins("https://dash.example.com")
	srv := httptest.NewServer(newEcho(h))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/regime"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://dash.example.com"}})
	require.NoError(t, err)
	conn.Close()
}
