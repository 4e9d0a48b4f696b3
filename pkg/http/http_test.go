package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyQuery struct {
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	From  string `query:"from" json:"from" validate:"omitempty,moment"`
}

func bind(t *testing.T, target string) (*historyQuery, []ValidationError) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	q := &historyQuery{}
	return q, ReadAndValidateRequest(c, q)
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	q, errs := bind(t, "/h")
	require.Nil(t, errs)
	assert.Equal(t, 100, q.Limit)

	q, errs = bind(t, "/h?limit=7&from=2024-05-01")
	require.Nil(t, errs)
	assert.Equal(t, 7, q.Limit)
}

func TestReadAndValidateReportsFields(t *testing.T) {
	_, errs := bind(t, "/h?limit=0&from=yesterday")
	require.Len(t, errs, 2)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_GTE", byField["limit"].Code)
	assert.Equal(t, "1", byField["limit"].Params["min"])
	assert.Equal(t, "ERR_MOMENT", byField["from"].Code)
}

func TestReadAndValidateBindFailure(t *testing.T) {
	_, errs := bind(t, "/h?limit=many")
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func TestComputationError(t *testing.T) {
	err := ComputationError(fmt.Errorf("calculate regime: %w", context.DeadlineExceeded))
	assert.Equal(t, "ERR_TIMEOUT", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, "ERR_INTERNAL", ComputationError(errors.New("non-finite")).Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, UnavailableError("snapshot history is not configured")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNAVAILABLE")

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCachedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, CachedResponse(c, map[string]float64{"composite": 0.1}, 30*time.Second))
	assert.Equal(t, "private, max-age=30", rec.Header().Get("Cache-Control"))
}
