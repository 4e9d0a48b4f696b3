package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// APIResponse is the JSON envelope of every API reply.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected query field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_GTE"`
	Field   string                 `json:"field,omitempty" example:"limit"`
	Message string                 `json:"message,omitempty" example:"limit must be at least 1"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse is the data of a list reply.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return respond(c, http.StatusOK, data)
}

// CachedResponse is SuccessResponse with a private Cache-Control max-age.
func CachedResponse(c echo.Context, data interface{}, maxAge time.Duration) error {
	c.Response().Header().Set(echo.HeaderCacheControl, fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds())))
	return SuccessResponse(c, data)
}

func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return respond(c, http.StatusOK, &ListDataResponse{Rows: rows, Total: total})
}

func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return respond(c, http.StatusBadRequest, errs)
}

// AppErrorResponse writes err under its own status. Anything that is not an
// *AppError becomes a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return respond(c, appErr.Status, []*AppError{appErr})
	}
	return respond(c, http.StatusInternalServerError, "Something went wrong")
}
