package http

import "github.com/labstack/echo/v4"

// Handler defines HTTP route registration interface.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(e *echo.Echo)

// RegisterRoutes calls f(e).
func (f HandlerFunc) RegisterRoutes(e *echo.Echo) { f(e) }
