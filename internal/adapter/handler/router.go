package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/holo-archive/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg           *config.Config
	searchHandler *Search
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, searchHandler *Search) *Router {
	return &Router{
		cfg:           cfg,
		searchHandler: searchHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	if rt.searchHandler != nil {
		v1.GET("/search", rt.searchHandler.Handle)
	} else {
		v1.GET("/search", rt.notImplemented)
	}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":  "This endpoint is not yet implemented",
		"path":   c.Request().URL.Path,
		"method": c.Request().Method,
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
