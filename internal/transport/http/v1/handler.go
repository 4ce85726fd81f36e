// Package v1 provides the internal HTTP surface of the engine.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/promptbench/engine/internal/engine"
	"github.com/promptbench/engine/internal/store"
)

// Handler handles HTTP requests.
type Handler struct {
	runner *engine.Runner
	store  store.Store
}

// NewHandler creates a new handler.
func NewHandler(runner *engine.Runner, st store.Store) *Handler {
	return &Handler{
		runner: runner,
		store:  st,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/internal/v1/executions", h.RunExecution)
	e.GET("/internal/v1/executions", h.ListExecutions)
	e.GET("/internal/v1/executions/:execution_id", h.GetExecution)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
