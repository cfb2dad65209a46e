// Package v1 provides the REST handlers of the simulator.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	config  *config.Config
	live    echo.HandlerFunc
}

// NewHandler creates a new handler. live serves the websocket endpoint and may be nil.
func NewHandler(service *service.Service, cfg *config.Config, live echo.HandlerFunc) *Handler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handler{
		service: service,
		config:  cfg,
		live:    live,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	// Simulation lifecycle
	api.POST("/simulations", h.CreateSimulation)
	api.GET("/simulations", h.ListSimulations)
	api.GET("/simulations/:id", h.GetSimulation)
	api.DELETE("/simulations/:id", h.DeleteSimulation)
	api.POST("/simulations/:id/start", h.StartSimulation)
	api.GET("/simulations/:id/status", h.GetSimulationStatus)
	api.GET("/simulations/:id/results", h.GetSimulationResults)
	api.GET("/simulations/:id/events", h.GetSimulationEvents)
	if h.live != nil {
		api.GET("/simulations/:id/ws", h.live)
	}

	// Agent library
	api.POST("/agents", h.CreateAgent)
	api.GET("/agents", h.ListAgents)
	api.GET("/agents/:id", h.GetAgent)
	api.PUT("/agents/:id", h.UpdateAgent)
	api.DELETE("/agents/:id", h.DeleteAgent)

	e.GET("/health", h.Health)
	e.GET("/", h.Root)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Root reports service identity and configuration problems.
func (h *Handler) Root(c echo.Context) error {
	issues := h.config.Validate()
	if issues == nil {
		issues = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":              h.config.AppName,
		"version":           h.config.AppVersion,
		"status":            "running",
		"engine":            h.service.EngineName(),
		"engine_configured": len(issues) == 0,
		"issues":            issues,
	})
}

// errorResponse maps service errors onto HTTP status codes.
func errorResponse(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrNotCompleted), errors.Is(err, domain.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrPolicyDenied):
		code = http.StatusForbidden
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}
