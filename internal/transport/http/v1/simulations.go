package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// SimulationConfigRequest is the config block of a create request. Omitted
// fields take their defaults.
type SimulationConfigRequest struct {
	Steps           *int   `json:"steps"`
	InitialPrompt   string `json:"initial_prompt"`
	EnvironmentType string `json:"environment_type"`
	ParallelActions *bool  `json:"parallel_actions"`
	CacheEnabled    *bool  `json:"cache_enabled"`
}

// CreateSimulationRequest is the request to create a simulation.
type CreateSimulationRequest struct {
	Name     string                  `json:"name"`
	AgentIDs []string                `json:"agent_ids"`
	Config   SimulationConfigRequest `json:"config"`
}

func (r CreateSimulationRequest) toDomain() domain.CreateSimulationRequest {
	cfg := domain.SimulationConfig{
		Steps:           domain.DefaultSteps,
		InitialPrompt:   r.Config.InitialPrompt,
		EnvironmentType: domain.EnvironmentType(strings.ToLower(strings.TrimSpace(r.Config.EnvironmentType))),
		ParallelActions: true,
	}
	if r.Config.Steps != nil {
		cfg.Steps = *r.Config.Steps
	}
	if r.Config.ParallelActions != nil {
		cfg.ParallelActions = *r.Config.ParallelActions
	}
	if r.Config.CacheEnabled != nil {
		cfg.CacheEnabled = *r.Config.CacheEnabled
	}
	if cfg.EnvironmentType == "" {
		cfg.EnvironmentType = domain.EnvironmentChatRoom
	}
	return domain.CreateSimulationRequest{Name: r.Name, AgentIDs: r.AgentIDs, Config: cfg}
}

// CreateSimulation creates a PENDING simulation.
// POST /api/simulations
func (h *Handler) CreateSimulation(c echo.Context) error {
	var req CreateSimulationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	sim, err := h.service.CreateSimulation(c.Request().Context(), req.toDomain())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, sim)
}

// ListSimulations lists all simulations, newest first.
// GET /api/simulations
func (h *Handler) ListSimulations(c echo.Context) error {
	sims, err := h.service.ListSimulations(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	if sims == nil {
		sims = []*domain.Simulation{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"simulations": sims,
		"total":       len(sims),
	})
}

// GetSimulation gets a simulation by ID.
// GET /api/simulations/:id
func (h *Handler) GetSimulation(c echo.Context) error {
	sim, err := h.service.GetSimulation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sim)
}

// DeleteSimulation deletes a simulation in any status.
// DELETE /api/simulations/:id
func (h *Handler) DeleteSimulation(c echo.Context) error {
	id := c.Param("id")
	deleted, err := h.service.DeleteSimulation(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "simulation " + id + " not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// StartSimulation launches a PENDING simulation and returns its RUNNING snapshot.
// POST /api/simulations/:id/start
func (h *Handler) StartSimulation(c echo.Context) error {
	sim, err := h.service.StartSimulation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sim)
}

// GetSimulationStatus returns the projected progress of a simulation.
// GET /api/simulations/:id/status
func (h *Handler) GetSimulationStatus(c echo.Context) error {
	view, err := h.service.GetStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// GetSimulationResults returns a completed simulation.
// GET /api/simulations/:id/results
func (h *Handler) GetSimulationResults(c echo.Context) error {
	sim, err := h.service.GetResults(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sim)
}

// GetSimulationEvents returns the lifecycle event trail of a simulation.
// GET /api/simulations/:id/events?after_ts=&types=a,b&limit=
func (h *Handler) GetSimulationEvents(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	for _, t := range strings.Split(c.QueryParam("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	events, err := h.service.ListEvents(c.Request().Context(), c.Param("id"), afterTs, types, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":   events,
		"has_more": len(events) == limit,
	})
}
