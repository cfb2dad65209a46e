package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// CreateAgent creates an agent from a persona.
// POST /api/agents
func (h *Handler) CreateAgent(c echo.Context) error {
	var req domain.CreateAgentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	agent, err := h.service.CreateAgent(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, agent)
}

// ListAgents lists all agents.
// GET /api/agents
func (h *Handler) ListAgents(c echo.Context) error {
	agents, err := h.service.ListAgents(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": agents,
		"total":  len(agents),
	})
}

// GetAgent gets a specific agent by ID.
// GET /api/agents/:id
func (h *Handler) GetAgent(c echo.Context) error {
	agent, err := h.service.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if agent == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}
	return c.JSON(http.StatusOK, agent)
}

// UpdateAgent replaces the persona of an agent.
// PUT /api/agents/:id
func (h *Handler) UpdateAgent(c echo.Context) error {
	var req domain.UpdateAgentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	agent, err := h.service.UpdateAgent(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, agent)
}

// DeleteAgent deletes an agent.
// DELETE /api/agents/:id
func (h *Handler) DeleteAgent(c echo.Context) error {
	deleted, err := h.service.DeleteAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}
	return c.NoContent(http.StatusNoContent)
}
