package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"agentflow/internal/services"
	"agentflow/pkg/models"
)

// AgentStatusRequest is the body of a status update.
type AgentStatusRequest struct {
	Status models.AgentStatus `json:"status"`
}

// ListAgents returns all agents
// (GET /api/v1/agents)
func (s *Server) ListAgents(c echo.Context) error {
	agents, err := s.Agents.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agents)
}

// CreateAgent creates an agent owned by the caller
// (POST /api/v1/agents)
func (s *Server) CreateAgent(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var in services.AgentInput
	if err := bind(c, &in); err != nil {
		return err
	}
	agent, err := s.Agents.Create(c.Request().Context(), in, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, agent)
}

// GetAgent returns one agent
// (GET /api/v1/agents/{id})
func (s *Server) GetAgent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	agent, err := s.Agents.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

// UpdateAgent replaces an agent's configuration
// (PUT /api/v1/agents/{id})
func (s *Server) UpdateAgent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in services.AgentInput
	if err := bind(c, &in); err != nil {
		return err
	}
	agent, err := s.Agents.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

// DeleteAgent removes an agent
// (DELETE /api/v1/agents/{id})
func (s *Server) DeleteAgent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.Agents.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateAgentStatus changes an agent's status
// (PUT /api/v1/agents/{id}/status)
func (s *Server) UpdateAgentStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req AgentStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	agent, err := s.Agents.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

// ResetAgent returns an agent to idle
// (POST /api/v1/agents/{id}/reset)
func (s *Server) ResetAgent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	agent, err := s.Agents.Reset(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}
