package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"agentflow/internal/services"
)

// ListWorkflows returns a list of all workflows
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	workflows, err := s.Workflows.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflow validates and stores a workflow owned by the caller
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var in services.WorkflowInput
	if err := bind(c, &in); err != nil {
		return err
	}
	w, err := s.Workflows.Create(c.Request().Context(), in, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

// ValidateWorkflow checks a definition without storing it. Structural
// problems are reported in the body with 200; field errors are 422.
// (POST /api/v1/workflows/validate)
func (s *Server) ValidateWorkflow(c echo.Context) error {
	var in services.WorkflowInput
	if err := bind(c, &in); err != nil {
		return err
	}
	report, err := services.CheckDefinition(in.Workflow())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// GetWorkflow returns one workflow
// (GET /api/v1/workflows/{id})
func (s *Server) GetWorkflow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	w, err := s.Workflows.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// UpdateWorkflow validates and replaces a workflow definition
// (PUT /api/v1/workflows/{id})
func (s *Server) UpdateWorkflow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in services.WorkflowInput
	if err := bind(c, &in); err != nil {
		return err
	}
	w, err := s.Workflows.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// DeleteWorkflow removes a workflow without executions
// (DELETE /api/v1/workflows/{id})
func (s *Server) DeleteWorkflow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.Workflows.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
