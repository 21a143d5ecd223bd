package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"agentflow/internal/execution"
	"agentflow/pkg/models"
)

// CreateExecutionRequest is the optional body of an execution request.
type CreateExecutionRequest struct {
	Input json.RawMessage `json:"input,omitempty"`
}

// FinishExecutionRequest ends a running execution. Status is completed,
// failed or cancelled; Output applies to completed and Error to failed.
type FinishExecutionRequest struct {
	Status models.ExecutionStatus `json:"status"`
	Output json.RawMessage        `json:"output,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Outcome converts the request into a state machine outcome.
func (r FinishExecutionRequest) Outcome() (execution.Outcome, error) {
	if len(r.Output) > 0 && !json.Valid(r.Output) {
		return execution.Outcome{}, &models.FieldError{Field: "output", Reason: "must be valid JSON"}
	}
	switch r.Status {
	case models.ExecutionCompleted:
		return execution.Completed(r.Output), nil
	case models.ExecutionFailed:
		return execution.Failed(r.Error), nil
	case models.ExecutionCancelled:
		return execution.Cancelled(), nil
	default:
		return execution.Outcome{}, &models.FieldError{Field: "status", Reason: "must be completed, failed or cancelled"}
	}
}

// CreateExecution requests a new run of a workflow
// (POST /api/v1/workflows/{id}/executions)
func (s *Server) CreateExecution(c echo.Context) error {
	workflowID, err := pathID(c)
	if err != nil {
		return err
	}
	var req CreateExecutionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	e, err := s.Executions.Create(c.Request().Context(), workflowID, req.Input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

// ListExecutions returns the runs of a workflow
// (GET /api/v1/workflows/{id}/executions)
func (s *Server) ListExecutions(c echo.Context) error {
	workflowID, err := pathID(c)
	if err != nil {
		return err
	}
	executions, err := s.Executions.List(c.Request().Context(), workflowID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, executions)
}

// GetExecution returns one execution
// (GET /api/v1/executions/{id})
func (s *Server) GetExecution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	e, err := s.Executions.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// StartExecution moves a pending execution to running
// (POST /api/v1/executions/{id}/start)
func (s *Server) StartExecution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	e, err := s.Executions.Start(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// RecordStepResult stores the result of one step
// (POST /api/v1/executions/{id}/steps)
func (s *Server) RecordStepResult(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var r models.StepResult
	if err := bind(c, &r); err != nil {
		return err
	}
	if r.StepID == "" {
		return &models.FieldError{Field: "step_id", Reason: "must not be empty"}
	}
	e, err := s.Executions.RecordStepResult(c.Request().Context(), id, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// FinishExecution ends a running execution
// (POST /api/v1/executions/{id}/finish)
func (s *Server) FinishExecution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req FinishExecutionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	outcome, err := req.Outcome()
	if err != nil {
		return err
	}
	e, err := s.Executions.Finish(c.Request().Context(), id, outcome)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// CancelExecution marks a pending or running execution cancelled
// (POST /api/v1/executions/{id}/cancel)
func (s *Server) CancelExecution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	e, err := s.Executions.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}
