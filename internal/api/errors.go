package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"agentflow/internal/execution"
	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/internal/services"
	"agentflow/internal/workflow"
	"agentflow/pkg/models"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type       string               `json:"type"`
	Title      string               `json:"title"`
	Status     int                  `json:"status"`
	Detail     string               `json:"detail"`
	Instance   string               `json:"instance,omitempty"`
	Violations []workflow.Violation `json:"violations,omitempty"`
	Field      string               `json:"field,omitempty"`
}

// problemFor maps an error onto the response it produces.
func problemFor(err error) ProblemDetails {
	p := ProblemDetails{Type: "about:blank", Detail: err.Error()}

	var (
		he  *echo.HTTPError
		ve  *workflow.ValidationError
		fe  *models.FieldError
		it  *execution.InvalidTransitionError
		ov  *execution.OrderingViolationError
		us  *execution.UnknownStepError
		ase *services.AgentStatusError
	)
	switch {
	case errors.As(err, &he):
		p.Status = he.Code
		p.Title = http.StatusText(he.Code)
		p.Detail = fmt.Sprint(he.Message)
	case errors.As(err, &ve):
		p.Status = http.StatusUnprocessableEntity
		p.Title = "Invalid workflow"
		p.Violations = ve.Violations
	case errors.As(err, &fe):
		p.Status = http.StatusUnprocessableEntity
		p.Title = "Validation failed"
		p.Field = fe.Field
	case errors.As(err, &us):
		p.Status = http.StatusUnprocessableEntity
		p.Title = "Unknown step"
	case errors.As(err, &it):
		p.Status = http.StatusConflict
		p.Title = "Invalid transition"
	case errors.As(err, &ov):
		p.Status = http.StatusConflict
		p.Title = "Ordering violation"
	case errors.As(err, &ase):
		p.Status = http.StatusConflict
		p.Title = "Invalid agent status"
	case errors.Is(err, services.ErrInactiveWorkflow):
		p.Status = http.StatusConflict
		p.Title = "Workflow inactive"
	case errors.Is(err, services.ErrWorkflowInUse):
		p.Status = http.StatusConflict
		p.Title = "Workflow in use"
	case errors.Is(err, repository.ErrNotFound):
		p.Status = http.StatusNotFound
		p.Title = "Not found"
	case errors.Is(err, repository.ErrConflict):
		p.Status = http.StatusConflict
		p.Title = "Concurrent modification"
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrReferenced):
		p.Status = http.StatusConflict
		p.Title = "Conflict"
	case repository.IsUnavailable(err):
		p.Status = http.StatusServiceUnavailable
		p.Title = "Storage unavailable"
	default:
		p.Status = http.StatusInternalServerError
		p.Title = "Internal server error"
	}
	return p
}

// ErrorHandler writes handler errors as RFC 7807 Problem Details.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		p := problemFor(err)
		p.Instance = c.Request().URL.Path
		if p.Status >= http.StatusInternalServerError {
			logger.WithError(err).Error("%s %s failed", c.Request().Method, p.Instance)
			if p.Status == http.StatusInternalServerError {
				p.Detail = "an internal error occurred"
			}
		}
		if p.Status == http.StatusServiceUnavailable {
			c.Response().Header().Set("Retry-After", "5")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(p.Status)
		} else {
			c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
			err = c.JSON(p.Status, p)
		}
		if err != nil {
			logger.WithError(err).Error("failed to write problem response")
		}
	}
}
