package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"agentflow/internal/execution"
	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/internal/workflow"
	"agentflow/pkg/models"
)

// DefaultUpdateAttempts bounds how often a mutation is retried after losing
// the optimistic version check.
const DefaultUpdateAttempts = 3

// ExecutionRepository is the storage an ExecutionService needs.
type ExecutionRepository interface {
	repository.WorkflowStore
	repository.ExecutionStore
}

// ExecutionOption configures an ExecutionService.
type ExecutionOption func(*ExecutionService)

// WithExecutionClock overrides the time source of the state machine.
func WithExecutionClock(now func() time.Time) ExecutionOption {
	return func(s *ExecutionService) { s.now = now }
}

// WithUpdateAttempts overrides DefaultUpdateAttempts.
func WithUpdateAttempts(n int) ExecutionOption {
	return func(s *ExecutionService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithMeter records transition counters on meter instead of the global provider.
func WithMeter(meter metric.Meter) ExecutionOption {
	return func(s *ExecutionService) { s.meter = meter }
}

// ExecutionService creates execution records and drives them through the
// execution state machine. Every mutation loads the record, applies one
// transition and stores it under a version check.
type ExecutionService struct {
	store       ExecutionRepository
	hub         *Hub
	logger      *logging.Logger
	now         func() time.Time
	attempts    int
	meter       metric.Meter
	transitions metric.Int64Counter
}

// NewExecutionService creates a new ExecutionService. hub may be nil.
func NewExecutionService(store ExecutionRepository, hub *Hub, logger *logging.Logger, opts ...ExecutionOption) (*ExecutionService, error) {
	s := &ExecutionService{
		store:    store,
		hub:      hub,
		logger:   logger,
		now:      time.Now,
		attempts: DefaultUpdateAttempts,
		meter:    otel.Meter("agentflow/internal/services"),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := s.meter.Int64Counter("agentflow.execution.transitions",
		metric.WithDescription("Execution state machine transitions that were stored"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, fmt.Errorf("create transition counter: %w", err)
	}
	s.transitions = counter
	return s, nil
}

// Create stores a pending execution of an active workflow.
func (s *ExecutionService) Create(ctx context.Context, workflowID int64, input json.RawMessage) (*models.Execution, error) {
	if len(input) > 0 && !json.Valid(input) {
		return nil, &models.FieldError{Field: "input", Reason: "must be valid JSON"}
	}
	w, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, fmt.Errorf("workflow %d: %w", workflowID, ErrInactiveWorkflow)
	}
	if _, err := workflow.Compile(w); err != nil {
		return nil, err
	}

	e := models.NewExecution(workflowID, input)
	if err := s.store.CreateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	s.record(ctx, "create", e)
	return e, nil
}

// Get retrieves an execution by id.
func (s *ExecutionService) Get(ctx context.Context, id int64) (*models.Execution, error) {
	return s.store.GetExecution(ctx, id)
}

// List returns the executions of a workflow.
func (s *ExecutionService) List(ctx context.Context, workflowID int64) ([]*models.Execution, error) {
	if _, err := s.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.store.ListExecutions(ctx, workflowID)
}

// Start moves a pending execution to running.
func (s *ExecutionService) Start(ctx context.Context, id int64) (*models.Execution, error) {
	return s.mutate(ctx, id, "start", func(m *execution.Machine, e *models.Execution) error {
		return m.Start(e)
	})
}

// RecordStepResult appends or replaces the result of one step.
func (s *ExecutionService) RecordStepResult(ctx context.Context, id int64, r models.StepResult) (*models.Execution, error) {
	return s.mutate(ctx, id, "record_step", func(m *execution.Machine, e *models.Execution) error {
		return m.RecordStepResult(e, r)
	})
}

// Finish ends a running execution with outcome.
func (s *ExecutionService) Finish(ctx context.Context, id int64, outcome execution.Outcome) (*models.Execution, error) {
	return s.mutate(ctx, id, "finish", func(m *execution.Machine, e *models.Execution) error {
		return m.Finish(e, outcome)
	})
}

// Cancel marks a pending or running execution cancelled. Work already in
// flight is not interrupted; its later results are rejected.
func (s *ExecutionService) Cancel(ctx context.Context, id int64) (*models.Execution, error) {
	return s.mutate(ctx, id, "cancel", func(m *execution.Machine, e *models.Execution) error {
		return m.Cancel(e)
	})
}

func (s *ExecutionService) mutate(ctx context.Context, id int64, op string, apply func(*execution.Machine, *models.Execution) error) (*models.Execution, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		e, err := s.store.GetExecution(ctx, id)
		if err != nil {
			return nil, err
		}
		w, err := s.store.GetWorkflow(ctx, e.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("load workflow %d of execution %d: %w", e.WorkflowID, id, err)
		}
		plan, err := workflow.Compile(w)
		if err != nil {
			return nil, err
		}

		m := execution.NewMachine(plan, execution.WithClock(s.now))
		if err := apply(m, e); err != nil {
			return nil, err
		}

		err = s.store.UpdateExecution(ctx, e)
		if errors.Is(err, repository.ErrConflict) {
			s.logger.WithFields(map[string]any{"execution_id": id, "attempt": attempt}).
				Debug("%s lost version check, retrying", op)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s execution %d: %w", op, id, err)
		}

		s.record(ctx, op, e)
		return e, nil
	}
	return nil, fmt.Errorf("%s execution %d after %d attempts: %w", op, id, s.attempts, repository.ErrConflict)
}

func (s *ExecutionService) record(ctx context.Context, op string, e *models.Execution) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", op),
		attribute.String("status", string(e.Status)),
	))
	s.logger.WithFields(map[string]any{"execution_id": e.ID, "status": e.Status, "version": e.Version}).
		Debug("execution %s", op)
	if s.hub != nil {
		s.hub.Publish(e)
	}
}
