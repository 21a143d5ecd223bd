package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"agentflow/internal/cache"
	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/internal/workflow"
	"agentflow/pkg/models"
)

// WorkflowInput carries the client-settable fields of a workflow.
type WorkflowInput struct {
	Name          string               `json:"name" yaml:"name"`
	Description   *string              `json:"description,omitempty" yaml:"description,omitempty"`
	Steps         []models.Step        `json:"steps" yaml:"steps"`
	ExecutionMode models.ExecutionMode `json:"execution_mode,omitempty" yaml:"execution_mode,omitempty"`
	Trigger       models.TriggerType   `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	TriggerConfig json.RawMessage      `json:"trigger_config,omitempty" yaml:"-"`
	// IsActive nil keeps the current value, or true for a new workflow.
	IsActive *bool `json:"is_active,omitempty" yaml:"is_active,omitempty"`
}

// Workflow builds an unsaved workflow from the input with defaults applied.
func (in WorkflowInput) Workflow() *models.Workflow {
	w := &models.Workflow{IsActive: true}
	in.apply(w)
	return w
}

func (in WorkflowInput) apply(w *models.Workflow) {
	w.Name = in.Name
	w.Description = in.Description
	w.Steps = in.Steps
	w.ExecutionMode = in.ExecutionMode
	w.Trigger = in.Trigger
	w.TriggerConfig = in.TriggerConfig
	if in.IsActive != nil {
		w.IsActive = *in.IsActive
	}
	w.ApplyDefaults()
}

// ValidateDefinition runs the field checks and the structural checks of a
// workflow. It is pure.
func ValidateDefinition(w *models.Workflow) error {
	if err := w.ValidateFields(); err != nil {
		return err
	}
	return workflow.Validate(w)
}

// WorkflowRepository is the storage a WorkflowService needs. Executions are
// read to guard edits of workflows that are in use.
type WorkflowRepository interface {
	repository.WorkflowStore
	ListExecutions(ctx context.Context, workflowID int64) ([]*models.Execution, error)
}

// WorkflowService manages workflow definitions. Definitions are validated at
// save time so every stored workflow compiles.
type WorkflowService struct {
	store  WorkflowRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *logging.Logger
}

// NewWorkflowService creates a new WorkflowService. Reads go through c; a
// cache.Noop disables memoisation.
func NewWorkflowService(store WorkflowRepository, c cache.Cache, logger *logging.Logger) *WorkflowService {
	return &WorkflowService{store: store, cache: c, ttl: 10 * time.Minute, logger: logger}
}

func workflowKey(id int64) string {
	return fmt.Sprintf("workflow:%d", id)
}

// Create validates and stores a new workflow owned by createdBy.
func (s *WorkflowService) Create(ctx context.Context, in WorkflowInput, createdBy int64) (*models.Workflow, error) {
	w := in.Workflow()
	w.CreatedBy = createdBy
	if err := ValidateDefinition(w); err != nil {
		return nil, err
	}
	if err := s.store.CreateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	s.logger.WithField("workflow_id", w.ID).Info("created workflow %q with %d steps", w.Name, len(w.Steps))
	return w, nil
}

// Get retrieves a workflow, preferring the cached copy.
func (s *WorkflowService) Get(ctx context.Context, id int64) (*models.Workflow, error) {
	var cached models.Workflow
	err := s.cache.Get(ctx, workflowKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).Warn("workflow cache read failed")
	}

	w, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, workflowKey(id), w, s.ttl); err != nil {
		s.logger.WithError(err).Warn("workflow cache write failed")
	}
	return w, nil
}

// List returns all workflows.
func (s *WorkflowService) List(ctx context.Context) ([]*models.Workflow, error) {
	return s.store.ListWorkflows(ctx)
}

// Update validates and replaces a workflow definition. The step graph and
// execution mode are frozen while an execution of the workflow is pending or
// running; such edits fail with ErrWorkflowInUse.
func (s *WorkflowService) Update(ctx context.Context, id int64, in WorkflowInput) (*models.Workflow, error) {
	w, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	prevSteps, prevMode := w.Steps, w.ExecutionMode
	in.apply(w)
	if err := ValidateDefinition(w); err != nil {
		return nil, err
	}
	if prevMode != w.ExecutionMode || !sameGraph(prevSteps, w.Steps) {
		if err := s.ensureIdle(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("update workflow %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	return w, nil
}

// Delete removes a workflow.
func (s *WorkflowService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ensureIdle fails when an execution of the workflow has not finished.
func (s *WorkflowService) ensureIdle(ctx context.Context, id int64) error {
	executions, err := s.store.ListExecutions(ctx, id)
	if err != nil {
		return fmt.Errorf("list executions of workflow %d: %w", id, err)
	}
	for _, e := range executions {
		if !e.Status.IsTerminal() {
			return fmt.Errorf("workflow %d has %s execution %d: %w", id, e.Status, e.ID, ErrWorkflowInUse)
		}
	}
	return nil
}

// sameGraph reports whether two step lists have the same ids in the same
// order with the same dependencies.
func sameGraph(a, b []models.Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !slices.Equal(a[i].Dependencies, b[i].Dependencies) {
			return false
		}
	}
	return true
}

func (s *WorkflowService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, workflowKey(id)); err != nil {
		s.logger.WithError(err).Warn("workflow cache invalidation failed")
	}
}
