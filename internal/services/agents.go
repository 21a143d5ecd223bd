package services

import (
	"context"
	"fmt"

	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/pkg/models"
)

// AgentInput carries the client-settable fields of an agent.
type AgentInput struct {
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Description  *string         `json:"description,omitempty"`
	Model        models.LlmModel `json:"model,omitempty"`
	SystemPrompt *string         `json:"system_prompt,omitempty"`
	// Temperature is on the 0..100 scale; nil selects the default.
	Temperature *int     `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Tools       []string `json:"tools,omitempty"`
}

func (in AgentInput) apply(a *models.Agent) {
	a.Name = in.Name
	a.Role = in.Role
	a.Description = in.Description
	a.Model = in.Model
	a.SystemPrompt = in.SystemPrompt
	a.Temperature = models.DefaultTemperature
	if in.Temperature != nil {
		a.Temperature = *in.Temperature
	}
	a.MaxTokens = in.MaxTokens
	a.Tools = in.Tools
}

// AgentService manages agent configurations.
type AgentService struct {
	store  repository.AgentStore
	logger *logging.Logger
}

// NewAgentService creates a new AgentService.
func NewAgentService(store repository.AgentStore, logger *logging.Logger) *AgentService {
	return &AgentService{store: store, logger: logger}
}

// Create stores a new idle agent owned by createdBy.
func (s *AgentService) Create(ctx context.Context, in AgentInput, createdBy int64) (*models.Agent, error) {
	a := &models.Agent{CreatedBy: createdBy}
	in.apply(a)
	a.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	s.logger.WithField("agent_id", a.ID).Info("created agent %q", a.Name)
	return a, nil
}

// Get retrieves an agent by id.
func (s *AgentService) Get(ctx context.Context, id int64) (*models.Agent, error) {
	return s.store.GetAgent(ctx, id)
}

// List returns all agents.
func (s *AgentService) List(ctx context.Context) ([]*models.Agent, error) {
	return s.store.ListAgents(ctx)
}

// Update replaces the configuration of an agent. The status is left alone.
func (s *AgentService) Update(ctx context.Context, id int64, in AgentInput) (*models.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	a.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("update agent %d: %w", id, err)
	}
	return a, nil
}

// UpdateStatus moves an agent to status. A failed agent cannot be set back
// to idle here; Reset does that.
func (s *AgentService) UpdateStatus(ctx context.Context, id int64, status models.AgentStatus) (*models.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &models.FieldError{Field: "status", Reason: "unknown agent status " + string(status)}
	}
	if !a.Status.CanTransitionTo(status) {
		return nil, &AgentStatusError{From: a.Status, To: status}
	}
	return s.setStatus(ctx, a, status)
}

// Reset returns an agent to idle from any status.
func (s *AgentService) Reset(ctx context.Context, id int64) (*models.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, a, models.AgentStatusIdle)
}

func (s *AgentService) setStatus(ctx context.Context, a *models.Agent, status models.AgentStatus) (*models.Agent, error) {
	if a.Status == status {
		return a, nil
	}
	from := a.Status
	a.Status = status
	if err := s.store.UpdateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("update agent %d status: %w", a.ID, err)
	}
	s.logger.WithField("agent_id", a.ID).Debug("agent status %s -> %s", from, status)
	return a, nil
}

// Delete removes an agent.
func (s *AgentService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteAgent(ctx, id)
}
