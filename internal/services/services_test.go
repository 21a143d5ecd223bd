package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/pkg/models"
)

type fixture struct {
	store *repository.MemoryStore
	user  *models.User
	agent *models.Agent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	user, err := NewUserService(store, logging.Discard()).Resolve(ctx, "owner@example.com", "Owner")
	require.NoError(t, err)
	agent, err := NewAgentService(store, logging.Discard()).Create(ctx, AgentInput{Name: "Builder", Role: "build"}, user.ID)
	require.NoError(t, err)

	return &fixture{store: store, user: user, agent: agent}
}

func (f *fixture) step(id string, deps ...string) models.Step {
	return models.Step{ID: id, AgentID: f.agent.ID, Name: id, Dependencies: deps}
}
