package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/pkg/models"
)

func TestAgentService_CreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, models.ModelClaudeSonnet4, f.agent.Model)
	assert.Equal(t, 70, f.agent.Temperature)
	assert.InDelta(t, 0.7, f.agent.SamplingTemperature(), 1e-9)
	assert.Equal(t, 4000, f.agent.MaxTokens)
	assert.Equal(t, []string{}, f.agent.Tools)
	assert.Equal(t, models.AgentStatusIdle, f.agent.Status)
	assert.Equal(t, f.user.ID, f.agent.CreatedBy)
}

func TestAgentService_ExplicitZeroTemperature(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.store, logging.Discard())

	zero := 0
	a, err := svc.Create(context.Background(), AgentInput{Name: "Cold", Role: "r", Temperature: &zero}, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Temperature)
}

func TestAgentService_CreateValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.store, logging.Discard())
	ctx := context.Background()

	hot := 101
	for name, in := range map[string]AgentInput{
		"empty name":  {Role: "r"},
		"empty role":  {Name: "n"},
		"bad model":   {Name: "n", Role: "r", Model: "gpt-2"},
		"temperature": {Name: "n", Role: "r", Temperature: &hot},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in, f.user.ID)
			var fe *models.FieldError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestAgentService_StatusPolicy(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.store, logging.Discard())
	ctx := context.Background()

	a, err := svc.UpdateStatus(ctx, f.agent.ID, models.AgentStatusWorking)
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusWorking, a.Status)

	_, err = svc.UpdateStatus(ctx, f.agent.ID, models.AgentStatusFailed)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, f.agent.ID, models.AgentStatusIdle)
	var se *AgentStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.AgentStatusFailed, se.From)

	a, err = svc.Reset(ctx, f.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusIdle, a.Status)

	_, err = svc.UpdateStatus(ctx, f.agent.ID, "asleep")
	var fe *models.FieldError
	assert.ErrorAs(t, err, &fe)
}

func TestAgentService_UpdateKeepsStatus(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.store, logging.Discard())
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, f.agent.ID, models.AgentStatusWorking)
	require.NoError(t, err)

	a, err := svc.Update(ctx, f.agent.ID, AgentInput{Name: "Renamed", Role: "build", Tools: []string{"git"}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", a.Name)
	assert.Equal(t, models.AgentStatusWorking, a.Status)
	assert.Equal(t, []string{"git"}, a.Tools)

	require.NoError(t, svc.Delete(ctx, f.agent.ID))
	_, err = svc.Get(ctx, f.agent.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
