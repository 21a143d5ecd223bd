package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/internal/cache"
	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/internal/workflow"
	"agentflow/pkg/models"
)

func TestWorkflowService_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	svc := NewWorkflowService(f.store, cache.Noop{}, logging.Discard())

	w, err := svc.Create(context.Background(), WorkflowInput{
		Name:  "release",
		Steps: []models.Step{f.step("a"), f.step("b", "a")},
	}, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionModeSerial, w.ExecutionMode)
	assert.Equal(t, models.TriggerManual, w.Trigger)
	assert.True(t, w.IsActive)
	assert.Equal(t, f.user.ID, w.CreatedBy)
}

func TestWorkflowService_RejectsAtSaveTime(t *testing.T) {
	f := newFixture(t)
	svc := NewWorkflowService(f.store, cache.Noop{}, logging.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, WorkflowInput{
		Name:  "loop",
		Steps: []models.Step{f.step("a", "b"), f.step("b", "a")},
	}, f.user.ID)
	var ve *workflow.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(workflow.ViolationCycle))

	_, err = svc.Create(ctx, WorkflowInput{Name: "", Steps: nil}, f.user.ID)
	var fe *models.FieldError
	assert.ErrorAs(t, err, &fe)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected workflows are not stored")
}

func TestWorkflowService_UpdateKeepsActiveFlag(t *testing.T) {
	f := newFixture(t)
	svc := NewWorkflowService(f.store, cache.Noop{}, logging.Discard())
	ctx := context.Background()

	inactive := false
	w, err := svc.Create(ctx, WorkflowInput{Name: "w", Steps: []models.Step{f.step("a")}, IsActive: &inactive}, f.user.ID)
	require.NoError(t, err)
	assert.False(t, w.IsActive)

	w, err = svc.Update(ctx, w.ID, WorkflowInput{Name: "w2", Steps: []models.Step{f.step("a"), f.step("b", "a")}})
	require.NoError(t, err)
	assert.False(t, w.IsActive)
	assert.Equal(t, "w2", w.Name)

	_, err = svc.Update(ctx, w.ID, WorkflowInput{Name: "w3", Steps: []models.Step{f.step("a", "ghost")}})
	var ve *workflow.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(workflow.ViolationDangling))
}

func TestWorkflowService_CachesReads(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	c := cache.NewRedis(cache.Options{Addr: mr.Addr(), Prefix: "t:"})
	svc := NewWorkflowService(f.store, c, logging.Discard())
	ctx := context.Background()

	w, err := svc.Create(ctx, WorkflowInput{Name: "cached", Steps: []models.Step{f.step("a")}}, f.user.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("t:"+workflowKey(w.ID)))

	_, err = svc.Update(ctx, w.ID, WorkflowInput{Name: "renamed", Steps: []models.Step{f.step("a")}})
	require.NoError(t, err)
	assert.False(t, mr.Exists("t:"+workflowKey(w.ID)), "update invalidates the cached copy")

	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	require.NoError(t, svc.Delete(ctx, w.ID))
	assert.False(t, mr.Exists("t:"+workflowKey(w.ID)))
	_, err = svc.Get(ctx, w.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWorkflowService_CacheOutageFallsThrough(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	c := cache.NewRedis(cache.Options{Addr: mr.Addr()})
	svc := NewWorkflowService(f.store, c, logging.Discard())
	ctx := context.Background()

	w, err := svc.Create(ctx, WorkflowInput{Name: "w", Steps: []models.Step{f.step("a")}}, f.user.ID)
	require.NoError(t, err)
	mr.Close()

	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestValidateDefinition(t *testing.T) {
	w := WorkflowInput{Name: "w", Steps: []models.Step{{ID: "a", AgentID: 1}, {ID: "a", AgentID: 1}}}.Workflow()
	var ve *workflow.ValidationError
	require.ErrorAs(t, ValidateDefinition(w), &ve)
	assert.True(t, ve.Has(workflow.ViolationDuplicateID))
}
