package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/pkg/models"
)

// testRepository exercises the behaviour every Repository implementation shares.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	owner := &models.User{Email: "owner@example.com", Name: "Owner"}
	require.NoError(t, repo.CreateUser(ctx, owner))
	require.NotZero(t, owner.ID)

	t.Run("Users", func(t *testing.T) {
		got, err := repo.GetUserByEmail(ctx, "owner@example.com")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, got.ID)

		err = repo.CreateUser(ctx, &models.User{Email: "owner@example.com", Name: "Again"})
		assert.ErrorIs(t, err, ErrDuplicate)

		_, err = repo.GetUser(ctx, owner.ID+1000)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Agents", func(t *testing.T) {
		agent := &models.Agent{Name: "Reviewer", Role: "code review", CreatedBy: owner.ID}
		agent.ApplyDefaults()
		agent.Temperature = models.DefaultTemperature
		require.NoError(t, repo.CreateAgent(ctx, agent))

		got, err := repo.GetAgent(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, "Reviewer", got.Name)
		assert.Equal(t, models.AgentStatusIdle, got.Status)
		assert.Equal(t, []string{}, got.Tools)

		got.Status = models.AgentStatusWorking
		got.Tools = []string{"grep"}
		require.NoError(t, repo.UpdateAgent(ctx, got))

		again, err := repo.GetAgent(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AgentStatusWorking, again.Status)
		assert.Equal(t, []string{"grep"}, again.Tools)

		list, err := repo.ListAgents(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, repo.DeleteAgent(ctx, agent.ID))
		assert.ErrorIs(t, repo.DeleteAgent(ctx, agent.ID), ErrNotFound)

		orphan := &models.Agent{Name: "x", Role: "y", CreatedBy: owner.ID + 1000}
		orphan.ApplyDefaults()
		assert.ErrorIs(t, repo.CreateAgent(ctx, orphan), ErrReferenced)
	})

	workflow := &models.Workflow{
		Name:      "release",
		CreatedBy: owner.ID,
		Steps: []models.Step{
			{ID: "build", AgentID: 1, Name: "Build"},
			{ID: "ship", AgentID: 1, Name: "Ship", Dependencies: []string{"build"}},
		},
	}
	workflow.ApplyDefaults()
	workflow.IsActive = true
	require.NoError(t, repo.CreateWorkflow(ctx, workflow))

	t.Run("Workflows", func(t *testing.T) {
		got, err := repo.GetWorkflow(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionModeSerial, got.ExecutionMode)
		require.Len(t, got.Steps, 2)
		assert.Equal(t, []string{"build"}, got.Steps[1].Dependencies)
		assert.Nil(t, got.TriggerConfig)

		got.TriggerConfig = json.RawMessage(`{"cron":"0 * * * *"}`)
		require.NoError(t, repo.UpdateWorkflow(ctx, got))
		again, err := repo.GetWorkflow(ctx, workflow.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"cron":"0 * * * *"}`, string(again.TriggerConfig))

		list, err := repo.ListWorkflows(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("Executions", func(t *testing.T) {
		e := models.NewExecution(workflow.ID, json.RawMessage(`{"tag":"v1"}`))
		require.NoError(t, repo.CreateExecution(ctx, e))
		assert.Equal(t, 1, e.Version)

		stale, err := repo.GetExecution(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionPending, stale.Status)
		assert.JSONEq(t, `{"tag":"v1"}`, string(stale.Input))
		assert.Empty(t, stale.StepResults)

		now := time.Now().UTC().Truncate(time.Millisecond)
		running := stale.Clone()
		running.Status = models.ExecutionRunning
		running.StartedAt = &now
		running.StepResults = []models.StepResult{{StepID: "build", Status: models.StepCompleted}}
		require.NoError(t, repo.UpdateExecution(ctx, running))
		assert.Equal(t, 2, running.Version)

		stale.Status = models.ExecutionCancelled
		stale.CompletedAt = &now
		assert.ErrorIs(t, repo.UpdateExecution(ctx, stale), ErrConflict)

		got, err := repo.GetExecution(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionRunning, got.Status)
		assert.Equal(t, 2, got.Version)
		require.Len(t, got.StepResults, 1)
		assert.Equal(t, models.StepCompleted, got.StepResults[0].Status)

		list, err := repo.ListExecutions(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		missing := got.Clone()
		missing.ID += 1000
		assert.ErrorIs(t, repo.UpdateExecution(ctx, missing), ErrNotFound)

		assert.ErrorIs(t, repo.DeleteWorkflow(ctx, workflow.ID), ErrReferenced)
		assert.ErrorIs(t, repo.CreateExecution(ctx, models.NewExecution(workflow.ID+1000, nil)), ErrReferenced)
	})

	t.Run("Embeddings", func(t *testing.T) {
		near := unitVector(0)
		far := unitVector(1)
		for i, v := range [][]float32{near, far} {
			c := &models.CodeEmbedding{
				FilePath:  "pkg/a.go",
				CodeChunk: "func A() {}",
				Embedding: pgvector.NewVector(v),
				Metadata:  models.CodeMetadata{Language: models.LanguageGo, ChunkType: models.ChunkFunction, StartLine: i, EndLine: i + 1},
			}
			require.NoError(t, repo.SaveEmbedding(ctx, c))
		}

		matches, err := repo.SearchEmbeddings(ctx, near, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 0, matches[0].Distance, 1e-6)
		assert.Equal(t, models.LanguageGo, matches[0].Metadata.Language)

		n, err := repo.DeleteEmbeddingsByFile(ctx, "pkg/a.go")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	assert.NoError(t, repo.Ping(ctx))
}

func unitVector(axis int) []float32 {
	v := make([]float32, models.EmbeddingDimensions)
	v[axis] = 1
	return v
}
