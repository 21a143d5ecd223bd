package repository

import (
	"context"

	"agentflow/pkg/models"
)

// UserStore persists users.
type UserStore interface {
	// CreateUser inserts a user and fills its id and timestamps.
	CreateUser(ctx context.Context, user *models.User) error
	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AgentStore persists agents.
type AgentStore interface {
	// CreateAgent inserts an agent and fills its id and timestamps.
	CreateAgent(ctx context.Context, agent *models.Agent) error
	// GetAgent retrieves an agent by id.
	GetAgent(ctx context.Context, id int64) (*models.Agent, error)
	// ListAgents returns all agents, newest first.
	ListAgents(ctx context.Context) ([]*models.Agent, error)
	// UpdateAgent overwrites the mutable fields of an agent.
	UpdateAgent(ctx context.Context, agent *models.Agent) error
	// DeleteAgent removes an agent.
	DeleteAgent(ctx context.Context, id int64) error
}

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	// CreateWorkflow inserts a workflow and fills its id and timestamps.
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) error
	// GetWorkflow retrieves a workflow by id.
	GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error)
	// ListWorkflows returns all workflows, newest first.
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	// UpdateWorkflow overwrites the mutable fields of a workflow.
	UpdateWorkflow(ctx context.Context, workflow *models.Workflow) error
	// DeleteWorkflow removes a workflow. Executions referencing it make this fail with ErrReferenced.
	DeleteWorkflow(ctx context.Context, id int64) error
}

// ExecutionStore persists execution records.
type ExecutionStore interface {
	// CreateExecution inserts an execution with version 1.
	CreateExecution(ctx context.Context, execution *models.Execution) error
	// GetExecution retrieves an execution by id.
	GetExecution(ctx context.Context, id int64) (*models.Execution, error)
	// ListExecutions returns the executions of a workflow, newest first.
	ListExecutions(ctx context.Context, workflowID int64) ([]*models.Execution, error)
	// UpdateExecution stores the execution if its version still matches the
	// stored one and increments the version. A mismatch yields ErrConflict.
	UpdateExecution(ctx context.Context, execution *models.Execution) error
}

// EmbeddingStore persists code embeddings.
type EmbeddingStore interface {
	// SaveEmbedding inserts a code embedding.
	SaveEmbedding(ctx context.Context, embedding *models.CodeEmbedding) error
	// SearchEmbeddings returns the chunks nearest to the query vector by cosine distance.
	SearchEmbeddings(ctx context.Context, query []float32, limit int) ([]*models.CodeMatch, error)
	// DeleteEmbeddingsByFile removes every chunk of a file and returns the count.
	DeleteEmbeddingsByFile(ctx context.Context, filePath string) (int64, error)
}

// Repository is the complete persistence surface of the service.
type Repository interface {
	UserStore
	AgentStore
	WorkflowStore
	ExecutionStore
	EmbeddingStore
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
