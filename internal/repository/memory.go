package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"agentflow/pkg/models"
)

// MemoryStore implements Repository in process memory. It mirrors the
// Postgres constraints that the services rely on: unique emails, owner
// references, execution version checks and restricted workflow deletion.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]*models.User
	agents     map[int64]*models.Agent
	workflows  map[int64]*models.Workflow
	executions map[int64]*models.Execution
	embeddings map[int64]*models.CodeEmbedding
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]*models.User),
		agents:     make(map[int64]*models.Agent),
		workflows:  make(map[int64]*models.Workflow),
		executions: make(map[int64]*models.Execution),
		embeddings: make(map[int64]*models.CodeEmbedding),
		now:        time.Now,
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateUser inserts a user.
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w: users_email_key", ErrDuplicate)
		}
	}
	user.ID = s.id()
	user.CreatedAt = s.now().UTC()
	user.UpdatedAt = user.CreatedAt
	c := *user
	s.users[user.ID] = &c
	return nil
}

// GetUser retrieves a user by id.
func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// GetUserByEmail retrieves a user by email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// CreateAgent inserts an agent.
func (s *MemoryStore) CreateAgent(ctx context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[a.CreatedBy]; !ok {
		return fmt.Errorf("create agent: %w: agents_created_by_fkey", ErrReferenced)
	}
	a.ID = s.id()
	a.CreatedAt = s.now().UTC()
	a.UpdatedAt = a.CreatedAt
	s.agents[a.ID] = cloneAgent(a)
	return nil
}

// GetAgent retrieves an agent by id.
func (s *MemoryStore) GetAgent(ctx context.Context, id int64) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAgent(a), nil
}

// ListAgents returns all agents, newest first.
func (s *MemoryStore) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]*models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, cloneAgent(a))
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID > agents[j].ID })
	return agents, nil
}

// UpdateAgent overwrites the mutable fields of an agent.
func (s *MemoryStore) UpdateAgent(ctx context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.agents[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedBy = stored.CreatedBy
	a.CreatedAt = stored.CreatedAt
	a.UpdatedAt = s.now().UTC()
	s.agents[a.ID] = cloneAgent(a)
	return nil
}

// DeleteAgent removes an agent.
func (s *MemoryStore) DeleteAgent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[id]; !ok {
		return ErrNotFound
	}
	delete(s.agents, id)
	return nil
}

// CreateWorkflow inserts a workflow.
func (s *MemoryStore) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[w.CreatedBy]; !ok {
		return fmt.Errorf("create workflow: %w: workflows_created_by_fkey", ErrReferenced)
	}
	w.ID = s.id()
	w.CreatedAt = s.now().UTC()
	w.UpdatedAt = w.CreatedAt
	c, err := cloneWorkflow(w)
	if err != nil {
		return err
	}
	s.workflows[w.ID] = c
	return nil
}

// GetWorkflow retrieves a workflow by id.
func (s *MemoryStore) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneWorkflow(w)
}

// ListWorkflows returns all workflows, newest first.
func (s *MemoryStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		c, err := cloneWorkflow(w)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, c)
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID > workflows[j].ID })
	return workflows, nil
}

// UpdateWorkflow overwrites the mutable fields of a workflow.
func (s *MemoryStore) UpdateWorkflow(ctx context.Context, w *models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.workflows[w.ID]
	if !ok {
		return ErrNotFound
	}
	w.CreatedBy = stored.CreatedBy
	w.CreatedAt = stored.CreatedAt
	w.UpdatedAt = s.now().UTC()
	c, err := cloneWorkflow(w)
	if err != nil {
		return err
	}
	s.workflows[w.ID] = c
	return nil
}

// DeleteWorkflow removes a workflow that no execution references.
func (s *MemoryStore) DeleteWorkflow(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return ErrNotFound
	}
	for _, e := range s.executions {
		if e.WorkflowID == id {
			return fmt.Errorf("delete workflow: %w: executions_workflow_id_fkey", ErrReferenced)
		}
	}
	delete(s.workflows, id)
	return nil
}

// CreateExecution inserts an execution with version 1.
func (s *MemoryStore) CreateExecution(ctx context.Context, e *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[e.WorkflowID]; !ok {
		return fmt.Errorf("create execution: %w: executions_workflow_id_fkey", ErrReferenced)
	}
	if e.StepResults == nil {
		e.StepResults = []models.StepResult{}
	}
	e.ID = s.id()
	e.CreatedAt = s.now().UTC()
	e.Version = 1
	s.executions[e.ID] = e.Clone()
	return nil
}

// GetExecution retrieves an execution by id.
func (s *MemoryStore) GetExecution(ctx context.Context, id int64) (*models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// ListExecutions returns the executions of a workflow, newest first.
func (s *MemoryStore) ListExecutions(ctx context.Context, workflowID int64) ([]*models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	executions := []*models.Execution{}
	for _, e := range s.executions {
		if e.WorkflowID == workflowID {
			executions = append(executions, e.Clone())
		}
	}
	sort.Slice(executions, func(i, j int) bool { return executions[i].ID > executions[j].ID })
	return executions, nil
}

// UpdateExecution stores e when its version matches the stored one.
func (s *MemoryStore) UpdateExecution(ctx context.Context, e *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.executions[e.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != e.Version {
		return ErrConflict
	}
	e.Version++
	e.WorkflowID = stored.WorkflowID
	e.CreatedAt = stored.CreatedAt
	s.executions[e.ID] = e.Clone()
	return nil
}

// SaveEmbedding inserts a code embedding.
func (s *MemoryStore) SaveEmbedding(ctx context.Context, c *models.CodeEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id()
	c.CreatedAt = s.now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.embeddings[c.ID] = &cp
	return nil
}

// SearchEmbeddings ranks stored chunks by cosine distance to query.
func (s *MemoryStore) SearchEmbeddings(ctx context.Context, query []float32, limit int) ([]*models.CodeMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*models.CodeMatch, 0, len(s.embeddings))
	for _, c := range s.embeddings {
		matches = append(matches, &models.CodeMatch{
			CodeEmbedding: *c,
			Distance:      cosineDistance(query, c.Embedding.Slice()),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Distance < matches[j].Distance
	})
	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// DeleteEmbeddingsByFile removes every chunk of a file.
func (s *MemoryStore) DeleteEmbeddingsByFile(ctx context.Context, filePath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.embeddings {
		if c.FilePath == filePath {
			delete(s.embeddings, id)
			n++
		}
	}
	return n, nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func cloneAgent(a *models.Agent) *models.Agent {
	c := *a
	c.Tools = append([]string{}, a.Tools...)
	return &c
}

// cloneWorkflow deep-copies through JSON, matching what a jsonb round trip does to steps.
func cloneWorkflow(w *models.Workflow) (*models.Workflow, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	var c models.Workflow
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	return &c, nil
}
