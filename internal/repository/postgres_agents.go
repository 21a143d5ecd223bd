package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"agentflow/pkg/models"
)

const agentColumns = "id, name, role, description, model, system_prompt, temperature, max_tokens, tools, status, created_by, created_at, updated_at"

// CreateAgent inserts an agent.
func (s *PostgresStore) CreateAgent(ctx context.Context, a *models.Agent) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO agents (name, role, description, model, system_prompt, temperature, max_tokens, tools, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		a.Name, a.Role, a.Description, string(a.Model), a.SystemPrompt, a.Temperature, a.MaxTokens, a.Tools, string(a.Status), a.CreatedBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return classify("create agent", err)
}

// GetAgent retrieves an agent by id.
func (s *PostgresStore) GetAgent(ctx context.Context, id int64) (*models.Agent, error) {
	a, err := scanAgent(s.db.QueryRow(ctx, "SELECT "+agentColumns+" FROM agents WHERE id = $1", id))
	if err != nil {
		return nil, classify("get agent", err)
	}
	return a, nil
}

// ListAgents returns all agents, newest first.
func (s *PostgresStore) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	rows, err := s.db.Query(ctx, "SELECT "+agentColumns+" FROM agents ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, classify("list agents", err)
	}
	defer rows.Close()

	agents := []*models.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, classify("list agents", err)
		}
		agents = append(agents, a)
	}
	return agents, classify("list agents", rows.Err())
}

// UpdateAgent overwrites the mutable fields of an agent.
func (s *PostgresStore) UpdateAgent(ctx context.Context, a *models.Agent) error {
	err := s.db.QueryRow(ctx,
		`UPDATE agents SET name = $1, role = $2, description = $3, model = $4, system_prompt = $5,
		 temperature = $6, max_tokens = $7, tools = $8, status = $9, updated_at = now()
		 WHERE id = $10 RETURNING updated_at`,
		a.Name, a.Role, a.Description, string(a.Model), a.SystemPrompt, a.Temperature, a.MaxTokens, a.Tools, string(a.Status), a.ID,
	).Scan(&a.UpdatedAt)
	return classify("update agent", err)
}

// DeleteAgent removes an agent.
func (s *PostgresStore) DeleteAgent(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM agents WHERE id = $1", id)
	if err != nil {
		return classify("delete agent", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var (
		a      models.Agent
		model  string
		status string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Role, &a.Description, &model, &a.SystemPrompt,
		&a.Temperature, &a.MaxTokens, &a.Tools, &status, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Model = models.LlmModel(model)
	a.Status = models.AgentStatus(status)
	return &a, nil
}
