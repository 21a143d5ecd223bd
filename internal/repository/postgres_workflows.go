package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"agentflow/pkg/models"
)

const workflowColumns = "id, name, description, steps, execution_mode, trigger, trigger_config, is_active, created_by, created_at, updated_at"

// CreateWorkflow inserts a workflow.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO workflows (name, description, steps, execution_mode, trigger, trigger_config, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		w.Name, w.Description, w.Steps, string(w.ExecutionMode), string(w.Trigger), nullJSON(w.TriggerConfig), w.IsActive, w.CreatedBy,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	return classify("create workflow", err)
}

// GetWorkflow retrieves a workflow by id.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	w, err := scanWorkflow(s.db.QueryRow(ctx, "SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id))
	if err != nil {
		return nil, classify("get workflow", err)
	}
	return w, nil
}

// ListWorkflows returns all workflows, newest first.
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, "SELECT "+workflowColumns+" FROM workflows ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, classify("list workflows", err)
	}
	defer rows.Close()

	workflows := []*models.Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, classify("list workflows", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, classify("list workflows", rows.Err())
}

// UpdateWorkflow overwrites the mutable fields of a workflow.
func (s *PostgresStore) UpdateWorkflow(ctx context.Context, w *models.Workflow) error {
	err := s.db.QueryRow(ctx,
		`UPDATE workflows SET name = $1, description = $2, steps = $3, execution_mode = $4, trigger = $5,
		 trigger_config = $6, is_active = $7, updated_at = now()
		 WHERE id = $8 RETURNING updated_at`,
		w.Name, w.Description, w.Steps, string(w.ExecutionMode), string(w.Trigger), nullJSON(w.TriggerConfig), w.IsActive, w.ID,
	).Scan(&w.UpdatedAt)
	return classify("update workflow", err)
}

// DeleteWorkflow removes a workflow.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return classify("delete workflow", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var (
		w             models.Workflow
		mode, trigger string
		triggerConfig []byte
	)
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Steps, &mode, &trigger, &triggerConfig,
		&w.IsActive, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.ExecutionMode = models.ExecutionMode(mode)
	w.Trigger = models.TriggerType(trigger)
	if triggerConfig != nil {
		w.TriggerConfig = json.RawMessage(triggerConfig)
	}
	return &w, nil
}

// nullJSON maps an empty raw message to SQL NULL rather than a JSON null.
func nullJSON(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
