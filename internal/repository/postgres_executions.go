package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"agentflow/pkg/models"
)

const executionColumns = "id, workflow_id, status, input, output, error, step_results, started_at, completed_at, created_at, version"

// CreateExecution inserts an execution with version 1.
func (s *PostgresStore) CreateExecution(ctx context.Context, e *models.Execution) error {
	if e.StepResults == nil {
		e.StepResults = []models.StepResult{}
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO executions (workflow_id, status, input, output, error, step_results, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, version`,
		e.WorkflowID, string(e.Status), nullJSON(e.Input), nullJSON(e.Output), e.Error, e.StepResults, e.StartedAt, e.CompletedAt,
	).Scan(&e.ID, &e.CreatedAt, &e.Version)
	return classify("create execution", err)
}

// GetExecution retrieves an execution by id.
func (s *PostgresStore) GetExecution(ctx context.Context, id int64) (*models.Execution, error) {
	e, err := scanExecution(s.db.QueryRow(ctx, "SELECT "+executionColumns+" FROM executions WHERE id = $1", id))
	if err != nil {
		return nil, classify("get execution", err)
	}
	return e, nil
}

// ListExecutions returns the executions of a workflow, newest first.
func (s *PostgresStore) ListExecutions(ctx context.Context, workflowID int64) ([]*models.Execution, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE workflow_id = $1 ORDER BY created_at DESC, id DESC", workflowID)
	if err != nil {
		return nil, classify("list executions", err)
	}
	defer rows.Close()

	executions := []*models.Execution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, classify("list executions", err)
		}
		executions = append(executions, e)
	}
	return executions, classify("list executions", rows.Err())
}

// UpdateExecution stores e when the stored version equals e.Version and
// advances the version on success.
func (s *PostgresStore) UpdateExecution(ctx context.Context, e *models.Execution) error {
	var version int
	err := s.db.QueryRow(ctx,
		`UPDATE executions SET status = $1, input = $2, output = $3, error = $4, step_results = $5,
		 started_at = $6, completed_at = $7, version = version + 1
		 WHERE id = $8 AND version = $9 RETURNING version`,
		string(e.Status), nullJSON(e.Input), nullJSON(e.Output), e.Error, e.StepResults, e.StartedAt, e.CompletedAt, e.ID, e.Version,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)", e.ID).Scan(&exists); err != nil {
			return classify("update execution", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	if err != nil {
		return classify("update execution", err)
	}
	e.Version = version
	return nil
}

func scanExecution(row pgx.Row) (*models.Execution, error) {
	var (
		e             models.Execution
		status        string
		input, output []byte
	)
	err := row.Scan(&e.ID, &e.WorkflowID, &status, &input, &output, &e.Error, &e.StepResults,
		&e.StartedAt, &e.CompletedAt, &e.CreatedAt, &e.Version)
	if err != nil {
		return nil, err
	}
	e.Status = models.ExecutionStatus(status)
	if input != nil {
		e.Input = json.RawMessage(input)
	}
	if output != nil {
		e.Output = json.RawMessage(output)
	}
	if e.StepResults == nil {
		e.StepResults = []models.StepResult{}
	}
	return &e, nil
}
