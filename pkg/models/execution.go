package models

import (
	"encoding/json"
	"time"
)

// ExecutionStatus is the lifecycle state of a workflow run.
//
//	pending → running → completed | failed | cancelled
//	pending → cancelled
//
// Terminal statuses are final.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Valid reports whether s is a known execution status.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionPending, ExecutionRunning, ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions may leave s.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

func (s *ExecutionStatus) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, s, "execution status")
}

// StepStatus is the free-text status of a single step result.
type StepStatus string

// Well-known step statuses. Other values are accepted and treated as non-terminal.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepCancelled StepStatus = "cancelled"
)

// IsTerminal reports whether a step in this status has finished for good.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped, StepCancelled:
		return true
	default:
		return false
	}
}

// StepResult records the outcome of one step within one execution.
type StepResult struct {
	StepID    string          `json:"step_id"`
	Status    StepStatus      `json:"status"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     *string         `json:"error,omitempty"`
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
}

// Execution is one run of a workflow. It owns its step results.
type Execution struct {
	ID          int64           `json:"id"`
	WorkflowID  int64           `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       *string         `json:"error,omitempty"`
	StepResults []StepResult    `json:"step_results"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	// Version increments on every stored update and guards concurrent writers.
	Version int `json:"version"`
}

// NewExecution returns a pending execution of the given workflow.
func NewExecution(workflowID int64, input json.RawMessage) *Execution {
	return &Execution{
		WorkflowID:  workflowID,
		Status:      ExecutionPending,
		Input:       input,
		StepResults: []StepResult{},
	}
}

// StepResult returns the recorded result for stepID, if any.
func (e *Execution) StepResult(stepID string) (StepResult, bool) {
	for _, r := range e.StepResults {
		if r.StepID == stepID {
			return r, true
		}
	}
	return StepResult{}, false
}

// Clone returns a deep copy of e.
func (e *Execution) Clone() *Execution {
	c := *e
	c.Input = cloneRaw(e.Input)
	c.Output = cloneRaw(e.Output)
	c.Error = clonePtr(e.Error)
	c.StartedAt = clonePtr(e.StartedAt)
	c.CompletedAt = clonePtr(e.CompletedAt)
	c.StepResults = make([]StepResult, len(e.StepResults))
	for i, r := range e.StepResults {
		r.Output = cloneRaw(r.Output)
		r.Error = clonePtr(r.Error)
		r.StartTime = clonePtr(r.StartTime)
		r.EndTime = clonePtr(r.EndTime)
		c.StepResults[i] = r
	}
	return &c
}

func cloneRaw(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	return append(json.RawMessage(nil), m...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
