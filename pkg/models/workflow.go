package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ExecutionMode decides how a workflow's steps may be scheduled.
type ExecutionMode string

const (
	ExecutionModeSerial      ExecutionMode = "serial"
	ExecutionModeParallel    ExecutionMode = "parallel"
	ExecutionModeConditional ExecutionMode = "conditional"
)

// Valid reports whether m is a known execution mode.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ExecutionModeSerial, ExecutionModeParallel, ExecutionModeConditional:
		return true
	default:
		return false
	}
}

// Ordered reports whether step results must respect the dependency graph.
func (m ExecutionMode) Ordered() bool {
	return m != ExecutionModeParallel
}

func (m *ExecutionMode) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, m, "execution mode")
}

// TriggerType names what starts a workflow run.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerSchedule TriggerType = "schedule"
	TriggerWebhook  TriggerType = "webhook"
	TriggerEvent    TriggerType = "event"
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerManual, TriggerSchedule, TriggerWebhook, TriggerEvent:
		return true
	default:
		return false
	}
}

func (t *TriggerType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, t, "trigger")
}

// Step is one node of a workflow's dependency graph, bound to an agent.
type Step struct {
	ID           string         `json:"id" yaml:"id"`
	AgentID      int64          `json:"agent_id" yaml:"agent_id"`
	Name         string         `json:"name" yaml:"name"`
	Description  *string        `json:"description,omitempty" yaml:"description,omitempty"`
	Config       map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Workflow is the definition of a multi-step agent collaboration.
type Workflow struct {
	ID            int64           `json:"id" yaml:"-"`
	Name          string          `json:"name" yaml:"name"`
	Description   *string         `json:"description,omitempty" yaml:"description,omitempty"`
	Steps         []Step          `json:"steps" yaml:"steps"`
	ExecutionMode ExecutionMode   `json:"execution_mode" yaml:"execution_mode"`
	Trigger       TriggerType     `json:"trigger" yaml:"trigger"`
	TriggerConfig json.RawMessage `json:"trigger_config,omitempty" yaml:"-"`
	IsActive      bool            `json:"is_active" yaml:"is_active"`
	CreatedBy     int64           `json:"created_by" yaml:"-"`
	CreatedAt     time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time       `json:"updated_at" yaml:"-"`
}

// ApplyDefaults fills the mode and trigger of a new workflow.
func (w *Workflow) ApplyDefaults() {
	if w.ExecutionMode == "" {
		w.ExecutionMode = ExecutionModeSerial
	}
	if w.Trigger == "" {
		w.Trigger = TriggerManual
	}
	if w.Steps == nil {
		w.Steps = []Step{}
	}
}

// ValidateFields checks the non-structural fields of a workflow. The step
// graph itself is checked by the workflow package.
func (w *Workflow) ValidateFields() error {
	switch {
	case strings.TrimSpace(w.Name) == "":
		return fieldErr("name", "must not be empty")
	case !w.ExecutionMode.Valid():
		return fieldErr("execution_mode", "unknown mode "+string(w.ExecutionMode))
	case !w.Trigger.Valid():
		return fieldErr("trigger", "unknown trigger "+string(w.Trigger))
	}
	if len(w.TriggerConfig) > 0 && !json.Valid(w.TriggerConfig) {
		return fieldErr("trigger_config", "must be valid JSON")
	}
	for _, s := range w.Steps {
		if s.AgentID <= 0 {
			return fieldErr("steps", "step "+s.ID+" has no agent")
		}
	}
	return nil
}

// StepIDs returns the ids of the workflow's steps in declaration order.
func (w *Workflow) StepIDs() []string {
	ids := make([]string, len(w.Steps))
	for i, s := range w.Steps {
		ids[i] = s.ID
	}
	return ids
}
