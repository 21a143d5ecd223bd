// Package execution owns the lifecycle of workflow execution records.
//
// An execution starts pending, is started into running, collects step
// results while running and ends in one of the terminal statuses completed,
// failed or cancelled. A pending execution may also be cancelled directly.
// Terminal records are immutable: retrying means creating a new execution.
//
// Cancelling only marks the record. Step work already in flight is not
// interrupted; its later results are rejected.
package execution

import (
	"encoding/json"
	"slices"
	"time"

	"agentflow/internal/workflow"
	"agentflow/pkg/models"
)

// DefaultFailureMessage is stored when a failure is reported without a message.
const DefaultFailureMessage = "execution failed"

// Outcome is the terminal result passed to Finish.
type Outcome struct {
	status models.ExecutionStatus
	output json.RawMessage
	err    string
}

// Completed is a successful outcome carrying the run's output.
func Completed(output json.RawMessage) Outcome {
	return Outcome{status: models.ExecutionCompleted, output: output}
}

// Failed is an unsuccessful outcome carrying an error message.
func Failed(message string) Outcome {
	if message == "" {
		message = DefaultFailureMessage
	}
	return Outcome{status: models.ExecutionFailed, err: message}
}

// Cancelled ends a running execution without output or error.
func Cancelled() Outcome {
	return Outcome{status: models.ExecutionCancelled}
}

// Status returns the terminal status the outcome leads to.
func (o Outcome) Status() models.ExecutionStatus { return o.status }

// Machine applies lifecycle operations to executions of one compiled workflow.
// It holds no per-execution state; callers serialise writes to a single
// execution.
type Machine struct {
	plan *workflow.Plan
	now  func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine returns a machine for executions of the given plan.
func NewMachine(plan *workflow.Plan, opts ...Option) *Machine {
	m := &Machine{plan: plan, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start moves a pending execution to running and stamps its start time.
func (m *Machine) Start(e *models.Execution) error {
	if e.Status != models.ExecutionPending {
		return &InvalidTransitionError{Current: e.Status, Attempted: models.ExecutionRunning}
	}
	e.Status = models.ExecutionRunning
	if e.StartedAt == nil {
		now := m.now().UTC()
		e.StartedAt = &now
	}
	return nil
}

// RecordStepResult stores r on a running execution, replacing an earlier
// result for the same step in place. Ordered modes require every dependency
// of the step to already hold a terminal result, and refuse to make a
// terminal result non-terminal once a dependent step has recorded one.
func (m *Machine) RecordStepResult(e *models.Execution, r models.StepResult) error {
	if e.Status != models.ExecutionRunning {
		return &InvalidTransitionError{Current: e.Status, Attempted: models.ExecutionRunning}
	}
	if !m.plan.Has(r.StepID) {
		return &UnknownStepError{StepID: r.StepID}
	}
	if m.plan.Mode().Ordered() {
		var pending []string
		for _, dep := range m.plan.Dependencies(r.StepID) {
			if prev, ok := e.StepResult(dep); !ok || !prev.Status.IsTerminal() {
				pending = append(pending, dep)
			}
		}
		if len(pending) > 0 {
			return &OrderingViolationError{StepID: r.StepID, Pending: pending}
		}
		if prev, ok := e.StepResult(r.StepID); ok && prev.Status.IsTerminal() && !r.Status.IsTerminal() {
			if dependents := m.recordedDependents(e, r.StepID); len(dependents) > 0 {
				return &OrderingViolationError{StepID: r.StepID, Dependents: dependents}
			}
		}
	}

	for i := range e.StepResults {
		if e.StepResults[i].StepID == r.StepID {
			e.StepResults[i] = r
			return nil
		}
	}
	e.StepResults = append(e.StepResults, r)
	return nil
}

// recordedDependents lists the steps with a recorded result that depend
// directly on stepID.
func (m *Machine) recordedDependents(e *models.Execution, stepID string) []string {
	var out []string
	for _, res := range e.StepResults {
		if slices.Contains(m.plan.Dependencies(res.StepID), stepID) {
			out = append(out, res.StepID)
		}
	}
	return out
}

// Finish moves a running execution to the outcome's terminal status.
func (m *Machine) Finish(e *models.Execution, o Outcome) error {
	if !o.status.IsTerminal() {
		return &InvalidTransitionError{Current: e.Status, Attempted: o.status}
	}
	if e.Status != models.ExecutionRunning {
		return &InvalidTransitionError{Current: e.Status, Attempted: o.status}
	}
	m.terminate(e, o)
	return nil
}

// Cancel moves a pending or running execution to cancelled.
func (m *Machine) Cancel(e *models.Execution) error {
	if e.Status != models.ExecutionPending && e.Status != models.ExecutionRunning {
		return &InvalidTransitionError{Current: e.Status, Attempted: models.ExecutionCancelled}
	}
	m.terminate(e, Cancelled())
	return nil
}

func (m *Machine) terminate(e *models.Execution, o Outcome) {
	now := m.now().UTC()
	e.Status = o.status
	e.CompletedAt = &now
	e.Output = nil
	e.Error = nil
	switch o.status {
	case models.ExecutionCompleted:
		e.Output = o.output
	case models.ExecutionFailed:
		msg := o.err
		e.Error = &msg
	}
}
