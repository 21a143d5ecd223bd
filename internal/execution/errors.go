package execution

import (
	"fmt"
	"strings"

	"agentflow/pkg/models"
)

// InvalidTransitionError reports an operation attempted from a status that
// does not allow it.
type InvalidTransitionError struct {
	Current   models.ExecutionStatus
	Attempted models.ExecutionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid execution transition from %s to %s", e.Current, e.Attempted)
}

// OrderingViolationError reports a step result that would break dependency
// order: either recorded before the step's dependencies reached a terminal
// result (Pending), or reopening a finished step that recorded steps already
// depend on (Dependents).
type OrderingViolationError struct {
	StepID     string
	Pending    []string
	Dependents []string
}

func (e *OrderingViolationError) Error() string {
	if len(e.Dependents) > 0 {
		return fmt.Sprintf("step %q cannot be reopened after dependent steps recorded results: %s", e.StepID, strings.Join(e.Dependents, ", "))
	}
	return fmt.Sprintf("step %q recorded before dependencies finished: %s", e.StepID, strings.Join(e.Pending, ", "))
}

// UnknownStepError reports a step result for a step the workflow does not define.
type UnknownStepError struct {
	StepID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("workflow has no step %q", e.StepID)
}
