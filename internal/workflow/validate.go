// Package workflow checks the structure of workflow definitions and compiles
// them into dependency plans that the execution state machine consumes.
package workflow

import (
	"fmt"
	"strings"

	"agentflow/pkg/models"
)

// ViolationKind classifies a structural problem in a workflow.
type ViolationKind string

const (
	ViolationEmptyID     ViolationKind = "empty_id"
	ViolationDuplicateID ViolationKind = "duplicate_id"
	ViolationDangling    ViolationKind = "dangling_dependency"
	ViolationCycle       ViolationKind = "cycle"
)

// Violation is one structural problem and the step ids involved. For a
// dangling dependency StepIDs holds the referring step followed by the
// missing id; for a cycle it holds the ids along the cycle.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	StepIDs []string      `json:"step_ids"`
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationDangling:
		if len(v.StepIDs) == 2 {
			return fmt.Sprintf("step %q depends on unknown step %q", v.StepIDs[0], v.StepIDs[1])
		}
	case ViolationCycle:
		return "dependency cycle: " + strings.Join(append(append([]string{}, v.StepIDs...), v.StepIDs[0]), " -> ")
	case ViolationDuplicateID:
		return fmt.Sprintf("duplicate step id %q", firstOrEmpty(v.StepIDs))
	case ViolationEmptyID:
		return fmt.Sprintf("step at position %s has an empty id", firstOrEmpty(v.StepIDs))
	}
	return fmt.Sprintf("%s: %s", v.Kind, strings.Join(v.StepIDs, ", "))
}

// ValidationError lists every structural violation found in a workflow.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid workflow: " + strings.Join(parts, "; ")
}

// Has reports whether the error contains a violation of the given kind.
func (e *ValidationError) Has(kind ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// Validate checks that step ids are unique, that every dependency names a
// step of the same workflow and that the dependency graph is acyclic.
// It returns nil or a *ValidationError.
func Validate(w *models.Workflow) error {
	_, err := Compile(w)
	return err
}

func firstOrEmpty(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
