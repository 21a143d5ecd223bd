package services

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"agentflow/internal/workflow"
	"agentflow/pkg/models"
)

// ValidationReport is the result of a dry-run validation.
type ValidationReport struct {
	Valid      bool                 `json:"valid"`
	Violations []workflow.Violation `json:"violations"`
	// Order is a topological order of the step ids when the workflow is valid.
	Order []string `json:"order,omitempty"`
}

// CheckDefinition validates w without storing it. Field errors are
// returned as errors; structural problems are listed in the report.
func CheckDefinition(w *models.Workflow) (*ValidationReport, error) {
	if err := w.ValidateFields(); err != nil {
		return nil, err
	}

	report := &ValidationReport{Valid: true, Violations: []workflow.Violation{}}
	plan, err := workflow.Compile(w)
	var ve *workflow.ValidationError
	switch {
	case errors.As(err, &ve):
		report.Valid = false
		report.Violations = ve.Violations
	case err != nil:
		return nil, err
	default:
		report.Order = plan.Order()
	}
	return report, nil
}

// ParseDefinition decodes a workflow definition written in YAML or JSON.
func ParseDefinition(data []byte) (WorkflowInput, error) {
	var in WorkflowInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return WorkflowInput{}, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	return in, nil
}

// LoadDefinition reads and decodes a workflow definition file.
func LoadDefinition(path string) (WorkflowInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkflowInput{}, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return ParseDefinition(data)
}
