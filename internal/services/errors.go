package services

import (
	"errors"
	"fmt"

	"agentflow/pkg/models"
)

// ErrInactiveWorkflow is returned when an execution is requested for a
// workflow whose is_active flag is false.
var ErrInactiveWorkflow = errors.New("workflow is not active")

// ErrWorkflowInUse is returned when an edit would change the steps or
// execution mode of a workflow with an unfinished execution.
var ErrWorkflowInUse = errors.New("workflow has unfinished executions")

// AgentStatusError reports a status update the agent status policy refuses.
type AgentStatusError struct {
	From models.AgentStatus
	To   models.AgentStatus
}

func (e *AgentStatusError) Error() string {
	if e.From == models.AgentStatusFailed && e.To == models.AgentStatusIdle {
		return "agent is failed: use reset to return it to idle"
	}
	return fmt.Sprintf("agent status cannot change from %s to %s", e.From, e.To)
}
