package models

import (
	"strings"
	"time"
)

// AgentStatus is the coarse liveness indicator of an agent.
type AgentStatus string

const (
	AgentStatusIdle      AgentStatus = "idle"
	AgentStatusWorking   AgentStatus = "working"
	AgentStatusCompleted AgentStatus = "completed"
	AgentStatusFailed    AgentStatus = "failed"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusWorking, AgentStatusCompleted, AgentStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a plain status update may move s to target.
// Leaving failed for idle requires an explicit reset and is refused here.
func (s AgentStatus) CanTransitionTo(target AgentStatus) bool {
	if !target.Valid() {
		return false
	}
	return !(s == AgentStatusFailed && target == AgentStatusIdle)
}

func (s *AgentStatus) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, s, "agent status")
}

// LlmModel identifies the language model an agent runs on.
type LlmModel string

const (
	ModelClaudeSonnet4 LlmModel = "claude-sonnet-4"
	ModelClaudeOpus4   LlmModel = "claude-opus-4"
	ModelGPT4o         LlmModel = "gpt-4o"
	ModelGPT4Turbo     LlmModel = "gpt-4-turbo"
	ModelGemini20Flash LlmModel = "gemini-2.0-flash"
)

// Defaults applied to newly created agents.
const (
	DefaultLlmModel    = ModelClaudeSonnet4
	DefaultTemperature = 70
	DefaultMaxTokens   = 4000
)

// LlmModels lists every supported model.
var LlmModels = []LlmModel{
	ModelClaudeSonnet4,
	ModelClaudeOpus4,
	ModelGPT4o,
	ModelGPT4Turbo,
	ModelGemini20Flash,
}

// Valid reports whether m is a supported model.
func (m LlmModel) Valid() bool {
	for _, known := range LlmModels {
		if m == known {
			return true
		}
	}
	return false
}

func (m *LlmModel) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, m, "model")
}

// Agent is a named, reusable LLM configuration owned by a user.
type Agent struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Role         string      `json:"role"`
	Description  *string     `json:"description,omitempty"`
	Model        LlmModel    `json:"model"`
	SystemPrompt *string     `json:"system_prompt,omitempty"`
	Temperature  int         `json:"temperature"`
	MaxTokens    int         `json:"max_tokens"`
	Tools        []string    `json:"tools"`
	Status       AgentStatus `json:"status"`
	CreatedBy    int64       `json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SamplingTemperature converts the stored 0..100 temperature to the 0.0..1.0 range.
func (a *Agent) SamplingTemperature() float64 {
	return float64(a.Temperature) / 100
}

// ApplyDefaults fills unset fields with the values a new agent starts with.
func (a *Agent) ApplyDefaults() {
	if a.Model == "" {
		a.Model = DefaultLlmModel
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = DefaultMaxTokens
	}
	if a.Tools == nil {
		a.Tools = []string{}
	}
	if a.Status == "" {
		a.Status = AgentStatusIdle
	}
}

// Validate checks the field constraints of an agent.
func (a *Agent) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fieldErr("name", "must not be empty")
	case strings.TrimSpace(a.Role) == "":
		return fieldErr("role", "must not be empty")
	case !a.Model.Valid():
		return fieldErr("model", "unsupported model "+string(a.Model))
	case a.Temperature < 0 || a.Temperature > 100:
		return fieldErr("temperature", "must be between 0 and 100")
	case a.MaxTokens <= 0:
		return fieldErr("max_tokens", "must be positive")
	case !a.Status.Valid():
		return fieldErr("status", "unknown status "+string(a.Status))
	}
	for _, tool := range a.Tools {
		if strings.TrimSpace(tool) == "" {
			return fieldErr("tools", "tool names must not be empty")
		}
	}
	return nil
}
