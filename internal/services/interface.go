// Package services holds the business rules of the agentflow backend. The
// HTTP, MCP and CLI surfaces all go through it.
package services

import "context"

// MLClient is an interface for communicating with the ML sidecar.
type MLClient interface {
	// GetEmbedding returns the embedding for a given text.
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}
