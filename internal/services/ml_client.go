package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentflow/pkg/models"
)

// maxErrorBody bounds how much of a failed sidecar response ends up in an error.
const maxErrorBody = 512

// EmbeddingDimensionError reports a sidecar vector whose length does not match
// the embedding column.
type EmbeddingDimensionError struct {
	Got  int
	Want int
}

func (e *EmbeddingDimensionError) Error() string {
	return fmt.Sprintf("ml sidecar returned %d dimensions, want %d", e.Got, e.Want)
}

// HTTPMLClient embeds text through the ML sidecar's POST /embedding endpoint.
// The sidecar may answer with a bare array or with {"embedding": [...]}.
type HTTPMLClient struct {
	baseURL    string
	client     *http.Client
	dimensions int
}

// NewHTTPMLClient creates an HTTPMLClient for the sidecar at baseURL. A zero
// timeout means no limit beyond the request context. Vectors must have
// models.EmbeddingDimensions entries.
func NewHTTPMLClient(baseURL string, timeout time.Duration) *HTTPMLClient {
	return &HTTPMLClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		dimensions: models.EmbeddingDimensions,
	}
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingEnvelope struct {
	Embedding []float32 `json:"embedding"`
}

// GetEmbedding returns the embedding vector of text.
func (c *HTTPMLClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embedding", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("ml sidecar: status code %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	vector, err := decodeEmbedding(resp.Body)
	if err != nil {
		return nil, err
	}
	if c.dimensions > 0 && len(vector) != c.dimensions {
		return nil, &EmbeddingDimensionError{Got: len(vector), Want: c.dimensions}
	}
	return vector, nil
}

func decodeEmbedding(r io.Reader) ([]float32, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var env embeddingEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		return env.Embedding, nil
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	return vector, nil
}
