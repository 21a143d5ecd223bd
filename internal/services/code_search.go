package services

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/pkg/models"
)

// Search limits.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// CodeChunkInput is a chunk of source code to index.
type CodeChunkInput struct {
	FilePath  string              `json:"file_path"`
	CodeChunk string              `json:"code_chunk"`
	Metadata  models.CodeMetadata `json:"metadata"`
	ProjectID *int64              `json:"project_id,omitempty"`
}

// CodeSearchService indexes code chunks and finds them by meaning.
type CodeSearchService struct {
	store    repository.EmbeddingStore
	mlClient MLClient
	logger   *logging.Logger
}

// NewCodeSearchService creates a new CodeSearchService.
func NewCodeSearchService(store repository.EmbeddingStore, mlClient MLClient, logger *logging.Logger) *CodeSearchService {
	return &CodeSearchService{store: store, mlClient: mlClient, logger: logger}
}

// Index embeds a chunk through the ML sidecar and stores it.
func (s *CodeSearchService) Index(ctx context.Context, in CodeChunkInput) (*models.CodeEmbedding, error) {
	if in.CodeChunk == "" {
		return nil, &models.FieldError{Field: "code_chunk", Reason: "must not be empty"}
	}
	vector, err := s.mlClient.GetEmbedding(ctx, in.CodeChunk)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", in.FilePath, err)
	}

	c := &models.CodeEmbedding{
		FilePath:  in.FilePath,
		CodeChunk: in.CodeChunk,
		Embedding: pgvector.NewVector(vector),
		Metadata:  in.Metadata,
		ProjectID: in.ProjectID,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveEmbedding(ctx, c); err != nil {
		return nil, fmt.Errorf("save embedding: %w", err)
	}
	return c, nil
}

// Search returns the chunks closest to a natural-language query. A limit
// outside 1..MaxSearchLimit is clamped; zero selects DefaultSearchLimit.
func (s *CodeSearchService) Search(ctx context.Context, query string, limit int) ([]*models.CodeMatch, error) {
	if query == "" {
		return nil, &models.FieldError{Field: "query", Reason: "must not be empty"}
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	vector, err := s.mlClient.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.SearchEmbeddings(ctx, vector, limit)
}

// DeleteFile removes every chunk indexed for filePath.
func (s *CodeSearchService) DeleteFile(ctx context.Context, filePath string) (int64, error) {
	if filePath == "" {
		return 0, &models.FieldError{Field: "file_path", Reason: "must not be empty"}
	}
	n, err := s.store.DeleteEmbeddingsByFile(ctx, filePath)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("removed %d chunks of %s", n, filePath)
	return n, nil
}
