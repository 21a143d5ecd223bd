package repository

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"agentflow/pkg/models"
)

// SaveEmbedding inserts a code embedding.
func (s *PostgresStore) SaveEmbedding(ctx context.Context, c *models.CodeEmbedding) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO code_embeddings (file_path, code_chunk, embedding, metadata, project_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		c.FilePath, c.CodeChunk, c.Embedding, c.Metadata, c.ProjectID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return classify("save embedding", err)
}

// SearchEmbeddings returns the chunks nearest to query by cosine distance.
func (s *PostgresStore) SearchEmbeddings(ctx context.Context, query []float32, limit int) ([]*models.CodeMatch, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, file_path, code_chunk, embedding, metadata, project_id, created_at, updated_at, embedding <=> $1 AS distance
		 FROM code_embeddings ORDER BY embedding <=> $1 LIMIT $2`,
		pgvector.NewVector(query), limit)
	if err != nil {
		return nil, classify("search embeddings", err)
	}
	defer rows.Close()

	matches := []*models.CodeMatch{}
	for rows.Next() {
		var m models.CodeMatch
		if err := rows.Scan(&m.ID, &m.FilePath, &m.CodeChunk, &m.Embedding, &m.Metadata, &m.ProjectID,
			&m.CreatedAt, &m.UpdatedAt, &m.Distance); err != nil {
			return nil, classify("search embeddings", err)
		}
		matches = append(matches, &m)
	}
	return matches, classify("search embeddings", rows.Err())
}

// DeleteEmbeddingsByFile removes every chunk of a file.
func (s *PostgresStore) DeleteEmbeddingsByFile(ctx context.Context, filePath string) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM code_embeddings WHERE file_path = $1", filePath)
	if err != nil {
		return 0, classify("delete embeddings", err)
	}
	return tag.RowsAffected(), nil
}
