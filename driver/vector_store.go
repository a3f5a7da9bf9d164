// ABOUTME: This file implements the optional pgvector sink for digest embeddings
// ABOUTME: Upserts one embedding row per digest keyed by digest ID
package driver

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"rss-digest/repository"
)

// VectorStore persists digest embeddings. The sink is best effort; callers
// log and continue when writes fail.
type VectorStore struct {
	db repository.DB
}

func NewVectorStore(db repository.DB) *VectorStore {
	return &VectorStore{db: db}
}

func (v *VectorStore) UpsertDigestEmbedding(ctx context.Context, digestID string, model string, embedding []float32) error {
	query := `
		INSERT INTO digest_embeddings (digest_id, model, embedding, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (digest_id) DO UPDATE SET
			model = EXCLUDED.model,
			embedding = EXCLUDED.embedding,
			created_at = NOW()
	`

	if _, err := v.db.Exec(ctx, query, digestID, model, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("failed to upsert digest embedding: %w", err)
	}
	return nil
}
