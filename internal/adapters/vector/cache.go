package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
)

// EmbeddingCache stores generated embeddings in Postgres. Not really a
// cache: embeddings are deterministic and cost money, so they are kept
// permanently to avoid redundant API calls.
type EmbeddingCache struct {
	db *sqlx.DB
}

// NewEmbeddingCache creates new Postgres embedding cache
func NewEmbeddingCache(db *sqlx.DB) *EmbeddingCache {
	return &EmbeddingCache{db: db}
}

// Get retrieves a stored embedding by text hash
func (c *EmbeddingCache) Get(ctx context.Context, textHash string) ([]float32, bool) {
	query := `
		UPDATE embedding_cache
		SET last_used_at = NOW(), use_count = use_count + 1
		WHERE text_hash = $1
		RETURNING embedding
	`

	var embeddingBytes []byte
	if err := c.db.QueryRowContext(ctx, query, textHash).Scan(&embeddingBytes); err != nil {
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(embeddingBytes, &embedding); err != nil {
		logger.Warn("failed to deserialize cached embedding", zap.Error(err))
		return nil, false
	}

	return embedding, true
}

// Set stores an embedding keyed by text hash
func (c *EmbeddingCache) Set(ctx context.Context, textHash string, embedding []float32, model string, textLength int) error {
	embeddingBytes, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	query := `
		INSERT INTO embedding_cache (text_hash, embedding, model, text_length, created_at, last_used_at, use_count)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		ON CONFLICT (text_hash) DO UPDATE SET
			last_used_at = NOW(),
			use_count = embedding_cache.use_count + 1
	`

	if _, err := c.db.ExecContext(ctx, query, textHash, embeddingBytes, model, textLength); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}
