package vector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// maxCandidates bounds how many stored chunks one similarity query
// scores in memory
const maxCandidates = 500

// Match is one similarity search hit
type Match struct {
	Chunk      models.DocumentChunk
	Similarity float64
}

// Store persists embedded filing chunks in Postgres and answers
// cosine-similarity queries over them, scoped to a ticker
type Store struct {
	db *sqlx.DB
}

// NewStore creates new chunk store
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Upsert stores chunks, keyed by a hash of their content so repeated
// ingestion of the same filing is idempotent
func (s *Store) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (content_hash, ticker, accession_no, form_type, seq, chunk_text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, chunk := range chunks {
		embeddingBytes, err := json.Marshal(chunk.Embedding)
		if err != nil {
			logger.Warn("failed to serialize chunk embedding",
				zap.String("ticker", chunk.Ticker),
				zap.Error(err),
			)
			continue
		}

		_, err = stmt.ExecContext(ctx,
			hashContent(chunk),
			chunk.Ticker,
			chunk.AccessionNo,
			chunk.FormType,
			chunk.Seq,
			chunk.Text,
			embeddingBytes,
		)
		if err != nil {
			logger.Warn("failed to save chunk",
				zap.String("ticker", chunk.Ticker),
				zap.Int("seq", chunk.Seq),
				zap.Error(err),
			)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	logger.Debug("chunks upserted",
		zap.Int("total", len(chunks)),
		zap.Int("saved", saved),
	)

	return nil
}

// SimilarSearch returns the k stored chunks for ticker most similar to
// the query embedding, best first
func (s *Store) SimilarSearch(ctx context.Context, ticker string, query []float32, k int) ([]Match, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT ticker, accession_no, form_type, seq, chunk_text, embedding
		FROM document_chunks
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ticker, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			chunk          models.DocumentChunk
			embeddingBytes []byte
		)
		if err := rows.Scan(&chunk.Ticker, &chunk.AccessionNo, &chunk.FormType, &chunk.Seq, &chunk.Text, &embeddingBytes); err != nil {
			logger.Warn("failed to scan chunk row", zap.Error(err))
			continue
		}

		var embedding []float32
		if err := json.Unmarshal(embeddingBytes, &embedding); err != nil {
			continue
		}

		matches = append(matches, Match{
			Chunk:      chunk,
			Similarity: cosineSimilarity(query, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// CountForTicker returns how many chunks are stored for ticker
func (s *Store) CountForTicker(ctx context.Context, ticker string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM document_chunks WHERE ticker = $1`, ticker); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// cosineSimilarity computes the cosine of the angle between two
// vectors; mismatched or zero-length vectors score 0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func hashContent(chunk models.DocumentChunk) string {
	h := sha256.Sum256([]byte(chunk.Ticker + "|" + chunk.AccessionNo + "|" + chunk.Text))
	return hex.EncodeToString(h[:])
}
