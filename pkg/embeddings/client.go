package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/retry"
)

// maxBatchSize is the provider's input limit per embeddings request
const maxBatchSize = 2048

// Repository stores generated embeddings keyed by text hash.
// Embeddings are deterministic and expensive, so they are kept
// permanently to avoid redundant API calls.
type Repository interface {
	Get(ctx context.Context, textHash string) ([]float32, bool)
	Set(ctx context.Context, textHash string, embedding []float32, model string, textLength int) error
}

// Client generates embeddings with deduplication via the repository
type Client struct {
	openaiClient *openai.Client
	repository   Repository
	model        openai.EmbeddingModel
	retry        retry.Config
}

// Config for the embedding client
type Config struct {
	OpenAIClient *openai.Client
	Repository   Repository // optional, enables deduplication
	Model        openai.EmbeddingModel
}

// NewClient creates new embedding client
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = openai.SmallEmbedding3
	}

	if cfg.Repository != nil {
		logger.Info("embedding deduplication enabled")
	}

	return &Client{
		openaiClient: cfg.OpenAIClient,
		repository:   cfg.Repository,
		model:        model,
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
	}
}

// Generate creates an embedding for a single text
func (c *Client) Generate(ctx context.Context, text string) ([]float32, error) {
	results, err := c.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("provider returned no embedding data")
	}
	return results[0], nil
}

// GenerateBatch creates embeddings for multiple texts, one API call per
// batch of uncached inputs. Much cheaper than individual calls.
func (c *Client) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.openaiClient == nil {
		return nil, fmt.Errorf("embedding client not configured")
	}

	all := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		var (
			uncachedIdx   []int
			uncachedTexts []string
		)
		for i := start; i < end; i++ {
			if c.repository != nil {
				if existing, found := c.repository.Get(ctx, hashText(texts[i])); found {
					all[i] = existing
					continue
				}
			}
			uncachedIdx = append(uncachedIdx, i)
			uncachedTexts = append(uncachedTexts, texts[i])
		}

		if len(uncachedTexts) == 0 {
			continue
		}

		var resp openai.EmbeddingResponse
		err := retry.Do(ctx, c.retry, "create embeddings", func(ctx context.Context) error {
			var err error
			resp, err = c.openaiClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Model: c.model,
				Input: uncachedTexts,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embedding API failed: %w", err)
		}

		if len(resp.Data) != len(uncachedTexts) {
			return nil, fmt.Errorf("batch response size mismatch: expected %d, got %d",
				len(uncachedTexts), len(resp.Data))
		}

		for j, data := range resp.Data {
			idx := uncachedIdx[j]
			all[idx] = data.Embedding

			if c.repository != nil {
				if err := c.repository.Set(ctx, hashText(texts[idx]), data.Embedding, string(c.model), len(texts[idx])); err != nil {
					// Non-critical, continue
					logger.Warn("failed to store embedding", zap.Error(err))
				}
			}
		}

		logger.Debug("embeddings generated",
			zap.Int("batch", end-start),
			zap.Int("cached", end-start-len(uncachedTexts)),
			zap.Int("generated", len(uncachedTexts)),
		)
	}

	return all, nil
}

// hashText creates a SHA256 hash of text for the repository key
func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
