package ai

import (
	"context"

	"github.com/finpulse/finpulse/pkg/models"
)

// Provider represents the LLM provider interface
type Provider interface {
	// GetName returns provider name
	GetName() string

	// ScoreHeadlines scores all headlines in a single batched call and
	// returns only the validated results
	ScoreHeadlines(ctx context.Context, headlines []models.Headline) ([]models.ScoredHeadline, error)

	// Complete runs one chat completion and returns the raw content
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
