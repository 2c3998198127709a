package market

import (
	"context"

	"github.com/finpulse/finpulse/pkg/models"
)

// Provider retrieves quote, fundamentals and a historical series for
// one ticker. A nil snapshot with nil error means the provider could
// not produce data after exhausting retries; a single ticker's outage
// must not abort the rest of the pipeline.
type Provider interface {
	// GetName returns provider name
	GetName() string

	// Fetch retrieves a snapshot for the ticker over the given range
	Fetch(ctx context.Context, ticker string, rng models.Range) (*models.Snapshot, error)
}
