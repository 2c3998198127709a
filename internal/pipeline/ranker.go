package pipeline

import (
	"sort"

	"github.com/finpulse/finpulse/pkg/models"
)

// Rank orders ticker sentiments by mean score descending and truncates
// to at most capacity entries. Explicitly requested tickers are always
// retained regardless of rank and come first in the output; remaining
// slots are filled with the best-ranked other entries. Ties keep
// insertion order (stable sort), nothing more is guaranteed.
func Rank(entries []models.TickerSentiment, explicit map[string]bool, capacity int) []models.TickerSentiment {
	sorted := make([]models.TickerSentiment, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortScore() > sorted[j].SortScore()
	})

	var kept, rest []models.TickerSentiment
	for _, e := range sorted {
		if explicit[e.Ticker] {
			kept = append(kept, e)
		} else {
			rest = append(rest, e)
		}
	}

	// Explicit entries alone may meet or exceed the cap; they are all
	// included and nothing else is
	slots := capacity - len(kept)
	if slots < 0 {
		slots = 0
	}
	if slots > len(rest) {
		slots = len(rest)
	}

	return append(kept, rest[:slots]...)
}
