package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/finpulse/finpulse/pkg/models"
)

// ErrMalformed is returned when the LLM response cannot be parsed into
// the expected envelope. Without scores the sentiment feature has
// nothing to return, so this error is fatal for the whole request.
var ErrMalformed = errors.New("sentiment data malformed")

const scoringSystemPrompt = `You are a financial news sentiment rater.
For every input line of the form "TICKER: headline text", judge how positive or
negative the headline is for that company's stock.

Respond with JSON only, no other text, using exactly this layout:
{
  "scores": [
    {"ticker": "AAPL", "headline": "the exact headline text", "sentiment_score": 0.5}
  ]
}

sentiment_score must be a number between -1.0 (very negative) and 1.0 (very positive).
Return one entry per input line, in the same order.`

// buildScoringPrompt enumerates every headline as "TICKER: text"
func buildScoringPrompt(headlines []models.Headline) string {
	var b strings.Builder
	for _, h := range headlines {
		b.WriteString(h.Ticker)
		b.WriteString(": ")
		b.WriteString(h.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// parseScoreResponse parses the LLM envelope and filters it down to
// valid entries. An unparseable envelope or a missing scores array is
// fatal; an individual invalid entry is silently dropped, the prompt is
// never re-sent for partial failures.
func parseScoreResponse(content string) ([]models.ScoredHeadline, error) {
	jsonStr := extractJSON(content)

	var envelope struct {
		Scores []json.RawMessage `json:"scores"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if envelope.Scores == nil {
		return nil, fmt.Errorf("%w: missing scores array", ErrMalformed)
	}

	scored := make([]models.ScoredHeadline, 0, len(envelope.Scores))
	for _, raw := range envelope.Scores {
		var item struct {
			Ticker   string  `json:"ticker"`
			Headline string  `json:"headline"`
			Score    float64 `json:"sentiment_score"`
		}
		// Wrong field types fail to unmarshal: drop the entry
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if item.Ticker == "" || item.Headline == "" {
			continue
		}
		if item.Score < -1.0 || item.Score > 1.0 {
			continue
		}

		scored = append(scored, models.ScoredHeadline{
			Headline: models.Headline{
				Ticker: models.NormalizeTicker(item.Ticker),
				Text:   item.Headline,
			},
			Score: item.Score,
		})
	}

	if len(scored) == 0 {
		return nil, fmt.Errorf("%w: no valid entries", ErrMalformed)
	}

	return scored, nil
}

// extractJSON strips markdown code fences and surrounding prose so the
// first top-level JSON object can be unmarshaled
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}

	return content
}
