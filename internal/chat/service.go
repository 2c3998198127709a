package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/vector"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// Message is one turn of a chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is a grounded chat answer with its filing sources
type Response struct {
	Content string              `json:"content"`
	Sources []models.ChatSource `json:"sources"`
}

// Embedder turns a query into an embedding vector
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the closest stored chunks for a ticker
type Searcher interface {
	SimilarSearch(ctx context.Context, ticker string, query []float32, k int) ([]vector.Match, error)
}

// Completer produces a chat completion from a prompt pair
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Service answers questions about a company grounded in its ingested
// regulatory filings: embed the question, retrieve the closest chunks,
// and complete with those excerpts as context.
type Service struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	topK      int
}

// NewService creates the filing chat service
func NewService(embedder Embedder, searcher Searcher, completer Completer) *Service {
	return &Service{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		topK:      6,
	}
}

const chatSystemPrompt = `You are a financial research assistant. Answer the user's question about the company using ONLY the filing excerpts provided. If the excerpts do not contain the answer, say so plainly. Cite facts from the excerpts; do not invent figures.`

// Ask answers the conversation's latest user message for the given
// ticker. The ticker must be non-empty: retrieval is scoped per
// company and an unscoped query has nothing to search.
func (s *Service) Ask(ctx context.Context, ticker string, messages []Message) (*Response, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	question := latestUserMessage(messages)
	if question == "" {
		return nil, fmt.Errorf("no user message to answer")
	}

	queryVec, err := s.embedder.Generate(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.searcher.SimilarSearch(ctx, ticker, queryVec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search filings for %s: %w", ticker, err)
	}

	content, err := s.completer.Complete(ctx, chatSystemPrompt, buildGroundedPrompt(ticker, question, matches))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	logger.Debug("chat answered",
		zap.String("ticker", ticker),
		zap.Int("sources", len(matches)),
	)

	return &Response{
		Content: content,
		Sources: sourcesOf(matches),
	}, nil
}

// latestUserMessage returns the content of the last user-role turn
func latestUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func buildGroundedPrompt(ticker, question string, matches []vector.Match) string {
	var b strings.Builder

	b.WriteString("Company: ")
	b.WriteString(ticker)
	b.WriteString("\n\n")

	if len(matches) == 0 {
		b.WriteString("No filing excerpts are available for this company.\n\n")
	} else {
		b.WriteString("Filing excerpts:\n")
		for i, m := range matches {
			fmt.Fprintf(&b, "[%d] (%s %s)\n%s\n\n", i+1, m.Chunk.FormType, m.Chunk.AccessionNo, m.Chunk.Text)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func sourcesOf(matches []vector.Match) []models.ChatSource {
	sources := make([]models.ChatSource, 0, len(matches))
	for _, m := range matches {
		excerpt := m.Chunk.Text
		if len(excerpt) > 200 {
			excerpt = excerpt[:200] + "..."
		}
		sources = append(sources, models.ChatSource{
			AccessionNo: m.Chunk.AccessionNo,
			FormType:    m.Chunk.FormType,
			Excerpt:     excerpt,
			Similarity:  m.Similarity,
		})
	}
	return sources
}
