package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finpulse/finpulse/internal/adapters/vector"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

func TestMain(m *testing.M) {
	logger.Init("error", "")
	m.Run()
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

type stubSearcher struct {
	matches   []vector.Match
	gotTicker string
	err       error
}

func (s *stubSearcher) SimilarSearch(ctx context.Context, ticker string, query []float32, k int) ([]vector.Match, error) {
	s.gotTicker = ticker
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

type stubCompleter struct {
	gotUser string
	reply   string
	err     error
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.gotUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func match(accNo, form, text string, sim float64) vector.Match {
	return vector.Match{
		Chunk:      models.DocumentChunk{AccessionNo: accNo, FormType: form, Text: text},
		Similarity: sim,
	}
}

func TestAsk_GroundedAnswerWithSources(t *testing.T) {
	searcher := &stubSearcher{matches: []vector.Match{
		match("acc-1", "10-K", "Revenue was $394 billion in fiscal 2024.", 0.91),
		match("acc-2", "10-Q", "Services revenue grew 12% year over year.", 0.84),
	}}
	completer := &stubCompleter{reply: "Revenue was $394 billion."}

	svc := NewService(&stubEmbedder{}, searcher, completer)
	got, err := svc.Ask(context.Background(), "aapl", []Message{
		{Role: "user", Content: "What was revenue last year?"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Content != "Revenue was $394 billion." {
		t.Errorf("unexpected content: %q", got.Content)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(got.Sources))
	}
	if got.Sources[0].AccessionNo != "acc-1" || got.Sources[0].FormType != "10-K" {
		t.Errorf("unexpected source: %+v", got.Sources[0])
	}
	if got.Sources[0].Similarity != 0.91 {
		t.Errorf("similarity not carried: %f", got.Sources[0].Similarity)
	}

	if searcher.gotTicker != "AAPL" {
		t.Errorf("ticker should be normalized before search, got %s", searcher.gotTicker)
	}
	// The retrieved excerpts must reach the model
	if !strings.Contains(completer.gotUser, "Revenue was $394 billion in fiscal 2024.") {
		t.Error("prompt missing retrieved excerpt")
	}
	if !strings.Contains(completer.gotUser, "What was revenue last year?") {
		t.Error("prompt missing the user question")
	}
}

func TestAsk_RequiresTicker(t *testing.T) {
	svc := NewService(&stubEmbedder{}, &stubSearcher{}, &stubCompleter{})

	if _, err := svc.Ask(context.Background(), "  ", []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("empty ticker must be rejected")
	}
}

func TestAsk_RequiresUserMessage(t *testing.T) {
	svc := NewService(&stubEmbedder{}, &stubSearcher{}, &stubCompleter{})

	if _, err := svc.Ask(context.Background(), "AAPL", nil); err == nil {
		t.Error("empty conversation must be rejected")
	}
	if _, err := svc.Ask(context.Background(), "AAPL", []Message{{Role: "assistant", Content: "hello"}}); err == nil {
		t.Error("conversation without a user turn must be rejected")
	}
}

func TestAsk_UsesLatestUserMessage(t *testing.T) {
	completer := &stubCompleter{reply: "answer"}
	svc := NewService(&stubEmbedder{}, &stubSearcher{}, completer)

	_, err := svc.Ask(context.Background(), "AAPL", []Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(completer.gotUser, "second question") {
		t.Error("latest user message must drive retrieval and the prompt")
	}
	if strings.Contains(completer.gotUser, "Question: first question") {
		t.Error("earlier questions must not be the prompt question")
	}
}

func TestAsk_NoMatchesStillAnswers(t *testing.T) {
	completer := &stubCompleter{reply: "I don't have filings for this company."}
	svc := NewService(&stubEmbedder{}, &stubSearcher{}, completer)

	got, err := svc.Ask(context.Background(), "AAPL", []Message{{Role: "user", Content: "anything?"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(got.Sources))
	}
	if !strings.Contains(completer.gotUser, "No filing excerpts are available") {
		t.Error("prompt should tell the model nothing was retrieved")
	}
}

func TestAsk_ErrorsPropagate(t *testing.T) {
	msg := []Message{{Role: "user", Content: "q"}}

	svc := NewService(&stubEmbedder{err: errors.New("embed down")}, &stubSearcher{}, &stubCompleter{})
	if _, err := svc.Ask(context.Background(), "AAPL", msg); err == nil {
		t.Error("embedder failure must propagate")
	}

	svc = NewService(&stubEmbedder{}, &stubSearcher{err: errors.New("db down")}, &stubCompleter{})
	if _, err := svc.Ask(context.Background(), "AAPL", msg); err == nil {
		t.Error("search failure must propagate")
	}

	svc = NewService(&stubEmbedder{}, &stubSearcher{}, &stubCompleter{err: errors.New("model down")})
	if _, err := svc.Ask(context.Background(), "AAPL", msg); err == nil {
		t.Error("completion failure must propagate")
	}
}

func TestAsk_LongExcerptTruncatedInSource(t *testing.T) {
	long := strings.Repeat("a", 500)
	searcher := &stubSearcher{matches: []vector.Match{match("acc-1", "10-K", long, 0.9)}}
	svc := NewService(&stubEmbedder{}, searcher, &stubCompleter{reply: "ok"})

	got, err := svc.Ask(context.Background(), "AAPL", []Message{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Sources[0].Excerpt) > 210 {
		t.Errorf("excerpt should be truncated, got %d chars", len(got.Sources[0].Excerpt))
	}
}
