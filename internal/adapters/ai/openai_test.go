package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "")
	m.Run()
}

func completionBody(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIProvider(&config.AIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "gpt-4o-mini",
		Timeout: timeout,
	})
}

func TestScoreHeadlines_EndToEnd(t *testing.T) {
	const reply = `{"scores":[{"ticker":"AAPL","headline":"Apple beats estimates","sentiment_score":0.7}]}`
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(reply)))
	}, 5*time.Second)

	got, err := p.ScoreHeadlines(context.Background(), []models.Headline{
		{Ticker: "AAPL", Text: "Apple beats estimates"},
		{Ticker: "NFLX", Text: "Market analysis for NFLX", Synthetic: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "AAPL" || got[0].Score != 0.7 {
		t.Errorf("unexpected scores: %+v", got)
	}
}

func TestScoreHeadlines_AllSyntheticRejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent when every headline is synthetic")
	}, 5*time.Second)

	_, err := p.ScoreHeadlines(context.Background(), []models.Headline{
		{Ticker: "AAPL", Text: "Market analysis for AAPL", Synthetic: true},
	})
	if err == nil {
		t.Fatal("expected error with nothing to score")
	}
}

// The configured timeout must bound the completion call; a hung
// upstream cannot stall the whole request.
func TestComplete_TimeoutBoundsCall(t *testing.T) {
	release := make(chan struct{})
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	_, err := p.Complete(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call was not bounded by the configured timeout, took %v", elapsed)
	}
}

func TestComplete_ReturnsContent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("an answer")))
	}, 5*time.Second)

	got, err := p.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "an answer" {
		t.Errorf("unexpected content: %q", got)
	}
}
