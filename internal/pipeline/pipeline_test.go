package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/finpulse/finpulse/internal/adapters/news"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

func TestMain(m *testing.M) {
	logger.Init("error", "")
	m.Run()
}

type stubMarket struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]bool
}

func (s *stubMarket) GetName() string { return "stub" }

func (s *stubMarket) Fetch(ctx context.Context, ticker string, rng models.Range) (*models.Snapshot, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, ticker)
	s.mu.Unlock()
	if s.fail != nil && s.fail[ticker] {
		return nil, errors.New("upstream down")
	}
	return &models.Snapshot{Ticker: ticker, Price: 100}, nil
}

type stubCollector struct {
	headlines []models.Headline
}

func (s *stubCollector) Collect(ctx context.Context, tickers []string, matcher news.Matcher) []models.Headline {
	return s.headlines
}

type stubLLM struct {
	scored []models.ScoredHeadline
	err    error
	calls  int
}

func (s *stubLLM) GetName() string { return "stub" }

func (s *stubLLM) ScoreHeadlines(ctx context.Context, headlines []models.Headline) ([]models.ScoredHeadline, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scored, nil
}

func (s *stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not used")
}

func headline(ticker, text string) models.Headline {
	return models.Headline{Ticker: ticker, Text: text}
}

func scoredHeadline(ticker, text string, score float64) models.ScoredHeadline {
	return models.ScoredHeadline{
		Headline: models.Headline{Ticker: ticker, Text: text},
		Score:    score,
	}
}

func newTestPipeline(mkt *stubMarket, col *stubCollector, llm *stubLLM) *Pipeline {
	return New(Config{
		Market:         mkt,
		Collector:      col,
		LLM:            llm,
		DefaultTickers: news.DefaultTickers(),
		ResultCap:      8,
	})
}

func TestAnalyze_ResultSupersetOfExplicit(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{
		headline("AAPL", "Apple beats estimates"),
		headline("NFLX", "Netflix gains subscribers"),
	}}
	llm := &stubLLM{scored: []models.ScoredHeadline{
		scoredHeadline("AAPL", "Apple beats estimates", 0.8),
		scoredHeadline("NFLX", "Netflix gains subscribers", 0.6),
	}}

	got, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), []string{"nflx"}, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, e := range got {
		if e.Ticker == "NFLX" {
			found = true
		}
	}
	if !found {
		t.Error("explicitly requested ticker missing from results")
	}
	if got[0].Ticker != "NFLX" {
		t.Errorf("explicit ticker should lead the results, got %s", got[0].Ticker)
	}
	if llm.calls != 1 {
		t.Errorf("expected exactly one batched scoring call, got %d", llm.calls)
	}
}

func TestAnalyze_SingleBatchedScoringCall(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{
		headline("AAPL", "a"), headline("MSFT", "b"), headline("GOOGL", "c"),
	}}
	llm := &stubLLM{}

	_, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), nil, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.calls != 1 {
		t.Errorf("all tickers must share a single scoring call, got %d calls", llm.calls)
	}
}

func TestAnalyze_LLMFailurePropagates(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{headline("AAPL", "x")}}
	llm := &stubLLM{err: errors.New("model unavailable")}

	_, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), nil, models.RangeOneDay, "client")
	if err == nil {
		t.Fatal("expected error when scoring fails")
	}
}

func TestAnalyze_NoScoredHeadlinesYieldsSentinel(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{
		headline("AAPL", "Apple beats estimates"),
	}}
	// Model returns a score only for AAPL; everything else has no data
	llm := &stubLLM{scored: []models.ScoredHeadline{
		scoredHeadline("AAPL", "Apple beats estimates", 0.0),
	}}

	got, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), nil, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range got {
		switch e.Ticker {
		case "AAPL":
			if e.MeanScore == nil {
				t.Error("scored ticker must carry a mean, even at 0.0")
			} else if *e.MeanScore != 0.0 {
				t.Errorf("expected mean 0.0, got %f", *e.MeanScore)
			}
		default:
			if e.MeanScore != nil {
				t.Errorf("ticker %s without scores must carry nil mean, got %f", e.Ticker, *e.MeanScore)
			}
		}
	}
	// A real 0.0 outranks absent data
	if got[0].Ticker != "AAPL" {
		t.Errorf("neutral score should rank above missing data, got %s first", got[0].Ticker)
	}
}

func TestAnalyze_MeanOfMultipleScores(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{
		headline("AAPL", "a"), headline("AAPL", "b"),
	}}
	llm := &stubLLM{scored: []models.ScoredHeadline{
		scoredHeadline("AAPL", "a", 1.0),
		scoredHeadline("AAPL", "b", 0.0),
	}}

	got, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), nil, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Ticker != "AAPL" || got[0].MeanScore == nil || *got[0].MeanScore != 0.5 {
		t.Errorf("expected AAPL mean 0.5 first, got %+v", got[0])
	}
}

func TestAnalyze_DropsScoresForUnknownTickers(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{headline("AAPL", "a")}}
	llm := &stubLLM{scored: []models.ScoredHeadline{
		scoredHeadline("AAPL", "a", 0.5),
		scoredHeadline("ZZZZ", "hallucinated", 0.9), // not in the request
	}}

	got, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), nil, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range got {
		if e.Ticker == "ZZZZ" {
			t.Error("ticker invented by the model must not appear in results")
		}
	}
}

func TestAnalyze_MarketOutageDegrades(t *testing.T) {
	mkt := &stubMarket{fail: map[string]bool{"AAPL": true}}
	col := &stubCollector{headlines: []models.Headline{headline("AAPL", "a")}}
	llm := &stubLLM{scored: []models.ScoredHeadline{scoredHeadline("AAPL", "a", 0.7)}}

	got, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), []string{"AAPL"}, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("market outage must not fail the request: %v", err)
	}
	if got[0].Ticker != "AAPL" {
		t.Fatalf("expected AAPL first, got %s", got[0].Ticker)
	}
	if got[0].Snapshot != nil {
		t.Error("failed market fetch should leave a nil snapshot")
	}
	if got[0].MeanScore == nil {
		t.Error("sentiment must survive a market data outage")
	}
}

func TestAnalyze_FetchesEveryTicker(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{}
	llm := &stubLLM{}

	_, err := newTestPipeline(mkt, col, llm).Analyze(context.Background(), []string{"NFLX"}, models.RangeOneDay, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := len(news.DefaultTickers()) + 1
	if len(mkt.fetched) != want {
		t.Errorf("expected %d market fetches, got %d", want, len(mkt.fetched))
	}
}

func TestCollect_NoScoringCall(t *testing.T) {
	mkt := &stubMarket{}
	col := &stubCollector{headlines: []models.Headline{headline("AAPL", "a")}}
	llm := &stubLLM{}

	got, err := newTestPipeline(mkt, col, llm).Collect(context.Background(), nil, models.RangeOneDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("collect must not invoke the model, got %d calls", llm.calls)
	}
	if len(got) == 0 {
		t.Fatal("expected entries")
	}
	for _, e := range got {
		if e.MeanScore != nil {
			t.Error("collect results must carry no sentiment")
		}
	}
}

func TestTickerSet_DedupesAndNormalizes(t *testing.T) {
	p := newTestPipeline(&stubMarket{}, &stubCollector{}, &stubLLM{})

	explicit, tickers := p.tickerSet([]string{" aapl ", "AAPL", "nflx", ""})

	if !explicit["AAPL"] || !explicit["NFLX"] {
		t.Errorf("explicit set wrong: %v", explicit)
	}
	if len(explicit) != 2 {
		t.Errorf("expected 2 explicit tickers, got %d", len(explicit))
	}
	// Explicit tickers lead the union, defaults follow without duplicates
	if tickers[0] != "AAPL" || tickers[1] != "NFLX" {
		t.Errorf("explicit tickers must lead: %v", tickers)
	}
	seen := make(map[string]bool)
	for _, tk := range tickers {
		if seen[tk] {
			t.Errorf("duplicate ticker %s in union", tk)
		}
		seen[tk] = true
	}
}

func TestValidateRange(t *testing.T) {
	for _, ok := range []string{"1d", "5d", "1mo", "1y"} {
		if _, err := ValidateRange(ok); err != nil {
			t.Errorf("range %q should be valid: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "2d", "6mo", "max", "1D"} {
		if _, err := ValidateRange(bad); err == nil {
			t.Errorf("range %q should be rejected", bad)
		}
	}
}
