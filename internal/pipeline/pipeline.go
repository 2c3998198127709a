package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finpulse/finpulse/internal/adapters/ai"
	"github.com/finpulse/finpulse/internal/adapters/market"
	"github.com/finpulse/finpulse/internal/adapters/news"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/metrics"
	"github.com/finpulse/finpulse/pkg/models"
)

// NewsCollector abstracts the headline collector for testing
type NewsCollector interface {
	Collect(ctx context.Context, tickers []string, matcher news.Matcher) []models.Headline
}

// Pipeline runs the ticker sentiment analysis flow: concurrent
// per-ticker market fetch and headline collection, one batched LLM
// scoring call, a join by ticker and a ranked, capped result.
type Pipeline struct {
	market     market.Provider
	collector  NewsCollector
	llm        ai.Provider
	metricsBuf metrics.Buffer // optional
	defaults   []string
	capacity   int
}

// Config configures the pipeline
type Config struct {
	Market         market.Provider
	Collector      NewsCollector
	LLM            ai.Provider
	MetricsBuffer  metrics.Buffer // optional
	DefaultTickers []string       // always analyzed alongside the caller's
	ResultCap      int
}

// New creates the analysis pipeline
func New(cfg Config) *Pipeline {
	capacity := cfg.ResultCap
	if capacity < 1 {
		capacity = 8
	}

	return &Pipeline{
		market:     cfg.Market,
		collector:  cfg.Collector,
		llm:        cfg.LLM,
		metricsBuf: cfg.MetricsBuffer,
		defaults:   cfg.DefaultTickers,
		capacity:   capacity,
	}
}

// Analyze runs the full pipeline for the caller's tickers plus the
// default set. An individual ticker's market or news outage degrades to
// absent data for that ticker; a malformed or empty LLM response fails
// the whole request since there is nothing useful to return without it.
func (p *Pipeline) Analyze(ctx context.Context, explicitTickers []string, rng models.Range, clientHash string) ([]models.TickerSentiment, error) {
	start := time.Now()

	explicit, tickers := p.tickerSet(explicitTickers)
	snaps, headlines := p.gather(ctx, tickers, rng)

	llmStart := time.Now()
	scored, err := p.llm.ScoreHeadlines(ctx, headlines)
	llmLatency := time.Since(llmStart)
	if err != nil {
		p.record(clientHash, len(tickers), len(headlines), 0, llmLatency, start, "llm_failed")
		return nil, err
	}

	// Group validated scores by ticker; entries the model attributed
	// to tickers outside the request are dropped
	scoredByTicker := make(map[string][]models.ScoredHeadline)
	tickerSet := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		tickerSet[t] = true
	}
	for _, s := range scored {
		if !tickerSet[s.Ticker] {
			continue
		}
		scoredByTicker[s.Ticker] = append(scoredByTicker[s.Ticker], s)
	}

	headlinesByTicker := groupHeadlines(headlines)

	entries := make([]models.TickerSentiment, 0, len(tickers))
	for _, t := range tickers {
		entry := models.TickerSentiment{
			Ticker:          t,
			Headlines:       headlinesByTicker[t],
			ScoredHeadlines: scoredByTicker[t],
			Snapshot:        snaps[t],
		}
		// Empty scored list means "insufficient data", a distinct
		// sentinel rather than a neutral 0.0
		if n := len(entry.ScoredHeadlines); n > 0 {
			sum := 0.0
			for _, s := range entry.ScoredHeadlines {
				sum += s.Score
			}
			mean := sum / float64(n)
			entry.MeanScore = &mean
		}
		entries = append(entries, entry)
	}

	ranked := Rank(entries, explicit, p.capacity)

	p.record(clientHash, len(tickers), len(headlines), len(scored), llmLatency, start, "ok")

	logger.Info("analysis pipeline complete",
		zap.Int("tickers", len(tickers)),
		zap.Int("headlines", len(headlines)),
		zap.Int("scored", len(scored)),
		zap.Duration("duration", time.Since(start)),
	)

	return ranked, nil
}

// Collect gathers market data and headlines without LLM scoring. Used
// for chart refreshes that should not consume sentiment quota.
func (p *Pipeline) Collect(ctx context.Context, explicitTickers []string, rng models.Range) ([]models.TickerSentiment, error) {
	explicit, tickers := p.tickerSet(explicitTickers)
	snaps, headlines := p.gather(ctx, tickers, rng)

	headlinesByTicker := groupHeadlines(headlines)

	entries := make([]models.TickerSentiment, 0, len(tickers))
	for _, t := range tickers {
		entries = append(entries, models.TickerSentiment{
			Ticker:    t,
			Headlines: headlinesByTicker[t],
			Snapshot:  snaps[t],
		})
	}

	return Rank(entries, explicit, p.capacity), nil
}

// tickerSet normalizes and dedupes the caller's tickers, unions them
// with the default set, and returns the explicit-membership set plus
// the ordered union (explicit first)
func (p *Pipeline) tickerSet(explicitTickers []string) (map[string]bool, []string) {
	explicit := make(map[string]bool)
	var tickers []string

	for _, t := range explicitTickers {
		norm := models.NormalizeTicker(t)
		if norm == "" || explicit[norm] {
			continue
		}
		explicit[norm] = true
		tickers = append(tickers, norm)
	}

	for _, t := range p.defaults {
		if !explicit[t] && !contains(tickers, t) {
			tickers = append(tickers, t)
		}
	}

	return explicit, tickers
}

// gather runs per-ticker market fetches and the headline collection
// concurrently. Fetch failures leave a nil snapshot; they never abort
// the request.
func (p *Pipeline) gather(ctx context.Context, tickers []string, rng models.Range) (map[string]*models.Snapshot, []models.Headline) {
	snapByIdx := make([]*models.Snapshot, len(tickers))
	var headlines []models.Headline

	g, gctx := errgroup.WithContext(ctx)

	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			snap, err := p.market.Fetch(gctx, ticker, rng)
			if err != nil {
				logger.Warn("market fetch error",
					zap.String("ticker", ticker),
					zap.Error(err),
				)
				return nil
			}
			snapByIdx[i] = snap
			return nil
		})
	}

	g.Go(func() error {
		headlines = p.collector.Collect(gctx, tickers, news.NewAliasMatcher(tickers))
		return nil
	})

	_ = g.Wait()

	snaps := make(map[string]*models.Snapshot, len(tickers))
	for i, ticker := range tickers {
		if snapByIdx[i] != nil {
			snaps[ticker] = snapByIdx[i]
		}
	}

	return snaps, headlines
}

func (p *Pipeline) record(clientHash string, tickers, headlines, scored int, llmLatency time.Duration, start time.Time, outcome string) {
	if p.metricsBuf == nil {
		return
	}

	if err := p.metricsBuf.Add(&metrics.PipelineRequestMetric{
		Timestamp:     time.Now(),
		ClientHash:    clientHash,
		Tickers:       tickers,
		Headlines:     headlines,
		Scored:        scored,
		LLMLatencyMS:  llmLatency.Milliseconds(),
		TotalDuration: time.Since(start),
		Outcome:       outcome,
	}); err != nil {
		logger.Warn("failed to record pipeline metric", zap.Error(err))
	}
}

func groupHeadlines(headlines []models.Headline) map[string][]models.Headline {
	out := make(map[string][]models.Headline)
	for _, h := range headlines {
		out[h.Ticker] = append(out[h.Ticker], h)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ValidateRange rejects unsupported chart ranges at the boundary,
// before any component is invoked
func ValidateRange(raw string) (models.Range, error) {
	r := models.Range(raw)
	if !models.ValidRange(r) {
		return "", fmt.Errorf("invalid range %q: must be one of 1d, 5d, 1mo, 1y", raw)
	}
	return r, nil
}
