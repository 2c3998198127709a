package news

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// Provider fetches headlines for a single ticker from one source
type Provider interface {
	// GetName returns provider name
	GetName() string

	// FetchHeadlines fetches up to limit headlines for the ticker
	FetchHeadlines(ctx context.Context, ticker string, limit int) ([]models.Headline, error)
}

// Collector gathers headlines for a set of tickers from the primary
// provider, falling back to the page scraper when a ticker comes up
// short. Every source failure degrades to fewer headlines for that
// ticker; the collector itself never fails.
type Collector struct {
	primary      Provider
	scraper      *Scraper
	cache        *Cache
	maxPerTicker int
	minPerTicker int
	stagger      time.Duration
}

// CollectorConfig configures a Collector
type CollectorConfig struct {
	Primary      Provider
	Scraper      *Scraper // optional fallback source
	Cache        *Cache   // optional Redis-backed headline cache
	MaxPerTicker int
	MinPerTicker int
	Stagger      time.Duration // delay between per-ticker dispatches
}

// NewCollector creates new headline collector
func NewCollector(cfg CollectorConfig) *Collector {
	maxPer := cfg.MaxPerTicker
	if maxPer < 1 {
		maxPer = 3
	}

	return &Collector{
		primary:      cfg.Primary,
		scraper:      cfg.Scraper,
		cache:        cfg.Cache,
		maxPerTicker: maxPer,
		minPerTicker: cfg.MinPerTicker,
		stagger:      cfg.Stagger,
	}
}

// Collect gathers headlines for every ticker. Per-ticker work runs
// concurrently with a small dispatch stagger to avoid bursting the
// upstream source. Every requested ticker appears in the output: a
// ticker with zero headlines from all sources gets exactly one
// synthesized placeholder.
func (c *Collector) Collect(ctx context.Context, tickers []string, matcher Matcher) []models.Headline {
	// The scrape page is shared across tickers; fetch it at most once
	// per collection run
	session := newScrapeSession(c.scraper, matcher)

	type result struct {
		idx       int
		headlines []models.Headline
	}

	results := make(chan result, len(tickers))
	var wg sync.WaitGroup

	for i, ticker := range tickers {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			results <- result{idx: idx, headlines: c.collectTicker(ctx, t, session)}
		}(i, ticker)

		if c.stagger > 0 && i < len(tickers)-1 {
			select {
			case <-time.After(c.stagger):
			case <-ctx.Done():
			}
		}
	}

	wg.Wait()
	close(results)

	// Preserve caller ticker order
	byIdx := make([][]models.Headline, len(tickers))
	for res := range results {
		byIdx[res.idx] = res.headlines
	}

	var all []models.Headline
	for _, hs := range byIdx {
		all = append(all, hs...)
	}
	return all
}

// collectTicker gathers headlines for one ticker from cache, the
// primary source and the scrape fallback, in that order
func (c *Collector) collectTicker(ctx context.Context, ticker string, session *scrapeSession) []models.Headline {
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, ticker); ok {
			return cached
		}
	}

	var headlines []models.Headline

	if c.primary != nil {
		fetched, err := c.primary.FetchHeadlines(ctx, ticker, c.maxPerTicker)
		if err != nil {
			logger.Warn("primary news source failed",
				zap.String("ticker", ticker),
				zap.String("source", c.primary.GetName()),
				zap.Error(err),
			)
		} else {
			headlines = fetched
		}
	}

	if len(headlines) < c.minPerTicker && session != nil {
		headlines = append(headlines, session.headlinesFor(ctx, ticker)...)
	}

	headlines = dedupe(headlines)
	if len(headlines) > c.maxPerTicker {
		headlines = headlines[:c.maxPerTicker]
	}

	if len(headlines) == 0 {
		return []models.Headline{{
			Ticker:    ticker,
			Text:      "Market analysis for " + ticker,
			Synthetic: true,
		}}
	}

	if c.cache != nil {
		c.cache.Set(ctx, ticker, headlines)
	}

	return headlines
}

// dedupe removes headlines with identical text, keeping first occurrence
func dedupe(headlines []models.Headline) []models.Headline {
	seen := make(map[string]bool, len(headlines))
	out := headlines[:0]
	for _, h := range headlines {
		if seen[h.Text] {
			continue
		}
		seen[h.Text] = true
		out = append(out, h)
	}
	return out
}
