package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// candidate is one headline+link pair extracted from the scraped page,
// not yet assigned to a ticker
type candidate struct {
	text string
	link string
}

// Scraper extracts candidate headlines from a market news HTML page.
// It is the opportunistic fallback when the primary source leaves a
// ticker short of headlines.
type Scraper struct {
	url     string
	client  *http.Client
	baseURL string
}

// NewScraper creates new fallback page scraper
func NewScraper(cfg *config.NewsConfig) *Scraper {
	base := ""
	if u, err := url.Parse(cfg.ScrapeURL); err == nil {
		base = u.Scheme + "://" + u.Host
	}

	return &Scraper{
		url:     cfg.ScrapeURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: base,
	}
}

// Fetch downloads and parses the news page into candidates
func (s *Scraper) Fetch(ctx context.Context) ([]candidate, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; finpulse/1.0)")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var candidates []candidate
	doc.Find("table.news_time-table tr, table#news tr, tr.news_table-row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		text := strings.TrimSpace(link.Text())
		if text == "" {
			return
		}
		href, _ := link.Attr("href")
		if strings.HasPrefix(href, "/") {
			href = s.baseURL + href
		}
		candidates = append(candidates, candidate{text: text, link: href})
	})

	logger.Debug("scraped news page",
		zap.String("url", s.url),
		zap.Int("candidates", len(candidates)),
		zap.Duration("latency", time.Since(start)),
	)

	return candidates, nil
}

// scrapeSession lazily fetches the scrape page once per collection run
// and serves per-ticker matches from it
type scrapeSession struct {
	scraper *Scraper
	matcher Matcher

	once       sync.Once
	candidates []candidate
}

func newScrapeSession(scraper *Scraper, matcher Matcher) *scrapeSession {
	if scraper == nil || matcher == nil {
		return nil
	}
	return &scrapeSession{scraper: scraper, matcher: matcher}
}

// headlinesFor returns scraped headlines the matcher assigns to ticker
func (ss *scrapeSession) headlinesFor(ctx context.Context, ticker string) []models.Headline {
	ss.once.Do(func() {
		cands, err := ss.scraper.Fetch(ctx)
		if err != nil {
			// Degrade to no fallback headlines
			logger.Warn("news scrape failed", zap.Error(err))
			return
		}
		ss.candidates = cands
	})

	var headlines []models.Headline
	for _, c := range ss.candidates {
		matched, ok := ss.matcher.Match(c.text)
		if !ok || matched != ticker {
			continue
		}
		headlines = append(headlines, models.Headline{
			Ticker:    ticker,
			Text:      c.text,
			SourceURL: c.link,
		})
	}
	return headlines
}
