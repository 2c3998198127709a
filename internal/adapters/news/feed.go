package news

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/models"
)

// FeedProvider fetches per-ticker headlines from an RSS feed
// (Yahoo Finance publishes one per symbol)
type FeedProvider struct {
	baseURL string
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewFeedProvider creates new RSS headline provider
func NewFeedProvider(cfg *config.NewsConfig) *FeedProvider {
	return &FeedProvider{
		baseURL: cfg.FeedBaseURL,
		parser:  gofeed.NewParser(),
		timeout: cfg.Timeout,
	}
}

func (f *FeedProvider) GetName() string {
	return "rss"
}

// FetchHeadlines fetches up to limit headlines for the ticker
func (f *FeedProvider) FetchHeadlines(ctx context.Context, ticker string, limit int) ([]models.Headline, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	u := fmt.Sprintf("%s?s=%s&region=US&lang=en-US", f.baseURL, url.QueryEscape(ticker))

	feed, err := f.parser.ParseURLWithContext(u, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed for %s: %w", ticker, err)
	}

	headlines := make([]models.Headline, 0, limit)
	for _, item := range feed.Items {
		if item.Title == "" {
			continue
		}
		headlines = append(headlines, models.Headline{
			Ticker:    ticker,
			Text:      item.Title,
			SourceURL: item.Link,
		})
		if len(headlines) >= limit {
			break
		}
	}

	return headlines, nil
}
