package filings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// Forms ingested for retrieval. Other form types (8-K, proxies,
// ownership forms) carry little prose worth embedding.
var ingestForms = map[string]bool{
	"10-K": true,
	"10-Q": true,
}

// EdgarClient fetches company filings from the SEC EDGAR APIs.
// EDGAR requires a User-Agent identifying the caller on every request
// and rate limits at 10 req/s per agent.
type EdgarClient struct {
	baseURL   string // www host: archives, ticker mapping
	dataURL   string // data host: submissions API
	userAgent string
	client    *http.Client

	mu          sync.Mutex
	cikByTicker map[string]string
}

// EdgarConfig configures the EDGAR client
type EdgarConfig struct {
	BaseURL   string
	DataURL   string
	UserAgent string
	Timeout   time.Duration
}

// NewEdgarClient creates an EDGAR filings client
func NewEdgarClient(cfg EdgarConfig) *EdgarClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &EdgarClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		dataURL:   strings.TrimRight(cfg.DataURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// GetName returns the provider name
func (c *EdgarClient) GetName() string {
	return "edgar"
}

type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type submissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// ResolveCIK maps a ticker symbol to its zero-padded CIK number.
// The full ticker mapping is fetched once and held for the client's
// lifetime; it changes rarely enough that staleness is acceptable.
func (c *EdgarClient) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cikByTicker == nil {
		var entries map[string]tickerEntry
		if err := c.getJSON(ctx, c.baseURL+"/files/company_tickers.json", &entries); err != nil {
			return "", fmt.Errorf("fetch ticker mapping: %w", err)
		}

		c.cikByTicker = make(map[string]string, len(entries))
		for _, e := range entries {
			c.cikByTicker[strings.ToUpper(e.Ticker)] = fmt.Sprintf("%010d", e.CIK)
		}
	}

	cik, ok := c.cikByTicker[models.NormalizeTicker(ticker)]
	if !ok {
		return "", fmt.Errorf("no CIK found for ticker %s", ticker)
	}
	return cik, nil
}

// ListFilings returns the most recent 10-K and 10-Q filings for a
// ticker, newest first, up to max entries
func (c *EdgarClient) ListFilings(ctx context.Context, ticker string, max int) ([]models.Filing, error) {
	cik, err := c.ResolveCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var resp submissionsResponse
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch submissions for %s: %w", ticker, err)
	}

	recent := resp.Filings.Recent
	n := len(recent.AccessionNumber)

	var out []models.Filing
	for i := 0; i < n && len(out) < max; i++ {
		if i >= len(recent.Form) || !ingestForms[recent.Form[i]] {
			continue
		}
		if i >= len(recent.PrimaryDocument) || recent.PrimaryDocument[i] == "" {
			continue
		}

		accNo := recent.AccessionNumber[i]
		docURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
			c.baseURL, resp.CIK, strings.ReplaceAll(accNo, "-", ""), recent.PrimaryDocument[i])

		filedAt := time.Time{}
		if i < len(recent.FilingDate) {
			if t, err := time.Parse("2006-01-02", recent.FilingDate[i]); err == nil {
				filedAt = t
			}
		}

		out = append(out, models.Filing{
			Ticker:      models.NormalizeTicker(ticker),
			CIK:         resp.CIK,
			AccessionNo: accNo,
			FormType:    recent.Form[i],
			FiledAt:     filedAt,
			DocumentURL: docURL,
		})
	}

	logger.Debug("listed filings",
		zap.String("ticker", ticker),
		zap.Int("count", len(out)),
	)

	return out, nil
}

// FetchDocument downloads the primary document of a filing and returns
// its raw content. Filing documents are HTML; the caller strips markup.
func (c *EdgarClient) FetchDocument(ctx context.Context, filing models.Filing) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, filing.DocumentURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document %s: %w", filing.AccessionNo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch document %s: status %d", filing.AccessionNo, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", filing.AccessionNo, err)
	}

	return string(body), nil
}

func (c *EdgarClient) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
