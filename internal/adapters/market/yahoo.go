package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
	"github.com/finpulse/finpulse/pkg/retry"
)

const summaryModules = "summaryDetail,defaultKeyStatistics,financialData"

// YahooProvider fetches quotes, chart series and fundamentals from the
// Yahoo Finance query API (no API key needed)
type YahooProvider struct {
	baseURL string
	client  *http.Client
	retry   retry.Config
}

// NewYahooProvider creates new Yahoo Finance market data provider
func NewYahooProvider(cfg *config.MarketDataConfig) *YahooProvider {
	return &YahooProvider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry: retry.Config{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryDelay,
		},
	}
}

func (y *YahooProvider) GetName() string {
	return "yahoo"
}

// Fetch retrieves the snapshot for ticker. The chart call carries the
// quote and is mandatory; the fundamentals call is best-effort and its
// failure leaves the fundamentals fields absent.
func (y *YahooProvider) Fetch(ctx context.Context, ticker string, rng models.Range) (*models.Snapshot, error) {
	var snap *models.Snapshot

	err := retry.Do(ctx, y.retry, "market chart "+ticker, func(ctx context.Context) error {
		s, err := y.fetchChart(ctx, ticker, rng)
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		logger.Warn("market data unavailable for ticker",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
		return nil, nil
	}

	if err := retry.Do(ctx, y.retry, "market summary "+ticker, func(ctx context.Context) error {
		return y.fetchSummary(ctx, ticker, snap)
	}); err != nil {
		// Snapshot without fundamentals is still useful
		logger.Warn("fundamentals unavailable for ticker",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
	}

	return snap, nil
}

// rangeParams maps a chart range to the Yahoo range/interval pair,
// finer resolution for shorter ranges
func rangeParams(rng models.Range) (string, string) {
	switch rng {
	case models.RangeOneDay:
		return "1d", "5m"
	case models.RangeFiveDay:
		return "5d", "15m"
	case models.RangeOneMonth:
		return "1mo", "1d"
	case models.RangeOneYear:
		return "1y", "1wk"
	default:
		return "1d", "5m"
	}
}

func (y *YahooProvider) fetchChart(ctx context.Context, ticker string, rng models.Range) (*models.Snapshot, error) {
	yfRange, interval := rangeParams(rng)

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		y.baseURL, url.PathEscape(ticker), yfRange, interval)

	var result struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					ChartPreviousClose float64 `json:"chartPreviousClose"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}

	if err := y.getJSON(ctx, u, &result); err != nil {
		return nil, err
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", ticker)
	}

	r := result.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	prevClose := r.Meta.ChartPreviousClose

	change := price - prevClose
	percentChange := 0.0
	if prevClose != 0 {
		percentChange = change / prevClose * 100
	}

	snap := &models.Snapshot{
		Ticker:        ticker,
		Price:         price,
		Change:        change,
		PercentChange: percentChange,
	}

	// Entries with a missing close are dropped entirely, never
	// interpolated or zero-filled
	if len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i, ts := range r.Timestamp {
			if i >= len(closes) || closes[i] == nil {
				continue
			}
			snap.Chart = append(snap.Chart, models.ChartPoint{
				Timestamp: ts,
				Price:     *closes[i],
			})
		}
	}

	return snap, nil
}

// yfValue is Yahoo's {"raw": n, "fmt": "..."} number wrapper. A missing
// module field unmarshals to a nil Raw, which stays nil in the snapshot.
type yfValue struct {
	Raw *float64 `json:"raw"`
}

func (y *YahooProvider) fetchSummary(ctx context.Context, ticker string, snap *models.Snapshot) error {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(ticker), summaryModules)

	var result struct {
		QuoteSummary struct {
			Result []struct {
				SummaryDetail struct {
					MarketCap        yfValue `json:"marketCap"`
					TrailingPE       yfValue `json:"trailingPE"`
					ForwardPE        yfValue `json:"forwardPE"`
					DividendYield    yfValue `json:"dividendYield"`
					Volume           yfValue `json:"volume"`
					AverageVolume    yfValue `json:"averageVolume"`
					FiftyTwoWeekHigh yfValue `json:"fiftyTwoWeekHigh"`
					FiftyTwoWeekLow  yfValue `json:"fiftyTwoWeekLow"`
					Beta             yfValue `json:"beta"`
				} `json:"summaryDetail"`
				DefaultKeyStatistics struct {
					PriceToBook yfValue `json:"priceToBook"`
				} `json:"defaultKeyStatistics"`
				FinancialData struct {
					EarningsGrowth yfValue `json:"earningsGrowth"`
					RevenueGrowth  yfValue `json:"revenueGrowth"`
					ProfitMargins  yfValue `json:"profitMargins"`
				} `json:"financialData"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"quoteSummary"`
	}

	if err := y.getJSON(ctx, u, &result); err != nil {
		return err
	}
	if result.QuoteSummary.Error != nil {
		return fmt.Errorf("quoteSummary API error: %s", result.QuoteSummary.Error.Description)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return fmt.Errorf("no summary data for %s", ticker)
	}

	r := result.QuoteSummary.Result[0]
	snap.Fundamentals = models.Fundamentals{
		MarketCap:      r.SummaryDetail.MarketCap.Raw,
		PERatio:        r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:      r.SummaryDetail.ForwardPE.Raw,
		DividendYield:  r.SummaryDetail.DividendYield.Raw,
		Volume:         r.SummaryDetail.Volume.Raw,
		AvgVolume:      r.SummaryDetail.AverageVolume.Raw,
		FiftyTwoWkHigh: r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		FiftyTwoWkLow:  r.SummaryDetail.FiftyTwoWeekLow.Raw,
		Beta:           r.SummaryDetail.Beta.Raw,
		PriceToBook:    r.DefaultKeyStatistics.PriceToBook.Raw,
		EarningsGrowth: r.FinancialData.EarningsGrowth.Raw,
		RevenueGrowth:  r.FinancialData.RevenueGrowth.Raw,
		ProfitMargin:   r.FinancialData.ProfitMargins.Raw,
	}

	return nil
}

func (y *YahooProvider) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; finpulse/1.0)")

	start := time.Now()
	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	logger.Debug("market data request",
		zap.String("url", u),
		zap.Duration("latency", time.Since(start)),
	)

	return nil
}
