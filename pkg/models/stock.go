package models

import "strings"

// Range identifies a supported chart time range
type Range string

const (
	RangeOneDay   Range = "1d"
	RangeFiveDay  Range = "5d"
	RangeOneMonth Range = "1mo"
	RangeOneYear  Range = "1y"
)

// ValidRange reports whether r is one of the supported chart ranges
func ValidRange(r Range) bool {
	switch r {
	case RangeOneDay, RangeFiveDay, RangeOneMonth, RangeOneYear:
		return true
	}
	return false
}

// NormalizeTicker uppercases and trims a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ChartPoint is a single point of a historical price series.
// Points the provider returned without a price are dropped upstream,
// never zero-filled.
type ChartPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// Fundamentals holds sparse summary statistics for a ticker.
// Every field is optional: nil means the provider did not return the
// metric, which is distinct from a legitimate zero value.
type Fundamentals struct {
	MarketCap      *float64 `json:"market_cap,omitempty"`
	PERatio        *float64 `json:"pe_ratio,omitempty"`
	ForwardPE      *float64 `json:"forward_pe,omitempty"`
	DividendYield  *float64 `json:"dividend_yield,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`
	AvgVolume      *float64 `json:"avg_volume,omitempty"`
	FiftyTwoWkHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWkLow  *float64 `json:"fifty_two_week_low,omitempty"`
	Beta           *float64 `json:"beta,omitempty"`
	PriceToBook    *float64 `json:"price_to_book,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	ProfitMargin   *float64 `json:"profit_margin,omitempty"`
}

// Snapshot is a point-in-time bundle of price and fundamental data
type Snapshot struct {
	Ticker        string       `json:"ticker"`
	Price         float64      `json:"price"`
	Change        float64      `json:"change"`
	PercentChange float64      `json:"percent_change"`
	Chart         []ChartPoint `json:"chart"`
	Fundamentals  Fundamentals `json:"fundamentals"`
}
