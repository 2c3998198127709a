package models

// Headline is a single news headline attributed to a ticker.
// Synthetic headlines are placeholders generated when no source
// produced real news for a ticker; they carry no sentiment signal.
type Headline struct {
	Ticker    string `json:"ticker"`
	Text      string `json:"text"`
	SourceURL string `json:"source_url,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// ScoredHeadline is a headline with a validated sentiment score in [-1.0, 1.0]
type ScoredHeadline struct {
	Headline
	Score float64 `json:"sentiment_score"`
}

// TickerSentiment aggregates everything known about one ticker for a
// single analysis request. MeanScore is nil when no headline was scored
// ("insufficient data"), which is distinct from a genuine 0.0 mean where
// positive and negative headlines cancel out.
type TickerSentiment struct {
	Ticker          string           `json:"ticker"`
	Headlines       []Headline       `json:"headlines"`
	ScoredHeadlines []ScoredHeadline `json:"scored_headlines"`
	MeanScore       *float64         `json:"mean_score,omitempty"`
	Snapshot        *Snapshot        `json:"snapshot,omitempty"`
}

// SortScore returns the score used for ranking. Entries without
// sentiment data rank below every scored entry.
func (ts *TickerSentiment) SortScore() float64 {
	if ts.MeanScore == nil {
		return -2.0
	}
	return *ts.MeanScore
}
