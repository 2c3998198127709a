package pipeline

import (
	"testing"

	"github.com/finpulse/finpulse/pkg/models"
)

func entry(ticker string, score float64) models.TickerSentiment {
	s := score
	return models.TickerSentiment{Ticker: ticker, MeanScore: &s}
}

func sentinelEntry(ticker string) models.TickerSentiment {
	return models.TickerSentiment{Ticker: ticker}
}

func tickersOf(entries []models.TickerSentiment) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Ticker
	}
	return out
}

func TestRank_ExplicitAlwaysRetained(t *testing.T) {
	entries := []models.TickerSentiment{
		entry("AAPL", 0.9),
		entry("MSFT", 0.8),
		entry("GOOGL", 0.7),
		entry("NFLX", -0.9), // explicit, ranked last by score
	}

	got := Rank(entries, map[string]bool{"NFLX": true}, 3)

	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Ticker != "NFLX" {
		t.Errorf("explicit ticker must come first, got %s", got[0].Ticker)
	}
	// Remainder slots hold the best-ranked others
	if got[1].Ticker != "AAPL" || got[2].Ticker != "MSFT" {
		t.Errorf("unexpected remainder order: %v", tickersOf(got))
	}
}

func TestRank_NeverExceedsCap(t *testing.T) {
	entries := []models.TickerSentiment{
		entry("A", 0.1), entry("B", 0.2), entry("C", 0.3),
		entry("D", 0.4), entry("E", 0.5),
	}

	for _, capacity := range []int{1, 2, 3, 10} {
		got := Rank(entries, nil, capacity)
		want := capacity
		if want > len(entries) {
			want = len(entries)
		}
		if len(got) != want {
			t.Errorf("cap %d: expected %d entries, got %d", capacity, want, len(got))
		}
	}
}

func TestRank_ExplicitExceedsCap(t *testing.T) {
	entries := []models.TickerSentiment{
		entry("A", 0.1),
		entry("B", 0.2),
		entry("C", 0.9),
	}
	explicit := map[string]bool{"A": true, "B": true}

	got := Rank(entries, explicit, 2)

	// All explicit entries kept, no remainder
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for _, e := range got {
		if !explicit[e.Ticker] {
			t.Errorf("non-explicit ticker %s must not fill slots when explicit set meets the cap", e.Ticker)
		}
	}
	// Explicit entries internally sorted by score
	if got[0].Ticker != "B" || got[1].Ticker != "A" {
		t.Errorf("explicit entries should be score-sorted, got %v", tickersOf(got))
	}
}

func TestRank_SortsDescending(t *testing.T) {
	entries := []models.TickerSentiment{
		entry("LOW", -0.5),
		entry("HIGH", 0.8),
		entry("MID", 0.1),
	}

	got := Rank(entries, nil, 10)
	want := []string{"HIGH", "MID", "LOW"}
	for i, w := range want {
		if got[i].Ticker != w {
			t.Fatalf("expected order %v, got %v", want, tickersOf(got))
		}
	}
}

func TestRank_SentinelRanksBelowScored(t *testing.T) {
	entries := []models.TickerSentiment{
		sentinelEntry("NODATA"),
		entry("NEG", -0.95),
	}

	got := Rank(entries, nil, 10)
	if got[0].Ticker != "NEG" {
		t.Error("an entry without sentiment data must rank below every scored entry")
	}
	if got[1].MeanScore != nil {
		t.Error("sentinel entry must keep nil mean score")
	}
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	entries := []models.TickerSentiment{
		entry("FIRST", 0.5),
		entry("SECOND", 0.5),
		entry("THIRD", 0.5),
	}

	got := Rank(entries, nil, 10)
	want := []string{"FIRST", "SECOND", "THIRD"}
	for i, w := range want {
		if got[i].Ticker != w {
			t.Fatalf("tie order not stable: %v", tickersOf(got))
		}
	}
}
