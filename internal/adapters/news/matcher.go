package news

import "strings"

// Matcher assigns a scraped headline to a ticker. The heuristic is
// deliberately pluggable: the pipeline only depends on this one method,
// so the string matching can be swapped for a better classifier without
// touching the collection flow.
type Matcher interface {
	// Match returns the ticker a headline belongs to, if any
	Match(text string) (string, bool)
}

// defaultAliases maps the built-in ticker set to company-name aliases
// used for headline matching
var defaultAliases = map[string][]string{
	"AAPL":  {"apple", "iphone"},
	"MSFT":  {"microsoft", "azure"},
	"GOOGL": {"google", "alphabet"},
	"AMZN":  {"amazon", "aws"},
	"NVDA":  {"nvidia"},
	"META":  {"meta platforms", "facebook", "instagram"},
	"TSLA":  {"tesla"},
}

// DefaultTickers returns the built-in ticker set every analysis
// request includes
func DefaultTickers() []string {
	return []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA"}
}

// AliasMatcher matches headline text against ticker symbols and a
// static alias table. Tickers outside the default set get
// substring-only matching on the symbol itself.
type AliasMatcher struct {
	tickers []string
	aliases map[string][]string
}

// NewAliasMatcher creates a matcher for the given ticker set
func NewAliasMatcher(tickers []string) *AliasMatcher {
	aliases := make(map[string][]string, len(tickers))
	for _, t := range tickers {
		if known, ok := defaultAliases[t]; ok {
			aliases[t] = known
		}
	}
	return &AliasMatcher{tickers: tickers, aliases: aliases}
}

// Match returns the first ticker whose symbol or alias appears in text
func (m *AliasMatcher) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, ticker := range m.tickers {
		if containsSymbol(text, ticker) {
			return ticker, true
		}
		for _, alias := range m.aliases[ticker] {
			if strings.Contains(lower, alias) {
				return ticker, true
			}
		}
	}
	return "", false
}

// containsSymbol reports whether the uppercase symbol appears in text
// as a standalone token, so "A" does not match every headline
func containsSymbol(text, symbol string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], symbol)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(symbol)

		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordChar(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
