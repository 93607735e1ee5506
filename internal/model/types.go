package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// Category classifies a tracked instrument.
type Category string

const (
	CategoryIndex    Category = "index"
	CategoryCurrency Category = "currency"
)

// Instrument is a tracked market entity (equity index or currency pair).
type Instrument struct {
	ID        string            // Catalog key (e.g., "SP500", "USDBRL")
	Name      string            // Display name (e.g., "USD/BRL")
	Symbol    string            // Default upstream symbol (e.g., "^GSPC")
	Symbols   map[string]string // Per-provider symbol overrides, keyed by provider name
	Category  Category          // index or currency
	Baseline  decimal.Decimal   // Reference price used by the synthetic generator
	Spread    float64           // Full-width synthetic perturbation as a fraction of Baseline (0.05 = ±2.5%)
	Precision int32             // Decimal places for price and change
}

// SymbolFor returns the symbol a given provider knows this instrument by.
func (i Instrument) SymbolFor(provider string) string {
	if s, ok := i.Symbols[provider]; ok && s != "" {
		return s
	}
	return i.Symbol
}

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// Quote is a normalized price observation for one instrument.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Volume        int64           `json:"volume"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"` // Provider name or "synthetic"
}

// NewsItem is a single market headline.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"timestamp"`
}

// RankingEntry is one row of a gainers or losers table.
type RankingEntry struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	ChangePercent decimal.Decimal `json:"change"`
	Price         decimal.Decimal `json:"price"`
}

// RankingList holds the top movers of the session.
type RankingList struct {
	Gainers []RankingEntry `json:"gainers"`
	Losers  []RankingEntry `json:"losers"`
}

// Normalize returns a copy with gainers sorted by change descending, losers
// ascending, each capped at limit entries. A limit <= 0 disables the cap.
func (r RankingList) Normalize(limit int) RankingList {
	gainers := append([]RankingEntry(nil), r.Gainers...)
	losers := append([]RankingEntry(nil), r.Losers...)

	sort.SliceStable(gainers, func(i, j int) bool {
		return gainers[i].ChangePercent.GreaterThan(gainers[j].ChangePercent)
	})
	sort.SliceStable(losers, func(i, j int) bool {
		return losers[i].ChangePercent.LessThan(losers[j].ChangePercent)
	})

	if limit > 0 {
		if len(gainers) > limit {
			gainers = gainers[:limit]
		}
		if len(losers) > limit {
			losers = losers[:limit]
		}
	}

	return RankingList{Gainers: gainers, Losers: losers}
}

// HistoryPoint is one sample of a generated price series.
type HistoryPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    int64           `json:"volume"`
}

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// Snapshot is one consistent, fully assembled view of all tracked data.
// A Snapshot is never modified after it has been published.
type Snapshot struct {
	ID         string           `json:"id"`
	Indices    map[string]Quote `json:"indices"`
	Currencies map[string]Quote `json:"currencies"`
	News       []NewsItem       `json:"news"`
	Rankings   RankingList      `json:"rankings"`
	LastUpdate time.Time        `json:"lastUpdate"`
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.LastUpdate)
}

// FilterNews returns up to limit news items, optionally restricted to one category.
// A limit <= 0 returns every matching item.
func (s *Snapshot) FilterNews(category string, limit int) []NewsItem {
	out := make([]NewsItem, 0, len(s.News))
	for _, n := range s.News {
		if category != "" && n.Category != category {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
