package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/model"
)

// Provider names, used as quote sources and rate-budget keys.
const (
	SourceAlphaVantage = "alphavantage"
	SourceFinnhub      = "finnhub"
)

// summaryLimit is the number of runes kept from a news summary.
const summaryLimit = 150

var hundred = decimal.NewFromInt(100)

// ParseDecimal parses a provider number, tolerating surrounding whitespace and
// a trailing percent sign. "0.4512%" -> 0.4512
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	return decimal.NewFromString(s)
}

// parseVolume returns 0 for empty or invalid input.
func parseVolume(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// QuoteFromGlobal converts a GLOBAL_QUOTE payload.
func QuoteFromGlobal(gq GlobalQuote, now time.Time) (model.Quote, error) {
	if gq.Symbol == "" || gq.Price == "" {
		return model.Quote{}, ErrNoData
	}

	price, err := ParseDecimal(gq.Price)
	if err != nil {
		return model.Quote{}, fmt.Errorf("price: %w", err)
	}
	change, err := ParseDecimal(gq.Change)
	if err != nil {
		return model.Quote{}, fmt.Errorf("change: %w", err)
	}
	pct, err := ParseDecimal(gq.ChangePercent)
	if err != nil {
		return model.Quote{}, fmt.Errorf("change percent: %w", err)
	}

	return model.Quote{
		Symbol:        gq.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: pct.Round(2),
		Volume:        parseVolume(gq.Volume),
		Timestamp:     now.UTC(),
		Source:        SourceAlphaVantage,
	}, nil
}

// QuoteFromExchangeRate converts a CURRENCY_EXCHANGE_RATE payload. The
// endpoint carries no previous close, so change is reported as zero.
func QuoteFromExchangeRate(er ExchangeRate, now time.Time) (model.Quote, error) {
	if er.Rate == "" {
		return model.Quote{}, ErrNoData
	}
	rate, err := ParseDecimal(er.Rate)
	if err != nil {
		return model.Quote{}, fmt.Errorf("rate: %w", err)
	}
	if !rate.IsPositive() {
		return model.Quote{}, ErrNoData
	}

	return model.Quote{
		Symbol:        er.FromCode + "/" + er.ToCode,
		Price:         rate,
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		Timestamp:     now.UTC(),
		Source:        SourceAlphaVantage,
	}, nil
}

// RankingFromMover converts one TOP_GAINERS_LOSERS row. The endpoint has no
// company names, so the ticker doubles as the name.
func RankingFromMover(m Mover) (model.RankingEntry, error) {
	price, err := ParseDecimal(m.Price)
	if err != nil {
		return model.RankingEntry{}, fmt.Errorf("price: %w", err)
	}
	pct, err := ParseDecimal(m.ChangePercentage)
	if err != nil {
		return model.RankingEntry{}, fmt.Errorf("change percentage: %w", err)
	}
	return model.RankingEntry{
		Symbol:        m.Ticker,
		Name:          m.Ticker,
		ChangePercent: pct.Round(2),
		Price:         price,
	}, nil
}

// QuoteFromFinnhub converts a /quote payload. Finnhub answers unknown symbols
// with an all-zero body, reported here as ErrNoData.
//
//	change        = c - pc
//	changePercent = change / pc * 100
func QuoteFromFinnhub(symbol string, fq FinnhubQuote, now time.Time) (model.Quote, error) {
	if fq.Current == 0 {
		return model.Quote{}, ErrNoData
	}

	price := decimal.NewFromFloat(fq.Current)
	prev := decimal.NewFromFloat(fq.PreviousClose)
	change := price.Sub(prev)

	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(hundred).Round(2)
	}

	return model.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: pct,
		Timestamp:     now.UTC(),
		Source:        SourceFinnhub,
	}, nil
}

// NewsFromFinnhub converts one /news element.
func NewsFromFinnhub(n FinnhubNews) model.NewsItem {
	return model.NewsItem{
		ID:          strconv.FormatInt(n.ID, 10),
		Title:       n.Headline,
		Summary:     truncate(n.Summary, summaryLimit),
		Source:      n.Source,
		URL:         n.URL,
		Category:    n.Category,
		PublishedAt: time.Unix(n.Datetime, 0).UTC(),
	}
}

// truncate cuts s to limit runes and marks the cut with "...".
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}
