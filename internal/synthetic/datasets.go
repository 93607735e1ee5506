package synthetic

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/model"
)

// newsSpacing separates consecutive placeholder headlines.
const newsSpacing = 2 * time.Hour

type headline struct {
	title    string
	summary  string
	source   string
	category string
}

var headlines = []headline{
	{
		title:    "Fed holds interest rates steady in latest decision",
		summary:  "The Federal Reserve kept rates at their current level, signalling caution on inflation...",
		source:   "Reuters",
		category: "monetary-policy",
	},
	{
		title:    "Tesla reports quarterly earnings above expectations",
		summary:  "The electric carmaker beat analyst estimates on strong vehicle demand...",
		source:   "Bloomberg",
		category: "earnings",
	},
	{
		title:    "Petrobras announces new dividend programme",
		summary:  "The Brazilian state oil company approved an extraordinary dividend distribution to shareholders...",
		source:   "Valor Econômico",
		category: "dividends",
	},
	{
		title:    "Asian markets close lower after China data",
		summary:  "Regional indices fell after Chinese economic indicators disappointed investors...",
		source:   "Financial Times",
		category: "markets",
	},
	{
		title:    "Bitcoin hits record high amid optimism",
		summary:  "The leading cryptocurrency set a new record in a volatile, high-volume session...",
		source:   "CoinDesk",
		category: "crypto",
	},
}

type mover struct {
	symbol string
	name   string
	change float64
	price  float64
}

var gainers = []mover{
	{"NVDA", "NVIDIA Corp", 8.45, 875.30},
	{"TSLA", "Tesla Inc", 6.12, 248.50},
	{"AMD", "Advanced Micro Devices", 5.87, 105.25},
	{"META", "Meta Platforms", 4.23, 485.75},
	{"GOOGL", "Alphabet Inc", 3.95, 138.90},
	{"AAPL", "Apple Inc", 3.12, 185.45},
	{"MSFT", "Microsoft Corp", 2.87, 375.20},
	{"AMZN", "Amazon.com Inc", 2.45, 145.80},
}

var losers = []mover{
	{"NFLX", "Netflix Inc", -4.56, 445.20},
	{"BABA", "Alibaba Group", -3.89, 78.95},
	{"PYPL", "PayPal Holdings", -3.12, 58.75},
	{"UBER", "Uber Technologies", -2.95, 52.30},
	{"SNAP", "Snap Inc", -2.78, 12.45},
	{"TWTR", "Twitter Inc", -2.45, 45.30},
	{"SPOT", "Spotify Technology", -2.12, 145.60},
	{"ZM", "Zoom Video", -1.98, 68.75},
}

// News returns the placeholder headlines, newest first, published 2h, 4h, ...
// before now. A limit <= 0 returns all of them.
func (g *Generator) News(limit int) []model.NewsItem {
	n := len(headlines)
	if limit > 0 && limit < n {
		n = limit
	}

	now := g.now().UTC()
	out := make([]model.NewsItem, 0, n)
	for i, h := range headlines[:n] {
		out = append(out, model.NewsItem{
			ID:          "synthetic-" + strconv.Itoa(i+1),
			Title:       h.title,
			Summary:     h.summary,
			Source:      h.source,
			Category:    h.category,
			PublishedAt: now.Add(-time.Duration(i+1) * newsSpacing),
		})
	}
	return out
}

// Rankings returns the placeholder movers with their change jittered by up to
// ±1 point and their price by up to ±1%, normalized and capped at limit.
func (g *Generator) Rankings(limit int) model.RankingList {
	list := model.RankingList{
		Gainers: g.jitter(gainers),
		Losers:  g.jitter(losers),
	}
	return list.Normalize(limit)
}

func (g *Generator) jitter(movers []mover) []model.RankingEntry {
	out := make([]model.RankingEntry, 0, len(movers))
	for _, m := range movers {
		change := m.change + g.centered()*2
		price := m.price + g.centered()*m.price*0.02
		out = append(out, model.RankingEntry{
			Symbol:        m.symbol,
			Name:          m.name,
			ChangePercent: decimal.NewFromFloat(change).Round(2),
			Price:         decimal.NewFromFloat(price).Round(2),
		})
	}
	return out
}
