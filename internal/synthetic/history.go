package synthetic

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/model"
)

// Timeframe names a history window.
type Timeframe string

const (
	Timeframe1D Timeframe = "1D"
	Timeframe1W Timeframe = "1W"
	Timeframe1M Timeframe = "1M"
	Timeframe3M Timeframe = "3M"
	Timeframe1Y Timeframe = "1Y"
)

// DefaultTimeframe is used when none is requested.
const DefaultTimeframe = Timeframe1D

const (
	historyStep  = 0.03 // full-width step, ±1.5% of base
	historyFloor = 0.7  // fraction of base the series never drops below
	maxHistVol   = 10_000_000
)

type timeframeSpec struct {
	points   int
	interval time.Duration
}

var timeframes = map[Timeframe]timeframeSpec{
	Timeframe1D: {points: 24, interval: time.Hour},
	Timeframe1W: {points: 7, interval: 24 * time.Hour},
	Timeframe1M: {points: 30, interval: 24 * time.Hour},
	Timeframe3M: {points: 90, interval: 24 * time.Hour},
	Timeframe1Y: {points: 365, interval: 24 * time.Hour},
}

// ParseTimeframe normalizes s. An empty string yields DefaultTimeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return DefaultTimeframe, nil
	}
	tf := Timeframe(strings.ToUpper(s))
	if _, ok := timeframes[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Points returns the number of samples in the timeframe.
func (tf Timeframe) Points() int {
	return timeframes[tf].points
}

// History generates a random walk of prices around base, oldest first, ending
// one interval before now. Unknown timeframes fall back to 1D; a non-positive
// base falls back to 1000.
func (g *Generator) History(base decimal.Decimal, tf Timeframe) []model.HistoryPoint {
	spec, ok := timeframes[tf]
	if !ok {
		spec = timeframes[DefaultTimeframe]
	}
	if !base.IsPositive() {
		base = decimal.NewFromInt(1000)
	}

	b := base.InexactFloat64()
	floor := b * historyFloor
	price := b
	now := g.now().UTC()

	out := make([]model.HistoryPoint, 0, spec.points)
	for i := 0; i < spec.points; i++ {
		price = max(price+g.centered()*b*historyStep, floor)
		out = append(out, model.HistoryPoint{
			Timestamp: now.Add(-time.Duration(spec.points-i) * spec.interval),
			Price:     decimal.NewFromFloat(price).Round(2),
			Volume:    g.intN(maxHistVol),
		})
	}
	return out
}
