// Package catalog holds the static set of tracked instruments.
//
// The catalog is built once at startup from built-in defaults plus optional
// configuration overrides and is read-only afterwards.
package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/model"
)

// Default synthetic perturbation widths.
const (
	DefaultIndexSpread    = 0.05
	DefaultCurrencySpread = 0.04
	FallbackBaseline      = 1000
)

// Entry describes one instrument in configuration form.
type Entry struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Symbol    string            `yaml:"symbol"`
	Symbols   map[string]string `yaml:"symbols"`
	Baseline  float64           `yaml:"baseline"`
	Spread    float64           `yaml:"spread"`
	Precision int32             `yaml:"precision"`
}

// Catalog is an immutable, ordered set of instruments.
type Catalog struct {
	indices    []model.Instrument
	currencies []model.Instrument
	byID       map[string]model.Instrument
}

// New builds a catalog. Override entries replace defaults with the same ID and
// append otherwise; a nil override slice keeps the defaults unchanged.
func New(indexOverrides, currencyOverrides []Entry) (*Catalog, error) {
	indices, err := merge(DefaultIndices(), indexOverrides, model.CategoryIndex)
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	currencies, err := merge(DefaultCurrencies(), currencyOverrides, model.CategoryCurrency)
	if err != nil {
		return nil, fmt.Errorf("currencies: %w", err)
	}

	byID := make(map[string]model.Instrument, len(indices)+len(currencies))
	for _, list := range [][]model.Instrument{indices, currencies} {
		for _, inst := range list {
			if _, dup := byID[inst.ID]; dup {
				return nil, fmt.Errorf("duplicate instrument id %q", inst.ID)
			}
			byID[inst.ID] = inst
		}
	}

	return &Catalog{indices: indices, currencies: currencies, byID: byID}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(nil, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Indices returns the tracked equity indices in catalog order.
func (c *Catalog) Indices() []model.Instrument {
	return append([]model.Instrument(nil), c.indices...)
}

// Currencies returns the tracked currency pairs in catalog order.
func (c *Catalog) Currencies() []model.Instrument {
	return append([]model.Instrument(nil), c.currencies...)
}

// Lookup returns the instrument with the given ID.
func (c *Catalog) Lookup(id string) (model.Instrument, bool) {
	inst, ok := c.byID[id]
	return inst, ok
}

// Len returns the number of tracked instruments.
func (c *Catalog) Len() int {
	return len(c.byID)
}

func merge(base []model.Instrument, overrides []Entry, cat model.Category) ([]model.Instrument, error) {
	out := append([]model.Instrument(nil), base...)
	pos := make(map[string]int, len(out))
	for i, inst := range out {
		pos[inst.ID] = i
	}

	for _, e := range overrides {
		if e.ID == "" {
			return nil, fmt.Errorf("entry with empty id")
		}
		inst := e.toInstrument(cat)
		if i, ok := pos[e.ID]; ok {
			out[i] = inherit(out[i], inst)
			continue
		}
		if inst.Symbol == "" {
			return nil, fmt.Errorf("instrument %q: symbol is required", e.ID)
		}
		pos[e.ID] = len(out)
		out = append(out, withDefaults(inst))
	}
	return out, nil
}

func (e Entry) toInstrument(cat model.Category) model.Instrument {
	inst := model.Instrument{
		ID:        e.ID,
		Name:      e.Name,
		Symbol:    e.Symbol,
		Category:  cat,
		Spread:    e.Spread,
		Precision: e.Precision,
	}
	if len(e.Symbols) > 0 {
		inst.Symbols = make(map[string]string, len(e.Symbols))
		for k, v := range e.Symbols {
			inst.Symbols[k] = v
		}
	}
	if e.Baseline > 0 {
		inst.Baseline = decimal.NewFromFloat(e.Baseline)
	}
	return inst
}

// inherit fills zero fields of an override from the instrument it replaces.
func inherit(old, inst model.Instrument) model.Instrument {
	if inst.Name == "" {
		inst.Name = old.Name
	}
	if inst.Symbol == "" {
		inst.Symbol = old.Symbol
	}
	if inst.Symbols == nil {
		inst.Symbols = old.Symbols
	}
	if inst.Baseline.IsZero() {
		inst.Baseline = old.Baseline
	}
	if inst.Spread == 0 {
		inst.Spread = old.Spread
	}
	if inst.Precision == 0 {
		inst.Precision = old.Precision
	}
	return inst
}

func withDefaults(inst model.Instrument) model.Instrument {
	if inst.Name == "" {
		inst.Name = inst.ID
	}
	if inst.Baseline.IsZero() {
		inst.Baseline = decimal.NewFromInt(FallbackBaseline)
	}
	if inst.Spread == 0 {
		if inst.Category == model.CategoryCurrency {
			inst.Spread = DefaultCurrencySpread
		} else {
			inst.Spread = DefaultIndexSpread
		}
	}
	if inst.Precision == 0 {
		if inst.Category == model.CategoryCurrency {
			inst.Precision = 4
		} else {
			inst.Precision = 2
		}
	}
	return inst
}
