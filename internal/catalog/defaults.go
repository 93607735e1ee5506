package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/model"
)

type seed struct {
	id       string
	name     string
	symbol   string
	baseline string
}

var indexSeeds = []seed{
	{"SP500", "S&P 500", "^GSPC", "4200"},
	{"NASDAQ", "Nasdaq Composite", "^IXIC", "13000"},
	{"DOW", "Dow Jones", "^DJI", "34000"},
	{"IBOVESPA", "Ibovespa", "^BVSP", "118000"},
	{"FTSE100", "FTSE 100", "^FTSE", "7600"},
	{"DAX", "DAX", "^GDAXI", "16000"},
	{"NIKKEI", "Nikkei 225", "^N225", "33800"},
	{"HANG_SENG", "Hang Seng", "^HSI", "17500"},
	{"CAC40", "CAC 40", "^FCHI", "7250"},
	{"TSX", "S&P/TSX Composite", "^GSPTSE", "20100"},
	{"ASX200", "S&P/ASX 200", "^AXJO", "7680"},
	{"SENSEX", "BSE Sensex", "^BSESN", "65500"},
	{"KOSPI", "KOSPI", "^KS11", "2580"},
	{"IBEX35", "IBEX 35", "^IBEX", "9850"},
	{"AEX", "AEX", "^AEX", "890"},
	{"SMI", "SMI", "^SSMI", "11200"},
	{"BOVESPA_SMALL", "Ibovespa Small Cap", "^BVSP", ""},
	{"MOEX", "MOEX Russia", "IMOEX.ME", ""},
	{"TAIEX", "TAIEX", "^TWII", ""},
}

var currencySeeds = []seed{
	{"USDBRL", "USD/BRL", "USD/BRL", "5.12"},
	{"EURUSD", "EUR/USD", "EUR/USD", "1.0875"},
	{"GBPUSD", "GBP/USD", "GBP/USD", "1.2645"},
	{"USDJPY", "USD/JPY", "USD/JPY", "148.75"},
	{"BTCUSD", "BTC/USD", "BTC/USD", "42500"},
	{"ETHUSD", "ETH/USD", "ETH/USD", "2650"},
	{"USDCAD", "USD/CAD", "USD/CAD", "1.345"},
	{"AUDUSD", "AUD/USD", "AUD/USD", "0.675"},
}

// DefaultIndices returns the built-in equity index list.
func DefaultIndices() []model.Instrument {
	return build(indexSeeds, model.CategoryIndex)
}

// DefaultCurrencies returns the built-in currency pair list.
func DefaultCurrencies() []model.Instrument {
	return build(currencySeeds, model.CategoryCurrency)
}

func build(seeds []seed, cat model.Category) []model.Instrument {
	out := make([]model.Instrument, 0, len(seeds))
	for _, s := range seeds {
		inst := model.Instrument{
			ID:       s.id,
			Name:     s.name,
			Symbol:   s.symbol,
			Category: cat,
		}
		if s.baseline != "" {
			inst.Baseline = decimal.RequireFromString(s.baseline)
		}
		out = append(out, withDefaults(inst))
	}
	return out
}
