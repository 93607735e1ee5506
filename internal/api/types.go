package api

// -----------------------------------------------------------------------------
// Alpha Vantage
// -----------------------------------------------------------------------------

// avNotice holds the fields Alpha Vantage uses to report errors and throttling
// inside an HTTP 200 response.
type avNotice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// GlobalQuoteResponse from function=GLOBAL_QUOTE
type GlobalQuoteResponse struct {
	avNotice
	Quote GlobalQuote `json:"Global Quote"`
}

// GlobalQuote is the quote payload of GLOBAL_QUOTE.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"` // e.g. "0.4512%"
}

// ExchangeRateResponse from function=CURRENCY_EXCHANGE_RATE
type ExchangeRateResponse struct {
	avNotice
	Rate ExchangeRate `json:"Realtime Currency Exchange Rate"`
}

// ExchangeRate is the payload of CURRENCY_EXCHANGE_RATE.
type ExchangeRate struct {
	FromCode      string `json:"1. From_Currency Code"`
	FromName      string `json:"2. From_Currency Name"`
	ToCode        string `json:"3. To_Currency Code"`
	ToName        string `json:"4. To_Currency Name"`
	Rate          string `json:"5. Exchange Rate"`
	LastRefreshed string `json:"6. Last Refreshed"` // "2006-01-02 15:04:05"
	TimeZone      string `json:"7. Time Zone"`
	Bid           string `json:"8. Bid Price"`
	Ask           string `json:"9. Ask Price"`
}

// MoversResponse from function=TOP_GAINERS_LOSERS
type MoversResponse struct {
	avNotice
	Metadata    string  `json:"metadata"`
	LastUpdated string  `json:"last_updated"`
	TopGainers  []Mover `json:"top_gainers"`
	TopLosers   []Mover `json:"top_losers"`
	MostActive  []Mover `json:"most_actively_traded"`
}

// Mover is one row of TOP_GAINERS_LOSERS.
type Mover struct {
	Ticker           string `json:"ticker"`
	Price            string `json:"price"`
	ChangeAmount     string `json:"change_amount"`
	ChangePercentage string `json:"change_percentage"` // e.g. "68.5714%"
	Volume           string `json:"volume"`
}

// -----------------------------------------------------------------------------
// Finnhub
// -----------------------------------------------------------------------------

// FinnhubQuote from GET /quote
type FinnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Time          int64   `json:"t"` // Unix seconds
}

// FinnhubNews is one element of GET /news
type FinnhubNews struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"` // Unix seconds
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}
