// Package api provides REST clients for the upstream market data providers.
//
// Alpha Vantage (https://www.alphavantage.co/query):
//   - GLOBAL_QUOTE: index and equity quotes
//   - CURRENCY_EXCHANGE_RATE: currency pairs
//   - TOP_GAINERS_LOSERS: session movers
//
// Finnhub (https://finnhub.io/api/v1):
//   - /quote: index and equity quotes
//   - /news: market headlines
//
// Both providers authenticate with an API key passed as a query parameter.
// Alpha Vantage reports throttling and bad symbols inside a 200 response, so
// callers must treat ErrThrottled and ErrNoData as provider failures.
package api
