// Package model defines shared data types used across the market-pulse service.
//
// Conventions:
//   - Prices, changes and rates: decimal.Decimal (never float64 once normalized)
//   - Timestamps: time.Time in UTC
//   - Quotes, news items and snapshots are immutable once built; a new Snapshot
//     supersedes the old one instead of mutating it
package model
