package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Market data aggregation, cache and broadcast service",
	Long: `Pulse aggregates index quotes, currency rates, market news and top movers
from rate-limited upstream providers, falls back to synthetic data when they
are unavailable, and serves one consistent snapshot over HTTP and WebSocket.

Without --config, defaults are used and provider keys are read from
ALPHA_VANTAGE_API_KEY and FINNHUB_API_KEY.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Prices are emitted as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}
