package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/market-pulse/internal/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one aggregation pass and print it as JSON",
	Long: `Snapshot runs a single aggregation pass with the configured providers
and writes the resulting snapshot to stdout. Logs go to stderr.

Example:
  pulse snapshot --config configs/pulse.example.yaml --pretty`,
	RunE: runSnapshot,
}

var snapshotPretty bool

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().BoolVar(&snapshotPretty, "pretty", false, "indent JSON output")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg.Logging, os.Stderr)

	return writeSnapshot(cmd.Context(), cfg, logger, cmd.OutOrStdout(), snapshotPretty)
}

func writeSnapshot(ctx context.Context, cfg *config.Config, logger *slog.Logger, w io.Writer, pretty bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	snap, err := eng.coordinator.ForceRefresh(ctx)
	if err != nil {
		return fmt.Errorf("aggregation pass: %w", err)
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(snap)
}
