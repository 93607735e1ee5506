package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/market-pulse/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pulse", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
