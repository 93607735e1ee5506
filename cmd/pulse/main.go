package main

import (
	"os"

	"github.com/rickgao/market-pulse/cmd/pulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
