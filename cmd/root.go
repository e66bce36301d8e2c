package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "route-planner",
	Short: "Delivery route planner for nursery orders",
	Long:  "Resolves order-sheet customers to postal addresses, geocodes them, asks OSRM for the best open trip from the depot and writes the loading list, run summary and route documents.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
