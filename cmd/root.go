package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shortlist-cli",
	Short: "Vendor shortlist research pipeline",
	Long:  "Searches the web for vendors matching a business need, scrapes their sites, scores them against weighted requirements via Claude, and persists ranked shortlists.",
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
