package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/shortlist-cli/internal/model"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the database, Anthropic, and search dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report := env.Checker.Check(ctx)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if report.Status == model.OverallUnhealthy {
			return eris.New("one or more dependencies are down")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
