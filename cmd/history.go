package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var historyCount int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent completed shortlists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runs, err := st.ListRecentCompleted(ctx, historyCount)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyCount, "count", historyLimit, "number of shortlists to show")
	rootCmd.AddCommand(historyCmd)
}
