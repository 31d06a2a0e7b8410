package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/shortlist-cli/internal/model"
)

var (
	runNeed     string
	runReqsPath string
	runSuggest  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a shortlist search for a business need",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		if runNeed == "" {
			return eris.New("--need is required")
		}
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if runSuggest {
			names, err := env.Analyzer.SuggestVendors(ctx, runNeed)
			if err != nil {
				return err
			}
			if len(names) > 0 {
				zap.L().Info("suggested vendors", zap.Strings("names", names))
			}
		}

		reqs, err := loadRequirements(runReqsPath)
		if err != nil {
			return err
		}

		run, err := env.Orchestrator.Run(ctx, runNeed, reqs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// loadRequirements reads weighted requirements from a YAML or JSON file.
func loadRequirements(path string) ([]model.Requirement, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read requirements file")
	}
	var reqs []model.Requirement
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		return nil, eris.Wrap(err, "parse requirements file")
	}
	for i := range reqs {
		if reqs[i].ID == "" {
			reqs[i].ID = uuid.New().String()
		}
		if reqs[i].Priority == "" {
			reqs[i].Priority = model.PriorityNiceToHave
		}
	}
	return reqs, nil
}

func init() {
	runCmd.Flags().StringVar(&runNeed, "need", "", "business need to research (required)")
	runCmd.Flags().StringVar(&runReqsPath, "requirements", "", "path to a YAML or JSON requirements file")
	runCmd.Flags().BoolVar(&runSuggest, "suggest", false, "log suggested vendor names before searching")
	rootCmd.AddCommand(runCmd)
}
