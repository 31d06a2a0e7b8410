package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := *cfg
		redacted.Anthropic.Key = redact(redacted.Anthropic.Key)
		redacted.Notion.Token = redact(redacted.Notion.Token)
		redacted.Search.SerpAPI.Key = redact(redacted.Search.SerpAPI.Key)
		redacted.Search.Brave.Key = redact(redacted.Search.Brave.Key)
		redacted.Search.GoogleCSE.Key = redact(redacted.Search.GoogleCSE.Key)

		out, err := yaml.Marshal(redacted)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[set]"
}

func init() {
	rootCmd.AddCommand(configCmd)
}
