package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/model"
	notionpkg "github.com/sells-group/shortlist-cli/pkg/notion"
)

var (
	exportRunID  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a completed shortlist to xlsx or Notion",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		if exportRunID == "" {
			return eris.New("--run is required")
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, exportRunID)
		if err != nil {
			return err
		}
		if run == nil {
			return eris.Errorf("shortlist %s not found", exportRunID)
		}
		if len(run.Vendors) == 0 {
			return eris.Errorf("shortlist %s has no vendors to export", exportRunID)
		}

		switch exportFormat {
		case "xlsx":
			return exportXLSX(run, exportOut)
		case "notion":
			return exportNotion(cmd, run)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
	},
}

func exportXLSX(run *model.ShortlistRun, path string) error {
	if path == "" {
		path = "shortlist.xlsx"
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Vendors")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"Name", "Website", "Description", "Price Range",
		"Pricing Model", "Currency", "Overall Score", "Requirement Match", "Key Features", "Risks"} {
		header.AddCell().SetString(col)
	}

	for _, v := range run.Vendors {
		row := sheet.AddRow()
		row.AddCell().SetString(v.Name)
		row.AddCell().SetString(v.Website)
		row.AddCell().SetString(v.Description)
		row.AddCell().SetString(v.PriceRange)
		row.AddCell().SetString(v.PricingModel)
		row.AddCell().SetString(v.Currency)
		row.AddCell().SetFloat(v.OverallScore)
		row.AddCell().SetFloat(v.RequirementMatch)
		row.AddCell().SetString(strings.Join(v.KeyFeatures, ", "))
		row.AddCell().SetString(strings.Join(v.Risks, ", "))
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "save xlsx")
	}
	zap.L().Info("shortlist exported", zap.String("path", path), zap.Int("vendors", len(run.Vendors)))
	return nil
}

func exportNotion(cmd *cobra.Command, run *model.ShortlistRun) error {
	if cfg.Notion.Token == "" || cfg.Notion.VendorDB == "" {
		return eris.New("notion.token and notion.vendor_db are required for notion export")
	}

	client := notionpkg.NewClient(cfg.Notion.Token)
	for _, v := range run.Vendors {
		if _, err := notionpkg.ExportVendor(cmd.Context(), client, cfg.Notion.VendorDB, v); err != nil {
			return eris.Wrapf(err, "export vendor %s", v.Name)
		}
	}
	zap.L().Info("shortlist exported to notion", zap.Int("vendors", len(run.Vendors)))
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "shortlist run ID to export (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "export format: xlsx or notion")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path for xlsx export")
	rootCmd.AddCommand(exportCmd)
}
