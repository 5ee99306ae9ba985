package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/pdfdoc"
	"github.com/sells-group/estimates-cli/internal/runlog"
	"github.com/sells-group/estimates-cli/internal/selector"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Rasterize the bottom-up EPS chart page of each PDF",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("input-dir"); dir != "" {
			cfg.Locator.OutputDir = dir
		}

		return recordRun(cmd.Context(), "extract", func(ctx context.Context) (*runlog.Result, error) {
			res, err := runExtract(ctx, cfg)
			if res == nil {
				return nil, err
			}
			printSummaries(cmd.OutOrStdout(), res.Summary)
			return &runlog.Result{Summaries: []model.Summary{res.Summary}}, err
		})
	},
}

// runExtract selects and rasterizes the chart page of every PDF in the
// locator output directory.
func runExtract(ctx context.Context, c *config.Config) (*selector.Result, error) {
	raster, err := pdfdoc.NewRasterizer(c.Extract.Renderer, c.Extract.PdfToPPMPath)
	if err != nil {
		return nil, err
	}
	pdfs, err := selector.ListPDFs(c.Locator.OutputDir)
	if err != nil {
		return nil, err
	}
	return selector.New(pdfdoc.Open, raster, selector.OptionsFromConfig(c.Extract)).Run(ctx, pdfs)
}

func init() {
	extractCmd.Flags().String("input-dir", "", "directory of downloaded PDFs (default locator.output_dir)")
	rootCmd.AddCommand(extractCmd)
}
