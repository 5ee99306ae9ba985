package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/digitizer"
	"github.com/sells-group/estimates-cli/internal/merge"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/ocr"
	"github.com/sells-group/estimates-cli/internal/runlog"
)

var digitizeCmd = &cobra.Command{
	Use:   "digitize",
	Short: "Digitize chart images and merge them into the historical tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDigitizeFlags(cmd, cfg)
		if err := cfg.Validate("digitize"); err != nil {
			return err
		}

		return recordRun(cmd.Context(), "digitize", func(ctx context.Context) (*runlog.Result, error) {
			res, err := runDigitize(ctx, cfg)
			if res == nil {
				return nil, err
			}
			printSummaries(cmd.OutOrStdout(), res.Summary)
			printPersist(cmd.OutOrStdout(), res)
			return &runlog.Result{
				Summaries: []model.Summary{res.Summary},
				Metadata:  digitizeMetadata(res),
			}, err
		})
	},
}

// digitizeMetadata records the outcome of a digitize pass for the run log.
func digitizeMetadata(res *merge.Result) map[string]any {
	meta := map[string]any{"new_rows": res.NewRows, "persisted": res.Persisted}
	if res.Persisted {
		meta["persist_complete"] = res.Report.Complete()
		if failed := res.Report.Failed(); len(failed) > 0 {
			meta["failed_tiers"] = failed
		}
	}
	return meta
}

func addDigitizeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "process at most this many images (0 = all)")
	cmd.Flags().Bool("multi", false, "read every configured preprocessing variant and reconcile")
	cmd.Flags().String("input-dir", "", "directory of chart images (default digitize.input_dir)")
}

func applyDigitizeFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("limit") {
		c.Digitize.Limit, _ = cmd.Flags().GetInt("limit")
	}
	if multi, _ := cmd.Flags().GetBool("multi"); multi {
		c.Digitize.MultiVariant = true
	}
	if dir, _ := cmd.Flags().GetString("input-dir"); dir != "" {
		c.Digitize.InputDir = dir
	}
}

// runDigitize digitizes the chart images and persists the merged tables.
func runDigitize(ctx context.Context, c *config.Config) (*merge.Result, error) {
	oracle, err := ocr.NewOracle(c.OCR)
	if err != nil {
		return nil, err
	}
	dig, err := digitizer.New(oracle, digitizer.OptionsFromConfig(c.Digitize))
	if err != nil {
		return nil, err
	}
	images, err := merge.ListImages(c.Digitize.InputDir, c.Digitize.Limit)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	return merge.New(dig, st, merge.OptionsFromConfig(c)).Run(ctx, images)
}

func init() {
	addDigitizeFlags(digitizeCmd)
	rootCmd.AddCommand(digitizeCmd)
}
