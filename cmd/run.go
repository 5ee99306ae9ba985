package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/merge"
	"github.com/sells-group/estimates-cli/internal/runlog"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download, extract and digitize in one pass",
	Long:  "Runs download, extract and digitize in order, stopping at the first stage that cannot attempt its work.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDigitizeFlags(cmd, cfg)
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		flags, err := readRangeFlags(cmd)
		if err != nil {
			return err
		}

		return recordRun(cmd.Context(), "run", func(ctx context.Context) (*runlog.Result, error) {
			result := &runlog.Result{Metadata: map[string]any{}}
			var dg *merge.Result
			defer func() {
				printSummaries(cmd.OutOrStdout(), result.Summaries...)
				if dg != nil {
					printPersist(cmd.OutOrStdout(), dg)
				}
			}()

			start, end, err := resolveRangeFromStore(ctx, cfg, flags)
			if err != nil {
				return result, err
			}

			dl, err := runDownload(ctx, cfg, start, end)
			if dl != nil {
				result.Summaries = append(result.Summaries, dl.Summary)
				result.Metadata["attempts"] = dl.Attempts
			}
			if err != nil {
				return result, err
			}

			ex, err := runExtract(ctx, cfg)
			if ex != nil {
				result.Summaries = append(result.Summaries, ex.Summary)
			}
			if err != nil {
				return result, err
			}
			if ex.Summary.Produced() == 0 {
				zap.L().Warn("no chart images available; digitizing whatever is already on disk")
			}

			dg, err = runDigitize(ctx, cfg)
			if dg != nil {
				result.Summaries = append(result.Summaries, dg.Summary)
				for k, v := range digitizeMetadata(dg) {
					result.Metadata[k] = v
				}
			}
			return result, err
		})
	},
}

func init() {
	addRangeFlags(runCmd)
	addDigitizeFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
