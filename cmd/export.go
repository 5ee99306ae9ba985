package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write both tables to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		return runExport(cmd.Context(), cfg, out)
	},
}

// runExport loads both tables cloud-first and writes them to path.
func runExport(ctx context.Context, c *config.Config, path string) error {
	st, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if !st.Exists(ctx, c.Storage.EstimatesKey) && !st.Exists(ctx, c.Storage.ConfidenceKey) {
		return eris.New("export: no stored tables, run digitize first")
	}

	est, _, err := st.LoadTable(ctx, c.Storage.EstimatesKey)
	if err != nil {
		return eris.Wrap(err, "export")
	}
	conf, _, err := st.LoadTable(ctx, c.Storage.ConfidenceKey)
	if err != nil {
		return eris.Wrap(err, "export")
	}
	if err := export.WriteFile(path, est, conf); err != nil {
		return err
	}
	zap.L().Info("workbook written",
		zap.String("path", path),
		zap.Int("estimates_rows", est.Len()),
		zap.Int("confidence_rows", conf.Len()),
	)
	return nil
}

func init() {
	exportCmd.Flags().StringP("output", "o", "output/estimates.xlsx", "workbook path")
	rootCmd.AddCommand(exportCmd)
}
