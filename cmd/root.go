package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "estimates-cli",
	Short: "Bottom-up EPS estimate history builder",
	Long:  "Locates Earnings Insight reports, rasterizes their bottom-up EPS chart, digitizes the chart through an OCR service and merges the values into wide historical tables.",
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
