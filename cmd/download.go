package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/fetcher"
	"github.com/sells-group/estimates-cli/internal/locator"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/runlog"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Probe the report source and download PDFs",
	Long:  "Walks dates from --end back to --start, trying each filename encoding once per date, and saves every report found.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("download"); err != nil {
			return err
		}
		flags, err := readRangeFlags(cmd)
		if err != nil {
			return err
		}

		return recordRun(cmd.Context(), "download", func(ctx context.Context) (*runlog.Result, error) {
			start, end, err := resolveRangeFromStore(ctx, cfg, flags)
			if err != nil {
				return nil, err
			}
			res, err := runDownload(ctx, cfg, start, end)
			if res == nil {
				return nil, err
			}
			printSummaries(cmd.OutOrStdout(), res.Summary)
			return &runlog.Result{
				Summaries: []model.Summary{res.Summary},
				Metadata:  map[string]any{"attempts": res.Attempts, "from": model.DateKey(res.End), "to": model.DateKey(res.Start)},
			}, err
		})
	},
}

// rangeFlags are the raw date flags of download and run.
type rangeFlags struct {
	Start     string
	End       string
	SinceLast bool
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "earliest date to probe (YYYY-MM-DD, default origin_date)")
	cmd.Flags().String("end", "", "latest date to probe (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("since-last", false, "start the day after the latest Report_Date already stored")
}

func readRangeFlags(cmd *cobra.Command) (rangeFlags, error) {
	var f rangeFlags
	var err error
	if f.Start, err = cmd.Flags().GetString("start"); err != nil {
		return f, err
	}
	if f.End, err = cmd.Flags().GetString("end"); err != nil {
		return f, err
	}
	if f.SinceLast, err = cmd.Flags().GetBool("since-last"); err != nil {
		return f, err
	}
	if f.SinceLast && f.Start != "" {
		return f, eris.New("--since-last and --start are mutually exclusive")
	}
	return f, nil
}

// lastDater reports the latest stored Report_Date of a table.
type lastDater interface {
	LastDate(ctx context.Context, key string) (time.Time, bool, error)
}

// resolveRange turns the flags into an inclusive [start, end] probing range.
func resolveRange(ctx context.Context, c *config.Config, st lastDater, f rangeFlags, now time.Time) (time.Time, time.Time, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	if f.End != "" {
		d, err := time.Parse(model.DateKeyLayout, f.End)
		if err != nil {
			return time.Time{}, time.Time{}, eris.Wrap(err, "parse --end")
		}
		end = d
	}

	start, err := time.Parse(model.DateKeyLayout, c.Locator.OriginDate)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrap(err, "parse locator.origin_date")
	}
	switch {
	case f.Start != "":
		if start, err = time.Parse(model.DateKeyLayout, f.Start); err != nil {
			return time.Time{}, time.Time{}, eris.Wrap(err, "parse --start")
		}
	case f.SinceLast && st != nil:
		last, ok, err := st.LastDate(ctx, c.Storage.EstimatesKey)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if ok {
			start = last.AddDate(0, 0, 1)
			zap.L().Info("resuming after last stored report", zap.String("last", model.DateKey(last)))
		}
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, eris.Errorf("start %s is after end %s", model.DateKey(start), model.DateKey(end))
	}
	return start, end, nil
}

func resolveRangeFromStore(ctx context.Context, c *config.Config, f rangeFlags) (time.Time, time.Time, error) {
	if !f.SinceLast {
		return resolveRange(ctx, c, nil, f, time.Now())
	}
	st, err := openStore(ctx, c)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	defer st.Close() //nolint:errcheck
	return resolveRange(ctx, c, st, f, time.Now())
}

// runDownload probes [start, end] and writes the manifest.
func runDownload(ctx context.Context, c *config.Config, start, end time.Time) (*locator.Result, error) {
	opts, err := locator.OptionsFromConfig(c.Locator)
	if err != nil {
		return nil, err
	}
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: c.Locator.UserAgent,
		Timeout:   time.Duration(c.Locator.TimeoutSecs) * time.Second,
		Delay:     time.Duration(c.Locator.DelayMs) * time.Millisecond,
	})

	res, err := locator.New(f, opts).Run(ctx, start, end)
	if res == nil {
		return nil, err
	}
	path, merr := locator.WriteManifest(opts.OutputDir, locator.NewManifest(res, time.Now()))
	if merr != nil {
		zap.L().Warn("could not write manifest", zap.Error(merr))
	} else {
		zap.L().Debug("manifest written", zap.String("path", path))
	}
	return res, err
}

func init() {
	addRangeFlags(downloadCmd)
	rootCmd.AddCommand(downloadCmd)
}
