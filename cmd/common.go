package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/merge"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/runlog"
	"github.com/sells-group/estimates-cli/internal/store"
)

// openStore builds the tiered table store from config.
func openStore(ctx context.Context, c *config.Config) (*store.Tiered, error) {
	return store.NewFromConfig(ctx, c.Storage)
}

// recordRun executes fn inside a run log entry. A run log that cannot be
// opened is logged and skipped; fn's error is always returned.
func recordRun(ctx context.Context, command string, fn func(ctx context.Context) (*runlog.Result, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := zap.L().With(zap.String("command", command))

	rl, err := runlog.Open(ctx, cfg.Storage.RunLogPath)
	if err != nil {
		log.Warn("run log unavailable", zap.Error(err))
		_, err := fn(ctx)
		return err
	}
	defer rl.Close() //nolint:errcheck

	id, err := rl.Start(ctx, command)
	if err != nil {
		log.Warn("could not record run start", zap.Error(err))
		_, err := fn(ctx)
		return err
	}
	log = log.With(zap.String("run_id", id))

	result, runErr := fn(ctx)
	// Record with a fresh context so a cancelled run is still closed out.
	recCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := rl.Fail(recCtx, id, runErr.Error(), result); err != nil {
			log.Warn("could not record run failure", zap.Error(err))
		}
		log.Error("run failed", zap.Error(runErr))
		return runErr
	}
	if err := rl.Complete(recCtx, id, result); err != nil {
		log.Warn("could not record run completion", zap.Error(err))
	}
	log.Info("run complete")
	return nil
}

// printSummaries writes one line per stage summary.
func printSummaries(out io.Writer, summaries ...model.Summary) {
	if len(summaries) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tFOUND\tCACHED\tSKIPPED\tFAILED\tTOTAL")
	_, _ = fmt.Fprintln(w, "-----\t-----\t------\t-------\t------\t-----")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Stage, s.Found, s.Cached, s.Skipped, s.Failed, s.Total())
	}
	_ = w.Flush()

	for _, s := range summaries {
		zap.L().Info("stage summary",
			zap.String("stage", s.Stage),
			zap.Int("found", s.Found),
			zap.Int("cached", s.Cached),
			zap.Int("skipped", s.Skipped),
			zap.Int("failed", s.Failed),
		)
	}
}

// printPersist writes one line describing how the merged tables were stored.
func printPersist(out io.Writer, res *merge.Result) {
	switch {
	case !res.Persisted:
		_, _ = fmt.Fprintf(out, "tables unchanged (%d new rows)\n", res.NewRows)
	case res.Report.Complete():
		_, _ = fmt.Fprintf(out, "tables written to every tier (%d new rows)\n", res.NewRows)
	default:
		_, _ = fmt.Fprintf(out, "tables partially written (%d new rows), failed: %s\n", res.NewRows, strings.Join(res.Report.Failed(), ", "))
	}
}

// persistState summarizes the persistence recorded in run metadata.
func persistState(meta map[string]any) string {
	complete, ok := meta["persist_complete"].(bool)
	switch {
	case !ok:
		return "-"
	case complete:
		return "complete"
	default:
		return "partial"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
