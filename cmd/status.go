package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/runlog"
	"github.com/sells-group/estimates-cli/internal/store"
	"github.com/sells-group/estimates-cli/internal/table"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and table state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		return runStatus(cmd.Context(), cfg, cmd.OutOrStdout(), limit)
	},
}

// runStatus writes the state of both tables followed by the run history.
func runStatus(ctx context.Context, c *config.Config, out io.Writer, limit int) error {
	st, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	tables, err := collectTableStatus(ctx, st, c.Storage.EstimatesKey, c.Storage.ConfidenceKey)
	if err != nil {
		return eris.Wrap(err, "status")
	}
	cloud := "disabled"
	if st.CloudEnabled() {
		cloud = st.Cloud.Name()
	}
	_, _ = fmt.Fprintf(out, "cloud tier: %s\n\n", cloud)
	formatTableStatus(out, tables)

	rl, err := runlog.Open(ctx, c.Storage.RunLogPath)
	if err != nil {
		return eris.Wrap(err, "status")
	}
	defer rl.Close() //nolint:errcheck

	entries, err := rl.List(ctx, limit)
	if err != nil {
		return eris.Wrap(err, "status")
	}
	if len(entries) == 0 {
		zap.L().Info("no runs recorded yet, run 'estimates-cli run' to start")
		return nil
	}
	_, _ = fmt.Fprintln(out)
	formatRunEntries(out, entries)
	return nil
}

// tableStatus describes one stored table.
type tableStatus struct {
	Key      string
	Source   store.Source
	StoredIn string
	Rows     int
	Columns  int
	LastDate string
}

type tableInspector interface {
	LoadTable(ctx context.Context, key string) (*table.Table, store.Source, error)
	Holders(ctx context.Context, key string) []store.Source
}

func collectTableStatus(ctx context.Context, st tableInspector, keys ...string) ([]tableStatus, error) {
	var out []tableStatus
	for _, key := range keys {
		tbl, src, err := st.LoadTable(ctx, key)
		if err != nil {
			return nil, err
		}
		ts := tableStatus{Key: key, Source: src, StoredIn: "-", Rows: tbl.Len(), Columns: len(tbl.Columns), LastDate: "-"}
		if holders := st.Holders(ctx, key); len(holders) > 0 {
			names := make([]string, len(holders))
			for i, h := range holders {
				names[i] = string(h)
			}
			ts.StoredIn = strings.Join(names, "+")
		}
		if d, ok := tbl.LastDate(); ok {
			ts.LastDate = model.DateKey(d)
		}
		out = append(out, ts)
	}
	return out, nil
}

func formatTableStatus(out io.Writer, tables []tableStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tSOURCE\tSTORED IN\tROWS\tQUARTERS\tLAST REPORT")
	_, _ = fmt.Fprintln(w, "-----\t------\t---------\t----\t--------\t-----------")
	for _, t := range tables {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", t.Key, t.Source, t.StoredIn, t.Rows, t.Columns, t.LastDate)
	}
	_ = w.Flush()
}

// formatRunEntries writes a tabular representation of run log entries to w.
func formatRunEntries(out io.Writer, entries []runlog.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tSTARTED\tDURATION\tFOUND\tSKIPPED\tFAILED\tPERSIST\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t-------\t--------\t-----\t-------\t------\t-------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.Duration().Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			shortID(e.ID),
			e.Command,
			e.Status,
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			dur,
			e.Found+e.Cached,
			e.Skipped,
			e.Failed,
			persistState(e.Metadata),
			truncate(e.Error, 60),
		)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	statusCmd.Flags().Int("limit", 20, "number of runs to show (0 = all)")
	rootCmd.AddCommand(statusCmd)
}
