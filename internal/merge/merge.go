// Package merge digitizes a batch of chart images and folds the resulting
// rows into the stored estimates and confidence tables.
package merge

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/digitizer"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/store"
	"github.com/sells-group/estimates-cli/internal/table"
)

// Digitizer reads one chart image.
type Digitizer interface {
	Digitize(ctx context.Context, imagePath string) (*digitizer.Output, error)
}

// TableStore loads and persists the two tables.
type TableStore interface {
	LoadTable(ctx context.Context, key string) (*table.Table, store.Source, error)
	Persist(ctx context.Context, estimatesKey string, estimates *table.Table, confidenceKey string, confidence *table.Table) (store.PersistReport, error)
}

// Options configures an Engine.
type Options struct {
	EstimatesKey  string
	ConfidenceKey string
	Limit         int
}

// OptionsFromConfig builds Options from config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		EstimatesKey:  cfg.Storage.EstimatesKey,
		ConfidenceKey: cfg.Storage.ConfidenceKey,
		Limit:         cfg.Digitize.Limit,
	}
}

// Engine runs merge passes.
type Engine struct {
	dig   Digitizer
	store TableStore
	opts  Options
}

// New creates an Engine.
func New(dig Digitizer, st TableStore, opts Options) *Engine {
	return &Engine{dig: dig, store: st, opts: opts}
}

// MergeBatch carries the stored tables and the rows accumulated in one pass.
// Both tables always advance together.
type MergeBatch struct {
	Estimates        *table.Table
	Confidence       *table.Table
	EstimatesSource  store.Source
	ConfidenceSource store.Source
	New              *table.Batch
}

// Merged applies the keep-last merge rule to both tables.
func (b *MergeBatch) Merged() (estimates, confidence *table.Table) {
	return table.Merge(b.Estimates, b.New.Estimates), table.Merge(b.Confidence, b.New.Confidence)
}

// Load reads both stored tables, cloud-first.
func (e *Engine) Load(ctx context.Context) (*MergeBatch, error) {
	est, estSrc, err := e.store.LoadTable(ctx, e.opts.EstimatesKey)
	if err != nil {
		return nil, eris.Wrap(err, "merge: load estimates")
	}
	conf, confSrc, err := e.store.LoadTable(ctx, e.opts.ConfidenceKey)
	if err != nil {
		return nil, eris.Wrap(err, "merge: load confidence")
	}
	zap.L().Info("merge: tables loaded",
		zap.Int("estimates_rows", est.Len()),
		zap.String("estimates_source", string(estSrc)),
		zap.Int("confidence_rows", conf.Len()),
		zap.String("confidence_source", string(confSrc)),
	)
	return &MergeBatch{
		Estimates:        est,
		Confidence:       conf,
		EstimatesSource:  estSrc,
		ConfidenceSource: confSrc,
		New:              table.NewBatch(),
	}, nil
}

// Result reports one merge pass.
type Result struct {
	Summary    model.Summary
	NewRows    int
	Estimates  *table.Table
	Confidence *table.Table
	Persisted  bool
	Report     store.PersistReport
}

// Run digitizes imagePaths in order and persists the merged tables. A fatal
// digitizer error or cancellation stops the pass before anything is written.
// The returned error is also non-nil when either table reached no tier.
func (e *Engine) Run(ctx context.Context, imagePaths []string) (*Result, error) {
	log := zap.L().With(zap.String("component", "merge"))
	res := &Result{Summary: model.Summary{Stage: "digitize"}}

	batch, err := e.Load(ctx)
	if err != nil {
		return res, err
	}

	for i, path := range imagePaths {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "merge: cancelled")
		}
		out, err := e.dig.Digitize(ctx, path)
		if err != nil {
			log.Error("merge: aborting pass, nothing persisted",
				zap.String("image", filepath.Base(path)),
				zap.Int("processed", i),
				zap.Int("remaining", len(imagePaths)-i),
				zap.Error(err),
			)
			return res, err
		}
		res.Summary.Add(out.Item)
		if len(out.Observations) > 0 && batch.New.Add(model.DateKey(out.ReportDate), out.Observations) {
			res.NewRows++
		}
	}

	res.Estimates, res.Confidence = batch.Merged()
	if res.NewRows == 0 {
		log.Info("merge: no new rows, tables unchanged", zap.Int("images", len(imagePaths)))
		return res, nil
	}

	rep, err := e.store.Persist(ctx, e.opts.EstimatesKey, res.Estimates, e.opts.ConfidenceKey, res.Confidence)
	res.Report = rep
	if err != nil {
		return res, eris.Wrap(err, "merge: persist")
	}
	res.Persisted = true
	if !rep.Complete() {
		log.Warn("merge: tables not written to every tier", zap.Bool("estimates_ok", rep.Estimates.OK()), zap.Bool("confidence_ok", rep.Confidence.OK()))
	}
	log.Info("merge: tables persisted",
		zap.Int("new_rows", res.NewRows),
		zap.Int("estimates_rows", res.Estimates.Len()),
		zap.Int("confidence_rows", res.Confidence.Len()),
	)
	return res, nil
}

// ListImages returns the PNG chart images in dir sorted by name, capped at
// limit when limit > 0.
func ListImages(dir string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: list %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}
