// Package locator discovers report PDFs by probing dated filenames in reverse
// chronological order.
package locator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/fetcher"
	"github.com/sells-group/estimates-cli/internal/model"
)

const progressEvery = 200

// Options configures a Locator.
type Options struct {
	BaseURL          string
	FilenameTemplate string   // must contain {date}
	Encodings        []string // Go reference layouts, tried in order
	Origin           time.Time
	OutputDir        string
}

// OptionsFromConfig builds Options from the locator config section.
func OptionsFromConfig(cfg config.LocatorConfig) (Options, error) {
	origin, err := time.Parse(model.DateKeyLayout, cfg.OriginDate)
	if err != nil {
		return Options{}, eris.Wrap(err, "locator: parse origin_date")
	}
	return Options{
		BaseURL:          cfg.BaseURL,
		FilenameTemplate: cfg.FilenameTemplate,
		Encodings:        cfg.Encodings,
		Origin:           origin,
		OutputDir:        cfg.OutputDir,
	}, nil
}

// Locator probes the document source date by date.
type Locator struct {
	fetcher fetcher.Fetcher
	opts    Options
}

// New creates a Locator.
func New(f fetcher.Fetcher, opts Options) *Locator {
	return &Locator{fetcher: f, opts: opts}
}

// Result is the outcome of one probing pass.
type Result struct {
	Documents []model.SourceDocument
	Summary   model.Summary
	Attempts  int
	Start     time.Time // effective start after clamping
	End       time.Time
}

// URLFor returns the source URL for a date rendered with the given encoding.
func (l *Locator) URLFor(day time.Time, encoding string) string {
	name := strings.ReplaceAll(l.opts.FilenameTemplate, "{date}", day.Format(encoding))
	return l.opts.BaseURL + name
}

// localPath names the saved file after the 8-digit date and the encoding that
// matched, e.g. EarningsInsight_20241213_121324.pdf.
func (l *Locator) localPath(day time.Time, encoded string) string {
	return filepath.Join(l.opts.OutputDir, "EarningsInsight_"+day.Format(model.FileDateLayout)+"_"+encoded+".pdf")
}

// Run probes every date from end down to start (inclusive). A start earlier
// than the origin is clamped to the origin. Failed fetches are never fatal;
// only context cancellation or an unusable output directory stop the pass.
func (l *Locator) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	log := zap.L().With(zap.String("component", "locator"))

	start = truncateDay(start)
	end = truncateDay(end)
	origin := truncateDay(l.opts.Origin)
	if start.Before(origin) {
		log.Warn("documents are only available from the origin date; clamping start",
			zap.String("requested_start", model.DateKey(start)),
			zap.String("origin", model.DateKey(origin)),
		)
		start = origin
	}

	if err := os.MkdirAll(l.opts.OutputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "locator: create output dir %s", l.opts.OutputDir)
	}

	res := &Result{Start: start, End: end, Summary: model.Summary{Stage: "download"}}
	totalDays := end.Sub(start).Hours() / 24
	nextProgress := progressEvery

	log.Info("starting reverse search",
		zap.String("from", model.DateKey(end)),
		zap.String("to", model.DateKey(start)),
		zap.String("output_dir", l.opts.OutputDir),
	)

	for day := end; !day.Before(start); day = day.AddDate(0, 0, -1) {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "locator: cancelled")
		}

		doc, found := l.probeDate(ctx, day, res)
		if found {
			res.Documents = append(res.Documents, doc)
			res.Summary.Add(model.Found(doc.Date))
			log.Info("document downloaded",
				zap.String("date", doc.Date),
				zap.String("encoding", doc.Encoding),
				zap.Float64("size_kb", float64(doc.SizeBytes)/1024),
			)
		}

		if res.Attempts >= nextProgress {
			nextProgress += progressEvery
			progress := 0.0
			if totalDays > 0 {
				progress = end.Sub(day).Hours() / 24 / totalDays * 100
			}
			log.Info("search progress",
				zap.Float64("percent", progress),
				zap.Int("tested", res.Attempts),
				zap.Int("found", len(res.Documents)),
			)
		}
	}

	log.Info("reverse search complete",
		zap.Int("found", len(res.Documents)),
		zap.Int("tested", res.Attempts),
	)
	return res, nil
}

// probeDate tries each encoding for one date and stops at the first success.
func (l *Locator) probeDate(ctx context.Context, day time.Time, res *Result) (model.SourceDocument, bool) {
	for _, layout := range l.opts.Encodings {
		encoded := day.Format(layout)
		url := l.URLFor(day, layout)
		path := l.localPath(day, encoded)
		res.Attempts++

		n, err := l.fetcher.DownloadToFile(ctx, url, path)
		if err != nil {
			zap.L().Debug("probe miss",
				zap.String("date", model.DateKey(day)),
				zap.String("encoding", encoded),
				zap.Error(err),
			)
			continue
		}

		return model.SourceDocument{
			ReportDate: day,
			Date:       model.DateKey(day),
			Encoding:   encoded,
			SourceURL:  url,
			LocalPath:  path,
			SizeBytes:  n,
		}, true
	}
	return model.SourceDocument{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
