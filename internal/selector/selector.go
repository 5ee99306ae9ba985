// Package selector finds the bottom-up EPS chart page in a report PDF and
// rasterizes it to a PNG named after the report date.
package selector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/pdfdoc"
)

// Reasons attached to skipped items.
const (
	ReasonBadFilename  = "unparseable report date in filename"
	ReasonNoChartFound = "no chart found"
)

// Options configures a Selector.
type Options struct {
	Titles          []string
	FooterThreshold float64
	Resolution      int
	OutputDir       string
}

// OptionsFromConfig builds Options from the extract config section.
func OptionsFromConfig(cfg config.ExtractConfig) Options {
	return Options{
		Titles:          cfg.Titles,
		FooterThreshold: cfg.FooterThreshold,
		Resolution:      cfg.Resolution,
		OutputDir:       cfg.OutputDir,
	}
}

// Selector picks and rasterizes the chart page of each document.
type Selector struct {
	open   pdfdoc.Opener
	raster pdfdoc.Rasterizer
	opts   Options
}

// New creates a Selector.
func New(open pdfdoc.Opener, raster pdfdoc.Rasterizer, opts Options) *Selector {
	return &Selector{open: open, raster: raster, opts: opts}
}

// ImagePath is where the chart image for a report date is written.
func (s *Selector) ImagePath(reportDate string) string {
	return filepath.Join(s.opts.OutputDir, reportDate+".png")
}

// Result is the outcome of a selection pass.
type Result struct {
	Pages   []model.ChartPage
	Summary model.Summary
}

// Run selects the chart page of every PDF in order. Per-document problems are
// recorded in the summary; only context cancellation stops the pass.
func (s *Selector) Run(ctx context.Context, pdfPaths []string) (*Result, error) {
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "selector: create output dir %s", s.opts.OutputDir)
	}

	res := &Result{Summary: model.Summary{Stage: "extract"}}
	for _, path := range pdfPaths {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "selector: cancelled")
		}
		page, item := s.Select(ctx, path)
		res.Summary.Add(item)
		if page != nil {
			res.Pages = append(res.Pages, *page)
		}
	}

	zap.L().Info("chart selection complete",
		zap.Int("documents", res.Summary.Total()),
		zap.Int("extracted", res.Summary.Found),
		zap.Int("cached", res.Summary.Cached),
		zap.Int("skipped", res.Summary.Skipped),
		zap.Int("failed", res.Summary.Failed),
	)
	return res, nil
}

// Select handles one document. The returned page is nil unless the item was
// found or cached.
func (s *Selector) Select(ctx context.Context, pdfPath string) (*model.ChartPage, model.ItemResult) {
	name := filepath.Base(pdfPath)
	log := zap.L().With(zap.String("component", "selector"), zap.String("pdf", name))

	reportDate, err := model.ReportDateFromPDF(pdfPath)
	if err != nil {
		log.Warn("skipping document", zap.String("reason", ReasonBadFilename), zap.Error(err))
		return nil, model.Skipped(name, ReasonBadFilename)
	}

	outPath := s.ImagePath(reportDate.Format(model.FileDateLayout))
	if _, err := os.Stat(outPath); err == nil {
		log.Info("chart image already exists", zap.String("image", outPath))
		return &model.ChartPage{
			ReportDate: reportDate,
			ImagePath:  outPath,
			Resolution: s.opts.Resolution,
			Cached:     true,
		}, model.Cached(name)
	}

	pageNum, err := s.findChartPage(pdfPath)
	if err != nil {
		if errors.Is(err, errNoChart) {
			log.Warn("skipping document", zap.String("reason", ReasonNoChartFound))
			return nil, model.Skipped(name, ReasonNoChartFound)
		}
		log.Error("failed to read document", zap.Error(err))
		return nil, model.Failed(name, err.Error())
	}

	if err := s.raster.Rasterize(ctx, pdfPath, pageNum, s.opts.Resolution, outPath); err != nil {
		log.Error("failed to rasterize chart page", zap.Int("page", pageNum), zap.Error(err))
		return nil, model.Failed(name, err.Error())
	}

	log.Info("chart page extracted", zap.Int("page", pageNum), zap.String("image", outPath))
	return &model.ChartPage{
		ReportDate: reportDate,
		ImagePath:  outPath,
		Resolution: s.opts.Resolution,
		PageNumber: pageNum,
	}, model.Found(name)
}

var errNoChart = eris.New("selector: no chart found")

// findChartPage returns the 1-based page to rasterize. Scanning stops at the
// first page whose text contains a known title. If that title sits below the
// footer threshold it is a reference to the next page, which is chosen when
// it exists.
func (s *Selector) findChartPage(pdfPath string) (int, error) {
	doc, err := s.open(pdfPath)
	if err != nil {
		return 0, err
	}
	defer doc.Close() //nolint:errcheck

	n := doc.NumPages()
	for i := 1; i <= n; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			zap.L().Debug("page text unavailable", zap.Int("page", i), zap.Error(err))
			continue
		}
		title, ok := matchTitle(text, s.opts.Titles)
		if !ok {
			continue
		}

		words, err := doc.PageWords(i)
		if err != nil {
			return i, nil
		}
		if isFooterReference(words, title, s.opts.FooterThreshold) && i < n {
			return i + 1, nil
		}
		return i, nil
	}
	return 0, errNoChart
}

func matchTitle(text string, titles []string) (string, bool) {
	for _, t := range titles {
		if strings.Contains(text, t) {
			return t, true
		}
	}
	return "", false
}

// isFooterReference reports whether a word carrying the title's leading word
// sits lower on the page than threshold.
func isFooterReference(words []pdfdoc.Word, title string, threshold float64) bool {
	lead := strings.Fields(title)
	if len(lead) == 0 {
		return false
	}
	for _, w := range words {
		if strings.Contains(w.Text, lead[0]) && w.Top > threshold {
			return true
		}
	}
	return false
}

// ListPDFs returns the .pdf files in dir sorted by name.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "selector: read dir %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
