// Package digitizer turns a rasterized bottom-up EPS chart into per-quarter
// observations by matching OCR value labels to quarter ticks and sampling the
// bar color beneath each label.
package digitizer

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/imaging"
	"github.com/sells-group/estimates-cli/internal/model"
	"github.com/sells-group/estimates-cli/internal/ocr"
)

// Reasons attached to skipped images.
const (
	ReasonBadFilename = "unparseable report date in filename"
	ReasonUnreadable  = "unreadable image"
	ReasonLowYield    = "no quarters matched"
)

// Options configures a Digitizer.
type Options struct {
	Variants       []string
	MultiVariant   bool
	Priority       []string
	Tolerance      float64
	MaxOffsetRatio float64
	Palette        Palette
	SampleOffset   int
	SampleHeight   int
}

// OptionsFromConfig builds Options from the digitize config section.
func OptionsFromConfig(cfg config.DigitizeConfig) Options {
	return Options{
		Variants:       cfg.Variants,
		MultiVariant:   cfg.MultiVariant,
		Priority:       cfg.Priority,
		Tolerance:      cfg.Tolerance,
		MaxOffsetRatio: cfg.MaxOffsetRatio,
		Palette:        PaletteFromConfig(cfg),
		SampleOffset:   cfg.SampleOffset,
		SampleHeight:   cfg.SampleHeight,
	}
}

// Digitizer extracts observations from chart images.
type Digitizer struct {
	oracle    ocr.Oracle
	opts      Options
	variants  []string
	tolerance decimal.Decimal
}

// New creates a Digitizer. Without MultiVariant only the first configured
// variant is used.
func New(oracle ocr.Oracle, opts Options) (*Digitizer, error) {
	variants := opts.Variants
	if len(variants) == 0 {
		variants = []string{imaging.VariantOriginal}
	}
	if !opts.MultiVariant {
		variants = variants[:1]
	}
	for _, v := range variants {
		if !imaging.Known(v) {
			return nil, eris.Errorf("digitizer: unknown variant %q", v)
		}
	}
	return &Digitizer{
		oracle:    oracle,
		opts:      opts,
		variants:  variants,
		tolerance: decimal.NewFromFloat(opts.Tolerance),
	}, nil
}

// Output is the result of digitizing one image.
type Output struct {
	ReportDate   time.Time
	Observations []model.QuarterObservation
	Item         model.ItemResult
}

// Digitize reads one chart image. Bad filenames, unreadable images and
// charts with no matched quarters are reported through Output.Item. The
// returned error is non-nil only for a fatal oracle failure or cancellation,
// both of which must stop the pass.
func (d *Digitizer) Digitize(ctx context.Context, imagePath string) (*Output, error) {
	name := filepath.Base(imagePath)
	log := zap.L().With(zap.String("component", "digitizer"), zap.String("image", name))

	reportDate, err := model.ReportDateFromImage(imagePath)
	if err != nil {
		log.Warn("skipping image", zap.String("reason", ReasonBadFilename), zap.Error(err))
		return &Output{Item: model.Skipped(name, ReasonBadFilename)}, nil
	}
	out := &Output{ReportDate: reportDate}

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		log.Warn("skipping image", zap.String("reason", ReasonUnreadable), zap.Error(err))
		out.Item = model.Skipped(name, ReasonUnreadable)
		return out, nil
	}
	img, err := imaging.Decode(raw)
	if err != nil {
		log.Warn("skipping image", zap.String("reason", ReasonUnreadable), zap.Error(err))
		out.Item = model.Skipped(name, ReasonUnreadable)
		return out, nil
	}

	variants, err := imaging.Variants(img, d.variants)
	if err != nil {
		return nil, eris.Wrap(err, "digitizer: build variants")
	}

	var results []variantResult
	for _, v := range variants {
		obs, err := d.readVariant(ctx, reportDate, img, raw, v)
		if err != nil {
			if errors.Is(err, ocr.ErrUnreadableImage) {
				log.Warn("oracle rejected variant", zap.String("variant", v.Name), zap.Error(err))
				continue
			}
			return nil, eris.Wrapf(err, "digitizer: %s", name)
		}
		results = append(results, variantResult{Variant: v.Name, Observations: obs})
	}

	if len(results) == 0 {
		log.Warn("skipping image", zap.String("reason", ReasonUnreadable))
		out.Item = model.Skipped(name, ReasonUnreadable)
		return out, nil
	}

	out.Observations = reconcile(results, d.opts.Priority, d.tolerance)
	if len(out.Observations) == 0 {
		log.Warn("low yield image", zap.String("reason", ReasonLowYield))
		out.Item = model.Skipped(name, ReasonLowYield)
		return out, nil
	}

	log.Info("chart digitized",
		zap.String("date", model.DateKey(reportDate)),
		zap.Int("quarters", len(out.Observations)),
		zap.Int("variants", len(results)),
	)
	out.Item = model.Found(name)
	return out, nil
}

// readVariant sends one variant to the oracle and converts the matched
// tokens into observations. Bar colors are always sampled from the original
// image.
func (d *Digitizer) readVariant(ctx context.Context, reportDate time.Time, original image.Image, raw []byte, v imaging.Variant) ([]model.QuarterObservation, error) {
	payload := raw
	if v.Name != imaging.VariantOriginal {
		var err error
		if payload, err = imaging.EncodePNG(v.Image); err != nil {
			return nil, err
		}
	}

	res, err := d.oracle.Annotate(ctx, payload)
	if err != nil {
		return nil, err
	}

	anns := res.Annotations
	if v.Scale != 1 {
		anns = make([]ocr.Annotation, len(res.Annotations))
		for i, a := range res.Annotations {
			anns[i] = a.Scaled(v.Scale)
		}
	}

	quarters, values := classify(anns)
	matches := matchValues(quarters, values, d.opts.MaxOffsetRatio)

	obs := make([]model.QuarterObservation, 0, len(matches))
	for _, m := range matches {
		obs = append(obs, model.QuarterObservation{
			ReportDate: reportDate,
			Quarter:    m.Quarter,
			EPS:        m.Value,
			BarColor:   sampleBarColor(original, m.Box, d.opts.SampleOffset, d.opts.SampleHeight, d.opts.Palette),
			Variant:    v.Name,
		})
	}

	zap.L().Debug("variant read",
		zap.String("variant", v.Name),
		zap.Int("annotations", len(anns)),
		zap.Int("quarters", len(quarters)),
		zap.Int("values", len(values)),
		zap.Int("matched", len(obs)),
	)
	return obs, nil
}
