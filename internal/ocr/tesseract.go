package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// Tesseract is an Oracle backed by a local Tesseract install.
type Tesseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseract creates a Tesseract oracle for the given languages.
func NewTesseract(languages ...string) *Tesseract {
	return &Tesseract{languages: languages, clientFactory: gosseract.NewClient}
}

// Annotate recognizes words with their bounding boxes. A missing Tesseract
// install or language pack is fatal; bytes Tesseract cannot load are an
// unreadable image.
func (t *Tesseract) Annotate(ctx context.Context, image []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.clientFactory()
	defer c.Close() //nolint:errcheck

	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return nil, &FatalError{Reason: ReasonUnavailable, Err: eris.Wrap(err, "tesseract: set languages")}
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, eris.Wrapf(ErrUnreadableImage, "tesseract: %v", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, &FatalError{Reason: ReasonUnavailable, Err: eris.Wrap(err, "tesseract: recognize")}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &FatalError{Reason: ReasonUnavailable, Err: eris.Wrap(err, "tesseract: bounding boxes")}
	}

	res := &Result{FullText: strings.TrimSpace(text)}
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		minX, minY := float64(b.Box.Min.X), float64(b.Box.Min.Y)
		maxX, maxY := float64(b.Box.Max.X), float64(b.Box.Max.Y)
		res.Annotations = append(res.Annotations, Annotation{
			Text: word,
			Polygon: []Point{
				{X: minX, Y: minY}, {X: maxX, Y: minY},
				{X: maxX, Y: maxY}, {X: minX, Y: maxY},
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return res, nil
}
