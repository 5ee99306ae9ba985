// Package ocr wraps the text-recognition oracles that turn a chart image into
// positioned text annotations.
package ocr

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/resilience"
	"github.com/sells-group/estimates-cli/pkg/google"
)

// Oracle recognizes text in an encoded image.
type Oracle interface {
	Annotate(ctx context.Context, image []byte) (*Result, error)
}

// Result is the oracle output for one image. Annotations are the localized
// tokens in the order the oracle returned them.
type Result struct {
	FullText    string
	Annotations []Annotation
}

// Point is a pixel coordinate.
type Point struct {
	X, Y float64
}

// Annotation is one recognized token and its bounding polygon.
type Annotation struct {
	Text       string
	Polygon    []Point
	Confidence float64 // 0 when the oracle reports none
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// CenterX is the horizontal midpoint.
func (r Rect) CenterX() float64 {
	return (r.MinX + r.MaxX) / 2
}

// Bounds returns the box enclosing the polygon.
func (a Annotation) Bounds() Rect {
	if len(a.Polygon) == 0 {
		return Rect{}
	}
	r := Rect{MinX: a.Polygon[0].X, MinY: a.Polygon[0].Y, MaxX: a.Polygon[0].X, MaxY: a.Polygon[0].Y}
	for _, p := range a.Polygon[1:] {
		r.MinX = min(r.MinX, p.X)
		r.MinY = min(r.MinY, p.Y)
		r.MaxX = max(r.MaxX, p.X)
		r.MaxY = max(r.MaxY, p.Y)
	}
	return r
}

// Scaled divides every coordinate by factor, mapping an annotation found on
// an enlarged variant back onto the original image.
func (a Annotation) Scaled(factor float64) Annotation {
	if factor == 0 || factor == 1 {
		return a
	}
	poly := make([]Point, len(a.Polygon))
	for i, p := range a.Polygon {
		poly[i] = Point{X: p.X / factor, Y: p.Y / factor}
	}
	a.Polygon = poly
	return a
}

// Fatal failure reasons.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonUnavailable  = "unavailable"
)

// FatalError means the oracle cannot serve any request: credentials were
// rejected or the service is unreachable. It aborts a digitizing pass.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	return "ocr: oracle " + e.Reason + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// ErrUnreadableImage is returned when the oracle rejects the image itself.
var ErrUnreadableImage = eris.New("ocr: unreadable image")

// NewOracle creates the Oracle selected by cfg.Provider.
func NewOracle(cfg config.OCRConfig) (Oracle, error) {
	switch cfg.Provider {
	case "vision", "":
		if cfg.Vision.APIKey == "" && cfg.Vision.AccessToken == "" {
			return nil, eris.New("ocr: vision provider requires ocr.vision.api_key or ocr.vision.access_token")
		}
		opts := []google.Option{
			google.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Vision.TimeoutSecs) * time.Second}),
		}
		if cfg.Vision.Endpoint != "" {
			opts = append(opts, google.WithBaseURL(cfg.Vision.Endpoint))
		}
		if cfg.Vision.AccessToken != "" {
			opts = append(opts, google.WithAccessToken(cfg.Vision.AccessToken))
		}
		return NewVision(google.NewClient(cfg.Vision.APIKey, opts...), resilience.PolicyFromConfig(cfg.Retry)), nil
	case "tesseract":
		return NewTesseract(cfg.Tesseract.Languages...), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
