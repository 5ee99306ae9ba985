package ocr

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/estimates-cli/internal/resilience"
	"github.com/sells-group/estimates-cli/pkg/google"
)

// Vision is an Oracle backed by Google Cloud Vision text detection.
type Vision struct {
	client google.Client
	retry  resilience.Policy
}

// NewVision creates a Vision oracle. Rate limiting, 5xx and timeouts are
// retried per retry before the oracle is declared unavailable.
func NewVision(client google.Client, retry resilience.Policy) *Vision {
	retry.Retryable = retryable
	retry.Name = "vision annotate"
	return &Vision{client: client, retry: retry}
}

// Annotate runs text detection. The first Vision annotation is the whole-image
// text; the rest become Annotations.
func (v *Vision) Annotate(ctx context.Context, image []byte) (*Result, error) {
	resp, err := resilience.Do(ctx, v.retry, func(ctx context.Context) (*google.AnnotateImageResponse, error) {
		return v.client.DetectText(ctx, image)
	})
	if err != nil {
		return nil, classify(ctx, err)
	}

	res := &Result{}
	for i, a := range resp.TextAnnotations {
		if i == 0 {
			res.FullText = a.Description
			continue
		}
		text := strings.TrimSpace(a.Description)
		if text == "" {
			continue
		}
		poly := make([]Point, len(a.BoundingPoly.Vertices))
		for j, vtx := range a.BoundingPoly.Vertices {
			poly[j] = Point{X: float64(vtx.X), Y: float64(vtx.Y)}
		}
		conf := a.Confidence
		if conf == 0 {
			conf = a.Score
		}
		res.Annotations = append(res.Annotations, Annotation{Text: text, Polygon: poly, Confidence: conf})
	}
	return res, nil
}

func retryable(err error) bool {
	var apiErr *google.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientStatus(apiErr.HTTPStatus)
	}
	return resilience.IsTransient(err)
}

// classify maps a final Vision error onto the oracle error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return eris.Wrap(err, "ocr: vision cancelled")
	}

	var apiErr *google.APIError
	if !errors.As(err, &apiErr) {
		return &FatalError{Reason: ReasonUnavailable, Err: err}
	}
	switch {
	case apiErr.HTTPStatus == http.StatusUnauthorized || apiErr.HTTPStatus == http.StatusForbidden:
		return &FatalError{Reason: ReasonUnauthorized, Err: err}
	case apiErr.HTTPStatus == http.StatusBadRequest,
		apiErr.HTTPStatus == http.StatusOK && apiErr.Code == google.CodeInvalidArgument:
		return eris.Wrapf(ErrUnreadableImage, "vision: %s", apiErr.Message)
	default:
		return &FatalError{Reason: ReasonUnavailable, Err: err}
	}
}
