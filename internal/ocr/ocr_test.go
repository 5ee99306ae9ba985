package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimates-cli/internal/config"
	"github.com/sells-group/estimates-cli/internal/resilience"
	"github.com/sells-group/estimates-cli/pkg/google"
	"github.com/sells-group/estimates-cli/pkg/google/mocks"
)

func fastRetry() resilience.Policy {
	return resilience.Policy{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func box(x0, y0, x1, y1 int) google.BoundingPoly {
	return google.BoundingPoly{Vertices: []google.Vertex{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}}
}

func TestVision_DropsFullTextAnnotation(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("DetectText", mock.Anything, []byte("img")).Return(&google.AnnotateImageResponse{
		TextAnnotations: []google.EntityAnnotation{
			{Description: "Q1'24\n1.23", BoundingPoly: box(0, 0, 500, 300)},
			{Description: "Q1'24", BoundingPoly: box(90, 250, 110, 260)},
			{Description: " ", BoundingPoly: box(0, 0, 1, 1)},
			{Description: "1.23", BoundingPoly: box(92, 100, 108, 110), Confidence: 0.9},
		},
	}, nil).Once()

	res, err := NewVision(client, fastRetry()).Annotate(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Q1'24\n1.23", res.FullText)
	require.Len(t, res.Annotations, 2)
	assert.Equal(t, "Q1'24", res.Annotations[0].Text)
	assert.Equal(t, "1.23", res.Annotations[1].Text)
	assert.InDelta(t, 0.9, res.Annotations[1].Confidence, 1e-9)
	assert.InDelta(t, 100, res.Annotations[1].Bounds().CenterX(), 1e-9)
}

func TestVision_UnauthorizedIsFatal(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("DetectText", mock.Anything, mock.Anything).
		Return(nil, &google.APIError{HTTPStatus: http.StatusForbidden, Message: "denied"}).Once()

	_, err := NewVision(client, fastRetry()).Annotate(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonUnauthorized, fe.Reason)
}

func TestVision_RetriesThenUnavailable(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("DetectText", mock.Anything, mock.Anything).
		Return(nil, &google.APIError{HTTPStatus: http.StatusServiceUnavailable, Message: "busy"}).Times(3)

	_, err := NewVision(client, fastRetry()).Annotate(context.Background(), []byte("img"))
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonUnavailable, fe.Reason)
}

func TestVision_RecoversAfterTransient(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("DetectText", mock.Anything, mock.Anything).
		Return(nil, &google.APIError{HTTPStatus: http.StatusTooManyRequests}).Once()
	client.On("DetectText", mock.Anything, mock.Anything).
		Return(&google.AnnotateImageResponse{}, nil).Once()

	res, err := NewVision(client, fastRetry()).Annotate(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Empty(t, res.Annotations)
}

func TestVision_TransportErrorIsFatal(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("DetectText", mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp: no such host")).Once()

	_, err := NewVision(client, fastRetry()).Annotate(context.Background(), []byte("img"))
	assert.True(t, IsFatal(err))
}

func TestVision_BadImageIsUnreadable(t *testing.T) {
	for _, apiErr := range []*google.APIError{
		{HTTPStatus: http.StatusOK, Code: google.CodeInvalidArgument, Message: "Bad image data."},
		{HTTPStatus: http.StatusBadRequest, Message: "Request contains an invalid argument."},
	} {
		client := mocks.NewMockClient(t)
		client.On("DetectText", mock.Anything, mock.Anything).Return(nil, apiErr).Once()

		_, err := NewVision(client, fastRetry()).Annotate(context.Background(), []byte("img"))
		require.Error(t, err)
		assert.False(t, IsFatal(err))
		assert.ErrorIs(t, err, ErrUnreadableImage)
	}
}

func TestVision_CancelledContextIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := mocks.NewMockClient(t)
	client.On("DetectText", mock.Anything, mock.Anything).Return(nil, context.Canceled).Once()

	_, err := NewVision(client, fastRetry()).Annotate(ctx, []byte("img"))
	require.Error(t, err)
	assert.False(t, IsFatal(err))
}

func TestNewOracle_VisionEndToEnd(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "k", r.Header.Get("X-Goog-Api-Key"))
		_, _ = w.Write([]byte(`{"responses":[{"textAnnotations":[{"description":"all"},{"description":"2.50","boundingPoly":{"vertices":[{"x":10,"y":5},{"x":30,"y":5},{"x":30,"y":15},{"x":10,"y":15}]}}]}]}`))
	}))
	defer srv.Close()

	o, err := NewOracle(config.OCRConfig{
		Provider: "vision",
		Vision:   config.VisionConfig{APIKey: "k", Endpoint: srv.URL, TimeoutSecs: 5},
	})
	require.NoError(t, err)

	res, err := o.Annotate(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, res.Annotations, 1)
	assert.Equal(t, Rect{MinX: 10, MinY: 5, MaxX: 30, MaxY: 15}, res.Annotations[0].Bounds())
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewOracle_Providers(t *testing.T) {
	_, err := NewOracle(config.OCRConfig{Provider: "vision"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")

	o, err := NewOracle(config.OCRConfig{Provider: "vision", Vision: config.VisionConfig{AccessToken: "tok"}})
	require.NoError(t, err)
	assert.IsType(t, &Vision{}, o)

	o, err = NewOracle(config.OCRConfig{Provider: "tesseract", Tesseract: config.TesseractConfig{Languages: []string{"eng"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, o.(*Tesseract).languages)

	_, err = NewOracle(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "mistral"`)
}

func TestAnnotation_BoundsAndScaled(t *testing.T) {
	a := Annotation{Text: "1.00", Polygon: []Point{{X: 40, Y: 10}, {X: 20, Y: 30}, {X: 60, Y: 20}}}
	assert.Equal(t, Rect{MinX: 20, MinY: 10, MaxX: 60, MaxY: 30}, a.Bounds())
	assert.InDelta(t, 40, a.Bounds().CenterX(), 1e-9)

	half := a.Scaled(2)
	assert.Equal(t, Rect{MinX: 10, MinY: 5, MaxX: 30, MaxY: 15}, half.Bounds())
	assert.Equal(t, Rect{MinX: 20, MinY: 10, MaxX: 60, MaxY: 30}, a.Bounds(), "original untouched")
	assert.Equal(t, a, a.Scaled(1))
	assert.Equal(t, Rect{}, Annotation{}.Bounds())
}

func TestFatalError_Message(t *testing.T) {
	err := &FatalError{Reason: ReasonUnauthorized, Err: errors.New("403")}
	assert.Equal(t, "ocr: oracle unauthorized: 403", err.Error())
	assert.False(t, IsFatal(errors.New("other")))
}
