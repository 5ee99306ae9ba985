// Package google is a minimal client for the Google Cloud Vision REST API.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://vision.googleapis.com/v1"

// CodeInvalidArgument is the google.rpc code Vision returns for images it
// cannot decode.
const CodeInvalidArgument = 3

// Client performs Cloud Vision operations.
type Client interface {
	DetectText(ctx context.Context, image []byte) (*AnnotateImageResponse, error)
}

// AnnotateImageResponse is the per-image result of images:annotate.
type AnnotateImageResponse struct {
	TextAnnotations []EntityAnnotation `json:"textAnnotations"`
	Error           *Status            `json:"error,omitempty"`
}

// EntityAnnotation is one recognized text region. For TEXT_DETECTION the
// first entry holds the full text and the rest are individual tokens.
type EntityAnnotation struct {
	Description  string       `json:"description"`
	Locale       string       `json:"locale,omitempty"`
	Score        float64      `json:"score,omitempty"`
	Confidence   float64      `json:"confidence,omitempty"`
	BoundingPoly BoundingPoly `json:"boundingPoly"`
}

// BoundingPoly is the polygon around an annotation, in pixels.
type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

// Vertex is a pixel coordinate. Vision omits zero coordinates.
type Vertex struct {
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`
}

// Status is a google.rpc.Status.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// APIError is returned for non-200 responses and for per-image errors.
// HTTPStatus is 200 for per-image errors.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: vision returned %d (code %d): %s", e.HTTPStatus, e.Code, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAccessToken authenticates with an OAuth bearer token instead of an API key.
func WithAccessToken(token string) Option {
	return func(c *httpClient) {
		c.accessToken = token
	}
}

type httpClient struct {
	apiKey      string
	accessToken string
	baseURL     string
	http        *http.Client
}

// NewClient creates a Cloud Vision client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []AnnotateImageResponse `json:"responses"`
}

type errorEnvelope struct {
	Error Status `json:"error"`
}

func (c *httpClient) DetectText(ctx context.Context, image []byte) (*AnnotateImageResponse, error) {
	body, err := json.Marshal(annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images:annotate", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	} else {
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{HTTPStatus: resp.StatusCode, Message: string(respBody)}
		var env errorEnvelope
		if json.Unmarshal(respBody, &env) == nil && env.Error.Message != "" {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	var result annotateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}
	if len(result.Responses) == 0 {
		return &AnnotateImageResponse{}, nil
	}

	out := result.Responses[0]
	if out.Error != nil && out.Error.Code != 0 {
		return nil, &APIError{HTTPStatus: http.StatusOK, Code: out.Error.Code, Message: out.Error.Message}
	}
	return &out, nil
}
