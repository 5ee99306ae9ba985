// Package fetcher downloads remote documents one request at a time.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	// Nothing is left at path when the fetch fails.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
