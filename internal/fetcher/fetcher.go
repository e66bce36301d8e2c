// Package fetcher downloads remote files and parses CSV, XLSX and ZIP sources.
package fetcher

import (
	"context"
	"io"
)

// Fetcher retrieves remote resources such as postal-code dumps.
type Fetcher interface {
	// Download returns the response body. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile streams url into path and reports the bytes written.
	// A 404 yields an error for which IsNotFound is true.
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}
