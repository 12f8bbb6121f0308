package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultFetchTimeout caps remote document fetches.
const DefaultFetchTimeout = 15 * time.Second

// maxDocumentSize bounds how much of a remote document is read.
const maxDocumentSize = 8 << 20

// Fetch reads an OpenAPI document from a file path, an fs.FS entry when files
// is non-nil, or an http(s) URL when client is non-nil.
func Fetch(ctx context.Context, location string, files fs.FS, client *http.Client) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("importer: document location is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if client == nil {
			return nil, errors.New("importer: http support disabled")
		}
		return fetchHTTP(ctx, client, location)
	case files != nil:
		data, err := fs.ReadFile(files, location)
		if err != nil {
			return nil, fmt.Errorf("importer: read %s: %w", location, err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("importer: read %s: %w", location, err)
		}
		return data, nil
	}
}

func fetchHTTP(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client.Timeout == 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFetchTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("importer: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("importer: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("importer: fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", url, err)
	}
	return data, nil
}
