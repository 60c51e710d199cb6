package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPStore implements FileStore over HTTP(S) GET/HEAD requests
type HTTPStore struct {
	client *resty.Client
}

// NewHTTPStore creates an HTTP-backed store
func NewHTTPStore() *HTTPStore {
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond)

	return &HTTPStore{client: client}
}

// Open fetches the URL and returns the response body
func (s *HTTPStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		if body != nil {
			body.Close()
		}
		return nil, fmt.Errorf("failed to fetch %s: status %d", path, resp.StatusCode())
	}

	return body, nil
}

// Exists issues a HEAD request for the URL
func (s *HTTPStore) Exists(ctx context.Context, path string) (bool, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Head(path)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
		return true, nil
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("failed to check %s: status %d", path, resp.StatusCode())
	}
}

// Join joins path elements with "/" preserving the URL scheme
func (s *HTTPStore) Join(elem ...string) string {
	return joinURL(elem...)
}
