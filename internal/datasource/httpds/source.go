package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned by Source.Open for a final non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Source is a datasource.Source backed by one URL.
type Source struct {
	c   *Client
	url string
}

// NewSource binds url to c.
func NewSource(c *Client, url string) *Source { return &Source{c: c, url: url} }

// Open fetches the URL and returns the response body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.c.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: s.url, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

// IsURL reports whether loc names an http(s) resource rather than a path.
func IsURL(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
