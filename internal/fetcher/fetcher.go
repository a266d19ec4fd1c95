// Package fetcher downloads seller product pages.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError reports a transport-level failure reaching a page.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Page is a fetched product page. Non-200 responses are returned as pages too.
type Page struct {
	StatusCode int
	Body       string
}

// OK reports whether the page was served with 200.
func (p *Page) OK() bool {
	return p.StatusCode == http.StatusOK
}

// Fetcher downloads product pages.
type Fetcher struct {
	client HTTPClient
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// NewDefault creates a Fetcher with a 30 second client timeout.
func NewDefault() *Fetcher {
	return New(&http.Client{Timeout: 30 * time.Second})
}

// Fetch issues a GET for url. Any transport or read failure is a *FetchError;
// an unsuccessful status is not an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Page{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
