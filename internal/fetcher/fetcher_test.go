package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
		want      *Page
		wantOK    bool
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: `"price":1234.0,`, statusCode: 200},
			want:      &Page{StatusCode: 200, Body: `"price":1234.0,`},
			wantOK:    true,
		},
		{
			name:      "not found is a page, not an error",
			transport: &mockTransport{body: "not found", statusCode: 404},
			want:      &Page{StatusCode: 404, Body: "not found"},
		},
		{
			name:      "server error",
			transport: &mockTransport{body: "", statusCode: 503},
			want:      &Page{StatusCode: 503},
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			page, err := f.Fetch(context.Background(), "https://example.com/product")

			if tt.wantErr {
				var fe *FetchError
				if !errors.As(err, &fe) {
					t.Fatalf("expected *FetchError, got %v", err)
				}
				if !errors.Is(err, io.ErrUnexpectedEOF) {
					t.Errorf("expected wrapped cause, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, page); diff != "" {
				t.Errorf("page mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantOK, page.OK()); diff != "" {
				t.Errorf("OK() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchAgainstServer(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"special_price":29000000,}`))
	}))
	defer srv.Close()

	page, err := NewDefault().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff(http.MethodGet, gotMethod); diff != "" {
		t.Errorf("method mismatch (-want +got):\n%s", diff)
	}
	if !page.OK() {
		t.Errorf("expected OK page, got status %d", page.StatusCode)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefault().Fetch(ctx, srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}
