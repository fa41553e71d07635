// Package httputil provides the hardened HTTP client used to fetch pages and
// player configuration documents.
package httputil

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	maxPageBytes = 10 * 1024 * 1024
	maxJSONBytes = 5 * 1024 * 1024
)

// NewClient creates a hardened HTTP client with secure defaults.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// Fetcher retrieves page text and JSON documents. Default headers are sent
// with every request; per-call headers override them.
type Fetcher struct {
	client  *http.Client
	headers map[string]string
}

// NewFetcher creates a Fetcher. A nil client selects NewClient().
func NewFetcher(client *http.Client, headers map[string]string) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Fetcher{client: client, headers: h}
}

// FetchText performs a GET and returns the body decoded to UTF-8 according to
// the response's declared charset.
func (f *Fetcher) FetchText(ctx context.Context, url string, headers map[string]string) (string, error) {
	resp, err := f.do(ctx, url, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("decoding charset: %w", err)}
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("reading response: %w", err)}
	}
	return string(body), nil
}

// FetchJSON performs a GET and decodes the JSON body into v.
func (f *Fetcher) FetchJSON(ctx context.Context, url string, v any) error {
	resp, err := f.do(ctx, url, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBytes)).Decode(v); err != nil {
		return &FetchError{URL: url, Err: fmt.Errorf("parsing JSON: %w", err)}
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, url, accept string, headers map[string]string) (*http.Response, error) {
	if err := ValidateURL(url); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Accept", accept)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("request failed: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	return resp, nil
}
