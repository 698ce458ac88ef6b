package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Result contains the result of fetching a remote resource.
type Result struct {
	Body         []byte
	ContentType  string
	ETag         string
	LastModified time.Time
	StatusCode   int
}

// NotModified reports whether the server answered a conditional request with
// 304.
func (r *Result) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Fetcher fetches remote resources with a timeout and a size limit.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
}

// NewFetcher creates a new fetcher.
func NewFetcher(timeout time.Duration, userAgent string, maxContentSize int64) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:      userAgent,
		maxContentSize: maxContentSize,
	}
}

// Fetch retrieves content from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	return f.FetchWithETag(ctx, urlStr, "")
}

// FetchWithETag retrieves content with conditional fetch support.
// If etag is provided, the result is 304 Not Modified without a body when the
// content has not changed.
func (f *Fetcher) FetchWithETag(ctx context.Context, urlStr string, etag string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	result := &Result{
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		StatusCode:  resp.StatusCode,
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = t
		}
	}

	if resp.StatusCode == http.StatusNotModified {
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// Read body with size limit
	limitReader := io.LimitReader(resp.Body, f.maxContentSize+1)
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("%w (exceeds %d bytes)", ErrTooLarge, f.maxContentSize)
	}

	result.Body = body
	return result, nil
}
