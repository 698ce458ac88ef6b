package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Default fetch settings.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxContentSize = 20 * 1024 * 1024
	DefaultUserAgent      = "semsynopsis/1.0"
)

// Resource is the raw content of a location.
type Resource struct {
	Location string
	Body     []byte
	// Unchanged is set when the content is identical to the last load, as
	// reported by an ETag revalidation.
	Unchanged bool
}

type cached struct {
	etag string
	body []byte
}

// Loader reads locations and remembers ETags of remote resources.
type Loader struct {
	fetcher   *Fetcher
	logger    *slog.Logger
	onFailure func(location string, err error)

	mu    sync.Mutex
	cache map[string]cached
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithFailureHook registers a callback for every failed load.
func WithFailureHook(hook func(location string, err error)) LoaderOption {
	return func(l *Loader) { l.onFailure = hook }
}

// NewLoader creates a loader using fetcher for remote locations. A nil
// fetcher gets the default settings.
func NewLoader(fetcher *Fetcher, opts ...LoaderOption) *Loader {
	if fetcher == nil {
		fetcher = NewFetcher(DefaultTimeout, DefaultUserAgent, DefaultMaxContentSize)
	}
	l := &Loader{
		fetcher: fetcher,
		logger:  slog.Default(),
		cache:   make(map[string]cached),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads a location. Remote locations are revalidated with the ETag of
// the previous load; a 304 answer returns the cached body with Unchanged set.
func (l *Loader) Load(ctx context.Context, location string) (*Resource, error) {
	if !IsRemote(location) {
		path, err := LocalPath(location)
		if err != nil {
			return nil, err
		}
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return &Resource{Location: location, Body: body}, nil
	}

	l.mu.Lock()
	prev, hasPrev := l.cache[location]
	l.mu.Unlock()

	result, err := l.fetcher.FetchWithETag(ctx, location, prev.etag)
	if err != nil {
		return nil, err
	}
	if result.NotModified() && hasPrev {
		return &Resource{Location: location, Body: prev.body, Unchanged: true}, nil
	}
	if result.NotModified() {
		return nil, fmt.Errorf("fetch %s: unexpected 304 without cached content", location)
	}

	if result.ETag != "" {
		l.mu.Lock()
		l.cache[location] = cached{etag: result.ETag, body: result.Body}
		l.mu.Unlock()
	}
	return &Resource{Location: location, Body: result.Body}, nil
}

// Fail logs a failed load and reports it to the failure hook.
func (l *Loader) Fail(location string, err error) {
	l.logger.Warn("Failed to load resource, using empty value", "location", location, "error", err)
	if l.onFailure != nil {
		l.onFailure(location, err)
	}
}

// DecodeJSON loads a location and decodes it into a T. On any failure the
// zero T is returned with ok false; the failure is logged and reported but
// never returned. unchanged is true when a revalidation found the content
// identical to the last load.
func DecodeJSON[T any](ctx context.Context, l *Loader, location string) (value T, unchanged bool, ok bool) {
	res, err := l.Load(ctx, location)
	if err != nil {
		l.Fail(location, err)
		return value, false, false
	}
	if err := json.Unmarshal(res.Body, &value); err != nil {
		l.Fail(location, fmt.Errorf("decode json: %w", err))
		var zero T
		return zero, false, false
	}
	return value, res.Unchanged, true
}
