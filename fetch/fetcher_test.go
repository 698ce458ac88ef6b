package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etagServer(t *testing.T, body string, etag string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.json":
			http.NotFound(w, r)
			return
		case "/big.json":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
			return
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_FetchWithETag(t *testing.T) {
	srv := etagServer(t, `{"C1":{}}`, `"v1"`)
	f := NewFetcher(5*time.Second, DefaultUserAgent, 32)
	ctx := context.Background()

	res, err := f.Fetch(ctx, srv.URL+"/ontology.json")
	require.NoError(t, err)
	assert.Equal(t, `{"C1":{}}`, string(res.Body))
	assert.Equal(t, `"v1"`, res.ETag)
	assert.False(t, res.NotModified())

	res, err = f.FetchWithETag(ctx, srv.URL+"/ontology.json", `"v1"`)
	require.NoError(t, err)
	assert.True(t, res.NotModified())
	assert.Empty(t, res.Body)

	_, err = f.Fetch(ctx, srv.URL+"/missing.json")
	assert.Error(t, err)

	_, err = f.Fetch(ctx, srv.URL+"/big.json")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoader_RevalidatesRemote(t *testing.T) {
	srv := etagServer(t, `{"A1":{"body":"b","predications":{}}}`, `"rev-1"`)
	l := NewLoader(nil)
	ctx := context.Background()

	first, err := l.Load(ctx, srv.URL+"/annotations.json")
	require.NoError(t, err)
	assert.False(t, first.Unchanged)

	second, err := l.Load(ctx, srv.URL+"/annotations.json")
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.Body, second.Body)
}

func TestDecodeJSON(t *testing.T) {
	srv := etagServer(t, `{"s1":["A1"]}`, `"x"`)

	var failures []string
	l := NewLoader(nil, WithFailureHook(func(location string, err error) {
		failures = append(failures, location)
	}))
	ctx := context.Background()

	t.Run("decodes remote json", func(t *testing.T) {
		got, unchanged, ok := DecodeJSON[map[string][]string](ctx, l, srv.URL+"/t1.html.segments.json")
		require.True(t, ok)
		assert.False(t, unchanged)
		assert.Equal(t, []string{"A1"}, got["s1"])
	})

	t.Run("failure yields zero value", func(t *testing.T) {
		got, _, ok := DecodeJSON[map[string][]string](ctx, l, srv.URL+"/missing.json")
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("invalid json yields zero value", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "broken.json", "{not json")
		got, _, ok := DecodeJSON[map[string][]string](ctx, l, path)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	assert.Len(t, failures, 2)
}
