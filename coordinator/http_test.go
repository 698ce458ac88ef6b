package coordinator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsynopsis/channel"
	"github.com/c360studio/semsynopsis/config"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/vocabulary"
)

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_SessionAPI(t *testing.T) {
	f := newFixture(t, nil)
	f.mount("v1", "T1", "t1.segments.json")
	f.waitStyled("v1")
	f.loaded("v1")
	f.c.AttachObserver("panel-1", &recordingSender{})
	f.flush()

	mux := http.NewServeMux()
	f.c.RegisterHTTPHandlers(mux)

	t.Run("health", func(t *testing.T) {
		rec := get(t, mux, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("nothing selected", func(t *testing.T) {
		rec := get(t, mux, "/api/selection")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("state", func(t *testing.T) {
		rec := get(t, mux, "/api/state")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp struct {
			Views []struct {
				ID             string `json:"id"`
				TextID         string `json:"textId"`
				Segments       int    `json:"segments"`
				StyledSegments int    `json:"styledSegments"`
				Loaded         bool   `json:"loaded"`
			} `json:"views"`
			Ontology    int `json:"ontologyClasses"`
			Annotations int `json:"annotations"`
			Panels      int `json:"panels"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Views, 1)
		assert.Equal(t, "v1", resp.Views[0].ID)
		assert.Equal(t, "T1", resp.Views[0].TextID)
		assert.Equal(t, 3, resp.Views[0].Segments)
		assert.Equal(t, 3, resp.Views[0].StyledSegments)
		assert.True(t, resp.Views[0].Loaded)
		assert.Equal(t, 2, resp.Ontology)
		assert.Equal(t, 2, resp.Annotations)
		assert.Equal(t, 1, resp.Panels)
	})

	t.Run("vocabulary", func(t *testing.T) {
		rec := get(t, mux, "/api/vocabulary")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []PredicateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 3)
		assert.Equal(t, vocabulary.StyleColor, resp[0].Name)
		assert.Equal(t, vocabulary.PreferredCSSColor, resp[0].IRI)
		assert.Equal(t, 1, resp[0].Classes)
		assert.Equal(t, vocabulary.StylePriority, resp[1].Name)
		assert.Equal(t, 1, resp[1].Classes)
		assert.Equal(t, vocabulary.ClassLabel, resp[2].Name)
		assert.Equal(t, label, resp[2].IRI)
		assert.Equal(t, 1, resp[2].Classes)
	})

	t.Run("unknown view style", func(t *testing.T) {
		rec := get(t, mux, "/api/views/nope/style")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	f.c.HandleMessage("v1", channel.Inbound{Event: channel.EventClick, SegmentIDs: []string{"s2"}})
	f.flush()

	t.Run("view style includes selection", func(t *testing.T) {
		rec := get(t, mux, "/api/views/v1/style")
		require.Equal(t, http.StatusOK, rec.Code)
		var css style.PerSegment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &css))
		assert.Equal(t, style.Map{"background-color": "orange", "border": "1px solid red"}, css["s2"])
		assert.Equal(t, style.Map{"background-color": "yellow"}, css["s1"])
	})

	t.Run("selection", func(t *testing.T) {
		rec := get(t, mux, "/api/selection")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp SelectionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "A2", resp.AnnotationID)
		assert.Equal(t, []string{"A2"}, resp.AnnotationIDs)
		assert.Equal(t, "Second", resp.Markdown)
	})
}

func TestHTTP_NotRunning(t *testing.T) {
	c := New(config.DefaultConfig(), WithLogger(discardLogger()))
	mux := http.NewServeMux()
	c.RegisterHTTPHandlers(mux)

	for _, path := range []string{"/healthz", "/api/state", "/api/selection", "/api/views/v1/style"} {
		t.Run(path, func(t *testing.T) {
			rec := get(t, mux, path)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}
}
