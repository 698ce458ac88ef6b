package coordinator

import (
	"encoding/json"
	"net/http"

	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/selection"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/view"
	"github.com/c360studio/semsynopsis/vocabulary"
)

// RegisterHTTPHandlers registers the read-only session API:
//
//	GET /api/state
//	GET /api/views/{viewID}/style
//	GET /api/selection
//	GET /api/vocabulary
//	GET /healthz
func (c *Coordinator) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", c.handleState)
	mux.HandleFunc("GET /api/views/{viewID}/style", c.handleViewStyle)
	mux.HandleFunc("GET /api/selection", c.handleSelection)
	mux.HandleFunc("GET /api/vocabulary", c.handleVocabulary)
	mux.HandleFunc("GET /healthz", c.handleHealth)
}

// StateResponse is the session snapshot served by GET /api/state.
type StateResponse struct {
	Texts       []*view.Text        `json:"texts"`
	Views       []ViewStatus        `json:"views"`
	Selection   *selection.State    `json:"selection,omitempty"`
	Position    *alignment.Position `json:"position,omitempty"`
	Ontology    int                 `json:"ontologyClasses"`
	Annotations int                 `json:"annotations"`
	Panels      int                 `json:"panels"`
}

// ViewStatus describes one mounted view.
type ViewStatus struct {
	*view.TextView
	Segments       int  `json:"segments"`
	StyledSegments int  `json:"styledSegments"`
	Loaded         bool `json:"loaded"`
}

// SelectionResponse is the annotation in detail focus.
type SelectionResponse struct {
	AnnotationID  string   `json:"annotationId"`
	AnnotationIDs []string `json:"annotationIds"`
	Transient     []string `json:"transient"`
	Body          string   `json:"body"`
	Markdown      string   `json:"markdown"`
}

// PredicateResponse describes one interpreted ontology predicate and how many
// loaded classes use it.
type PredicateResponse struct {
	Name        string `json:"name"`
	IRI         string `json:"iri"`
	DataType    string `json:"dataType"`
	Description string `json:"description"`
	Classes     int    `json:"classes"`
}

// ----------------------------------------------------------------------------
// GET /api/state
// ----------------------------------------------------------------------------

func (c *Coordinator) handleState(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	ok := c.query(func() {
		s := c.engine.State()
		resp = StateResponse{
			Texts:       c.registry.Texts(),
			Views:       make([]ViewStatus, 0, len(s.Views)),
			Selection:   s.Selection,
			Position:    s.Position,
			Ontology:    s.Ontology.Len(),
			Annotations: s.Annotations.Len(),
			Panels:      len(c.observers),
		}
		for _, v := range c.registry.Views() {
			status := ViewStatus{TextView: v, StyledSegments: len(v.Style)}
			if v.Index != nil {
				status.Segments = len(v.Index.PerSegment)
			}
			if conn, ok := c.conns[v.ID]; ok {
				status.Loaded = conn.peer.Port().Ready()
			}
			resp.Views = append(resp.Views, status)
		}
	})
	if !ok {
		http.Error(w, "Coordinator not running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// GET /api/views/{viewID}/style
// ----------------------------------------------------------------------------

// handleViewStyle returns the effective per-segment style of a view,
// selection highlights included.
func (c *Coordinator) handleViewStyle(w http.ResponseWriter, r *http.Request) {
	viewID := r.PathValue("viewID")

	var css style.PerSegment
	found := false
	ok := c.query(func() {
		v, mounted := c.registry.View(viewID)
		if !mounted {
			return
		}
		found = true
		css = c.composeStyle(v, c.engine.State().Selection)
	})
	if !ok {
		http.Error(w, "Coordinator not running", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "View not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, css)
}

// ----------------------------------------------------------------------------
// GET /api/selection
// ----------------------------------------------------------------------------

func (c *Coordinator) handleSelection(w http.ResponseWriter, r *http.Request) {
	var resp *SelectionResponse
	ok := c.query(func() {
		if detail := c.detail(c.engine.State()); detail != nil {
			resp = &SelectionResponse{
				AnnotationID:  detail.AnnotationID,
				AnnotationIDs: detail.AnnotationIDs,
				Transient:     detail.Transient,
				Body:          detail.Body,
				Markdown:      detail.Markdown,
			}
		}
	})
	if !ok {
		http.Error(w, "Coordinator not running", http.StatusServiceUnavailable)
		return
	}
	if resp == nil {
		http.Error(w, "Nothing selected", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// GET /api/vocabulary
// ----------------------------------------------------------------------------

func (c *Coordinator) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	var resp []PredicateResponse
	ok := c.query(func() {
		entries := c.engine.State().Ontology.Statements()
		for _, meta := range vocabulary.Styling() {
			p := PredicateResponse{
				Name:        meta.Name,
				IRI:         meta.StandardIRI,
				DataType:    meta.DataType,
				Description: meta.Description,
			}
			for _, entry := range entries {
				if entry.Has(meta.StandardIRI) {
					p.Classes++
				}
			}
			resp = append(resp, p)
		}
	})
	if !ok {
		http.Error(w, "Coordinator not running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// GET /healthz
// ----------------------------------------------------------------------------

func (c *Coordinator) handleHealth(w http.ResponseWriter, r *http.Request) {
	select {
	case <-c.started:
	default:
		http.Error(w, "starting", http.StatusServiceUnavailable)
		return
	}
	select {
	case <-c.done:
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	default:
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Response is already partially written on failure; nothing to report.
	_ = json.NewEncoder(w).Encode(v)
}
