// Package view keeps the texts of a session and the views presenting them.
//
// Views and texts are copy-on-write: every update stores a new value, so a
// pointer taken from the registry is a stable snapshot.
package view

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360studio/semsynopsis/segment"
	"github.com/c360studio/semsynopsis/style"
)

// ErrUnknownView is returned when a view id is not mounted.
var ErrUnknownView = errors.New("unknown view")

// Text is a document shown in one or more views.
type Text struct {
	ID           string `json:"id"`
	Location     string `json:"location,omitempty"`
	CanonicalURL string `json:"canonicalUrl,omitempty"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	// Content is the raw document of an inline-loaded text.
	Content string `json:"-"`
}

// TextView is one presentation slot bound to a text.
type TextView struct {
	ID     string `json:"id"`
	TextID string `json:"textId,omitempty"`
	// Href is the location the view reported for its document.
	Href string `json:"href,omitempty"`
	// SegmentsURL overrides the derived per-segment annotation index location.
	SegmentsURL    string `json:"segmentsUrl,omitempty"`
	ScrollPosition string `json:"scrollPosition,omitempty"`

	Index *segment.Index   `json:"-"`
	Style style.PerSegment `json:"-"`
	// StyleRevision increases with every SetStyle.
	StyleRevision uint64 `json:"styleRevision"`
}

// Views is an immutable set of view snapshots keyed by id.
type Views map[string]*TextView

// Texts is an immutable set of text snapshots keyed by id.
type Texts map[string]*Text

// Registry holds texts and mounted views. Both sets are replaced on every
// write, so Snapshot and TextSnapshot values can be compared by identity.
type Registry struct {
	mu     sync.RWMutex
	texts  Texts
	views  Views
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		texts:  Texts{},
		views:  Views{},
		logger: logger,
	}
}

// Mount registers a view. Mounting an already mounted view returns the
// existing one unchanged.
func (r *Registry) Mount(id, textID, segmentsURL string) *TextView {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[id]; ok {
		return v
	}
	v := &TextView{ID: id, TextID: textID, SegmentsURL: segmentsURL}
	r.putView(v)
	r.logger.Debug("View mounted", "view", id, "text", textID)
	return v
}

// Unmount removes a view. Its text stays.
func (r *Registry) Unmount(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[id]; !ok {
		return
	}
	next := make(Views, len(r.views))
	for k, v := range r.views {
		if k != id {
			next[k] = v
		}
	}
	r.views = next
	r.logger.Debug("View unmounted", "view", id)
}

// putView stores v in a fresh copy of the view set. Callers hold mu.
func (r *Registry) putView(v *TextView) {
	next := make(Views, len(r.views)+1)
	for k, existing := range r.views {
		next[k] = existing
	}
	next[v.ID] = v
	r.views = next
}

// putText stores t in a fresh copy of the text set. Callers hold mu.
func (r *Registry) putText(t *Text) {
	next := make(Texts, len(r.texts)+1)
	for k, existing := range r.texts {
		next[k] = existing
	}
	next[t.ID] = t
	r.texts = next
}

// Snapshot returns the current view set. Treat it as read-only.
func (r *Registry) Snapshot() Views {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views
}

// TextSnapshot returns the current text set. Treat it as read-only.
func (r *Registry) TextSnapshot() Texts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.texts
}

// View returns the current snapshot of a view.
func (r *Registry) View(id string) (*TextView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	return v, ok
}

// Views returns all views ordered by id.
func (r *Registry) Views() []*TextView {
	return r.Snapshot().Sorted()
}

// Sorted returns the views ordered by id.
func (vs Views) Sorted() []*TextView {
	out := make([]*TextView, 0, len(vs))
	for _, v := range vs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TextOf returns the text a view in the set is bound to.
func (vs Views) TextOf(viewID string) (string, bool) {
	v, ok := vs[viewID]
	if !ok || v.TextID == "" {
		return "", false
	}
	return v.TextID, true
}

// ViewsOf returns the views bound to a text, ordered by id.
func (r *Registry) ViewsOf(textID string) []*TextView {
	var out []*TextView
	for _, v := range r.Views() {
		if v.TextID == textID {
			out = append(out, v)
		}
	}
	return out
}

// TextOf returns the text a view is bound to.
func (r *Registry) TextOf(viewID string) (string, bool) {
	v, ok := r.View(viewID)
	if !ok || v.TextID == "" {
		return "", false
	}
	return v.TextID, true
}

// Update applies fn to a copy of the view and stores the copy.
func (r *Registry) Update(id string, fn func(v *TextView)) (*TextView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.views[id]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", id, ErrUnknownView)
	}
	next := *current
	fn(&next)
	r.putView(&next)
	return &next, nil
}

// SetScrollPosition records the segment at the top of the view.
func (r *Registry) SetScrollPosition(viewID, segmentID string) (*TextView, error) {
	return r.Update(viewID, func(v *TextView) { v.ScrollPosition = segmentID })
}

// SetIndex replaces the segment index of a view.
func (r *Registry) SetIndex(viewID string, ix *segment.Index) (*TextView, error) {
	return r.Update(viewID, func(v *TextView) { v.Index = ix })
}

// SetStyle replaces the derived per-segment style of a view.
func (r *Registry) SetStyle(viewID string, s style.PerSegment) (*TextView, error) {
	return r.Update(viewID, func(v *TextView) {
		v.Style = s
		v.StyleRevision++
	})
}

// UpsertText creates a text or merges the non-empty fields of t into the
// existing one. It returns the stored snapshot.
func (r *Registry) UpsertText(t Text) *Text {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.texts[t.ID]
	if !ok {
		stored := t
		r.putText(&stored)
		return &stored
	}
	next := *current
	if t.Location != "" {
		next.Location = t.Location
	}
	if t.CanonicalURL != "" {
		next.CanonicalURL = t.CanonicalURL
	}
	if t.Title != "" {
		next.Title = t.Title
	}
	if t.Author != "" {
		next.Author = t.Author
	}
	if t.Content != "" {
		next.Content = t.Content
	}
	r.putText(&next)
	return &next
}

// Text returns a text by id.
func (r *Registry) Text(id string) (*Text, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.texts[id]
	return t, ok
}

// Texts returns all texts ordered by id.
func (r *Registry) Texts() []*Text {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Text, 0, len(r.texts))
	for _, t := range r.texts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
