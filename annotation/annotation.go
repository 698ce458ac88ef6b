// Package annotation holds annotation bodies and their predications.
package annotation

import (
	"sort"

	"github.com/c360studio/semsynopsis/vocabulary"
)

// Annotation is a unit of markup on a text.
type Annotation struct {
	// Body is the annotation comment as serialized HTML.
	Body string `json:"body"`

	// Predications are the RDF statements on the annotation. Resource-typed
	// objects are its class attributions.
	Predications vocabulary.Predications `json:"predications"`
}

// Classes returns the class attributions of the annotation.
func (a Annotation) Classes() []string {
	return a.Predications.Classes()
}

// Set is an immutable snapshot of all annotations keyed by id, in the JSON
// shape served by annotation endpoints.
type Set map[string]Annotation

// Snapshot wraps a Set so that changes can be detected by pointer identity.
type Snapshot struct {
	annotations Set
}

// NewSnapshot wraps annotations. The caller must not modify the set afterwards.
func NewSnapshot(annotations Set) *Snapshot {
	if annotations == nil {
		annotations = Set{}
	}
	return &Snapshot{annotations: annotations}
}

// Get returns an annotation by id.
func (s *Snapshot) Get(id string) (Annotation, bool) {
	if s == nil {
		return Annotation{}, false
	}
	a, ok := s.annotations[id]
	return a, ok
}

// Len returns the number of annotations.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.annotations)
}

// IDs returns all annotation ids in lexicographic order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.annotations))
	for id := range s.annotations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns the underlying set. Treat the result as read-only.
func (s *Snapshot) All() Set {
	if s == nil {
		return nil
	}
	return s.annotations
}
