// Package selection tracks persistent and transient annotation selection.
package selection

import (
	"slices"

	"github.com/c360studio/semsynopsis/segment"
)

// State is an immutable selection snapshot.
type State struct {
	// Selected is the annotation in detail focus. Empty when nothing was ever
	// selected.
	Selected string `json:"selected,omitempty"`

	// SelectedList holds the annotations of the last non-empty click.
	SelectedList []string `json:"selectedList"`

	// Transient holds the annotations under the pointer.
	Transient []string `json:"transient"`
}

// SelectAtSegments selects the annotations on the given segments. An empty
// union leaves the selection untouched. Selected is kept when it is still in
// the union and otherwise moves to the union's first element. The returned
// flag reports whether a new state was produced.
func (s *State) SelectAtSegments(perSegment segment.AnnotationsPerSegment, segmentIDs []string) (*State, bool) {
	union := segment.AnnotationsAt(perSegment, segmentIDs)
	if len(union) == 0 {
		return s, false
	}

	next := s.clone()
	next.SelectedList = union
	if next.Selected == "" || !slices.Contains(union, next.Selected) {
		next.Selected = union[0]
	}
	return next, true
}

// MarkTransient replaces the transient set with the annotations on the given
// segments. An empty union clears it.
func (s *State) MarkTransient(perSegment segment.AnnotationsPerSegment, segmentIDs []string) (*State, bool) {
	union := segment.AnnotationsAt(perSegment, segmentIDs)
	if slices.Equal(union, s.transient()) {
		return s, false
	}

	next := s.clone()
	next.Transient = union
	return next, true
}

func (s *State) clone() *State {
	if s == nil {
		return &State{}
	}
	return &State{
		Selected:     s.Selected,
		SelectedList: s.SelectedList,
		Transient:    s.Transient,
	}
}

func (s *State) transient() []string {
	if s == nil {
		return nil
	}
	return s.Transient
}
