package coordinator

import (
	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/annotation"
	"github.com/c360studio/semsynopsis/ontology"
	"github.com/c360studio/semsynopsis/reactive"
	"github.com/c360studio/semsynopsis/selection"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/view"
)

// State is the session snapshot observed by the reactive rules. Fields are
// replaced on update and never mutated, so rules compare them by identity.
// A nil field has not been populated yet.
type State struct {
	Ontology    *ontology.Ontology
	Annotations *annotation.Snapshot
	Styles      *AnnotationStyles
	Alignment   *alignment.Table
	Views       view.Views
	Texts       view.Texts
	Selection   *selection.State
	Position    *alignment.Position
}

// AnnotationStyles is the resolved style of every annotation.
type AnnotationStyles struct {
	PerAnnotation style.PerAnnotation
}

// sameFunc reports whether the part of a view a rule depends on is
// unchanged. before is nil for views that were not mounted.
type sameFunc func(before, after *view.TextView) bool

func sameIndex(before, after *view.TextView) bool {
	if before == nil {
		return after.Index == nil
	}
	return before.Index == after.Index
}

func sameStyle(before, after *view.TextView) bool {
	if before == nil {
		return after.StyleRevision == 0
	}
	return before.StyleRevision == after.StyleRevision
}

func sameScroll(before, after *view.TextView) bool {
	if before == nil {
		return after.ScrollPosition == ""
	}
	return before.ScrollPosition == after.ScrollPosition
}

// changedViews returns the views of cur, ordered by id, that differ from
// prev according to same.
func changedViews(prev, cur view.Views, same sameFunc) []*view.TextView {
	var out []*view.TextView
	for _, v := range cur.Sorted() {
		if !same(prev[v.ID], v) {
			out = append(out, v)
		}
	}
	return out
}

func viewsChanged(same sameFunc) reactive.Condition[State] {
	return func(prev, cur State) bool {
		return len(changedViews(prev.Views, cur.Views, same)) > 0
	}
}

// contentOf returns the inline content of the text a view is bound to.
func contentOf(s State, v *view.TextView) string {
	if v == nil {
		return ""
	}
	t, ok := s.Texts[v.TextID]
	if !ok {
		return ""
	}
	return t.Content
}

// contentChanges returns the views whose bound inline content changed.
func contentChanges(prev, cur State) []*view.TextView {
	var out []*view.TextView
	for _, v := range cur.Views.Sorted() {
		content := contentOf(cur, v)
		if content == "" {
			continue
		}
		if contentOf(prev, prev.Views[v.ID]) != content {
			out = append(out, v)
		}
	}
	return out
}

func contentChanged(prev, cur State) bool {
	return len(contentChanges(prev, cur)) > 0
}

func positionSet(_, cur State) bool {
	return cur.Position != nil
}
