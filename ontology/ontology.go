// Package ontology holds the class-keyed style rules annotations are rendered
// with. Entries loaded from several sources are deep-merged.
package ontology

import (
	"strconv"
	"strings"

	"github.com/c360studio/semsynopsis/vocabulary"
)

// Ontology is an immutable snapshot of merged ontology entries.
type Ontology struct {
	entries vocabulary.Statements
}

// New wraps merged statements. The caller must not modify entries afterwards.
func New(entries vocabulary.Statements) *Ontology {
	if entries == nil {
		entries = vocabulary.Statements{}
	}
	return &Ontology{entries: entries}
}

// Empty reports whether the ontology has no entries. A nil ontology is empty.
func (o *Ontology) Empty() bool {
	return o == nil || len(o.entries) == 0
}

// Len returns the number of classes.
func (o *Ontology) Len() int {
	if o == nil {
		return 0
	}
	return len(o.entries)
}

// Entry returns the predications of a class.
func (o *Ontology) Entry(class string) (vocabulary.Predications, bool) {
	if o == nil {
		return nil, false
	}
	p, ok := o.entries[class]
	return p, ok
}

// Statements returns the merged entries. Treat the result as read-only.
func (o *Ontology) Statements() vocabulary.Statements {
	if o == nil {
		return nil
	}
	return o.entries
}

// PreferredStyle returns the preferred style value of a class and its
// priority. ok is false when the class is unknown or has no preferred style.
// A missing or unparsable priority is 0.
func (o *Ontology) PreferredStyle(class string) (value string, priority int, ok bool) {
	entry, found := o.Entry(class)
	if !found {
		return "", 0, false
	}
	preferred, has := entry.First(vocabulary.PreferredCSSColor)
	if !has {
		return "", 0, false
	}
	if p, has := entry.First(vocabulary.ColorPriority); has {
		priority = ParsePriority(p.Value)
	}
	return preferred.Value, priority, true
}

// ParsePriority parses an integer priority literal, returning 0 on failure.
func ParsePriority(s string) int {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return p
}
