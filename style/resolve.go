package style

import (
	"log/slog"
	"sort"

	"github.com/c360studio/semsynopsis/annotation"
	"github.com/c360studio/semsynopsis/ontology"
	"github.com/c360studio/semsynopsis/segment"
)

// Options tune style resolution.
type Options struct {
	// DefaultColor is used for classes without a preferred style.
	DefaultColor string
	// Property receives bare preferred style values.
	Property string
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{DefaultColor: DefaultColor, Property: DefaultProperty}
}

func (o Options) withDefaults() Options {
	if o.DefaultColor == "" {
		o.DefaultColor = DefaultColor
	}
	if o.Property == "" {
		o.Property = DefaultProperty
	}
	return o
}

// ResolveAnnotationStyle returns the prioritized style of one annotation.
// Every class attribution found in the ontology contributes at its priority;
// a later class at the same priority replaces an earlier one. Classes are
// visited in predicate-IRI order, so the result is deterministic.
func ResolveAnnotationStyle(o *ontology.Ontology, a annotation.Annotation, opts Options) Prioritized {
	opts = opts.withDefaults()
	out := Prioritized{}
	for _, class := range a.Classes() {
		if _, known := o.Entry(class); !known {
			continue
		}
		value, priority, ok := o.PreferredStyle(class)
		if !ok {
			out[0] = Map{opts.Property: opts.DefaultColor}
			continue
		}
		out[priority] = ParseValue(value, opts.Property)
	}
	return out
}

// ResolveAnnotationStyles resolves every annotation. ok is false while the
// ontology is empty, in which case there is nothing to apply.
func ResolveAnnotationStyles(o *ontology.Ontology, annotations *annotation.Snapshot, opts Options) (PerAnnotation, bool) {
	if o.Empty() || annotations == nil {
		return nil, false
	}
	out := make(PerAnnotation, annotations.Len())
	for id, a := range annotations.All() {
		out[id] = ResolveAnnotationStyle(o, a, opts)
	}
	return out, true
}

// ResolvePerSegmentStyle merges the styles of the annotations on each
// segment. A property is written when it is absent or when the incoming
// priority is strictly higher than the one that decided it. Segments whose
// merged style is empty are left out. ok is false when either input is
// missing.
func ResolvePerSegmentStyle(styles PerAnnotation, perSegment segment.AnnotationsPerSegment, logger *slog.Logger) (PerSegment, bool) {
	if styles == nil || perSegment == nil {
		return nil, false
	}
	if logger == nil {
		logger = slog.Default()
	}

	segmentIDs := make([]string, 0, len(perSegment))
	for id := range perSegment {
		segmentIDs = append(segmentIDs, id)
	}
	sort.Strings(segmentIDs)

	out := make(PerSegment)
	for _, segmentID := range segmentIDs {
		annotationIDs := perSegment[segmentID]
		if segmentID == "" {
			logger.Warn("Skipping segment with empty id", "annotations", annotationIDs)
			continue
		}
		if len(annotationIDs) == 0 {
			continue
		}
		if merged := mergeSegment(styles, annotationIDs); len(merged) > 0 {
			out[segmentID] = merged
		}
	}
	return out, true
}

func mergeSegment(styles PerAnnotation, annotationIDs []string) Map {
	merged := Map{}
	decidedBy := make(map[string]int)
	for _, annotationID := range annotationIDs {
		prioritized := styles[annotationID]
		for _, priority := range prioritized.Priorities() {
			for prop, value := range prioritized[priority] {
				current, set := decidedBy[prop]
				if set && priority <= current {
					continue
				}
				merged[prop] = value
				decidedBy[prop] = priority
			}
		}
	}
	return merged
}
