// Package segment indexes annotations against the segments of a text view.
package segment

import (
	"log/slog"
	"sort"
)

// AnnotationsPerSegment maps a segment id to the ids of the annotations on it.
type AnnotationsPerSegment map[string][]string

// SegmentsPerAnnotation maps an annotation id to the segments it covers.
type SegmentsPerAnnotation map[string][]string

// Index is the immutable pair of a view's segment index and its inverse.
// It is replaced wholesale, never patched.
type Index struct {
	PerSegment    AnnotationsPerSegment
	PerAnnotation SegmentsPerAnnotation
}

// NewIndex builds an Index from the per-segment form.
func NewIndex(perSegment AnnotationsPerSegment, logger *slog.Logger) *Index {
	if perSegment == nil {
		perSegment = AnnotationsPerSegment{}
	}
	return &Index{
		PerSegment:    perSegment,
		PerAnnotation: Invert(perSegment, logger),
	}
}

// Empty reports whether the index holds no segments.
func (ix *Index) Empty() bool {
	return ix == nil || len(ix.PerSegment) == 0
}

// Invert builds the annotation -> segments index. Segments are visited in
// lexicographic order so the output is stable. Empty segment ids are skipped.
func Invert(perSegment AnnotationsPerSegment, logger *slog.Logger) SegmentsPerAnnotation {
	if logger == nil {
		logger = slog.Default()
	}

	segmentIDs := make([]string, 0, len(perSegment))
	for id := range perSegment {
		segmentIDs = append(segmentIDs, id)
	}
	sort.Strings(segmentIDs)

	out := make(SegmentsPerAnnotation)
	for _, segmentID := range segmentIDs {
		if segmentID == "" {
			logger.Warn("Skipping segment with empty id", "annotations", perSegment[segmentID])
			continue
		}
		for _, annotationID := range perSegment[segmentID] {
			out[annotationID] = append(out[annotationID], segmentID)
		}
	}
	return out
}

// AnnotationsAt returns the union of the annotations on the given segments,
// without duplicates, in first-encountered order.
func AnnotationsAt(perSegment AnnotationsPerSegment, segmentIDs []string) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, segmentID := range segmentIDs {
		for _, annotationID := range perSegment[segmentID] {
			if _, dup := seen[annotationID]; dup {
				continue
			}
			seen[annotationID] = struct{}{}
			union = append(union, annotationID)
		}
	}
	return union
}
