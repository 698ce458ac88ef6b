// Package style derives presentation styles for annotated segments.
//
// Resolution happens in two pure steps. ResolveAnnotationStyles turns the
// ontology and the annotations into a priority-indexed style per annotation.
// ResolvePerSegmentStyle then merges the styles of all annotations on a
// segment: for every property the value from the highest priority wins, and
// among equal priorities the first annotation in index order wins.
//
// Selection highlighting is layered on top of the per-segment style with
// ApplyOverlays, which never modifies its inputs.
package style
