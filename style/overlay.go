package style

import "github.com/c360studio/semsynopsis/segment"

// Overlay highlights every segment of a set of annotations.
type Overlay struct {
	Annotations []string
	Style       Map
}

// ApplyOverlays returns base with the overlays composed on top, in order.
// Overlay properties replace base properties of the same name. Neither base
// nor the overlays are modified.
func ApplyOverlays(base PerSegment, perAnnotation segment.SegmentsPerAnnotation, overlays ...Overlay) PerSegment {
	out := make(PerSegment, len(base))
	for segmentID, m := range base {
		out[segmentID] = m
	}

	for _, overlay := range overlays {
		if len(overlay.Style) == 0 {
			continue
		}
		for _, annotationID := range overlay.Annotations {
			for _, segmentID := range perAnnotation[annotationID] {
				m := out[segmentID].Clone()
				for prop, value := range overlay.Style {
					m[prop] = value
				}
				out[segmentID] = m
			}
		}
	}
	return out
}
