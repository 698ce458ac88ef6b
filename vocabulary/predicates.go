package vocabulary

import (
	semvocab "github.com/c360studio/semstreams/vocabulary"
)

// AnnotationNamespace is the IRI prefix of the annotation styling vocabulary.
const AnnotationNamespace = "https://intertextuality.org/annotation#"

// Styling predicates read from ontology entries.
const (
	// PreferredCSSColor is the preferred style of an annotation class. A bare
	// value is a background color; a value containing ':' is a list of CSS
	// declarations.
	PreferredCSSColor = AnnotationNamespace + "preferredCssColor"

	// ColorPriority is the integer priority of the preferred style. Higher
	// priorities win when several classes style the same segment.
	ColorPriority = AnnotationNamespace + "colorPriority"
)

// Dotted names the styling predicates are registered under.
const (
	StyleColor    = "annotation.style.color"
	StylePriority = "annotation.style.priority"
	ClassLabel    = "annotation.class.label"
)

// RDF object types.
const (
	// ObjectTypeResource marks an object that is an IRI (a class attribution
	// when it appears on an annotation).
	ObjectTypeResource = "resource"

	// ObjectTypeLiteral marks a literal value.
	ObjectTypeLiteral = "literal"
)

var registered = []string{StyleColor, StylePriority, ClassLabel}

func init() {
	semvocab.Register(StyleColor,
		semvocab.WithDescription("Preferred style of an annotation class: a background color or CSS declarations"),
		semvocab.WithDataType("string"),
		semvocab.WithIRI(PreferredCSSColor))

	semvocab.Register(StylePriority,
		semvocab.WithDescription("Priority of the preferred style; the highest priority wins per CSS property"),
		semvocab.WithDataType("int"),
		semvocab.WithIRI(ColorPriority))

	semvocab.Register(ClassLabel,
		semvocab.WithDescription("Display label of an annotation class"),
		semvocab.WithDataType("string"),
		semvocab.WithIRI(semvocab.RdfsLabel))
}

// Describe returns the registered metadata of a predicate given by its dotted
// name or its IRI.
func Describe(predicate string) (*semvocab.PredicateMetadata, bool) {
	for _, name := range registered {
		meta := semvocab.GetPredicateMetadata(name)
		if meta == nil {
			continue
		}
		if name == predicate || meta.StandardIRI == predicate {
			return meta, true
		}
	}
	return nil, false
}

// Styling returns the metadata of every predicate the coordinator
// interprets, in registration order.
func Styling() []*semvocab.PredicateMetadata {
	out := make([]*semvocab.PredicateMetadata, 0, len(registered))
	for _, name := range registered {
		if meta := semvocab.GetPredicateMetadata(name); meta != nil {
			out = append(out, meta)
		}
	}
	return out
}
