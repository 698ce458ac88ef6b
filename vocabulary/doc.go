// Package vocabulary provides the RDF/JSON data shapes shared by annotations and
// ontologies, and the predicate IRIs the synopsis coordinator interprets.
//
// # Resource-centred RDF/JSON
//
// Annotations and ontology entries are both described by Predications: a map
// from predicate IRI to an ordered list of RDF objects.
//
//	{
//	  "https://example.org/ontology#Quote": {
//	    "https://intertextuality.org/annotation#preferredCssColor": [
//	      {"type": "literal", "value": "lightblue"}
//	    ],
//	    "https://intertextuality.org/annotation#colorPriority": [
//	      {"type": "literal", "value": "2"}
//	    ]
//	  }
//	}
//
// A Statements value maps subjects to their Predications. Statements loaded
// from several sources are combined with Merge, which concatenates object lists
// instead of replacing them.
//
// # Classes
//
// The class attributions of an annotation are exactly the resource-typed
// objects found under its predications, in predicate-IRI order. See
// Predications.Classes.
package vocabulary
