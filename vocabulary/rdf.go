package vocabulary

import "sort"

// RdfObject is an RDF object in RDF/JSON serialization.
type RdfObject struct {
	// Type is either "resource" or "literal".
	Type     string `json:"type" yaml:"type"`
	Value    string `json:"value" yaml:"value"`
	Datatype string `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty" yaml:"lang,omitempty"`
}

// IsResource reports whether the object is an IRI.
func (o RdfObject) IsResource() bool {
	return o.Type == ObjectTypeResource
}

// Predications are the statements about one resource, keyed by predicate IRI.
type Predications map[string][]RdfObject

// Statements maps subject IRIs to their predications.
type Statements map[string]Predications

// Predicates returns the predicate IRIs in lexicographic order. Map iteration
// order is random in Go, so every consumer that depends on order goes through
// this.
func (p Predications) Predicates() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// First returns the first object for a predicate.
func (p Predications) First(predicate string) (RdfObject, bool) {
	objs := p[predicate]
	if len(objs) == 0 {
		return RdfObject{}, false
	}
	return objs[0], true
}

// Has reports whether at least one object exists for the predicate.
func (p Predications) Has(predicate string) bool {
	return len(p[predicate]) > 0
}

// Classes returns the values of all resource-typed objects, predicates in
// lexicographic order and objects in declared order. Duplicates are kept.
func (p Predications) Classes() []string {
	var classes []string
	for _, pred := range p.Predicates() {
		for _, obj := range p[pred] {
			if obj.IsResource() {
				classes = append(classes, obj.Value)
			}
		}
	}
	return classes
}

// Clone returns a deep copy.
func (p Predications) Clone() Predications {
	if p == nil {
		return nil
	}
	out := make(Predications, len(p))
	for pred, objs := range p {
		out[pred] = append([]RdfObject(nil), objs...)
	}
	return out
}

// Merge returns a new Statements holding s deep-merged with other. Object
// lists under the same subject and predicate are concatenated, s first.
// Neither input is modified.
func (s Statements) Merge(other Statements) Statements {
	out := make(Statements, len(s)+len(other))
	for subject, preds := range s {
		out[subject] = preds.Clone()
	}
	for subject, preds := range other {
		target, ok := out[subject]
		if !ok {
			out[subject] = preds.Clone()
			continue
		}
		for pred, objs := range preds {
			target[pred] = append(target[pred], objs...)
		}
	}
	return out
}

// MergeAll folds Merge over the given statements, in order.
func MergeAll(all ...Statements) Statements {
	out := Statements{}
	for _, s := range all {
		out = out.Merge(s)
	}
	return out
}
