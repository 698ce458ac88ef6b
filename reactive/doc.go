// Package reactive runs standing rules against an immutable state value.
//
// The engine holds one state value S. Updates replace it wholesale; after
// every update each rule sees the previous and the current value and fires
// when all of its conditions hold. Conditions usually compare a slice of the
// state by identity:
//
//	engine.AddRule(reactive.NewRule[Session]("restyle-views").
//		When("ontology changed", reactive.Changed(func(s Session) *ontology.Ontology { return s.Ontology })).
//		Then(restyle).
//		MustBuild())
//
// Effects may dispatch further updates. Those are queued and applied after
// the current reaction completes, so a reaction never re-enters itself.
package reactive
