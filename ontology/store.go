package ontology

import (
	"sync"

	"github.com/c360studio/semsynopsis/vocabulary"
)

// Store keeps the statements of every ontology source and the merged
// snapshot. Sources are merged in the order they were first set, so reloading
// one source never duplicates its entries.
type Store struct {
	mu      sync.Mutex
	order   []string
	sources map[string]vocabulary.Statements
	current *Ontology
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sources: make(map[string]vocabulary.Statements),
		current: New(nil),
	}
}

// Set replaces the statements loaded from source and returns the new merged
// snapshot.
func (s *Store) Set(source string, statements vocabulary.Statements) *Ontology {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.sources[source]; !known {
		s.order = append(s.order, source)
	}
	s.sources[source] = statements

	all := make([]vocabulary.Statements, 0, len(s.order))
	for _, name := range s.order {
		all = append(all, s.sources[name])
	}
	s.current = New(vocabulary.MergeAll(all...))
	return s.current
}

// Current returns the merged snapshot.
func (s *Store) Current() *Ontology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Sources returns the source names in merge order.
func (s *Store) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
