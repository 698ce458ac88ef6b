package style

import (
	"sort"
	"strings"
)

// Defaults used when an ontology class carries no preferred style.
const (
	DefaultColor    = "yellow"
	DefaultProperty = "background-color"
)

// Map is a set of style declarations, property name to value.
type Map map[string]string

// Prioritized is the style of one annotation, indexed by priority.
type Prioritized map[int]Map

// PerAnnotation maps annotation ids to their prioritized style.
type PerAnnotation map[string]Prioritized

// PerSegment maps segment ids to their effective style.
type PerSegment map[string]Map

// Clone returns a copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String renders the map as CSS declarations in property order.
func (m Map) String() string {
	props := make([]string, 0, len(m))
	for p := range m {
		props = append(props, p)
	}
	sort.Strings(props)

	var b strings.Builder
	for i, p := range props {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p)
		b.WriteString(": ")
		b.WriteString(m[p])
		b.WriteString(";")
	}
	return b.String()
}

// Priorities returns the priorities in ascending order.
func (p Prioritized) Priorities() []int {
	keys := make([]int, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ParseValue interprets a preferred style value. A value containing ':' is a
// list of CSS declarations separated by ';'. Any other value is assigned to
// property. Property names are lower-cased; malformed declarations are
// dropped.
func ParseValue(value, property string) Map {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, ":") {
		if value == "" {
			return Map{}
		}
		return Map{property: value}
	}

	out := Map{}
	for _, decl := range strings.Split(value, ";") {
		name, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		val = strings.TrimSpace(val)
		if name == "" || val == "" {
			continue
		}
		out[name] = val
	}
	return out
}
