// Package alignment resolves corresponding segments across texts.
//
// Two kinds of alignment data exist. Pattern rules rewrite a source segment
// id into a target segment id with a regular expression. Mapping tables list
// target segments explicitly. Pattern rules take precedence.
package alignment

import (
	"log/slog"
	"regexp"
	"strings"
)

// Rule rewrites source segment ids. ReplacementPattern may reference groups
// as $1, $<name> or $& like a JavaScript replacement string.
type Rule struct {
	MatchPattern       string `json:"matchPattern" yaml:"matchPattern"`
	ReplacementPattern string `json:"replacementPattern" yaml:"replacementPattern"`
}

// RegexAlignment holds ordered rules per source text and target text.
type RegexAlignment map[string]map[string][]Rule

// MappingAlignment maps source text -> source segment -> target text ->
// target segment.
type MappingAlignment map[string]map[string]map[string]string

// Position is the last broadcast scroll anchor of a session.
type Position struct {
	TextID     string   `json:"textId"`
	ViewID     string   `json:"viewId"`
	SegmentIDs []string `json:"segmentIds"`
}

// Bindings looks up the text a view is bound to.
type Bindings interface {
	TextOf(viewID string) (string, bool)
}

type compiledRule struct {
	re       *regexp.Regexp
	template string
}

// Table is an immutable, compiled set of alignment data.
type Table struct {
	rules   map[string]map[string][]compiledRule
	mapping MappingAlignment
}

// NewTable compiles the pattern rules. Rules with invalid patterns are skipped
// with a warning. Either argument may be nil.
func NewTable(regex RegexAlignment, mapping MappingAlignment, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{
		rules:   make(map[string]map[string][]compiledRule),
		mapping: mapping,
	}
	for source, targets := range regex {
		for target, rules := range targets {
			for _, rule := range rules {
				re, err := regexp.Compile(rule.MatchPattern)
				if err != nil {
					logger.Warn("Skipping invalid alignment pattern",
						"source", source, "target", target,
						"pattern", rule.MatchPattern, "error", err)
					continue
				}
				if t.rules[source] == nil {
					t.rules[source] = make(map[string][]compiledRule)
				}
				t.rules[source][target] = append(t.rules[source][target], compiledRule{
					re:       re,
					template: convertTemplate(rule.ReplacementPattern),
				})
			}
		}
	}
	return t
}

// Empty reports whether the table holds no alignment data.
func (t *Table) Empty() bool {
	return t == nil || (len(t.rules) == 0 && len(t.mapping) == 0)
}

// ResolveTarget returns the segment the target view should scroll to for pos.
// ok is false when the position originates from the target view itself, the
// target view is not bound to a text, or no alignment applies.
func (t *Table) ResolveTarget(pos Position, targetViewID string, bindings Bindings) (string, bool) {
	if pos.ViewID == targetViewID {
		return "", false
	}
	targetTextID, ok := bindings.TextOf(targetViewID)
	if !ok {
		return "", false
	}
	return t.Resolve(pos.TextID, targetTextID, pos.SegmentIDs)
}

// Resolve maps source segments of one text onto another text. Rules are tried
// in declared order, each against every segment in order; the first match
// wins. The mapping table is consulted only when no rule matched.
func (t *Table) Resolve(sourceTextID, targetTextID string, segmentIDs []string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, rule := range t.rules[sourceTextID][targetTextID] {
		for _, segmentID := range segmentIDs {
			loc := rule.re.FindStringSubmatchIndex(segmentID)
			if loc == nil {
				continue
			}
			replaced := rule.re.ExpandString(nil, rule.template, segmentID, loc)
			return segmentID[:loc[0]] + string(replaced) + segmentID[loc[1]:], true
		}
	}

	segments := t.mapping[sourceTextID]
	for _, segmentID := range segmentIDs {
		if target, ok := segments[segmentID][targetTextID]; ok {
			return target, true
		}
	}
	return "", false
}

// convertTemplate rewrites a JavaScript replacement string into the template
// syntax of regexp.Expand.
func convertTemplate(js string) string {
	var b strings.Builder
	for i := 0; i < len(js); i++ {
		c := js[i]
		if c != '$' || i+1 == len(js) {
			if c == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(c)
			}
			continue
		}
		next := js[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(js) && js[j] >= '0' && js[j] <= '9' {
				j++
			}
			b.WriteString("${" + js[i+1:j] + "}")
			i = j - 1
		case next == '<':
			end := strings.IndexByte(js[i:], '>')
			if end < 0 {
				b.WriteString("$$")
				continue
			}
			b.WriteString("${" + js[i+2:i+end] + "}")
			i += end
		default:
			b.WriteString("$$")
		}
	}
	return b.String()
}
