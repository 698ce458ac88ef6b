package reactive

import (
	"errors"
	"fmt"
)

// ErrInvalidRule is returned when a rule is built without a name, a
// condition or an effect.
var ErrInvalidRule = errors.New("invalid rule")

// Condition decides whether a rule fires for a state transition.
type Condition[S any] func(prev, cur S) bool

// Effect runs when a rule fires.
type Effect[S any] func(ctx *Context[S])

// Context is handed to effects.
type Context[S any] struct {
	// Rule is the name of the firing rule.
	Rule string
	Prev S
	Cur  S

	engine *Engine[S]
}

// Dispatch queues an update to run after the current reaction.
func (c *Context[S]) Dispatch(name string, update Update[S]) {
	c.engine.Dispatch(name, update)
}

type namedCondition[S any] struct {
	desc string
	cond Condition[S]
}

// Rule is a built, immutable standing rule.
type Rule[S any] struct {
	name       string
	conditions []namedCondition[S]
	effects    []Effect[S]
}

// Name returns the rule name.
func (r *Rule[S]) Name() string { return r.name }

func (r *Rule[S]) matches(prev, cur S) bool {
	for _, c := range r.conditions {
		if !c.cond(prev, cur) {
			return false
		}
	}
	return true
}

// RuleBuilder assembles a Rule.
type RuleBuilder[S any] struct {
	rule Rule[S]
}

// NewRule starts building a rule.
func NewRule[S any](name string) *RuleBuilder[S] {
	return &RuleBuilder[S]{rule: Rule[S]{name: name}}
}

// When adds a condition. All conditions must hold for the rule to fire.
func (b *RuleBuilder[S]) When(desc string, cond Condition[S]) *RuleBuilder[S] {
	b.rule.conditions = append(b.rule.conditions, namedCondition[S]{desc: desc, cond: cond})
	return b
}

// Then adds an effect. Effects run in the order they were added.
func (b *RuleBuilder[S]) Then(effect Effect[S]) *RuleBuilder[S] {
	b.rule.effects = append(b.rule.effects, effect)
	return b
}

// Build validates and returns the rule.
func (b *RuleBuilder[S]) Build() (*Rule[S], error) {
	if b.rule.name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if len(b.rule.conditions) == 0 {
		return nil, fmt.Errorf("%w: rule %s has no condition", ErrInvalidRule, b.rule.name)
	}
	if len(b.rule.effects) == 0 {
		return nil, fmt.Errorf("%w: rule %s has no effect", ErrInvalidRule, b.rule.name)
	}
	r := b.rule
	r.conditions = append([]namedCondition[S](nil), b.rule.conditions...)
	r.effects = append([]Effect[S](nil), b.rule.effects...)
	return &r, nil
}

// MustBuild is Build for statically defined rules. It panics on error.
func (b *RuleBuilder[S]) MustBuild() *Rule[S] {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Changed holds when the selected slice differs by identity between the
// previous and the current state.
func Changed[S any, T comparable](selector func(S) T) Condition[S] {
	return func(prev, cur S) bool {
		return selector(prev) != selector(cur)
	}
}

// Any holds when at least one of conds holds.
func Any[S any](conds ...Condition[S]) Condition[S] {
	return func(prev, cur S) bool {
		for _, c := range conds {
			if c(prev, cur) {
				return true
			}
		}
		return false
	}
}

// Always holds on every transition.
func Always[S any]() Condition[S] {
	return func(_, _ S) bool { return true }
}
