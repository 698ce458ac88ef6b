package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slice struct{ v int }

type state struct {
	input   *slice
	derived *slice
	other   *slice
}

func TestEngine_ChangedFiresOnIdentity(t *testing.T) {
	e := NewEngine(state{input: &slice{1}})

	var fired int
	e.AddRule(NewRule[state]("derive").
		When("input changed", Changed(func(s state) *slice { return s.input })).
		Then(func(ctx *Context[state]) {
			fired++
			ctx.Dispatch("set-derived", func(cur state) state {
				cur.derived = &slice{cur.input.v * 10}
				return cur
			})
		}).
		MustBuild())

	e.Dispatch("touch-other", func(cur state) state {
		cur.other = &slice{7}
		return cur
	})
	assert.Equal(t, 0, fired, "unrelated slice does not fire")

	e.Dispatch("set-input", func(cur state) state {
		cur.input = &slice{2}
		return cur
	})
	assert.Equal(t, 1, fired)
	require.NotNil(t, e.State().derived)
	assert.Equal(t, 20, e.State().derived.v)

	same := e.State().input
	e.Dispatch("same-input", func(cur state) state {
		cur.input = same
		return cur
	})
	assert.Equal(t, 1, fired, "same pointer is not a change")
}

func TestEngine_EffectsDoNotReenter(t *testing.T) {
	e := NewEngine(state{})

	var order []string
	e.AddRule(NewRule[state]("first").
		When("input changed", Changed(func(s state) *slice { return s.input })).
		Then(func(ctx *Context[state]) {
			order = append(order, "first:start")
			ctx.Dispatch("derive", func(cur state) state {
				order = append(order, "derive applied")
				cur.derived = &slice{1}
				return cur
			})
			order = append(order, "first:end")
		}).
		MustBuild())
	e.AddRule(NewRule[state]("second").
		When("input changed", Changed(func(s state) *slice { return s.input })).
		Then(func(ctx *Context[state]) { order = append(order, "second") }).
		MustBuild())

	e.Dispatch("input", func(cur state) state {
		cur.input = &slice{1}
		return cur
	})

	assert.Equal(t, []string{"first:start", "first:end", "second", "derive applied"}, order)
}

func TestEngine_MaxIterations(t *testing.T) {
	e := NewEngine(state{}, WithMaxIterations[state](5))

	var fired int
	e.AddRule(NewRule[state]("loop").
		When("always", Always[state]()).
		Then(func(ctx *Context[state]) {
			fired++
			ctx.Dispatch("again", func(cur state) state { return cur })
		}).
		MustBuild())

	e.Dispatch("start", func(cur state) state { return cur })
	assert.Equal(t, 5, fired)

	// the engine is usable afterwards
	e.Dispatch("start", func(cur state) state { return cur })
	assert.Equal(t, 10, fired)
}

func TestEngine_PanickingEffectIsContained(t *testing.T) {
	var fired []string
	e := NewEngine(state{}, WithFireHook[state](func(rule string) { fired = append(fired, rule) }))
	e.AddRule(NewRule[state]("boom").
		When("always", Always[state]()).
		Then(func(*Context[state]) { panic("boom") }).
		MustBuild())
	e.AddRule(NewRule[state]("after").
		When("always", Always[state]()).
		Then(func(*Context[state]) {}).
		MustBuild())

	assert.NotPanics(t, func() {
		e.Dispatch("x", func(cur state) state { return cur })
	})
	assert.Equal(t, []string{"boom", "after"}, fired)
}

func TestRuleBuilder_Validation(t *testing.T) {
	_, err := NewRule[state]("").When("x", Always[state]()).Then(func(*Context[state]) {}).Build()
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewRule[state]("no-cond").Then(func(*Context[state]) {}).Build()
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewRule[state]("no-effect").When("x", Always[state]()).Build()
	assert.ErrorIs(t, err, ErrInvalidRule)

	assert.Panics(t, func() { NewRule[state]("no-effect").When("x", Always[state]()).MustBuild() })
}

func TestAny(t *testing.T) {
	a := Changed(func(s state) *slice { return s.input })
	b := Changed(func(s state) *slice { return s.other })
	cond := Any(a, b)

	x := &slice{}
	assert.False(t, cond(state{input: x}, state{input: x}))
	assert.True(t, cond(state{}, state{other: x}))
}
