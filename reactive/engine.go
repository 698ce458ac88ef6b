package reactive

import (
	"log/slog"
	"sync"
)

// DefaultMaxIterations bounds the updates applied by one reaction.
const DefaultMaxIterations = 1000

// Update derives the next state from the current one. It must not modify
// the value it receives.
type Update[S any] func(cur S) S

type pendingUpdate[S any] struct {
	name   string
	update Update[S]
}

// Engine owns a state value and its rules.
type Engine[S any] struct {
	mu            sync.Mutex
	state         S
	rules         []*Rule[S]
	queue         []pendingUpdate[S]
	running       bool
	maxIterations int
	onFire        func(rule string)
	logger        *slog.Logger
}

// Option configures an Engine.
type Option[S any] func(*Engine[S])

// WithLogger sets the engine logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(e *Engine[S]) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxIterations bounds the number of updates one reaction may apply.
func WithMaxIterations[S any](n int) Option[S] {
	return func(e *Engine[S]) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithFireHook registers a callback invoked with the name of every firing
// rule.
func WithFireHook[S any](hook func(rule string)) Option[S] {
	return func(e *Engine[S]) { e.onFire = hook }
}

// NewEngine creates an engine holding initial.
func NewEngine[S any](initial S, opts ...Option[S]) *Engine[S] {
	e := &Engine[S]{
		state:         initial,
		maxIterations: DefaultMaxIterations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule registers a rule. Rules fire in registration order.
func (e *Engine[S]) AddRule(r *Rule[S]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
}

// State returns the current state.
func (e *Engine[S]) State() S {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dispatch applies an update and runs the rules. When called from inside an
// effect, the update is queued and applied once the current reaction is
// done.
func (e *Engine[S]) Dispatch(name string, update Update[S]) {
	e.mu.Lock()
	e.queue = append(e.queue, pendingUpdate[S]{name: name, update: update})
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.drain()
}

func (e *Engine[S]) drain() {
	applied := 0
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			e.mu.Unlock()
			return
		}
		if applied >= e.maxIterations {
			dropped := len(e.queue)
			e.queue = nil
			e.running = false
			e.mu.Unlock()
			e.logger.Error("Reaction exceeded max iterations, dropping updates",
				"max_iterations", e.maxIterations, "dropped", dropped)
			return
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		prev := e.state
		cur := next.update(prev)
		e.state = cur
		rules := e.rules
		e.mu.Unlock()

		applied++
		e.logger.Debug("Applied update", "update", next.name)
		e.react(rules, prev, cur)
	}
}

func (e *Engine[S]) react(rules []*Rule[S], prev, cur S) {
	for _, r := range rules {
		if !r.matches(prev, cur) {
			continue
		}
		if e.onFire != nil {
			e.onFire(r.name)
		}
		ctx := &Context[S]{Rule: r.name, Prev: prev, Cur: cur, engine: e}
		for _, effect := range r.effects {
			e.runEffect(r.name, effect, ctx)
		}
	}
}

func (e *Engine[S]) runEffect(rule string, effect Effect[S], ctx *Context[S]) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("Rule effect panicked", "rule", rule, "panic", rec)
		}
	}()
	effect(ctx)
}
