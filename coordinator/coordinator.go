// Package coordinator runs a synopsis session: it owns the session state,
// reacts to view events and pushes derived styles, sync targets and
// annotation details back out to views and panels.
//
// All state is owned by the goroutine in Run. Transports, loaders and the
// watcher only post closures into its inbox.
package coordinator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/channel"
	"github.com/c360studio/semsynopsis/config"
	"github.com/c360studio/semsynopsis/document"
	"github.com/c360studio/semsynopsis/fetch"
	"github.com/c360studio/semsynopsis/metrics"
	"github.com/c360studio/semsynopsis/ontology"
	"github.com/c360studio/semsynopsis/reactive"
	"github.com/c360studio/semsynopsis/storage"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/transport"
	"github.com/c360studio/semsynopsis/view"
)

const (
	inboxSize       = 256
	mirrorQueueSize = 64
	mirrorTimeout   = 2 * time.Second
)

// Mirror receives session positions for external observers.
type Mirror interface {
	PutPosition(ctx context.Context, pos alignment.Position) error
	PutView(ctx context.Context, v storage.ViewPosition) error
	DeleteView(ctx context.Context, viewID string) error
}

// viewConn is the connection a view is currently mounted through.
type viewConn struct {
	peer   *channel.ViewPeer
	sender channel.Sender
}

// Coordinator is the event loop of one synopsis session.
type Coordinator struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	loader   *fetch.Loader
	renderer *document.Renderer
	mirror   Mirror

	styleOpts      style.Options
	selectedStyle  style.Map
	transientStyle style.Map

	registry   *view.Registry
	ontologies *ontology.Store
	engine     *reactive.Engine[State]

	inbox   chan func()
	mirrors chan func(context.Context) error
	started chan struct{}
	done    chan struct{}

	// Owned by the Run goroutine.
	ctx            context.Context
	presets        map[string]config.ViewConfig
	conns          map[string]*viewConn
	observers      map[string]*channel.Observer
	indexLocations map[string]string
	echoes         map[string]string
	detailCache    detailCache
}

type detailCache struct {
	id       string
	body     string
	markdown string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLoader replaces the source loader built from the fetch config.
func WithLoader(l *fetch.Loader) Option {
	return func(c *Coordinator) { c.loader = l }
}

// WithMirror mirrors positions into m.
func WithMirror(m Mirror) Option {
	return func(c *Coordinator) { c.mirror = m }
}

// New creates a coordinator for cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Coordinator{
		cfg:            cfg,
		logger:         slog.Default(),
		renderer:       document.NewRenderer(),
		ontologies:     ontology.NewStore(),
		inbox:          make(chan func(), inboxSize),
		mirrors:        make(chan func(context.Context) error, mirrorQueueSize),
		started:        make(chan struct{}),
		done:           make(chan struct{}),
		presets:        make(map[string]config.ViewConfig, len(cfg.Views)),
		conns:          make(map[string]*viewConn),
		observers:      make(map[string]*channel.Observer),
		indexLocations: make(map[string]string),
		echoes:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.loader == nil {
		fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxContentSize)
		c.loader = fetch.NewLoader(fetcher,
			fetch.WithLogger(c.logger),
			fetch.WithFailureHook(c.fetchFailed))
	}

	c.styleOpts = style.Options{DefaultColor: cfg.Style.DefaultColor, Property: cfg.Style.Property}
	c.selectedStyle = style.ParseValue(cfg.Style.SelectedCSS, "border")
	c.transientStyle = style.ParseValue(cfg.Style.TransientCSS, "background-color")

	for _, v := range cfg.Views {
		c.presets[v.ID] = v
	}

	c.registry = view.NewRegistry(c.logger)
	c.engine = reactive.NewEngine(State{},
		reactive.WithLogger[State](c.logger),
		reactive.WithFireHook[State](c.metrics.RuleFired))
	for _, r := range c.rules() {
		c.engine.AddRule(r)
	}
	return c
}

// Run processes events until ctx is done. It loads the configured sources,
// starts the refresh loop and the file watcher when configured.
func (c *Coordinator) Run(ctx context.Context) error {
	c.ctx = ctx
	close(c.started)
	defer close(c.done)

	if c.mirror != nil {
		go c.runMirror(ctx)
	}
	go c.loadSources(ctx)
	if c.cfg.Fetch.RefreshInterval > 0 {
		go c.refreshLoop(ctx, c.cfg.Fetch.RefreshInterval)
	}
	if c.cfg.WatchEnabled() {
		c.startWatcher(ctx)
	}

	c.logger.Info("Coordinator started",
		"views", len(c.presets),
		"texts", len(c.cfg.Sources.Texts),
		"follow_scroll", c.cfg.FollowScroll())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Coordinator stopped")
			return nil
		case fn := <-c.inbox:
			fn()
		}
	}
}

// post hands fn to the Run goroutine. It blocks only while the inbox is full
// and gives up once Run has returned.
func (c *Coordinator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// query runs fn on the Run goroutine and waits for it. It returns false when
// the coordinator is not running.
func (c *Coordinator) query(fn func()) bool {
	select {
	case <-c.started:
	default:
		return false
	}
	finished := make(chan struct{})
	c.post(func() {
		fn()
		close(finished)
	})
	select {
	case <-finished:
		return true
	case <-c.done:
		return false
	}
}

// State returns the current session snapshot.
func (c *Coordinator) State() State {
	return c.engine.State()
}

// Registry returns the view registry.
func (c *Coordinator) Registry() *view.Registry {
	return c.registry
}

// commit publishes the registry's current views and texts to the state.
func (c *Coordinator) commit(name string) {
	c.engine.Dispatch(name, func(s State) State {
		s.Views = c.registry.Snapshot()
		s.Texts = c.registry.TextSnapshot()
		return s
	})
}

// peers returns the mounted views followed by the panels, each ordered by id.
func (c *Coordinator) peers() []channel.Peer {
	viewIDs := make([]string, 0, len(c.conns))
	for id := range c.conns {
		viewIDs = append(viewIDs, id)
	}
	sort.Strings(viewIDs)
	panelIDs := make([]string, 0, len(c.observers))
	for id := range c.observers {
		panelIDs = append(panelIDs, id)
	}
	sort.Strings(panelIDs)

	out := make([]channel.Peer, 0, len(viewIDs)+len(panelIDs))
	for _, id := range viewIDs {
		out = append(out, c.conns[id].peer)
	}
	for _, id := range panelIDs {
		out = append(out, c.observers[id])
	}
	return out
}

// send posts m to a peer and counts it.
func (c *Coordinator) send(p channel.Peer, m channel.Message) {
	if err := p.Post(m); err != nil {
		c.logger.Debug("Failed to send message", "peer", p.ID(), "event", m.Kind(), "error", err)
		return
	}
	c.metrics.Sent(m.Kind())
}

func (c *Coordinator) fetchFailed(location string, _ error) {
	kind := "local"
	if fetch.IsRemote(location) {
		kind = "remote"
	}
	c.metrics.FetchFailed(kind)
}

// mirrorAsync queues a session mirror write. Writes never block the loop;
// they are dropped when the queue is full.
func (c *Coordinator) mirrorAsync(what string, write func(context.Context) error) {
	if c.mirror == nil {
		return
	}
	select {
	case c.mirrors <- write:
	default:
		c.logger.Warn("Session mirror queue full, dropping write", "write", what)
	}
}

func (c *Coordinator) runMirror(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case write := <-c.mirrors:
			wctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
			if err := write(wctx); err != nil {
				c.logger.Warn("Session mirror write failed", "error", err)
			}
			cancel()
		}
	}
}

var _ transport.Handler = (*Coordinator)(nil)
