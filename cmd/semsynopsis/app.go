package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semsynopsis/config"
	"github.com/c360studio/semsynopsis/coordinator"
	"github.com/c360studio/semsynopsis/metrics"
	"github.com/c360studio/semsynopsis/storage"
	"github.com/c360studio/semsynopsis/transport"
)

// App wires the coordinator to its transports, the session mirror and the
// HTTP server.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream
	natsTransport  *transport.NATSTransport

	// Session mirror
	store *storage.Store

	coordinator *coordinator.Coordinator
	cancelRun   context.CancelFunc
	runDone     chan struct{}

	httpServer *http.Server
	listener   net.Listener
	errs       chan error
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		errs:    make(chan error, 1),
	}, nil
}

// Start initializes and starts all components.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.NeedsNATS() {
		if err := a.startNATS(); err != nil {
			return fmt.Errorf("start NATS: %w", err)
		}
	}

	opts := []coordinator.Option{
		coordinator.WithLogger(a.logger),
		coordinator.WithMetrics(a.metrics),
	}
	if a.cfg.NATS.KV {
		store, err := storage.NewStore(ctx, a.js, storage.NewSessionID())
		if err != nil {
			return fmt.Errorf("initialize session store: %w", err)
		}
		a.store = store
		opts = append(opts, coordinator.WithMirror(store))
		a.logger.Info("Mirroring session positions", "bucket", store.Bucket())
	}

	a.coordinator = coordinator.New(a.cfg, opts...)
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancelRun = cancel
	a.runDone = make(chan struct{})
	go func() {
		defer close(a.runDone)
		if err := a.coordinator.Run(runCtx); err != nil {
			a.logger.Error("Coordinator failed", "error", err)
		}
	}()

	mux := http.NewServeMux()
	a.coordinator.RegisterHTTPHandlers(mux)
	mux.Handle("GET /metrics", a.metrics.Handler())

	if a.cfg.TransportEnabled(config.TransportWebSocket) {
		ws := transport.NewWebSocketServer(a.coordinator, a.logger,
			transport.WithDropHook(func(string) { a.metrics.Dropped(config.TransportWebSocket) }),
			transport.WithRejectHook(a.coordinator.Reject))
		ws.RegisterRoutes(mux)
	}

	if a.cfg.TransportEnabled(config.TransportNATS) {
		a.natsTransport = transport.NewNATSTransport(a.natsConn, a.coordinator, a.logger,
			transport.WithNATSRejectHook(a.coordinator.Reject))
		if err := a.natsTransport.Start(); err != nil {
			return fmt.Errorf("start NATS transport: %w", err)
		}
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr, err)
	}
	a.listener = ln
	a.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}
	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errs <- err
		}
	}()

	a.logger.Info("HTTP server listening", "addr", ln.Addr().String())
	return nil
}

func (a *App) startNATS() error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL, nats.Name(appName))
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		a.logger.Info("Starting embedded NATS server")
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL(), nats.Name(appName))
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
		a.logger.Info("Embedded NATS server ready", "url", ns.ClientURL())
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js
	return nil
}

// Addr returns the address the HTTP server listens on.
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Errors reports a failure of the HTTP server.
func (a *App) Errors() <-chan error {
	return a.errs
}

// Shutdown gracefully stops all components. It is safe to call after a
// partial Start.
func (a *App) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Warn("HTTP server shutdown", "error", err)
		}
	}

	if a.natsTransport != nil {
		if err := a.natsTransport.Stop(); err != nil {
			a.logger.Warn("NATS transport shutdown", "error", err)
		}
	}

	if a.cancelRun != nil {
		a.cancelRun()
		select {
		case <-a.runDone:
		case <-ctx.Done():
			a.logger.Warn("Coordinator did not stop in time")
		}
	}

	if a.store != nil {
		if err := a.store.Destroy(ctx); err != nil {
			a.logger.Warn("Failed to remove session bucket", "bucket", a.store.Bucket(), "error", err)
		}
	}

	if a.natsConn != nil {
		_ = a.natsConn.Drain()
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
}
