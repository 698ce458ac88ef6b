package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360studio/semsynopsis/channel"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

// WebSocketServer serves view and panel connections.
type WebSocketServer struct {
	handler    Handler
	upgrader   websocket.Upgrader
	sendBuffer int
	onDrop     func(peer string)
	onReject   func(viewID string, err error)
	logger     *slog.Logger
}

// WebSocketOption configures a WebSocketServer.
type WebSocketOption func(*WebSocketServer)

// WithSendBuffer sets the per-connection outbound buffer size.
func WithSendBuffer(n int) WebSocketOption {
	return func(s *WebSocketServer) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithDropHook registers a callback for messages dropped on a full buffer.
func WithDropHook(hook func(peer string)) WebSocketOption {
	return func(s *WebSocketServer) { s.onDrop = hook }
}

// WithRejectHook registers a callback for view messages that could not be
// decoded or carry an unknown event.
func WithRejectHook(hook func(viewID string, err error)) WebSocketOption {
	return func(s *WebSocketServer) { s.onReject = hook }
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(check func(r *http.Request) bool) WebSocketOption {
	return func(s *WebSocketServer) { s.upgrader.CheckOrigin = check }
}

// NewWebSocketServer creates a WebSocket transport for handler.
func NewWebSocketServer(handler Handler, logger *slog.Logger, opts ...WebSocketOption) *WebSocketServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WebSocketServer{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sendBuffer: DefaultSendBuffer,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes mounts the WebSocket endpoints on mux.
func (s *WebSocketServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /views/{viewID}/ws", s.handleView)
	mux.HandleFunc("GET /panels/ws", s.handlePanel)
}

// handleView handles GET /views/{viewID}/ws?text=&segments=
func (s *WebSocketServer) handleView(w http.ResponseWriter, r *http.Request) {
	viewID := r.PathValue("viewID")
	if viewID == "" {
		http.Error(w, "view id required", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "view", viewID, "error", err)
		return
	}

	conn := s.newConn(viewID, ws)
	s.handler.MountView(viewID, r.URL.Query().Get("text"), r.URL.Query().Get("segments"), conn)
	s.logger.Info("View connected", "view", viewID, "remote", r.RemoteAddr)

	go conn.writePump()
	conn.readPump(func(data []byte) {
		msg, err := channel.DecodeInbound(data)
		if err != nil {
			s.logger.Debug("Ignoring view message", "view", viewID, "error", err)
			if s.onReject != nil {
				s.onReject(viewID, err)
			}
			return
		}
		s.handler.HandleMessage(viewID, msg)
	})

	s.handler.UnmountView(viewID, conn)
	s.logger.Info("View disconnected", "view", viewID)
}

// handlePanel handles GET /panels/ws
func (s *WebSocketServer) handlePanel(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	id := "panel-" + uuid.New().String()
	conn := s.newConn(id, ws)
	s.handler.AttachObserver(id, conn)
	s.logger.Info("Panel connected", "panel", id)

	go conn.writePump()
	// panels send nothing meaningful; reading keeps pongs and close frames flowing
	conn.readPump(func([]byte) {})

	s.handler.DetachObserver(id)
	s.logger.Info("Panel disconnected", "panel", id)
}

func (s *WebSocketServer) newConn(peer string, ws *websocket.Conn) *wsConn {
	return &wsConn{
		peer:   peer,
		ws:     ws,
		limit:  s.sendBuffer,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		onDrop: s.onDrop,
		logger: s.logger,
	}
}

// wsConn is one WebSocket connection. It implements channel.BatchSender.
// Outbound frames wait in outbox until the writer goroutine drains them.
type wsConn struct {
	peer   string
	ws     *websocket.Conn
	limit  int
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	onDrop func(peer string)
	logger *slog.Logger

	mu     sync.Mutex
	outbox [][]byte
}

// Send queues m for the writer goroutine. It never blocks and drops m when
// limit frames are already waiting.
func (c *wsConn) Send(m channel.Message) error {
	data, err := channel.Encode(m)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	if len(c.outbox) >= c.limit {
		c.mu.Unlock()
		if c.onDrop != nil {
			c.onDrop(c.peer)
		}
		c.logger.Warn("Dropping message for slow peer", "peer", c.peer, "event", m.Kind())
		return ErrBufferFull
	}
	c.outbox = append(c.outbox, data)
	c.mu.Unlock()

	c.signal()
	return nil
}

// SendBatch queues ms in order behind anything already waiting. The batch
// is not subject to the limit.
func (c *wsConn) SendBatch(ms []channel.Message) error {
	frames := make([][]byte, 0, len(ms))
	var errs []error
	for _, m := range ms {
		data, err := channel.Encode(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frames = append(frames, data)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	c.outbox = append(c.outbox, frames...)
	c.mu.Unlock()

	c.signal()
	return errors.Join(errs...)
}

func (c *wsConn) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *wsConn) take() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.outbox
	c.outbox = nil
	return out
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump reads until the connection fails, then closes it.
func (c *wsConn) readPump(onMessage func([]byte)) {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				c.logger.Debug("WebSocket read ended", "peer", c.peer, "error", err)
			}
			return
		}
		onMessage(data)
	}
}

// writePump is the only writer of the connection.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.wake:
			for _, data := range c.take() {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
					c.logger.Debug("WebSocket write failed", "peer", c.peer, "error", err)
					return
				}
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
