package transport

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/semsynopsis/channel"
)

// NATS subjects. Views publish events on synopsis.view.<viewID>.events and
// receive commands on synopsis.view.<viewID>.commands.
const (
	SubjectPrefix       = "synopsis.view."
	EventsSubjectSuffix = ".events"
	CommandsSuffix      = ".commands"

	// EventsWildcard subscribes to the events of every view.
	EventsWildcard = SubjectPrefix + "*" + EventsSubjectSuffix
)

// Headers a view may set on its first event to describe itself.
const (
	HeaderText     = "Synopsis-Text"
	HeaderSegments = "Synopsis-Segments"
)

// EventsSubject returns the subject a view publishes on.
func EventsSubject(viewID string) string {
	return SubjectPrefix + viewID + EventsSubjectSuffix
}

// CommandsSubject returns the subject a view receives on.
func CommandsSubject(viewID string) string {
	return SubjectPrefix + viewID + CommandsSuffix
}

// viewIDFromSubject extracts the view id of an events subject.
func viewIDFromSubject(subject string) (string, bool) {
	if !strings.HasPrefix(subject, SubjectPrefix) || !strings.HasSuffix(subject, EventsSubjectSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(subject, SubjectPrefix), EventsSubjectSuffix)
	if id == "" || strings.Contains(id, ".") {
		return "", false
	}
	return id, true
}

// NATSTransport receives view events from NATS. A view is mounted on its
// first event and stays mounted until the transport stops.
type NATSTransport struct {
	nc       *nats.Conn
	handler  Handler
	onReject func(viewID string, err error)
	logger   *slog.Logger

	mu      sync.Mutex
	sub     *nats.Subscription
	mounted map[string]*natsSender
}

// NATSOption configures a NATSTransport.
type NATSOption func(*NATSTransport)

// WithNATSRejectHook registers a callback for view messages that could not
// be decoded or carry an unknown event.
func WithNATSRejectHook(hook func(viewID string, err error)) NATSOption {
	return func(t *NATSTransport) { t.onReject = hook }
}

// NewNATSTransport creates a NATS transport on an established connection.
func NewNATSTransport(nc *nats.Conn, handler Handler, logger *slog.Logger, opts ...NATSOption) *NATSTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &NATSTransport{
		nc:      nc,
		handler: handler,
		logger:  logger,
		mounted: make(map[string]*natsSender),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start subscribes to the events of all views.
func (t *NATSTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		return nil
	}
	sub, err := t.nc.Subscribe(EventsWildcard, t.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", EventsWildcard, err)
	}
	t.sub = sub
	t.logger.Info("NATS view transport started", "subject", EventsWildcard)
	return nil
}

// Stop unsubscribes and unmounts every view mounted through NATS.
func (t *NATSTransport) Stop() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	mounted := t.mounted
	t.mounted = make(map[string]*natsSender)
	t.mu.Unlock()

	for viewID, sender := range mounted {
		t.handler.UnmountView(viewID, sender)
	}
	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", EventsWildcard, err)
	}
	return nil
}

func (t *NATSTransport) handleMsg(msg *nats.Msg) {
	viewID, ok := viewIDFromSubject(msg.Subject)
	if !ok {
		t.logger.Debug("Ignoring message on unexpected subject", "subject", msg.Subject)
		return
	}

	t.mu.Lock()
	_, known := t.mounted[viewID]
	var sender *natsSender
	if !known {
		sender = &natsSender{nc: t.nc, subject: CommandsSubject(viewID)}
		t.mounted[viewID] = sender
	}
	t.mu.Unlock()

	if !known {
		var textID, segments string
		if msg.Header != nil {
			textID = msg.Header.Get(HeaderText)
			segments = msg.Header.Get(HeaderSegments)
		}
		t.handler.MountView(viewID, textID, segments, sender)
		t.logger.Info("View mounted over NATS", "view", viewID)
	}

	inbound, err := channel.DecodeInbound(msg.Data)
	if err != nil {
		t.logger.Debug("Ignoring view message", "view", viewID, "error", err)
		if t.onReject != nil {
			t.onReject(viewID, err)
		}
		return
	}
	t.handler.HandleMessage(viewID, inbound)
}

// natsSender publishes commands for one view.
type natsSender struct {
	nc      *nats.Conn
	subject string
}

// Send implements channel.Sender.
func (s *natsSender) Send(m channel.Message) error {
	data, err := channel.Encode(m)
	if err != nil {
		return err
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}
