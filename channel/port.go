package channel

import (
	"log/slog"
	"sync"
)

// DefaultMaxPending caps the queue of a port that has not been loaded yet.
const DefaultMaxPending = 512

// Sender delivers outbound messages to one remote endpoint. Transports
// implement it.
type Sender interface {
	Send(m Message) error
}

// BatchSender is implemented by senders that can accept several messages as
// one unit. A batch is delivered in order and is never dropped for being
// larger than the sender's buffer.
type BatchSender interface {
	Sender
	SendBatch(ms []Message) error
}

// Port is the coordinator side of one view's channel. It starts pending and
// queues outbound messages until MarkLoaded is called.
type Port struct {
	mu         sync.Mutex
	ready      bool
	queue      []Message
	maxPending int
	sender     Sender
	logger     *slog.Logger
}

// PortOption configures a Port.
type PortOption func(*Port)

// WithMaxPending sets the pending queue cap. Values below 1 are ignored.
func WithMaxPending(n int) PortOption {
	return func(p *Port) {
		if n > 0 {
			p.maxPending = n
		}
	}
}

// NewPort creates a pending port sending through sender.
func NewPort(sender Sender, logger *slog.Logger, opts ...PortOption) *Port {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Port{sender: sender, logger: logger, maxPending: DefaultMaxPending}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Post sends m when the port is ready and queues it otherwise.
func (p *Port) Post(m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		p.queue = append(p.queue, m)
		if len(p.queue) > p.maxPending {
			p.shrink()
		}
		p.logger.Debug("Queued message for pending view", "event", m.Kind(), "queued", len(p.queue))
		return nil
	}
	return p.sender.Send(m)
}

// shrink brings an over-full queue back under the cap. Colorize, content and
// sync messages each replace the previous one of their kind, so only the
// latest of each is kept. Anything still over the cap is dropped oldest
// first. Callers hold p.mu.
func (p *Port) shrink() {
	before := len(p.queue)

	last := make(map[string]int)
	for i, m := range p.queue {
		if replaces(m.Kind()) {
			last[m.Kind()] = i
		}
	}
	kept := p.queue[:0]
	for i, m := range p.queue {
		if replaces(m.Kind()) && last[m.Kind()] != i {
			continue
		}
		kept = append(kept, m)
	}
	clear(p.queue[len(kept):])
	p.queue = kept

	if over := len(p.queue) - p.maxPending; over > 0 {
		clear(p.queue[:over])
		p.queue = p.queue[over:]
	}
	p.logger.Debug("Compacted pending queue", "before", before, "after", len(p.queue))
}

func replaces(kind string) bool {
	switch kind {
	case EventColorize, EventContent, EventSync:
		return true
	}
	return false
}

// MarkLoaded switches the port to ready and flushes the queue in the order
// messages were posted. Only the first call flushes; later calls return 0.
// A BatchSender receives the whole queue at once. Otherwise messages are sent
// one by one and failures are logged without stopping the flush.
func (p *Port) MarkLoaded() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return 0
	}
	p.ready = true
	queued := p.queue
	p.queue = nil
	if len(queued) == 0 {
		return 0
	}

	if bs, ok := p.sender.(BatchSender); ok {
		if err := bs.SendBatch(queued); err != nil {
			p.logger.Warn("Failed to flush queued messages", "queued", len(queued), "error", err)
		}
		return len(queued)
	}
	for _, m := range queued {
		if err := p.sender.Send(m); err != nil {
			p.logger.Warn("Failed to flush queued message", "event", m.Kind(), "error", err)
		}
	}
	return len(queued)
}

// Ready reports whether the view has announced it is loaded.
func (p *Port) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Pending returns the number of queued messages.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
