package channel

// Peer is a connected endpoint that receives outbound messages.
type Peer interface {
	ID() string
	Post(m Message) error
}

// SyncTarget is a peer that scrolls to aligned positions. Only peers
// implementing it receive sync messages.
type SyncTarget interface {
	Peer
	SyncTo(segmentID string) error
}

// ViewPeer is a document view behind a Port.
type ViewPeer struct {
	id   string
	port *Port
}

// NewViewPeer creates a view peer with a pending port.
func NewViewPeer(id string, port *Port) *ViewPeer {
	return &ViewPeer{id: id, port: port}
}

// ID implements Peer.
func (v *ViewPeer) ID() string { return v.id }

// Post implements Peer.
func (v *ViewPeer) Post(m Message) error { return v.port.Post(m) }

// SyncTo implements SyncTarget.
func (v *ViewPeer) SyncTo(segmentID string) error {
	return v.port.Post(NewSync(segmentID))
}

// Port returns the view's port.
func (v *ViewPeer) Port() *Port { return v.port }

// Observer is a peer that only watches the session, such as an annotation
// panel. It has no loaded handshake and is never synced.
type Observer struct {
	id     string
	sender Sender
}

// NewObserver creates an observer sending through sender.
func NewObserver(id string, sender Sender) *Observer {
	return &Observer{id: id, sender: sender}
}

// ID implements Peer.
func (o *Observer) ID() string { return o.id }

// Post implements Peer.
func (o *Observer) Post(m Message) error { return o.sender.Send(m) }
