// Package transport connects remote document views and panels to the
// coordinator, over WebSocket or NATS.
//
// Transports only translate. Every connection event is handed to a Handler,
// which the coordinator implements by posting into its inbox.
package transport

import (
	"errors"

	"github.com/c360studio/semsynopsis/channel"
)

// Transport errors.
var (
	// ErrBufferFull is returned when a peer's send buffer is full and the
	// message was dropped.
	ErrBufferFull = errors.New("send buffer full")

	// ErrClosed is returned when sending to a closed connection.
	ErrClosed = errors.New("connection closed")
)

// DefaultSendBuffer is the per-connection outbound buffer size.
const DefaultSendBuffer = 64

// Handler receives connection events. Implementations must not block.
type Handler interface {
	// MountView is called when a view connects. textID and segmentsURL may
	// be empty.
	MountView(viewID, textID, segmentsURL string, sender channel.Sender)

	// UnmountView is called when the connection that mounted a view goes
	// away. sender identifies that connection.
	UnmountView(viewID string, sender channel.Sender)

	// HandleMessage is called for every decoded view message, in the order
	// the view sent them.
	HandleMessage(viewID string, msg channel.Inbound)

	// AttachObserver is called when a panel connects.
	AttachObserver(id string, sender channel.Sender)

	// DetachObserver is called when a panel disconnects.
	DetachObserver(id string)
}
