package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/semsynopsis/style"
)

// Event discriminators.
const (
	EventMeta               = "meta"
	EventScrolled           = "scrolled"
	EventMouseOver          = "mouse-over-segment"
	EventMouseOut           = "mouse-out-segment"
	EventClick              = "click-segment"
	EventLoaded             = "loaded"
	EventSyncOthers         = "sync-others"
	EventColorize           = "colorize"
	EventSync               = "sync"
	EventContent            = "content"
	EventAnnotationSelected = "annotation-selected"
)

// Decoding errors.
var (
	// ErrMissingEvent is returned for messages without an event discriminator.
	ErrMissingEvent = errors.New("message has no event")

	// ErrUnrecognized is returned for messages with an unknown event.
	ErrUnrecognized = errors.New("unrecognized event")
)

// Inbound is a message sent by a document view. Only the fields of its event
// kind are set.
type Inbound struct {
	Event string `json:"event"`

	// Return address of the sending document.
	Origin   string `json:"origin,omitempty"`
	Href     string `json:"href,omitempty"`
	Pathname string `json:"pathname,omitempty"`

	// meta
	CanonicalURL string `json:"canonicalUrl,omitempty"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`

	// scrolled, sync-others
	Top string `json:"top,omitempty"`

	// mouse-over-segment, mouse-out-segment, click-segment. Segment plus
	// ancestor chain.
	SegmentIDs []string `json:"segmentIds,omitempty"`

	// LegacySegmentID is the single segment id sent by older injection
	// scripts. DecodeInbound folds it into SegmentIDs.
	LegacySegmentID string `json:"segment-id,omitempty"`
}

// DecodeInbound parses a view message. Unknown events return ErrUnrecognized
// together with the decoded message.
func DecodeInbound(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("decode inbound message: %w", err)
	}
	if msg.Event == "" {
		return msg, ErrMissingEvent
	}
	if msg.LegacySegmentID != "" && len(msg.SegmentIDs) == 0 {
		msg.SegmentIDs = []string{msg.LegacySegmentID}
	}
	switch msg.Event {
	case EventMeta, EventScrolled, EventMouseOver, EventMouseOut,
		EventClick, EventLoaded, EventSyncOthers:
		return msg, nil
	default:
		return msg, fmt.Errorf("%w: %q", ErrUnrecognized, msg.Event)
	}
}

// Message is an outbound message.
type Message interface {
	Kind() string
}

// Colorize replaces the complete per-segment style of a view.
type Colorize struct {
	Event         string           `json:"event"`
	CSSPerSegment style.PerSegment `json:"cssPerSegment"`
}

// NewColorize creates a colorize message. A nil style is sent as an empty map.
func NewColorize(css style.PerSegment) *Colorize {
	if css == nil {
		css = style.PerSegment{}
	}
	return &Colorize{Event: EventColorize, CSSPerSegment: css}
}

// Kind implements Message.
func (m *Colorize) Kind() string { return EventColorize }

// Sync asks a view to scroll to a segment.
type Sync struct {
	Event        string `json:"event"`
	ScrollTarget string `json:"scrollTarget"`
}

// NewSync creates a sync message.
func NewSync(segmentID string) *Sync {
	return &Sync{Event: EventSync, ScrollTarget: segmentID}
}

// Kind implements Message.
func (m *Sync) Kind() string { return EventSync }

// Content carries the raw document of an inline-loaded text.
type Content struct {
	Event string `json:"event"`
	Doc   string `json:"doc"`
}

// NewContent creates a content message.
func NewContent(doc string) *Content {
	return &Content{Event: EventContent, Doc: doc}
}

// Kind implements Message.
func (m *Content) Kind() string { return EventContent }

// AnnotationSelected tells panels which annotation is in detail focus.
type AnnotationSelected struct {
	Event         string   `json:"event"`
	AnnotationID  string   `json:"annotationId"`
	AnnotationIDs []string `json:"annotationIds"`
	Transient     []string `json:"transient"`
	Body          string   `json:"body"`
	Markdown      string   `json:"markdown"`
}

// NewAnnotationSelected creates an annotation-selected message.
func NewAnnotationSelected(id string, ids, transient []string, body, markdown string) *AnnotationSelected {
	if ids == nil {
		ids = []string{}
	}
	if transient == nil {
		transient = []string{}
	}
	return &AnnotationSelected{
		Event:         EventAnnotationSelected,
		AnnotationID:  id,
		AnnotationIDs: ids,
		Transient:     transient,
		Body:          body,
		Markdown:      markdown,
	}
}

// Kind implements Message.
func (m *AnnotationSelected) Kind() string { return EventAnnotationSelected }

// Encode marshals an outbound message.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Kind(), err)
	}
	return data, nil
}
