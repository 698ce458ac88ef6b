package transport

import (
	"sync"
	"time"

	"github.com/c360studio/semsynopsis/channel"
)

type mountEvent struct {
	viewID, textID, segments string
	sender                   channel.Sender
}

type recordingHandler struct {
	mu        sync.Mutex
	mounts    chan mountEvent
	unmounts  chan string
	messages  chan channel.Inbound
	observers chan channel.Sender
	detached  chan string
	order     []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		mounts:    make(chan mountEvent, 10),
		unmounts:  make(chan string, 10),
		messages:  make(chan channel.Inbound, 10),
		observers: make(chan channel.Sender, 10),
		detached:  make(chan string, 10),
	}
}

func (h *recordingHandler) record(s string) {
	h.mu.Lock()
	h.order = append(h.order, s)
	h.mu.Unlock()
}

func (h *recordingHandler) MountView(viewID, textID, segmentsURL string, sender channel.Sender) {
	h.record("mount:" + viewID)
	h.mounts <- mountEvent{viewID: viewID, textID: textID, segments: segmentsURL, sender: sender}
}

func (h *recordingHandler) UnmountView(viewID string, _ channel.Sender) {
	h.record("unmount:" + viewID)
	h.unmounts <- viewID
}

func (h *recordingHandler) HandleMessage(viewID string, msg channel.Inbound) {
	h.record("message:" + viewID + ":" + msg.Event)
	h.messages <- msg
}

func (h *recordingHandler) AttachObserver(_ string, sender channel.Sender) {
	h.observers <- sender
}

func (h *recordingHandler) DetachObserver(id string) {
	h.detached <- id
}

func (h *recordingHandler) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

func receive[T any](ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(5 * time.Second):
		var zero T
		return zero, false
	}
}
