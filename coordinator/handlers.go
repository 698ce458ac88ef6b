package coordinator

import (
	"context"

	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/channel"
	"github.com/c360studio/semsynopsis/fetch"
	"github.com/c360studio/semsynopsis/segment"
	"github.com/c360studio/semsynopsis/storage"
	"github.com/c360studio/semsynopsis/view"
)

// MountView implements transport.Handler.
func (c *Coordinator) MountView(viewID, textID, segmentsURL string, sender channel.Sender) {
	c.post(func() { c.mountView(viewID, textID, segmentsURL, sender) })
}

// UnmountView implements transport.Handler.
func (c *Coordinator) UnmountView(viewID string, sender channel.Sender) {
	c.post(func() { c.unmountView(viewID, sender) })
}

// HandleMessage implements transport.Handler.
func (c *Coordinator) HandleMessage(viewID string, msg channel.Inbound) {
	c.post(func() { c.handleMessage(viewID, msg) })
}

// AttachObserver implements transport.Handler.
func (c *Coordinator) AttachObserver(id string, sender channel.Sender) {
	c.post(func() { c.attachObserver(id, sender) })
}

// DetachObserver implements transport.Handler.
func (c *Coordinator) DetachObserver(id string) {
	c.post(func() { c.detachObserver(id) })
}

// Reject counts a view message a transport could not decode.
func (c *Coordinator) Reject(viewID string, err error) {
	c.logger.Debug("Rejected view message", "view", viewID, "error", err)
	c.metrics.UnrecognizedMessage()
}

func (c *Coordinator) mountView(viewID, textID, segmentsURL string, sender channel.Sender) {
	if preset, ok := c.presets[viewID]; ok {
		if textID == "" {
			textID = preset.Text
		}
		if segmentsURL == "" {
			segmentsURL = preset.Segments
		}
	}
	if textID == "" {
		textID = viewID
	}

	port := channel.NewPort(sender, c.logger.With("view", viewID))
	c.conns[viewID] = &viewConn{peer: channel.NewViewPeer(viewID, port), sender: sender}
	c.metrics.SetViews(len(c.conns))

	if existing, mounted := c.registry.View(viewID); mounted {
		// A second connection took over the view: bring it up to date.
		c.logger.Info("View connection replaced", "view", viewID)
		c.replay(existing)
		return
	}

	v := c.registry.Mount(viewID, textID, segmentsURL)
	c.logger.Info("View mounted", "view", viewID, "text", textID)
	c.commit("mount")

	switch {
	case v.SegmentsURL != "":
		c.requestIndex(viewID, v.SegmentsURL)
	default:
		if t, ok := c.registry.Text(textID); ok && t.Location != "" {
			c.requestIndex(viewID, fetch.SegmentsLocation(t.Location))
		}
	}
}

// replay queues the current derived payloads for a view on its new port.
func (c *Coordinator) replay(v *view.TextView) {
	conn := c.conns[v.ID]
	state := c.engine.State()
	if !v.Index.Empty() || v.Style != nil {
		c.send(conn.peer, channel.NewColorize(c.composeStyle(v, state.Selection)))
	}
	if content := contentOf(state, v); content != "" {
		c.send(conn.peer, channel.NewContent(content))
	}
}

func (c *Coordinator) unmountView(viewID string, sender channel.Sender) {
	conn, ok := c.conns[viewID]
	if !ok || conn.sender != sender {
		c.logger.Debug("Ignoring unmount of stale connection", "view", viewID)
		return
	}
	delete(c.conns, viewID)
	delete(c.indexLocations, viewID)
	delete(c.echoes, viewID)
	c.metrics.SetViews(len(c.conns))

	c.registry.Unmount(viewID)
	c.commit("unmount")
	c.mirrorAsync("delete view", func(ctx context.Context) error {
		return c.mirror.DeleteView(ctx, viewID)
	})
	c.logger.Info("View unmounted", "view", viewID)
}

func (c *Coordinator) attachObserver(id string, sender channel.Sender) {
	obs := channel.NewObserver(id, sender)
	c.observers[id] = obs
	c.metrics.SetPanels(len(c.observers))
	if detail := c.detail(c.engine.State()); detail != nil {
		c.send(obs, detail)
	}
}

func (c *Coordinator) detachObserver(id string) {
	delete(c.observers, id)
	c.metrics.SetPanels(len(c.observers))
}

func (c *Coordinator) handleMessage(viewID string, msg channel.Inbound) {
	c.metrics.Received(msg.Event)

	conn, connected := c.conns[viewID]
	v, mounted := c.registry.View(viewID)
	if !connected || !mounted {
		c.logger.Debug("Message for unknown view", "view", viewID, "event", msg.Event)
		return
	}

	switch msg.Event {
	case channel.EventLoaded:
		flushed := conn.peer.Port().MarkLoaded()
		c.logger.Debug("View loaded", "view", viewID, "flushed", flushed)

	case channel.EventMeta:
		c.handleMeta(v, msg)

	case channel.EventScrolled:
		c.handleScrolled(v, msg.Top)

	case channel.EventSyncOthers:
		top := msg.Top
		if top == "" {
			top = v.ScrollPosition
		}
		if top == "" {
			c.logger.Debug("Nothing to sync, view has no scroll position", "view", viewID)
			return
		}
		if msg.Top != "" {
			v, _ = c.registry.SetScrollPosition(viewID, top)
		}
		c.dispatchPosition("sync-others", c.position(v, []string{top}))

	case channel.EventMouseOver:
		c.markTransient(v, msg.SegmentIDs)

	case channel.EventMouseOut:
		c.markTransient(v, nil)

	case channel.EventClick:
		perSegment := perSegmentOf(v)
		c.engine.Dispatch("select", func(s State) State {
			if next, changed := s.Selection.SelectAtSegments(perSegment, msg.SegmentIDs); changed {
				s.Selection = next
			}
			return s
		})

	default:
		c.metrics.UnrecognizedMessage()
		c.logger.Debug("Ignoring unrecognized event", "view", viewID, "event", msg.Event)
	}
}

func (c *Coordinator) handleMeta(v *view.TextView, msg channel.Inbound) {
	c.registry.UpsertText(view.Text{
		ID:           v.TextID,
		Location:     msg.Href,
		CanonicalURL: msg.CanonicalURL,
		Title:        msg.Title,
		Author:       msg.Author,
	})
	hrefChanged := msg.Href != "" && msg.Href != v.Href
	if hrefChanged {
		updated, err := c.registry.Update(v.ID, func(tv *view.TextView) { tv.Href = msg.Href })
		if err != nil {
			c.logger.Debug("Meta for unknown view", "view", v.ID, "error", err)
			return
		}
		v = updated
	}
	c.commit("meta")

	location := v.SegmentsURL
	if location == "" && v.Href != "" {
		location = fetch.SegmentsLocation(v.Href)
	}
	if location == "" {
		c.logger.Debug("No segments location for view", "view", v.ID)
		return
	}
	if v.Index == nil || hrefChanged {
		c.requestIndex(v.ID, location)
	}
}

func (c *Coordinator) handleScrolled(v *view.TextView, top string) {
	if top == "" {
		c.logger.Debug("Ignoring scroll without position", "view", v.ID)
		return
	}
	viewID := v.ID
	v, err := c.registry.SetScrollPosition(viewID, top)
	if err != nil {
		c.logger.Debug("Scroll for unknown view", "view", viewID, "error", err)
		return
	}

	// A view reporting the position it was just synced to is an echo.
	echo := c.echoes[viewID] == top
	delete(c.echoes, viewID)

	var pos *alignment.Position
	if c.cfg.FollowScroll() && !echo {
		pos = c.position(v, []string{top})
	}
	c.dispatchPosition("scrolled", pos)
}

// dispatchPosition publishes the registry views and, when pos is set, a new
// synopsis position.
func (c *Coordinator) dispatchPosition(name string, pos *alignment.Position) {
	c.engine.Dispatch(name, func(s State) State {
		s.Views = c.registry.Snapshot()
		if pos != nil {
			s.Position = pos
		}
		return s
	})
}

func (c *Coordinator) position(v *view.TextView, segmentIDs []string) *alignment.Position {
	if v == nil || v.TextID == "" {
		return nil
	}
	return &alignment.Position{TextID: v.TextID, ViewID: v.ID, SegmentIDs: segmentIDs}
}

func (c *Coordinator) markTransient(v *view.TextView, segmentIDs []string) {
	perSegment := perSegmentOf(v)
	c.engine.Dispatch("hover", func(s State) State {
		if next, changed := s.Selection.MarkTransient(perSegment, segmentIDs); changed {
			s.Selection = next
		}
		return s
	})
}

func perSegmentOf(v *view.TextView) segment.AnnotationsPerSegment {
	if v.Index == nil {
		return nil
	}
	return v.Index.PerSegment
}

func viewPosition(v *view.TextView) storage.ViewPosition {
	return storage.ViewPosition{ViewID: v.ID, TextID: v.TextID, ScrollPosition: v.ScrollPosition}
}
