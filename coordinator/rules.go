package coordinator

import (
	"context"

	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/annotation"
	"github.com/c360studio/semsynopsis/channel"
	"github.com/c360studio/semsynopsis/ontology"
	"github.com/c360studio/semsynopsis/reactive"
	"github.com/c360studio/semsynopsis/segment"
	"github.com/c360studio/semsynopsis/selection"
	"github.com/c360studio/semsynopsis/style"
	"github.com/c360studio/semsynopsis/view"
)

// Rule names.
const (
	RuleAnnotationStyles = "resolve-annotation-styles"
	RuleViewStyles       = "resolve-view-styles"
	RuleColorize         = "colorize"
	RuleSync             = "sync"
	RuleAnnotationDetail = "annotation-detail"
	RuleContent          = "push-content"
	RuleMirrorPosition   = "mirror-position"
	RuleMirrorScroll     = "mirror-scroll"
)

// rules returns the standing subscriptions of a session.
//
//	ontology, annotations -> annotation styles
//	annotation styles, view index -> view style -> colorize
//	selection -> colorize, annotation detail
//	position -> sync, mirror
func (c *Coordinator) rules() []*reactive.Rule[State] {
	ontologyChanged := reactive.Changed(func(s State) *ontology.Ontology { return s.Ontology })
	annotationsChanged := reactive.Changed(func(s State) *annotation.Snapshot { return s.Annotations })
	stylesChanged := reactive.Changed(func(s State) *AnnotationStyles { return s.Styles })
	selectionChanged := reactive.Changed(func(s State) *selection.State { return s.Selection })
	positionChanged := reactive.Changed(func(s State) *alignment.Position { return s.Position })

	return []*reactive.Rule[State]{
		reactive.NewRule[State](RuleAnnotationStyles).
			When("ontology or annotations changed", reactive.Any(ontologyChanged, annotationsChanged)).
			Then(c.resolveAnnotationStyles).
			MustBuild(),

		reactive.NewRule[State](RuleViewStyles).
			When("annotation styles or a view index changed", reactive.Any(stylesChanged, viewsChanged(sameIndex))).
			Then(c.resolveViewStyles).
			MustBuild(),

		reactive.NewRule[State](RuleColorize).
			When("a view style or the selection changed", reactive.Any(viewsChanged(sameStyle), selectionChanged)).
			Then(c.colorizeViews).
			MustBuild(),

		reactive.NewRule[State](RuleSync).
			When("position changed", positionChanged).
			When("position set", positionSet).
			Then(c.syncViews).
			MustBuild(),

		reactive.NewRule[State](RuleAnnotationDetail).
			When("selection changed", selectionChanged).
			Then(c.publishDetail).
			MustBuild(),

		reactive.NewRule[State](RuleContent).
			When("bound content changed", contentChanged).
			Then(c.pushContent).
			MustBuild(),

		reactive.NewRule[State](RuleMirrorPosition).
			When("position changed", positionChanged).
			When("position set", positionSet).
			Then(c.mirrorPosition).
			MustBuild(),

		reactive.NewRule[State](RuleMirrorScroll).
			When("a scroll position changed", viewsChanged(sameScroll)).
			Then(c.mirrorScrolls).
			MustBuild(),
	}
}

func (c *Coordinator) resolveAnnotationStyles(ctx *reactive.Context[State]) {
	perAnnotation, ok := style.ResolveAnnotationStyles(ctx.Cur.Ontology, ctx.Cur.Annotations, c.styleOpts)
	if !ok {
		c.logger.Debug("Style resolution waiting for ontology and annotations")
		return
	}
	styles := &AnnotationStyles{PerAnnotation: perAnnotation}
	ctx.Dispatch("annotation-styles", func(s State) State {
		s.Styles = styles
		return s
	})
}

func (c *Coordinator) resolveViewStyles(ctx *reactive.Context[State]) {
	if ctx.Cur.Styles == nil {
		return
	}
	targets := ctx.Cur.Views.Sorted()
	if ctx.Prev.Styles == ctx.Cur.Styles {
		targets = changedViews(ctx.Prev.Views, ctx.Cur.Views, sameIndex)
	}

	updated := 0
	for _, v := range targets {
		if v.Index == nil {
			continue
		}
		css, ok := style.ResolvePerSegmentStyle(ctx.Cur.Styles.PerAnnotation, v.Index.PerSegment, c.logger)
		if !ok {
			continue
		}
		if _, err := c.registry.SetStyle(v.ID, css); err != nil {
			c.logger.Debug("Style for unknown view", "view", v.ID, "error", err)
			continue
		}
		updated++
	}
	if updated > 0 {
		c.commit("view-styles")
	}
}

func (c *Coordinator) colorizeViews(ctx *reactive.Context[State]) {
	targets := ctx.Cur.Views.Sorted()
	if ctx.Prev.Selection == ctx.Cur.Selection {
		targets = changedViews(ctx.Prev.Views, ctx.Cur.Views, sameStyle)
	}
	for _, v := range targets {
		conn, ok := c.conns[v.ID]
		if !ok || (v.Index.Empty() && v.Style == nil) {
			continue
		}
		c.send(conn.peer, channel.NewColorize(c.composeStyle(v, ctx.Cur.Selection)))
	}
}

// composeStyle returns the full style of a view: its resolved style with the
// transient and selected annotations highlighted on top.
func (c *Coordinator) composeStyle(v *view.TextView, sel *selection.State) style.PerSegment {
	var perAnnotation segment.SegmentsPerAnnotation
	if v.Index != nil {
		perAnnotation = v.Index.PerAnnotation
	}
	var overlays []style.Overlay
	if sel != nil {
		overlays = append(overlays, style.Overlay{Annotations: sel.Transient, Style: c.transientStyle})
		if sel.Selected != "" {
			overlays = append(overlays, style.Overlay{Annotations: []string{sel.Selected}, Style: c.selectedStyle})
		}
	}
	return style.ApplyOverlays(v.Style, perAnnotation, overlays...)
}

func (c *Coordinator) syncViews(ctx *reactive.Context[State]) {
	pos := *ctx.Cur.Position
	if ctx.Cur.Alignment.Empty() {
		c.logger.Debug("No alignment data, not syncing", "view", pos.ViewID)
		return
	}
	for _, p := range c.peers() {
		target, ok := p.(channel.SyncTarget)
		if !ok {
			continue
		}
		segmentID, ok := ctx.Cur.Alignment.ResolveTarget(pos, target.ID(), ctx.Cur.Views)
		if !ok {
			continue
		}
		if err := target.SyncTo(segmentID); err != nil {
			c.logger.Debug("Failed to sync view", "view", target.ID(), "error", err)
			continue
		}
		c.echoes[target.ID()] = segmentID
		c.metrics.Sent(channel.EventSync)
		c.logger.Debug("Synced view", "view", target.ID(), "target", segmentID, "source", pos.ViewID)
	}
}

func (c *Coordinator) publishDetail(ctx *reactive.Context[State]) {
	detail := c.detail(ctx.Cur)
	if detail == nil {
		return
	}
	for _, p := range c.peers() {
		if obs, ok := p.(*channel.Observer); ok {
			c.send(obs, detail)
		}
	}
}

// detail builds the annotation-selected message for the current selection.
// The markdown rendition of the last selected body is cached.
func (c *Coordinator) detail(s State) *channel.AnnotationSelected {
	sel := s.Selection
	if sel == nil {
		return nil
	}
	a, _ := s.Annotations.Get(sel.Selected)
	if c.detailCache.id != sel.Selected || c.detailCache.body != a.Body {
		markdown, err := c.renderer.Markdown(a.Body)
		if err != nil {
			c.logger.Warn("Failed to render annotation body", "annotation", sel.Selected, "error", err)
		}
		c.detailCache = detailCache{id: sel.Selected, body: a.Body, markdown: markdown}
	}
	return channel.NewAnnotationSelected(sel.Selected, sel.SelectedList, sel.Transient, a.Body, c.detailCache.markdown)
}

func (c *Coordinator) pushContent(ctx *reactive.Context[State]) {
	for _, v := range contentChanges(ctx.Prev, ctx.Cur) {
		if conn, ok := c.conns[v.ID]; ok {
			c.send(conn.peer, channel.NewContent(contentOf(ctx.Cur, v)))
		}
	}
}

func (c *Coordinator) mirrorPosition(ctx *reactive.Context[State]) {
	pos := *ctx.Cur.Position
	c.mirrorAsync("position", func(wctx context.Context) error {
		return c.mirror.PutPosition(wctx, pos)
	})
}

func (c *Coordinator) mirrorScrolls(ctx *reactive.Context[State]) {
	for _, v := range changedViews(ctx.Prev.Views, ctx.Cur.Views, sameScroll) {
		vp := viewPosition(v)
		c.mirrorAsync("view position", func(wctx context.Context) error {
			return c.mirror.PutView(wctx, vp)
		})
	}
}
