package coordinator

import (
	"context"
	"slices"
	"time"

	"github.com/c360studio/semsynopsis/alignment"
	"github.com/c360studio/semsynopsis/annotation"
	"github.com/c360studio/semsynopsis/document"
	"github.com/c360studio/semsynopsis/fetch"
	"github.com/c360studio/semsynopsis/segment"
	"github.com/c360studio/semsynopsis/view"
	"github.com/c360studio/semsynopsis/vocabulary"
)

// loadSources loads every configured source. It runs outside the event loop
// and posts the results into it.
func (c *Coordinator) loadSources(ctx context.Context) {
	c.loadAnnotations(ctx)
	c.loadOntologies(ctx)
	c.loadAlignment(ctx)
	c.loadTexts(ctx)
}

func (c *Coordinator) loadAnnotations(ctx context.Context) {
	location := c.cfg.Sources.Annotations
	if location == "" {
		return
	}
	set, unchanged, _ := fetch.DecodeJSON[annotation.Set](ctx, c.loader, location)
	if unchanged {
		return
	}
	snapshot := annotation.NewSnapshot(set)
	c.logger.Info("Loaded annotations", "location", location, "count", snapshot.Len())
	c.post(func() {
		c.engine.Dispatch("annotations", func(s State) State {
			s.Annotations = snapshot
			return s
		})
	})
}

type ontologySource struct {
	location   string
	statements vocabulary.Statements
}

func (c *Coordinator) loadOntologies(ctx context.Context) {
	if len(c.cfg.Sources.Ontologies) == 0 {
		return
	}

	var sources []ontologySource
	changed := false
	for _, pattern := range c.cfg.Sources.Ontologies {
		locations, err := fetch.ResolveLocations([]string{pattern})
		if err != nil {
			c.loader.Fail(pattern, err)
			continue
		}
		for _, location := range locations {
			statements, unchanged, _ := fetch.DecodeJSON[vocabulary.Statements](ctx, c.loader, location)
			if !unchanged {
				changed = true
			}
			sources = append(sources, ontologySource{location: location, statements: statements})
		}
	}

	c.post(func() {
		loaded := make([]string, 0, len(sources))
		for _, src := range sources {
			loaded = append(loaded, src.location)
		}
		// Sources that no longer resolve contribute nothing.
		for _, known := range c.ontologies.Sources() {
			if !slices.Contains(loaded, known) {
				c.ontologies.Set(known, nil)
				changed = true
			}
		}
		if !changed {
			return
		}
		for _, src := range sources {
			c.ontologies.Set(src.location, src.statements)
		}
		merged := c.ontologies.Current()
		c.logger.Info("Loaded ontology", "sources", len(sources), "classes", merged.Len())
		c.engine.Dispatch("ontology", func(s State) State {
			s.Ontology = merged
			return s
		})
	})
}

func (c *Coordinator) loadAlignment(ctx context.Context) {
	regexLocation := c.cfg.Sources.RegexAlignment
	mappingLocation := c.cfg.Sources.MappingAlignment
	if regexLocation == "" && mappingLocation == "" {
		return
	}

	var regex alignment.RegexAlignment
	var mapping alignment.MappingAlignment
	regexUnchanged, mappingUnchanged := true, true
	if regexLocation != "" {
		regex, regexUnchanged, _ = fetch.DecodeJSON[alignment.RegexAlignment](ctx, c.loader, regexLocation)
	}
	if mappingLocation != "" {
		mapping, mappingUnchanged, _ = fetch.DecodeJSON[alignment.MappingAlignment](ctx, c.loader, mappingLocation)
	}
	if regexUnchanged && mappingUnchanged {
		return
	}

	table := alignment.NewTable(regex, mapping, c.logger)
	c.logger.Info("Loaded alignment", "regex", regexLocation, "mapping", mappingLocation)
	c.post(func() {
		c.engine.Dispatch("alignment", func(s State) State {
			s.Alignment = table
			return s
		})
	})
}

func (c *Coordinator) loadTexts(ctx context.Context) {
	for _, tc := range c.cfg.Sources.Texts {
		c.loadText(ctx, tc.ID, tc.Location, tc.Inline)
	}
}

func (c *Coordinator) loadText(ctx context.Context, id, location string, inline bool) {
	res, err := c.loader.Load(ctx, location)
	if err != nil {
		c.loader.Fail(location, err)
		return
	}
	if res.Unchanged {
		return
	}

	meta := document.ExtractMeta(res.Body, location)
	text := view.Text{
		ID:           id,
		Location:     location,
		CanonicalURL: meta.CanonicalURL,
		Title:        meta.Title,
		Author:       meta.Author,
	}
	if inline {
		text.Content = string(res.Body)
	}
	c.logger.Info("Loaded text", "text", id, "location", location, "title", meta.Title)

	c.post(func() {
		c.registry.UpsertText(text)
		c.commit("text")
		// Views that mounted before the text was known derive their index now.
		for _, v := range c.registry.ViewsOf(id) {
			if _, requested := c.indexLocations[v.ID]; !requested && v.SegmentsURL == "" {
				c.requestIndex(v.ID, fetch.SegmentsLocation(location))
			}
		}
	})
}

// requestIndex loads the segment index of a view. Only the result for the
// most recently requested location is applied. Must run on the Run goroutine.
func (c *Coordinator) requestIndex(viewID, location string) {
	c.indexLocations[viewID] = location
	ctx := c.ctx
	go c.loadIndex(ctx, viewID, location)
}

func (c *Coordinator) loadIndex(ctx context.Context, viewID, location string) {
	perSegment, unchanged, _ := fetch.DecodeJSON[segment.AnnotationsPerSegment](ctx, c.loader, location)
	if unchanged {
		return
	}
	index := segment.NewIndex(perSegment, c.logger)
	c.post(func() {
		if c.indexLocations[viewID] != location {
			c.logger.Debug("Discarding stale segment index", "view", viewID, "location", location)
			return
		}
		if _, err := c.registry.SetIndex(viewID, index); err != nil {
			c.logger.Debug("Segment index for unknown view", "view", viewID, "error", err)
			return
		}
		c.logger.Info("Loaded segment index", "view", viewID, "segments", len(index.PerSegment))
		c.commit("segment-index")
	})
}

// refreshLoop reloads all sources and segment indices periodically. Remote
// sources are revalidated by ETag and only applied when they changed.
func (c *Coordinator) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logger.Debug("Refreshing sources")
			c.loadSources(ctx)
			c.post(func() {
				for viewID, location := range c.indexLocations {
					go c.loadIndex(ctx, viewID, location)
				}
			})
		}
	}
}

// startWatcher reloads file-backed sources when they change on disk.
func (c *Coordinator) startWatcher(ctx context.Context) {
	src := c.cfg.Sources
	annotations := fetch.NewMatcher([]string{src.Annotations}, c.logger)
	ontologies := fetch.NewMatcher(src.Ontologies, c.logger)
	alignments := fetch.NewMatcher([]string{src.RegexAlignment, src.MappingAlignment}, c.logger)
	texts := make(map[string]*fetch.Matcher, len(src.Texts))

	locations := []string{src.Annotations, src.RegexAlignment, src.MappingAlignment}
	locations = append(locations, src.Ontologies...)
	for _, tc := range src.Texts {
		locations = append(locations, tc.Location)
		texts[tc.ID] = fetch.NewMatcher([]string{tc.Location}, c.logger)
	}

	watcher, err := fetch.NewWatcher(locations, c.cfg.Watch.Debounce, c.logger)
	if err != nil {
		c.logger.Warn("Source watcher unavailable", "error", err)
		return
	}
	if watcher.Empty() {
		_ = watcher.Stop()
		return
	}
	if err := watcher.Start(ctx); err != nil {
		c.logger.Warn("Failed to start source watcher", "error", err)
		_ = watcher.Stop()
		return
	}

	go func() {
		<-ctx.Done()
		_ = watcher.Stop()
	}()

	go func() {
		for change := range watcher.Events() {
			c.logger.Debug("Source changed", "path", change.Path, "operation", change.Operation)
			switch {
			case annotations.Matches(change.Path):
				c.loadAnnotations(ctx)
			case ontologies.Matches(change.Path):
				c.loadOntologies(ctx)
			case alignments.Matches(change.Path):
				c.loadAlignment(ctx)
			}
			for _, tc := range src.Texts {
				if texts[tc.ID].Matches(change.Path) {
					c.loadText(ctx, tc.ID, tc.Location, tc.Inline)
				}
			}
		}
	}()
}
