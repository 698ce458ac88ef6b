package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsynopsis/segment"
	"github.com/c360studio/semsynopsis/style"
)

func TestRegistry_Mount(t *testing.T) {
	r := NewRegistry(nil)

	v := r.Mount("v1", "", "")
	assert.Equal(t, "v1", v.ID)
	assert.Same(t, v, r.Mount("v1", "T9", ""), "mount is idempotent")

	_, ok := r.TextOf("v1")
	assert.False(t, ok, "a view mounted without a text has none")

	r.Mount("v2", "T1", "")
	textID, ok := r.TextOf("v2")
	require.True(t, ok)
	assert.Equal(t, "T1", textID)

	scrolled, err := r.SetScrollPosition("v1", "p3")
	require.NoError(t, err)
	assert.NotSame(t, v, scrolled, "updates store a new snapshot")
	assert.Equal(t, "", v.ScrollPosition, "old snapshot unchanged")

	_, err = r.SetScrollPosition("nope", "p1")
	assert.ErrorIs(t, err, ErrUnknownView)

	r.Unmount("v1")
	_, ok = r.View("v1")
	assert.False(t, ok)
}

func TestRegistry_UnknownView(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.SetScrollPosition("missing", "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownView))
}

func TestRegistry_Derived(t *testing.T) {
	r := NewRegistry(nil)
	r.Mount("v2", "T2", "")
	r.Mount("v1", "T1", "")
	r.Mount("v3", "T1", "")

	ix := segment.NewIndex(segment.AnnotationsPerSegment{"s1": {"A1"}}, nil)
	v, err := r.SetIndex("v1", ix)
	require.NoError(t, err)
	assert.Same(t, ix, v.Index)

	css := style.PerSegment{"s1": {"background-color": "yellow"}}
	v, err = r.SetStyle("v1", css)
	require.NoError(t, err)
	assert.Same(t, ix, v.Index, "other fields carried over")
	assert.Equal(t, css, v.Style)
	assert.Equal(t, uint64(1), v.StyleRevision)

	v, err = r.SetScrollPosition("v1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", v.ScrollPosition)

	ids := func(views []*TextView) []string {
		var out []string
		for _, v := range views {
			out = append(out, v.ID)
		}
		return out
	}
	assert.Equal(t, []string{"v1", "v2", "v3"}, ids(r.Views()))
	assert.Equal(t, []string{"v1", "v3"}, ids(r.ViewsOf("T1")))
}

func TestRegistry_UpsertText(t *testing.T) {
	r := NewRegistry(nil)

	first := r.UpsertText(Text{ID: "T1", Location: "https://example.org/a.html"})
	merged := r.UpsertText(Text{ID: "T1", Title: "A", Author: "Someone"})

	assert.Equal(t, "", first.Title)
	assert.Equal(t, "https://example.org/a.html", merged.Location)
	assert.Equal(t, "A", merged.Title)
	assert.Equal(t, "Someone", merged.Author)

	got, ok := r.Text("T1")
	require.True(t, ok)
	assert.Same(t, merged, got)
	assert.Len(t, r.Texts(), 1)
}

func TestRegistry_SnapshotsAreReplaced(t *testing.T) {
	r := NewRegistry(nil)
	r.Mount("v1", "T1", "")
	before := r.Snapshot()

	_, err := r.SetScrollPosition("v1", "p2")
	require.NoError(t, err)
	after := r.Snapshot()

	assert.Equal(t, "", before["v1"].ScrollPosition, "old set still holds the old view")
	assert.Equal(t, "p2", after["v1"].ScrollPosition)

	textID, ok := after.TextOf("v1")
	assert.True(t, ok)
	assert.Equal(t, "T1", textID)

	r.Unmount("v1")
	assert.Len(t, before, 1)
	assert.Empty(t, r.Snapshot())

	texts := r.TextSnapshot()
	r.UpsertText(Text{ID: "T1"})
	assert.Empty(t, texts)
	assert.Len(t, r.TextSnapshot(), 1)
}
