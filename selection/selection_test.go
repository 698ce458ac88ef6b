package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semsynopsis/segment"
)

var perSegment = segment.AnnotationsPerSegment{
	"s1":  {"A1", "A2"},
	"s2":  {"A2", "A3"},
	"s3":  {"A4"},
	"gap": {},
}

func TestSelectAtSegments(t *testing.T) {
	t.Run("union of all segments", func(t *testing.T) {
		state, changed := (&State{}).SelectAtSegments(perSegment, []string{"s1", "s2"})
		require.True(t, changed)
		assert.ElementsMatch(t, []string{"A1", "A2", "A3"}, state.SelectedList)
		assert.Equal(t, "A1", state.Selected)
	})

	t.Run("selected survives when still in union", func(t *testing.T) {
		prev := &State{Selected: "A2", SelectedList: []string{"A1", "A2"}}
		state, changed := prev.SelectAtSegments(perSegment, []string{"s2"})
		require.True(t, changed)
		assert.Equal(t, "A2", state.Selected)
		assert.Equal(t, []string{"A2", "A3"}, state.SelectedList)
	})

	t.Run("selected moves to first when gone", func(t *testing.T) {
		prev := &State{Selected: "A1", SelectedList: []string{"A1", "A2"}}
		state, _ := prev.SelectAtSegments(perSegment, []string{"s3"})
		assert.Equal(t, "A4", state.Selected)
	})

	t.Run("empty union is sticky", func(t *testing.T) {
		prev := &State{Selected: "A1", SelectedList: []string{"A1", "A2"}}
		for _, segs := range [][]string{{"gap"}, {"unknown"}, nil} {
			state, changed := prev.SelectAtSegments(perSegment, segs)
			assert.False(t, changed)
			assert.Same(t, prev, state)
			assert.Equal(t, "A1", state.Selected)
			assert.Equal(t, []string{"A1", "A2"}, state.SelectedList)
		}
	})

	t.Run("previous state is not modified", func(t *testing.T) {
		prev := &State{Selected: "A4", SelectedList: []string{"A4"}}
		_, _ = prev.SelectAtSegments(perSegment, []string{"s1"})
		assert.Equal(t, "A4", prev.Selected)
		assert.Equal(t, []string{"A4"}, prev.SelectedList)
	})
}

func TestMarkTransient(t *testing.T) {
	state, changed := (&State{Selected: "A4"}).MarkTransient(perSegment, []string{"s2", "s1"})
	require.True(t, changed)
	assert.Equal(t, []string{"A2", "A3", "A1"}, state.Transient)
	assert.Equal(t, "A4", state.Selected, "persistent selection is not touched")

	same, changed := state.MarkTransient(perSegment, []string{"s2", "s1"})
	assert.False(t, changed)
	assert.Same(t, state, same)

	cleared, changed := state.MarkTransient(perSegment, []string{"gap"})
	require.True(t, changed)
	assert.Empty(t, cleared.Transient)

	var nilState *State
	next, changed := nilState.MarkTransient(perSegment, []string{"s3"})
	require.True(t, changed)
	assert.Equal(t, []string{"A4"}, next.Transient)
}
