package annotation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotationsJSON = `{
  "A1": {
    "body": "<p>A <em>quote</em></p>",
    "predications": {
      "http://www.w3.org/1999/02/22-rdf-syntax-ns#type": [
        {"type": "resource", "value": "https://example.org/ontology#Quote"},
        {"type": "literal", "value": "ignored"}
      ]
    }
  },
  "A2": {"body": "", "predications": {}}
}`

func TestSnapshot_FromJSON(t *testing.T) {
	var set Set
	require.NoError(t, json.Unmarshal([]byte(annotationsJSON), &set))

	snap := NewSnapshot(set)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"A1", "A2"}, snap.IDs())

	a1, ok := snap.Get("A1")
	require.True(t, ok)
	assert.Equal(t, []string{"https://example.org/ontology#Quote"}, a1.Classes())

	a2, ok := snap.Get("A2")
	require.True(t, ok)
	assert.Empty(t, a2.Classes())

	_, ok = snap.Get("A3")
	assert.False(t, ok)
}

func TestSnapshot_Nil(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, 0, snap.Len())
	assert.Nil(t, snap.IDs())
	_, ok := snap.Get("A1")
	assert.False(t, ok)
	assert.Equal(t, 0, NewSnapshot(nil).Len())
}
