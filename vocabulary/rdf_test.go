package vocabulary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(v string) RdfObject { return RdfObject{Type: ObjectTypeLiteral, Value: v, Datatype: "string"} }

func TestStatements_Merge(t *testing.T) {
	base := Statements{
		"scdh": {
			"macht":       {lit("dev"), lit("web-ed")},
			"macht-nicht": {lit("ops")},
		},
	}
	extra := Statements{
		"scdh": {
			"macht-nicht": {lit("print")},
		},
	}

	t.Run("empty plus ontology is the ontology", func(t *testing.T) {
		assert.Equal(t, base, Statements{}.Merge(base))
	})

	t.Run("array-valued predicates are concatenated", func(t *testing.T) {
		merged := base.Merge(extra)
		assert.Equal(t, []RdfObject{lit("dev"), lit("web-ed")}, merged["scdh"]["macht"])
		assert.Equal(t, []RdfObject{lit("ops"), lit("print")}, merged["scdh"]["macht-nicht"])
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		_ = base.Merge(extra)
		assert.Len(t, base["scdh"]["macht-nicht"], 1)
		assert.Len(t, extra["scdh"]["macht-nicht"], 1)
	})

	t.Run("merge is associative", func(t *testing.T) {
		third := Statements{"other": {"p": {lit("x")}}, "scdh": {"macht": {lit("qa")}}}
		left := base.Merge(extra).Merge(third)
		right := base.Merge(extra.Merge(third))
		assert.Equal(t, left, right)
		assert.Equal(t, left, MergeAll(base, extra, third))
	})
}

func TestPredications_Classes(t *testing.T) {
	p := Predications{
		"http://www.w3.org/1999/02/22-rdf-syntax-ns#type": {
			{Type: ObjectTypeResource, Value: "C2"},
			lit("not a class"),
		},
		"http://purl.org/dc/terms/subject": {
			{Type: ObjectTypeResource, Value: "C1"},
		},
	}

	// dc:terms sorts before rdf-syntax-ns
	assert.Equal(t, []string{"C1", "C2"}, p.Classes())
	assert.Empty(t, Predications{}.Classes())
}

func TestRdfObject_JSON(t *testing.T) {
	var p Predications
	raw := `{"p":[{"type":"resource","value":"C1"},{"type":"literal","value":"3","lang":"en"}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	first, ok := p.First("p")
	require.True(t, ok)
	assert.True(t, first.IsResource())
	assert.Equal(t, "en", p["p"][1].Lang)

	_, ok = p.First("missing")
	assert.False(t, ok)
	assert.False(t, p.Has("missing"))
}
