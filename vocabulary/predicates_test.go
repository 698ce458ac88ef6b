package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStylingPredicatesRegistered(t *testing.T) {
	all := Styling()
	require.Len(t, all, 3)
	assert.Equal(t, StyleColor, all[0].Name)
	assert.Equal(t, StylePriority, all[1].Name)
	assert.Equal(t, ClassLabel, all[2].Name)

	tests := []struct {
		predicate string
		name      string
		dataType  string
	}{
		{StyleColor, StyleColor, "string"},
		{PreferredCSSColor, StyleColor, "string"},
		{ColorPriority, StylePriority, "int"},
		{"http://www.w3.org/2000/01/rdf-schema#label", ClassLabel, "string"},
	}
	for _, tt := range tests {
		t.Run(tt.predicate, func(t *testing.T) {
			meta, ok := Describe(tt.predicate)
			require.True(t, ok)
			assert.Equal(t, tt.name, meta.Name)
			assert.Equal(t, tt.dataType, meta.DataType)
			assert.NotEmpty(t, meta.Description)
		})
	}

	_, ok := Describe(AnnotationNamespace + "unknown")
	assert.False(t, ok)
}
