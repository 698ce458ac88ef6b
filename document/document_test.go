package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMeta(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		pageURL string
		want    Meta
	}{
		{
			name: "all fields",
			html: `<html><head><title> Parzival </title>
				<link rel="canonical" href="https://example.org/parzival"/>
				<meta name="author" content="Wolfram"/></head><body><p>Text</p></body></html>`,
			want: Meta{CanonicalURL: "https://example.org/parzival", Title: "Parzival", Author: "Wolfram"},
		},
		{
			name:    "relative canonical link",
			html:    `<html><head><title>T</title><meta name="author" content="A"><link rel="canonical" href="/texts/t1"></head></html>`,
			pageURL: "https://example.org/views/t1.html",
			want:    Meta{CanonicalURL: "https://example.org/texts/t1", Title: "T", Author: "A"},
		},
		{
			name: "dublin core creator",
			html: `<html><head><title>T</title><meta name="DC.creator" content="Someone"></head></html>`,
			want: Meta{Title: "T", Author: "Someone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMeta([]byte(tt.html), tt.pageURL))
		})
	}
}

func TestRenderer_Markdown(t *testing.T) {
	r := NewRenderer()

	out, err := r.Markdown(`<p>A <strong>bold</strong> remark</p>`)
	require.NoError(t, err)
	assert.Equal(t, "A **bold** remark", out)

	out, err = r.Markdown("  ")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
