package document

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// Renderer converts annotation bodies from HTML to markdown.
type Renderer struct {
	converter *md.Converter
}

// NewRenderer creates a renderer with GitHub flavored output.
func NewRenderer() *Renderer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Renderer{converter: converter}
}

// Markdown renders an HTML fragment. An empty body renders as "".
func (r *Renderer) Markdown(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}
	out, err := r.converter.ConvertString(body)
	if err != nil {
		return "", err
	}
	out = excessiveLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}
