// Package document extracts metadata from inline-loaded documents and renders
// annotation bodies as markdown.
package document

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Meta is the metadata a document reports about itself.
type Meta struct {
	CanonicalURL string `json:"canonicalUrl,omitempty"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
}

// ExtractMeta reads the canonical link, the title element and the author
// meta tag of an HTML document. A missing title or author falls back to
// readability's article extraction. pageURL resolves relative canonical
// links and may be empty.
func ExtractMeta(content []byte, pageURL string) Meta {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return Meta{}
	}

	var meta Meta
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if meta.Title == "" && n.FirstChild != nil {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "link":
				if meta.CanonicalURL == "" && strings.EqualFold(attr(n, "rel"), "canonical") {
					meta.CanonicalURL = resolve(pageURL, attr(n, "href"))
				}
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				if meta.Author == "" && (name == "author" || name == "dc.creator") {
					meta.Author = strings.TrimSpace(attr(n, "content"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if meta.Title == "" || meta.Author == "" {
		var base *url.URL
		if pageURL != "" {
			base, _ = url.Parse(pageURL)
		}
		if article, err := readability.FromReader(bytes.NewReader(content), base); err == nil {
			if meta.Title == "" {
				meta.Title = strings.TrimSpace(article.Title)
			}
			if meta.Author == "" {
				meta.Author = strings.TrimSpace(article.Byline)
			}
		}
	}

	return meta
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == "" || ref == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
