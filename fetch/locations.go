package fetch

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsRemote reports whether a location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// LocalPath returns the filesystem path of a local location, decoding
// file:// URLs.
func LocalPath(location string) (string, error) {
	if !strings.HasPrefix(location, "file://") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse file url %q: %w", location, err)
	}
	return filepath.FromSlash(u.Path), nil
}

// ResolveLocations expands glob patterns in local locations to concrete
// files. Remote locations and plain paths are passed through. Both single
// level (*) and recursive (**) wildcards are supported. The result keeps
// pattern order and holds no duplicates.
//
// Examples:
//   - "ontologies/*.json" -> ["/abs/ontologies/a.json", "/abs/ontologies/b.json"]
//   - "https://example.org/ontology.json" -> unchanged
func ResolveLocations(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		locations, err := resolveLocation(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve location %q: %w", pattern, err)
		}

		for _, loc := range locations {
			if !seen[loc] {
				seen[loc] = true
				resolved = append(resolved, loc)
			}
		}
	}

	return resolved, nil
}

func resolveLocation(pattern string) ([]string, error) {
	if IsRemote(pattern) {
		return []string{pattern}, nil
	}

	path, err := LocalPath(pattern)
	if err != nil {
		return nil, err
	}

	if !ContainsGlob(path) {
		return []string{path}, nil
	}

	absPattern, err := AbsolutePattern(path)
	if err != nil {
		return nil, err
	}

	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return nil, ErrNoMatch
	}

	return files, nil
}

// ContainsGlob checks if a pattern contains glob characters.
func ContainsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// AbsolutePattern converts a relative glob pattern to an absolute one.
func AbsolutePattern(pattern string) (string, error) {
	if filepath.IsAbs(pattern) {
		return pattern, nil
	}

	// Split at the first glob character to find the static prefix
	idx := strings.IndexAny(pattern, "*?[{")
	if idx == -1 {
		return filepath.Abs(pattern)
	}

	prefix := pattern[:idx]
	lastSep := strings.LastIndex(prefix, string(filepath.Separator))
	if lastSep == -1 {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, pattern), nil
	}

	absBase, err := filepath.Abs(pattern[:lastSep])
	if err != nil {
		return "", err
	}
	return filepath.Join(absBase, pattern[lastSep+1:]), nil
}

// GlobBase returns the directory part of a pattern before its first glob
// segment.
func GlobBase(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}

// SegmentsLocation derives the per-segment annotation index location of a
// document: the document location without fragment, plus ".segments.json".
func SegmentsLocation(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	return href + ".segments.json"
}

// Matcher matches filesystem paths against the local locations of a source.
type Matcher struct {
	patterns []string
}

// NewMatcher builds a matcher for the local locations among locations.
// Remote locations are ignored.
func NewMatcher(locations []string, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	var patterns []string
	for _, loc := range locations {
		if loc == "" || IsRemote(loc) {
			continue
		}
		path, err := LocalPath(loc)
		if err != nil {
			logger.Warn("Not watching location", "location", loc, "error", err)
			continue
		}
		abs, err := AbsolutePattern(path)
		if err != nil {
			logger.Warn("Not watching location", "location", loc, "error", err)
			continue
		}
		patterns = append(patterns, filepath.Clean(abs))
	}
	return &Matcher{patterns: patterns}
}

// Patterns returns the absolute patterns.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Empty reports whether no local location was given.
func (m *Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// Matches reports whether path is one of the matched files.
func (m *Matcher) Matches(path string) bool {
	path = filepath.Clean(path)
	for _, pattern := range m.patterns {
		if !ContainsGlob(pattern) {
			if pattern == path {
				return true
			}
			continue
		}
		ok, err := doublestar.PathMatch(pattern, path)
		if err == nil && ok {
			return true
		}
	}
	return false
}
