// Package installer orchestrates resolve → fetch → extract → transpile
// → bundle → lay-down for a single plugin source string, and the
// registry client that backs the registry/git/local source variants.
package installer

import (
	"strings"
)

// VariantKind distinguishes the three ways a plugin source string can
// resolve.
type VariantKind int

const (
	VariantLocal VariantKind = iota
	VariantRegistry
	VariantGit
)

// Source is the parsed form of a plugin source string: exactly one of
// Path, Name, or URL is meaningful, selected by Kind.
type Source struct {
	Kind VariantKind

	// Local
	Path string

	// Registry
	Name    string
	Version string // empty means "latest"

	// Git
	URL    string
	Branch string // empty means default branch
}

// ParseSource classifies a plugin source string by the five lexical
// rules, tried in priority order: a path prefix always means Local
// regardless of what follows, a leading "@" always means a scoped
// registry package, and so on down to the Local fallback.
func ParseSource(s string) Source {
	switch {
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "./"),
		strings.HasPrefix(s, "../"), strings.HasPrefix(s, "~/"):
		return Source{Kind: VariantLocal, Path: s}

	case strings.HasPrefix(s, "@"):
		return Source{Kind: VariantRegistry, Name: s}

	case strings.HasPrefix(s, "git://"), strings.HasPrefix(s, "https://github.com/"),
		strings.HasPrefix(s, "git+https://"), strings.HasSuffix(s, ".git"):
		return Source{Kind: VariantGit, URL: s}

	case strings.Contains(s, "/") && !strings.Contains(s, "."):
		return Source{Kind: VariantRegistry, Name: s}

	default:
		return Source{Kind: VariantLocal, Path: s}
	}
}
