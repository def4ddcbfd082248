// Package frontend defines the parser-frontend contract (C2) and dispatches
// files to the frontend registered for their extension. Frontends
// themselves are external collaborators; this package owns only the
// contract and the extension-based dispatch table.
package frontend

import (
	"github.com/reviewbot/codegraph/internal/ir"
)

// Frontend turns one file's content into IR triples. Implementations must
// not panic on malformed input — partial results are acceptable — and must
// be deterministic: identical (path, content, commit) must yield identical
// output ordering.
type Frontend interface {
	// Parse returns the symbols, edges, and occurrences found in content.
	// Every returned Symbol must have FilePath == path.
	Parse(path string, content []byte, commitRevision string) (ir.IRTriple, error)
}

// Registry dispatches a file path to the Frontend registered for its
// language, by extension. Unrecognized extensions are skipped, not errors.
type Registry struct {
	frontends map[ir.Language]Frontend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{frontends: make(map[ir.Language]Frontend)}
}

// Register associates a Frontend with a language. A later call for the
// same language replaces the earlier one.
func (r *Registry) Register(lang ir.Language, f Frontend) {
	r.frontends[lang] = f
}

// Lookup returns the Frontend for path's extension, or ok=false if the
// extension is unrecognized or no frontend is registered for its language.
func (r *Registry) Lookup(path string) (Frontend, ir.Language, bool) {
	lang, ok := ir.LanguageForExtension(extOf(path))
	if !ok {
		return nil, ir.LangUnknown, false
	}
	f, ok := r.frontends[lang]
	if !ok {
		return nil, lang, false
	}
	return f, lang, true
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
