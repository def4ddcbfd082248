// Package walktree is the working-copy file reader used by the CLI: it
// enumerates every recognized source file under a root directory and reads
// individual files by path. The scan orchestrator depends only on the small
// scan.FileReader interface this satisfies; the walker itself is an
// external collaborator to the orchestrator's state machine.
package walktree

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reviewbot/codegraph/internal/ir"
)

// Tree reads files relative to Root.
type Tree struct {
	Root string
}

// New returns a Tree rooted at root.
func New(root string) *Tree {
	return &Tree{Root: root}
}

// ReadFile reads path, which may be relative to Root or already absolute.
func (t *Tree) ReadFile(path string) ([]byte, error) {
	if filepath.IsAbs(path) {
		return os.ReadFile(path)
	}
	return os.ReadFile(filepath.Join(t.Root, path))
}

// WalkTree returns the root-relative paths of every file whose extension
// ir.LanguageForExtension recognizes, skipping directories that never hold
// source worth indexing.
func (t *Tree) WalkTree() ([]string, error) {
	var out []string
	err := filepath.WalkDir(t.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != t.Root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := ir.LanguageForExtension(filepath.Ext(path)); !ok {
			return nil
		}
		rel, err := filepath.Rel(t.Root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var skipDirs = map[string]bool{
	".git":          true,
	"node_modules":  true,
	"vendor":        true,
	"venv":          true,
	".venv":         true,
	"__pycache__":   true,
	"dist":          true,
	"build":         true,
	"target":        true,
	".reviewbot":    true,
	".idea":         true,
	".vscode":       true,
}

func shouldSkipDir(name string) bool {
	if skipDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "."
}
