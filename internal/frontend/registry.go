package frontend

import (
	"github.com/reviewbot/codegraph/internal/frontend/python"
	"github.com/reviewbot/codegraph/internal/ir"
)

// Default returns the registry wired with every frontend this build ships.
// Today that is Python alone (§6.1's other extension mappings stay
// recognized by ir.LanguageForExtension but have no registered frontend
// yet, so files of those languages are walked and hashed but not parsed).
func Default() *Registry {
	r := NewRegistry()
	r.Register(ir.LangPython, python.New())
	return r
}
