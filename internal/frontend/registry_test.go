package frontend

import (
	"testing"

	"github.com/reviewbot/codegraph/internal/ir"
	"github.com/stretchr/testify/assert"
)

type stubFrontend struct{ label string }

func (stubFrontend) Parse(path string, content []byte, commitRevision string) (ir.IRTriple, error) {
	return ir.IRTriple{}, nil
}

func TestRegistry_LookupRegisteredLanguage(t *testing.T) {
	r := NewRegistry()
	fe := stubFrontend{label: "mine"}
	r.Register(ir.LangPython, fe)

	got, lang, ok := r.Lookup("pkg/mod.py")
	assert.True(t, ok)
	assert.Equal(t, ir.LangPython, lang)
	assert.Equal(t, fe, got)
}

func TestRegistry_LookupUnregisteredLanguage(t *testing.T) {
	r := NewRegistry()
	_, lang, ok := r.Lookup("main.go")
	assert.False(t, ok)
	assert.Equal(t, ir.LangGo, lang, "a recognized extension with no frontend still reports its language")
}

func TestRegistry_LookupUnrecognizedExtension(t *testing.T) {
	r := NewRegistry()
	_, lang, ok := r.Lookup("README.md")
	assert.False(t, ok)
	assert.Equal(t, ir.LangUnknown, lang)
}

func TestRegistry_LaterRegisterReplacesEarlier(t *testing.T) {
	r := NewRegistry()
	first := stubFrontend{label: "first"}
	second := stubFrontend{label: "second"}
	r.Register(ir.LangPython, first)
	r.Register(ir.LangPython, second)

	got, _, ok := r.Lookup("a.py")
	assert.True(t, ok)
	assert.Equal(t, second, got)
}

func TestDefault_RegistersPython(t *testing.T) {
	r := Default()
	_, lang, ok := r.Lookup("a.py")
	assert.True(t, ok)
	assert.Equal(t, ir.LangPython, lang)
}
