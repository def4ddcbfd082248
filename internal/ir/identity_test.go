package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSymbolID_Deterministic(t *testing.T) {
	id1 := MakeSymbolID("abc123", "pkg/foo.py", LangPython, "foo.Bar", "sig1")
	id2 := MakeSymbolID("abc123", "pkg/foo.py", LangPython, "foo.Bar", "sig1")
	assert.Equal(t, id1, id2)
}

func TestMakeSymbolID_DiffersByField(t *testing.T) {
	base := MakeSymbolID("abc123", "pkg/foo.py", LangPython, "foo.Bar", "sig1")

	cases := map[string]string{
		"revision": MakeSymbolID("def456", "pkg/foo.py", LangPython, "foo.Bar", "sig1"),
		"path":     MakeSymbolID("abc123", "pkg/other.py", LangPython, "foo.Bar", "sig1"),
		"lang":     MakeSymbolID("abc123", "pkg/foo.py", LangJavaScript, "foo.Bar", "sig1"),
		"fqn":      MakeSymbolID("abc123", "pkg/foo.py", LangPython, "foo.Baz", "sig1"),
		"sigHash":  MakeSymbolID("abc123", "pkg/foo.py", LangPython, "foo.Bar", "sig2"),
	}
	for name, other := range cases {
		assert.NotEqual(t, base, other, "expected a different id when %s changes", name)
	}
}

func TestSigHash_FallsBackToFQN(t *testing.T) {
	withSig := SigHash("def foo(x)", "foo")
	withoutSig := SigHash("", "foo")
	assert.Equal(t, SigHash("foo", "unused"), withoutSig)
	assert.NotEqual(t, withSig, withoutSig)
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash([]byte("hello world"))
	b := ContentHash([]byte("hello world"))
	c := ContentHash([]byte("hello world!"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
