package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpan_Valid(t *testing.T) {
	tests := []struct {
		name string
		span Span
		want bool
	}{
		{"normal multi-line", Span{StartLine: 1, StartCol: 0, EndLine: 3, EndCol: 4}, true},
		{"single line, start before end", Span{StartLine: 2, StartCol: 0, EndLine: 2, EndCol: 5}, true},
		{"single line, degenerate (equal)", Span{StartLine: 2, StartCol: 3, EndLine: 2, EndCol: 3}, true},
		{"single line, start after end", Span{StartLine: 2, StartCol: 5, EndLine: 2, EndCol: 0}, false},
		{"start line after end line", Span{StartLine: 5, StartCol: 0, EndLine: 2, EndCol: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.span.Valid())
		})
	}
}

func TestLanguageForExtension(t *testing.T) {
	tests := []struct {
		ext      string
		wantLang Language
		wantOK   bool
	}{
		{".py", LangPython, true},
		{".ts", LangTypeScript, true},
		{".tsx", LangTypeScript, true},
		{".js", LangJavaScript, true},
		{".go", LangGo, true},
		{".rs", LangRust, true},
		{".java", LangJava, true},
		{".cpp", LangCPP, true},
		{".h", LangC, true},
		{".rb", LangUnknown, false},
		{"", LangUnknown, false},
	}
	for _, tt := range tests {
		lang, ok := LanguageForExtension(tt.ext)
		assert.Equal(t, tt.wantOK, ok, "extension %q", tt.ext)
		if tt.wantOK {
			assert.Equal(t, tt.wantLang, lang, "extension %q", tt.ext)
		}
	}
}
