package highlight

import (
	"strings"
	"testing"
)

func TestHighlightPython(t *testing.T) {
	out := Highlight("def f():\n    return 1", "python", "vulcan")
	if !strings.Contains(out, "\x1b[") {
		t.Error("expected ANSI escapes in highlighted output")
	}
	if !strings.Contains(out, "def") {
		t.Error("source text missing from output")
	}
}

func TestHighlightUnknownLanguageFallsBack(t *testing.T) {
	src := "whatever text"
	if out := Highlight(src, "no-such-language", "vulcan"); out != src {
		t.Errorf("unknown language should return input unchanged, got %q", out)
	}
}
