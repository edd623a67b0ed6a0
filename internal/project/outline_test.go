package project

import (
	"strings"
	"testing"
)

func TestOutline(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"pkg/app.py": appSrc,
		"util.py":    "def helper():\n    pass\n\ndef other():\n    pass\n",
	}, BuildOptions{})

	out := idx.Outline()
	if !strings.HasPrefix(out, "# Project Symbols\n") {
		t.Fatalf("missing header:\n%s", out)
	}
	for _, want := range []string{
		"pkg/app.py:",
		"  C: m\n",
		"  fn: f\n",
		"util.py:",
		"  fn: helper, other\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outline missing %q:\n%s", want, out)
		}
	}
}

func TestOutlineEmptyIndex(t *testing.T) {
	idx := buildIndex(t, map[string]string{}, BuildOptions{})
	if out := idx.Outline(); out != "" {
		t.Fatalf("empty index outline = %q, want empty", out)
	}
}

func TestOutlineClassWithoutMethods(t *testing.T) {
	idx := buildIndex(t, map[string]string{
		"m.py": "class Empty:\n    pass\n",
	}, BuildOptions{})
	out := idx.Outline()
	if !strings.Contains(out, "  Empty\n") {
		t.Fatalf("bare class missing:\n%s", out)
	}
}
