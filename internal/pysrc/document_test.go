package pysrc

import (
	"errors"
	"testing"
)

func TestParseSymbols(t *testing.T) {
	src := []byte(`class C:
    def m(self):
        pass

    class Inner:
        def deep(self):
            pass

def f():
    return 1
`)

	doc, err := Parse("a.py", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer doc.Close()

	want := map[string]SymbolKind{
		"C":            KindClass,
		"C.m":          KindMethod,
		"C.Inner":      KindClass,
		"C.Inner.deep": KindMethod,
		"f":            KindFunction,
	}
	if len(doc.Symbols) != len(want) {
		t.Fatalf("got %d symbols %v, want %d", len(doc.Symbols), doc.SymbolNames(), len(want))
	}
	for name, kind := range want {
		rec, ok := doc.Symbols[name]
		if !ok {
			t.Errorf("missing symbol %q", name)
			continue
		}
		if rec.Kind != kind {
			t.Errorf("symbol %q kind = %v, want %v", name, rec.Kind, kind)
		}
		if rec.QualName != name {
			t.Errorf("symbol %q has QualName %q", name, rec.QualName)
		}
	}

	if got := doc.Symbols["C"].Pos.StartLine; got != 1 {
		t.Errorf("C starts at line %d, want 1", got)
	}
	if got := doc.Symbols["f"].Pos.StartLine; got != 9 {
		t.Errorf("f starts at line %d, want 9", got)
	}
}

func TestParseLastDeclarationWins(t *testing.T) {
	src := []byte(`if True:
    def f():
        return 1
else:
    def f():
        return 2
`)
	doc, err := Parse("dup.py", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer doc.Close()

	rec, ok := doc.Symbols["f"]
	if !ok {
		t.Fatalf("missing symbol f, have %v", doc.SymbolNames())
	}
	// The later branch's declaration overwrites the earlier one.
	if rec.Pos.StartLine != 5 {
		t.Errorf("f starts at line %d, want 5 (last declaration)", rec.Pos.StartLine)
	}
}

func TestParseDecoratedSpanIncludesDecorators(t *testing.T) {
	src := []byte(`@wraps
def g():
    pass
`)
	doc, err := Parse("deco.py", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer doc.Close()

	rec, ok := doc.Symbols["g"]
	if !ok {
		t.Fatalf("missing symbol g")
	}
	if rec.Pos.StartLine != 1 {
		t.Errorf("decorated g starts at line %d, want 1", rec.Pos.StartLine)
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse("bad.py", []byte("def broken(:\n"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestSymbolListOrdering(t *testing.T) {
	src := []byte(`def a():
    pass

class B:
    def m(self):
        pass
`)
	doc, err := Parse("order.py", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer doc.Close()

	var names []string
	for _, rec := range doc.SymbolList() {
		names = append(names, rec.QualName)
	}
	want := []string{"a", "B", "B.m"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}
