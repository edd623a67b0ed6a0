// Package pysrc provides tree-sitter based parsing of Python source files
// and a per-file symbol table of classes, functions, and methods. A Document
// owns the original source text, the parsed tree, and the derived table;
// Documents are immutable once built and replaced wholesale after an edit.
package pysrc

import "sort"

// SymbolKind classifies indexed symbols.
type SymbolKind int

const (
	KindFunction SymbolKind = iota
	KindMethod
	KindClass
)

// String returns the canonical label for the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Position is a source span. Lines are 1-indexed, columns are 0-indexed byte
// offsets within the line, matching tree-sitter point conventions.
type Position struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// SymbolRecord identifies one class, function, or method in a file.
// QualName is the dot-joined path of enclosing class names plus the symbol's
// own name; it is unique per file, with later declarations overwriting
// earlier ones.
type SymbolRecord struct {
	File      string
	QualName  string
	Kind      SymbolKind
	Pos       Position
	StartByte uint32
	EndByte   uint32
}

// SymbolList returns the document's symbols ordered by source position, so a
// class always precedes its methods.
func (d *Document) SymbolList() []SymbolRecord {
	recs := make([]SymbolRecord, 0, len(d.Symbols))
	for _, rec := range d.Symbols {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Pos.StartLine != recs[j].Pos.StartLine {
			return recs[i].Pos.StartLine < recs[j].Pos.StartLine
		}
		if recs[i].Pos.StartCol != recs[j].Pos.StartCol {
			return recs[i].Pos.StartCol < recs[j].Pos.StartCol
		}
		return recs[i].QualName < recs[j].QualName
	})
	return recs
}

// SymbolNames returns the document's qualified names sorted alphabetically.
func (d *Document) SymbolNames() []string {
	names := make([]string, 0, len(d.Symbols))
	for name := range d.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
