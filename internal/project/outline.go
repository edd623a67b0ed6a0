package project

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kvisser/codetree/internal/pysrc"
)

// MaxOutlineBytes caps outline output to keep it usable as prompt context.
const MaxOutlineBytes = 16 * 1024

// Outline renders a compact per-file symbol listing for the whole index:
// classes with their methods, then module-level functions. Files are
// root-relative and sorted; output is truncated at MaxOutlineBytes.
func (idx *Index) Outline() string {
	files := idx.Files()
	if len(files) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Project Symbols\n")

	for _, path := range files {
		syms, err := idx.ListSymbols(path)
		if err != nil {
			continue
		}
		text := formatFileCompact(syms)
		if text == "" {
			continue
		}
		entry := fmt.Sprintf("%s:\n%s", idx.Rel(path), text)
		if b.Len()+len(entry) > MaxOutlineBytes {
			fmt.Fprintf(&b, "# ... truncated (%d files total)\n", len(files))
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

// fileGroups collects one file's symbols for compact rendering.
type fileGroups struct {
	methods map[string][]string // class qualname -> method names
	classes []string
	funcs   []string
}

func newFileGroups() *fileGroups {
	return &fileGroups{methods: make(map[string][]string)}
}

func (g *fileGroups) add(s pysrc.SymbolRecord) {
	switch s.Kind {
	case pysrc.KindClass:
		g.classes = append(g.classes, s.QualName)
		if _, ok := g.methods[s.QualName]; !ok {
			g.methods[s.QualName] = nil
		}
	case pysrc.KindMethod:
		owner := s.QualName
		if i := strings.LastIndex(owner, "."); i >= 0 {
			owner = owner[:i]
		}
		g.methods[owner] = append(g.methods[owner], s.QualName[strings.LastIndex(s.QualName, ".")+1:])
	case pysrc.KindFunction:
		g.funcs = append(g.funcs, s.QualName)
	}
}

func (g *fileGroups) render() string {
	var b strings.Builder

	classes := append([]string(nil), g.classes...)
	sort.Strings(classes)
	for _, cls := range classes {
		if methods := g.methods[cls]; len(methods) > 0 {
			fmt.Fprintf(&b, "  %s: %s\n", cls, strings.Join(methods, ", "))
		} else {
			fmt.Fprintf(&b, "  %s\n", cls)
		}
	}

	if len(g.funcs) > 0 {
		fmt.Fprintf(&b, "  fn: %s\n", strings.Join(g.funcs, ", "))
	}
	return b.String()
}

func formatFileCompact(syms []pysrc.SymbolRecord) string {
	g := newFileGroups()
	for _, s := range syms {
		g.add(s)
	}
	return g.render()
}
