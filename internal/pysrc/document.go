package pysrc

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrParse is returned when a file's parse tree contains syntax errors.
// Tree-sitter is error-tolerant, so "failed to parse" here means the root
// node contains ERROR nodes; such files contribute no symbols.
var ErrParse = errors.New("source contains syntax errors")

// Document holds one parsed Python file: the original text, the parse tree,
// and the symbol table derived from it.
type Document struct {
	Path    string
	Source  []byte
	Tree    *sitter.Tree
	Symbols map[string]SymbolRecord
}

// Parse parses Python source and builds the document's symbol table.
// The returned Document owns the tree; call Close when replacing it.
func Parse(path string, src []byte) (*Document, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, err
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, ErrParse
	}

	doc := &Document{
		Path:    path,
		Source:  src,
		Tree:    tree,
		Symbols: collectSymbols(tree.RootNode(), src, path),
	}
	return doc, nil
}

// Close releases the parse tree.
func (d *Document) Close() {
	if d != nil && d.Tree != nil {
		d.Tree.Close()
	}
}

// collectSymbols walks the tree maintaining a stack of enclosing class names.
// Classes are recorded then descended into; functions are recorded as methods
// iff the class stack is non-empty. Nested defs inside function bodies are
// still visited, but only class names contribute to qualification, matching
// the last-wins per-file table semantics.
func collectSymbols(root *sitter.Node, src []byte, path string) map[string]SymbolRecord {
	syms := make(map[string]SymbolRecord)
	var stack []string

	qualify := func(name string) string {
		if len(stack) == 0 {
			return name
		}
		qual := ""
		for _, part := range stack {
			qual += part + "."
		}
		return qual + name
	}

	record := func(span *sitter.Node, kind SymbolKind, name string) {
		syms[qualify(name)] = SymbolRecord{
			File:      path,
			QualName:  qualify(name),
			Kind:      kind,
			Pos:       nodePosition(span),
			StartByte: span.StartByte(),
			EndByte:   span.EndByte(),
		}
	}

	var walk func(n *sitter.Node)

	// handleDef records a class or function definition. span may be the
	// enclosing decorated_definition so recorded ranges include decorators.
	handleDef := func(def, span *sitter.Node) {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := nameNode.Content(src)

		switch def.Type() {
		case "class_definition":
			record(span, KindClass, name)
			stack = append(stack, name)
			if body := def.ChildByFieldName("body"); body != nil {
				walk(body)
			}
			stack = stack[:len(stack)-1]
		case "function_definition":
			kind := KindFunction
			if len(stack) > 0 {
				kind = KindMethod
			}
			record(span, kind, name)
			if body := def.ChildByFieldName("body"); body != nil {
				walk(body)
			}
		}
	}

	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "decorated_definition":
				if def := child.ChildByFieldName("definition"); def != nil {
					handleDef(def, child)
				}
			case "class_definition", "function_definition":
				handleDef(child, child)
			default:
				walk(child)
			}
		}
	}

	walk(root)
	return syms
}

func nodePosition(n *sitter.Node) Position {
	return Position{
		StartLine: int(n.StartPoint().Row) + 1,
		StartCol:  int(n.StartPoint().Column),
		EndLine:   int(n.EndPoint().Row) + 1,
		EndCol:    int(n.EndPoint().Column),
	}
}
