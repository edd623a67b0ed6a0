// Package editor performs structural edits on parsed Python documents:
// inserting or replacing statements at a position expressed as a visible
// relative line inside a function or method body, while keeping every byte
// outside the edit untouched.
package editor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kvisser/codetree/internal/pysrc"
)

// Mode selects the edit operation.
type Mode int

const (
	// ModeInsert splices the new statements in before the resolved
	// statement, shifting subsequent statements down.
	ModeInsert Mode = iota
	// ModeReplace replaces exactly one statement at the resolved position.
	ModeReplace
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "insert"
	case ModeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "insert":
		return ModeInsert, nil
	case "replace":
		return ModeReplace, nil
	default:
		return 0, fmt.Errorf("mode must be %q or %q, got %q", ModeInsert, ModeReplace, s)
	}
}

// ErrEditOutOfRange is returned by replace mode when the relative line
// points at or past the end of the statement list.
var ErrEditOutOfRange = errors.New("relative line points past the last statement")

// ErrNotEditable is returned when the target symbol is not a function or
// method definition.
var ErrNotEditable = errors.New("symbol is not a function or method")

// ErrInlineBody is returned when the resolved block keeps its statements on
// the header line, as in "def f(): return 1". Such a body has no line of its
// own to splice into.
var ErrInlineBody = errors.New("block body is inline with its header")

// Apply edits the body of the named function or method and returns the full
// new file source. relativeLine counts visible source lines starting at the
// line immediately after the def line, including lines inside nested
// if/for/while/with/try bodies. Elif/else branches, except handlers, and
// finally clauses are treated as part of their owning statement and are not
// descended into.
//
// The document is not modified; callers reparse the returned source and
// swap their cached document atomically.
func Apply(doc *pysrc.Document, qualName string, relativeLine int, newStatements string, mode Mode) ([]byte, error) {
	def := findFunction(doc.Tree.RootNode(), doc.Source, qualName)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, qualName)
	}
	body := def.ChildByFieldName("body")
	if body == nil {
		return nil, fmt.Errorf("%s: definition has no body", qualName)
	}

	// Position metadata is bound to the pre-edit tree, so the target line is
	// computed against it: first body line = def line + 1.
	defLine := int(def.StartPoint().Row) + 1
	targetLine := defLine + 1 + relativeLine

	path, index, exact := resolveTarget(body, targetLine)
	log.Debug().
		Str("symbol", qualName).
		Ints("path", path).
		Int("index", index).
		Bool("exact", exact).
		Msg("resolved edit target")

	// Replay the recorded path to address the statement list to splice.
	cur := newBlockCursor(body)
	if err := cur.DescendPath(path); err != nil {
		return nil, fmt.Errorf("replay edit path for %s: %w", qualName, err)
	}
	stmts := cur.Statements()
	if len(stmts) == 0 {
		return nil, fmt.Errorf("%s: empty statement list", qualName)
	}

	switch mode {
	case ModeInsert:
		return spliceInsert(doc.Source, stmts, index, newStatements)
	case ModeReplace:
		if index >= len(stmts) {
			return nil, fmt.Errorf("%w: index %d of %d statements", ErrEditOutOfRange, index, len(stmts))
		}
		return spliceReplace(doc.Source, stmts[index], newStatements)
	default:
		return nil, fmt.Errorf("unknown edit mode %d", mode)
	}
}

// resolveTarget descends the body depth-first, scanning statements in order.
// A target line at or before a statement's start resolves to that statement's
// index at the current depth; a target line strictly inside a compound
// statement descends into its owned body; a target past every statement
// resolves to an append at the end of the current list.
func resolveTarget(body *sitter.Node, targetLine int) (path []int, index int, exact bool) {
	cur := newBlockCursor(body)
	for {
		stmts := cur.Statements()
		descended := false
		for i, stmt := range stmts {
			start := int(stmt.StartPoint().Row) + 1
			end := int(stmt.EndPoint().Row) + 1
			if targetLine <= start {
				return cur.path, i, targetLine == start
			}
			if start < targetLine && targetLine <= end && nestedBlock(stmt) != nil {
				// Descend cannot fail here: i is in range and owns a body.
				_ = cur.Descend(i)
				descended = true
				break
			}
		}
		if !descended {
			return cur.path, len(stmts), false
		}
	}
}

// spliceInsert inserts the rendered statements before the statement at index,
// or after the last statement of the block when index equals the statement
// count. Insertions are whole lines, so everything else stays byte-identical.
// Indentation is copied verbatim from the anchor statement's line, so a
// tab-indented file stays tab-indented.
func spliceInsert(src []byte, stmts []*sitter.Node, index int, code string) ([]byte, error) {
	if index < len(stmts) {
		anchor := stmts[index]
		indent, ok := lineIndent(src, anchor)
		if !ok {
			return nil, ErrInlineBody
		}
		lines, err := renderStatements(code, indent)
		if err != nil {
			return nil, err
		}
		at := int(anchor.StartByte()) - len(indent)
		return splice(src, at, at, strings.Join(lines, "\n")+"\n"), nil
	}

	last := stmts[len(stmts)-1]
	indent, ok := lineIndent(src, last)
	if !ok {
		return nil, ErrInlineBody
	}
	lines, err := renderStatements(code, indent)
	if err != nil {
		return nil, err
	}

	from := int(last.EndByte())
	nl := bytes.IndexByte(src[from:], '\n')
	if nl < 0 {
		// File ends without a trailing newline after the last statement.
		return splice(src, len(src), len(src), "\n"+strings.Join(lines, "\n")), nil
	}
	at := from + nl + 1
	return splice(src, at, at, strings.Join(lines, "\n")+"\n"), nil
}

// spliceReplace replaces exactly the statement's byte span with the rendered
// statements; the first rendered line drops its indent because the span
// already starts at the statement's column.
func spliceReplace(src []byte, stmt *sitter.Node, code string) ([]byte, error) {
	indent, ok := lineIndent(src, stmt)
	if !ok {
		return nil, ErrInlineBody
	}
	lines, err := renderStatements(code, indent)
	if err != nil {
		return nil, err
	}
	lines[0] = strings.TrimPrefix(lines[0], indent)
	return splice(src, int(stmt.StartByte()), int(stmt.EndByte()), strings.Join(lines, "\n")), nil
}

// lineIndent returns the leading whitespace bytes of the line the statement
// starts on. ok is false when the statement does not start its own line,
// which happens for bodies kept inline after the block header's colon.
func lineIndent(src []byte, stmt *sitter.Node) (string, bool) {
	start := int(stmt.StartByte())
	lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
	prefix := src[lineStart:start]
	if len(bytes.TrimLeft(prefix, " \t")) != 0 {
		return "", false
	}
	return string(prefix), true
}

func splice(src []byte, from, to int, text string) []byte {
	out := make([]byte, 0, len(src)-(to-from)+len(text))
	out = append(out, src[:from]...)
	out = append(out, text...)
	out = append(out, src[to:]...)
	return out
}

// renderStatements normalizes the incoming statement block: trailing blank
// lines are dropped, the common leading indentation is stripped, and every
// non-blank line is re-indented to the target block's column. Blank interior
// lines stay empty.
func renderStatements(code, indent string) ([]string, error) {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	lines := strings.Split(code, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, errors.New("no statements to insert")
	}

	margin := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := len(line) - len(strings.TrimLeft(line, " \t"))
		if margin < 0 || lead < margin {
			margin = lead
		}
	}
	if margin < 0 {
		margin = 0
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = ""
			continue
		}
		out[i] = indent + line[margin:]
	}
	return out, nil
}

// findFunction locates the function_definition node for a qualified name,
// using the same class-stack walk as the indexer. When a name is declared
// more than once the last declaration wins, matching the symbol table.
func findFunction(root *sitter.Node, src []byte, qual string) *sitter.Node {
	var found *sitter.Node
	var stack []string

	qualify := func(name string) string {
		if len(stack) == 0 {
			return name
		}
		return strings.Join(stack, ".") + "." + name
	}

	var walk func(n *sitter.Node)
	handleDef := func(def *sitter.Node) {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		name := nameNode.Content(src)
		switch def.Type() {
		case "class_definition":
			stack = append(stack, name)
			if body := def.ChildByFieldName("body"); body != nil {
				walk(body)
			}
			stack = stack[:len(stack)-1]
		case "function_definition":
			if qualify(name) == qual {
				found = def
			}
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
					handleDef(def)
				}
			case "class_definition", "function_definition":
				handleDef(child)
			default:
				walk(child)
			}
		}
	}
	walk(root)
	return found
}
