package editor

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// blockCursor addresses a statement list inside a function body by a path of
// statement indices. Descending records which compound statement was entered
// at each level; the same path can later be replayed to find the statement
// list again. This is the reusable piece behind every edit kind: resolve a
// path against the tree, then splice at the addressed list.
type blockCursor struct {
	block *sitter.Node
	path  []int
}

func newBlockCursor(body *sitter.Node) *blockCursor {
	return &blockCursor{block: body}
}

// Statements returns the statements of the current block, excluding comment
// nodes, which tree-sitter represents as named children of the block but
// which do not participate in statement indexing.
func (c *blockCursor) Statements() []*sitter.Node {
	return blockStatements(c.block)
}

// Descend enters the nested body of the idx-th statement of the current
// block. The statement must be a compound statement that owns a body.
func (c *blockCursor) Descend(idx int) error {
	stmts := c.Statements()
	if idx < 0 || idx >= len(stmts) {
		return fmt.Errorf("statement index %d out of range (%d statements)", idx, len(stmts))
	}
	nested := nestedBlock(stmts[idx])
	if nested == nil {
		return fmt.Errorf("statement %d (%s) has no nested body", idx, stmts[idx].Type())
	}
	c.block = nested
	c.path = append(c.path, idx)
	return nil
}

// DescendPath replays a previously recorded path of statement indices.
func (c *blockCursor) DescendPath(path []int) error {
	for _, idx := range path {
		if err := c.Descend(idx); err != nil {
			return err
		}
	}
	return nil
}

func blockStatements(block *sitter.Node) []*sitter.Node {
	var stmts []*sitter.Node
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		stmts = append(stmts, child)
	}
	return stmts
}

// nestedBlock returns the owned statement list of a compound statement, or
// nil for anything else. Only the primary body is returned: elif/else
// branches, except handlers, and finally clauses are treated as part of the
// owning statement's span but are not descended into. This mirrors the
// editor's documented targeting limitation.
func nestedBlock(stmt *sitter.Node) *sitter.Node {
	switch stmt.Type() {
	case "if_statement":
		return stmt.ChildByFieldName("consequence")
	case "for_statement", "while_statement", "with_statement", "try_statement":
		return stmt.ChildByFieldName("body")
	default:
		return nil
	}
}
