package semtree

import (
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kvisser/codetree/internal/editor"
	"github.com/kvisser/codetree/internal/project"
	"github.com/kvisser/codetree/internal/pysrc"
)

// RootID is the fixed identifier of the project node.
const RootID = "root"

// Tree is the semantic tree over one indexed project.
type Tree struct {
	nodes map[string]*Node
	root  *Node
}

// New creates a tree holding only the project root node.
func New(projectName string) *Tree {
	root := &Node{ID: RootID, Name: projectName, Kind: KindProject}
	return &Tree{nodes: map[string]*Node{RootID: root}, root: root}
}

// Build constructs the full tree from an index: a folder node per directory,
// a file node per indexed file, class nodes below files, and function and
// method leaves carrying their source.
func Build(idx *project.Index, projectName string) (*Tree, error) {
	t := New(projectName)
	for _, abs := range idx.Files() {
		if err := t.addFile(idx, abs); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) addFile(idx *project.Index, abs string) error {
	fileID := idx.Rel(abs)

	// Folder chain, memoized by relative path.
	parentID := RootID
	parts := strings.Split(fileID, "/")
	for i := 0; i < len(parts)-1; i++ {
		folderPath := path.Join(parts[:i+1]...)
		if _, ok := t.nodes[folderPath]; !ok {
			t.addChild(parentID, &Node{
				ID:   folderPath,
				Name: parts[i],
				Kind: KindFolder,
				Meta: Meta{Path: folderPath},
			})
		}
		parentID = folderPath
	}

	src, err := idx.FileSource(abs)
	if err != nil {
		return err
	}
	t.addChild(parentID, &Node{
		ID:     fileID,
		Name:   path.Base(fileID),
		Kind:   KindFile,
		Source: src,
		Meta:   Meta{File: fileID},
	})

	return t.addSymbols(idx, abs, fileID)
}

// addSymbols attaches class, function, and method nodes below a file node.
// Methods hang off their class when it exists and fall back to the file.
func (t *Tree) addSymbols(idx *project.Index, abs, fileID string) error {
	recs, err := idx.ListSymbols(abs)
	if err != nil {
		return err
	}

	classIDs := make(map[string]string)
	for _, rec := range recs {
		nodeID := fileID + "::" + rec.QualName
		src, err := idx.SourceWithContext(rec, 0, 0)
		if err != nil {
			return err
		}
		meta := Meta{
			File:     fileID,
			QualName: rec.QualName,
			Position: []int{rec.Pos.StartLine, rec.Pos.EndLine},
		}

		switch rec.Kind {
		case pysrc.KindClass:
			t.addChild(fileID, &Node{
				ID: nodeID, Name: rec.QualName, Kind: KindClass,
				Source: src, Meta: meta,
			})
			classIDs[rec.QualName] = nodeID
		case pysrc.KindMethod:
			parentID := fileID
			if i := strings.LastIndex(rec.QualName, "."); i >= 0 {
				if cid, ok := classIDs[rec.QualName[:i]]; ok {
					parentID = cid
				}
			}
			t.addChild(parentID, &Node{
				ID: nodeID, Name: rec.QualName, Kind: KindMethod,
				Source: src, Meta: meta,
			})
		case pysrc.KindFunction:
			t.addChild(fileID, &Node{
				ID: nodeID, Name: rec.QualName, Kind: KindFunction,
				Source: src, Meta: meta,
			})
		}
	}
	return nil
}

func (t *Tree) addChild(parentID string, child *Node) {
	parent := t.nodes[parentID]
	parent.Children = append(parent.Children, child.ID)
	child.Parent = parentID
	t.nodes[child.ID] = child
}

// Root returns the project node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Get looks a node up by ID.
func (t *Tree) Get(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// SetSummary stores a summary on a node.
func (t *Tree) SetSummary(id, summary string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("no such node: %s", id)
	}
	n.Summary = summary
	return nil
}

// SetSource stores source text on a node.
func (t *Tree) SetSource(id, source string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("no such node: %s", id)
	}
	n.Source = source
	return nil
}

// Ancestors returns the node's ancestor IDs ordered root-first. The node
// itself is excluded.
func (t *Tree) Ancestors(id string) []string {
	var out []string
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	for cur := n.Parent; cur != ""; cur = t.nodes[cur].Parent {
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PathTo returns ancestors root-first followed by the node itself.
func (t *Tree) PathTo(id string) []string {
	return append(t.Ancestors(id), id)
}

// WalkDFS visits nodes depth-first starting at startID, children in source
// order. The walk stops when fn returns false.
func (t *Tree) WalkDFS(startID string, fn func(*Node) bool) {
	stack := []string{startID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := t.nodes[id]
		if !ok {
			continue
		}
		if !fn(n) {
			return
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Find returns the sorted IDs of nodes whose name matches the regular
// expression.
func (t *Tree) Find(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern: %w", err)
	}
	var out []string
	for id, n := range t.nodes {
		if re.MatchString(n.Name) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// EditSymbol applies a structural edit through the index and keeps the tree
// in sync: the file node gets the new source, the edited symbol node gets
// fresh source and position, and if the edit changed the file's symbol set
// the whole file branch is rebuilt.
func (t *Tree) EditSymbol(idx *project.Index, file, symbolPath string, relativeLine int, newStatements string, mode editor.Mode) error {
	_, newSrc, err := idx.EditSymbol(file, symbolPath, relativeLine, newStatements, mode)
	if err != nil {
		return err
	}
	fileID := idx.Rel(file)
	if fileNode, ok := t.nodes[fileID]; ok {
		fileNode.Source = newSrc
	}

	recs, err := idx.ListSymbols(file)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if _, ok := t.nodes[fileID+"::"+r.QualName]; !ok {
			log.Debug().Str("file", fileID).Str("symbol", r.QualName).
				Msg("new symbol after edit, rebuilding file branch")
			return t.rebuildFileBranch(idx, file)
		}
	}

	// Same symbol set: refresh every node's source and position in place.
	for _, r := range recs {
		n := t.nodes[fileID+"::"+r.QualName]
		src, err := idx.SourceWithContext(r, 0, 0)
		if err != nil {
			return err
		}
		n.Source = src
		n.Meta.Position = []int{r.Pos.StartLine, r.Pos.EndLine}
	}
	return nil
}

// rebuildFileBranch drops every symbol node of a file and re-attaches the
// current symbols. Folder and file nodes, and their summaries, are kept.
func (t *Tree) rebuildFileBranch(idx *project.Index, file string) error {
	fileID := idx.Rel(file)
	fileNode, ok := t.nodes[fileID]
	if !ok {
		return fmt.Errorf("no such node: %s", fileID)
	}

	prefix := fileID + "::"
	for id := range t.nodes {
		if strings.HasPrefix(id, prefix) {
			delete(t.nodes, id)
		}
	}
	fileNode.Children = nil

	return t.addSymbols(idx, file, fileID)
}

// Display writes an indented outline of the subtree at id.
func (t *Tree) Display(w io.Writer, id string) {
	t.display(w, id, 0)
}

func (t *Tree) display(w io.Writer, id string, depth int) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	fmt.Fprintf(w, "%s- %s: %s\n", strings.Repeat("  ", depth), n.Kind, n.Name)
	for _, cid := range n.Children {
		t.display(w, cid, depth+1)
	}
}
