package semtree

import (
	"encoding/json"
	"fmt"
	"os"
)

type nodeJSON struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Summary  string      `json:"summary,omitempty"`
	Meta     Meta        `json:"meta"`
	Source   string      `json:"source,omitempty"`
	Children []*nodeJSON `json:"children"`
}

// ExportJSON serializes the tree as nested JSON rooted at the project node.
// Source text is omitted when includeSource is false; summaries and
// metadata always travel.
func (t *Tree) ExportJSON(includeSource bool) ([]byte, error) {
	root := t.exportNode(t.root, includeSource)
	return json.MarshalIndent(root, "", "  ")
}

func (t *Tree) exportNode(n *Node, includeSource bool) *nodeJSON {
	out := &nodeJSON{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind,
		Summary:  n.Summary,
		Meta:     n.Meta,
		Children: make([]*nodeJSON, 0, len(n.Children)),
	}
	if includeSource {
		out.Source = n.Source
	}
	for _, cid := range n.Children {
		out.Children = append(out.Children, t.exportNode(t.nodes[cid], includeSource))
	}
	return out
}

// SaveJSON writes the serialized tree to a file.
func (t *Tree) SaveJSON(path string, includeSource bool) error {
	data, err := t.ExportJSON(includeSource)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ImportJSON reconstructs a tree from ExportJSON output. The loaded tree
// supports navigation, context collection, and summarization, but not
// editing, since it carries no index.
func ImportJSON(data []byte) (*Tree, error) {
	var root nodeJSON
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if root.ID == "" {
		return nil, fmt.Errorf("decode tree: missing root id")
	}

	t := &Tree{nodes: make(map[string]*Node)}
	t.root = t.importNode(&root)
	if t.root.ID != RootID {
		// Subtree exports stay addressable under the conventional key.
		t.nodes[RootID] = t.root
	}
	return t, nil
}

func (t *Tree) importNode(in *nodeJSON) *Node {
	n := &Node{
		ID:      in.ID,
		Name:    in.Name,
		Kind:    in.Kind,
		Summary: in.Summary,
		Source:  in.Source,
		Meta:    in.Meta,
	}
	t.nodes[n.ID] = n
	for _, child := range in.Children {
		cn := t.importNode(child)
		cn.Parent = n.ID
		n.Children = append(n.Children, cn.ID)
	}
	return n
}

// LoadJSON reads a serialized tree from a file.
func LoadJSON(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ImportJSON(data)
}
