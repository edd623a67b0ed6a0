// Package semtree builds a hierarchical semantic view of an indexed
// project: folders and files as intermediate nodes, classes below files,
// functions and methods as leaves carrying source. Nodes accumulate LLM
// summaries bottom-up and feed token-budgeted context collection.
package semtree

// Node kinds, outermost to innermost.
const (
	KindProject  = "project"
	KindFolder   = "folder"
	KindFile     = "file"
	KindClass    = "class"
	KindFunction = "function"
	KindMethod   = "method"
)

// TextMode selects which content layer Text returns.
type TextMode string

const (
	// TextBest prefers source and falls back to the summary.
	TextBest TextMode = "best"
	// TextBoth concatenates summary then source.
	TextBoth TextMode = "both"
	// TextSummary returns the summary only.
	TextSummary TextMode = "summary"
	// TextSource returns the source only.
	TextSource TextMode = "source"
)

// Meta carries the indexable origin of a node.
type Meta struct {
	File     string `json:"file,omitempty"`
	QualName string `json:"qualname,omitempty"`
	Path     string `json:"path,omitempty"`
	// Position is the 1-based start and end line of the symbol.
	Position []int `json:"position,omitempty"`
}

// Node is one entry in the semantic tree. Children are ordered
// left-to-right in source order; IDs are stable across rebuilds: the
// root-relative file path for files and folders, "path::qualname" for
// symbols, and "root" for the project node.
type Node struct {
	ID       string
	Name     string
	Kind     string
	Parent   string
	Children []string

	Source  string
	Summary string
	Meta    Meta
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Text returns the node's content under the given mode, truncated to
// maxChars bytes. maxChars <= 0 means no limit.
func (n *Node) Text(mode TextMode, maxChars int) string {
	var out string
	switch mode {
	case TextBest:
		if n.Source != "" {
			out = n.Source
		} else {
			out = n.Summary
		}
	case TextBoth:
		switch {
		case n.Summary != "" && n.Source != "":
			out = n.Summary + "\n" + n.Source
		case n.Summary != "":
			out = n.Summary
		default:
			out = n.Source
		}
	case TextSummary:
		out = n.Summary
	case TextSource:
		out = n.Source
	}
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}
