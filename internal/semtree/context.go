package semtree

import (
	"sort"
	"strings"
)

// ScoreFunc rates a node's relevance to a query. Higher is more relevant.
type ScoreFunc func(query string, n *Node) float64

// SubstringScore scores 1 when the query appears in the node name,
// case-insensitively, and 0 otherwise.
func SubstringScore(query string, n *Node) float64 {
	if strings.Contains(strings.ToLower(n.Name), strings.ToLower(query)) {
		return 1
	}
	return 0
}

// KeywordScore scores by the fraction of query words found in the node's
// name or summary, with a small bonus for leaves so concrete code wins ties
// against containers.
func KeywordScore(query string, n *Node) float64 {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return 0
	}
	haystack := strings.ToLower(n.Name + " " + n.Summary)
	hits := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			hits++
		}
	}
	score := float64(hits) / float64(len(words))
	if score > 0 && n.IsLeaf() {
		score += 0.1
	}
	return score
}

// ApproxTokens estimates the token count of text at roughly four characters
// per token.
func ApproxTokens(text string) int {
	if text == "" {
		return 0
	}
	if n := len(text) / 4; n > 1 {
		return n
	}
	return 1
}

// CollectOptions tunes context collection. Zero values select the defaults:
// ancestors/self/siblings/children order, best text mode, substring
// scoring, and a 32000-character per-node cap.
type CollectOptions struct {
	Order    []string
	Mode     TextMode
	Score    ScoreFunc
	MaxChars int
}

const defaultMaxChars = 32_000

var defaultOrder = []string{"ancestors", "self", "siblings", "children"}

// CollectContext gathers node texts relevant to a query under a token
// budget, returning node ID to text. Traversal is best-first from the root:
// at each visited node the order directives pull in ancestor, self, sibling,
// and child texts while the budget allows, then the node's children join
// the front of the frontier sorted by descending score. A text that would
// overflow the budget is skipped, never truncated, so later smaller texts
// can still fit. The result is a greedy approximation, not a globally
// optimal node set.
func (t *Tree) CollectContext(query string, tokenBudget int, opts CollectOptions) map[string]string {
	order := opts.Order
	if len(order) == 0 {
		order = defaultOrder
	}
	mode := opts.Mode
	if mode == "" {
		mode = TextBest
	}
	score := opts.Score
	if score == nil {
		score = SubstringScore
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	scores := make(map[string]float64, len(t.nodes))
	for id, n := range t.nodes {
		scores[id] = score(query, n)
	}

	out := make(map[string]string)
	used := 0

	tryAdd := func(id string) {
		if _, done := out[id]; done {
			return
		}
		n, ok := t.nodes[id]
		if !ok {
			return
		}
		text := n.Text(mode, maxChars)
		if text == "" {
			return
		}
		need := ApproxTokens(text)
		if used+need <= tokenBudget {
			out[id] = text
			used += need
		}
	}

	sortedChildren := func(id string) []string {
		ch := append([]string(nil), t.nodes[id].Children...)
		sort.SliceStable(ch, func(i, j int) bool {
			return scores[ch[i]] > scores[ch[j]]
		})
		return ch
	}

	frontier := []string{RootID}
	visited := make(map[string]bool)
	for len(frontier) > 0 && used < tokenBudget {
		id := frontier[0]
		frontier = frontier[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		for _, directive := range order {
			switch directive {
			case "ancestors":
				for _, aid := range t.Ancestors(id) {
					tryAdd(aid)
				}
			case "self":
				tryAdd(id)
			case "siblings":
				if p := t.nodes[id].Parent; p != "" {
					for _, sib := range t.nodes[p].Children {
						if sib != id {
							tryAdd(sib)
						}
					}
				}
			case "children":
				for _, cid := range sortedChildren(id) {
					tryAdd(cid)
				}
			}
		}

		frontier = append(sortedChildren(id), frontier...)
	}
	return out
}
