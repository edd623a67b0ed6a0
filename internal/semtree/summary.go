package semtree

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Summarizer produces a summary for a block of code or child summaries.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummaryCache persists summaries across runs, keyed by node ID and a hash
// of the exact input text so a stale entry is never reused.
type SummaryCache interface {
	Get(nodeID, hash string) (string, bool)
	Put(nodeID, hash, summary string) error
}

// SummaryOptions tunes bottom-up summary generation.
type SummaryOptions struct {
	// MaxWorkers bounds concurrent summarizer calls per level. Defaults
	// to 10.
	MaxWorkers int
	// IncludeLeafSource feeds raw source into parent prompts for children
	// that have no summary yet, instead of whatever text is best.
	IncludeLeafSource bool
	// PerNodeTimeout bounds each summarizer call. Defaults to 60s.
	PerNodeTimeout time.Duration
	// Cache, when set, is consulted before and updated after each call.
	Cache SummaryCache
}

const (
	defaultSummaryWorkers = 10
	defaultSummaryTimeout = 60 * time.Second
	childTextMaxChars     = 8000
)

// GenerateSummaries fills in summaries for every interior node, leaves
// first. Nodes of equal height run concurrently; a level only starts after
// the one below finished so parent prompts see child summaries. Individual
// failures are logged and leave that node's summary empty; only context
// cancellation aborts the run.
func (t *Tree) GenerateSummaries(ctx context.Context, s Summarizer, opts SummaryOptions) error {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = defaultSummaryWorkers
	}
	timeout := opts.PerNodeTimeout
	if timeout <= 0 {
		timeout = defaultSummaryTimeout
	}

	levels := t.summaryLevels()
	if len(levels) == 0 {
		return nil
	}

	heights := make([]int, 0, len(levels))
	for h := range levels {
		heights = append(heights, h)
	}
	sort.Ints(heights)

	for _, h := range heights {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, id := range levels[h] {
			n := t.nodes[id]
			text := t.gatherChildText(n, opts.IncludeLeafSource)
			if strings.TrimSpace(text) == "" {
				continue
			}
			g.Go(func() error {
				summary, err := t.summarizeOne(gctx, s, opts.Cache, n.ID, text, timeout)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Warn().Err(err).Str("node", n.ID).Msg("summary failed")
					return nil
				}
				n.Summary = summary
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) summarizeOne(ctx context.Context, s Summarizer, cache SummaryCache, nodeID, text string, timeout time.Duration) (string, error) {
	hash := hashText(text)
	if cache != nil {
		if summary, ok := cache.Get(nodeID, hash); ok {
			return summary, nil
		}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	summary, err := s.Summarize(cctx, text)
	if err != nil {
		return "", err
	}
	if cache != nil {
		if err := cache.Put(nodeID, hash, summary); err != nil {
			log.Warn().Err(err).Str("node", nodeID).Msg("summary cache write failed")
		}
	}
	return summary, nil
}

// summaryLevels groups interior nodes by height above the nearest leaf, and
// orders each level bottom of the DFS first for stable scheduling.
func (t *Tree) summaryLevels() map[int][]string {
	var order []string
	t.WalkDFS(RootID, func(n *Node) bool {
		order = append(order, n.ID)
		return true
	})
	// Reverse DFS order puts children before parents.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	height := make(map[string]int, len(order))
	for _, id := range order {
		n := t.nodes[id]
		h := 0
		for _, cid := range n.Children {
			if ch := height[cid] + 1; ch > h {
				h = ch
			}
		}
		height[id] = h
	}

	levels := make(map[int][]string)
	for _, id := range order {
		if n := t.nodes[id]; !n.IsLeaf() {
			levels[height[id]] = append(levels[height[id]], id)
		}
	}
	return levels
}

// gatherChildText assembles the prompt input for an interior node: each
// child's summary when present, otherwise its raw text.
func (t *Tree) gatherChildText(n *Node, includeLeafSource bool) string {
	innerMode := TextBest
	if includeLeafSource {
		innerMode = TextSource
	}
	parts := make([]string, 0, len(n.Children))
	for _, cid := range n.Children {
		child := t.nodes[cid]
		if child.Summary != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", child.Name, child.Summary))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", child.Name, child.Text(innerMode, childTextMaxChars)))
		}
	}
	return strings.Join(parts, "\n")
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
