package semtree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type fnSummarizer func(ctx context.Context, text string) (string, error)

func (f fnSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// recorder captures every prompt the summarizer receives.
type recorder struct {
	mu     sync.Mutex
	inputs []string
}

func (r *recorder) summarize(_ context.Context, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, text)
	return fmt.Sprintf("sum#%d", len(r.inputs)), nil
}

func (r *recorder) anyInputContains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.inputs {
		if strings.Contains(in, sub) {
			return true
		}
	}
	return false
}

func TestGenerateSummariesBottomUp(t *testing.T) {
	tree, _ := buildFixture(t)
	rec := &recorder{}

	err := tree.GenerateSummaries(context.Background(), fnSummarizer(rec.summarize),
		SummaryOptions{IncludeLeafSource: true})
	if err != nil {
		t.Fatalf("GenerateSummaries: %v", err)
	}

	// Leaves keep their source and get no summary of their own.
	method, _ := tree.Get("pkg/app.py::C.m")
	if method.Summary != "" {
		t.Error("leaf should not be summarized")
	}

	// Every interior node got one.
	for _, id := range []string{"pkg/app.py::C", "pkg/app.py", "pkg", "root"} {
		n, _ := tree.Get(id)
		if n.Summary == "" {
			t.Errorf("%s has no summary", id)
		}
	}

	// The class prompt saw the method source.
	if !rec.anyInputContains("C.m: ") || !rec.anyInputContains("def m(self):") {
		t.Error("class prompt missing leaf source")
	}

	// The file prompt ran after the class level, so it saw the class
	// summary rather than raw class source.
	cls, _ := tree.Get("pkg/app.py::C")
	if !rec.anyInputContains("C: " + cls.Summary) {
		t.Errorf("file prompt missing class summary %q", cls.Summary)
	}
}

func TestGenerateSummariesFailureIsNonFatal(t *testing.T) {
	tree, _ := buildFixture(t)
	boom := fnSummarizer(func(context.Context, string) (string, error) {
		return "", errors.New("model unavailable")
	})

	if err := tree.GenerateSummaries(context.Background(), boom, SummaryOptions{}); err != nil {
		t.Fatalf("per-node failures should not fail the run: %v", err)
	}
	root := tree.Root()
	if root.Summary != "" {
		t.Error("failed summarization should leave summary empty")
	}
}

func TestGenerateSummariesCancellation(t *testing.T) {
	tree, _ := buildFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := fnSummarizer(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	if err := tree.GenerateSummaries(ctx, s, SummaryOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string]string)} }

func (c *mapCache) Get(nodeID, hash string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[nodeID+"\x00"+hash]
	return s, ok
}

func (c *mapCache) Put(nodeID, hash, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[nodeID+"\x00"+hash] = summary
	return nil
}

func TestGenerateSummariesUsesCache(t *testing.T) {
	cache := newMapCache()
	opts := SummaryOptions{IncludeLeafSource: true, Cache: cache}

	first, _ := buildFixture(t)
	rec := &recorder{}
	if err := first.GenerateSummaries(context.Background(), fnSummarizer(rec.summarize), opts); err != nil {
		t.Fatal(err)
	}
	warmCalls := len(rec.inputs)
	if warmCalls == 0 {
		t.Fatal("first run made no calls")
	}

	// An identical tree with a warm cache needs no model calls at all.
	second, _ := buildFixture(t)
	cold := &recorder{}
	if err := second.GenerateSummaries(context.Background(), fnSummarizer(cold.summarize), opts); err != nil {
		t.Fatal(err)
	}
	if len(cold.inputs) != 0 {
		t.Fatalf("cached run made %d calls, want 0", len(cold.inputs))
	}

	rootFirst := first.Root()
	rootSecond := second.Root()
	if rootFirst.Summary != rootSecond.Summary {
		t.Error("cached summaries differ from originals")
	}
}
