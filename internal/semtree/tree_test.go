package semtree

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/golden"

	"github.com/kvisser/codetree/internal/editor"
	"github.com/kvisser/codetree/internal/project"
)

const appSrc = `class C:
    def m(self):
        return 1

def f():
    x = 1
    return x
`

const utilSrc = `def helper():
    pass
`

func buildFixture(t *testing.T) (*Tree, *project.Index) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"pkg/app.py": appSrc,
		"util.py":    utilSrc,
	}
	for rel, src := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := project.NewIndex(root)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	t.Cleanup(idx.Close)
	if err := idx.Build(context.Background(), project.BuildOptions{}); err != nil {
		t.Fatalf("Build index: %v", err)
	}

	tree, err := Build(idx, "demo")
	if err != nil {
		t.Fatalf("Build tree: %v", err)
	}
	return tree, idx
}

func TestBuildStructure(t *testing.T) {
	tree, _ := buildFixture(t)

	root := tree.Root()
	if root.ID != RootID || root.Kind != KindProject || root.Name != "demo" {
		t.Fatalf("unexpected root: %+v", root)
	}

	folder, ok := tree.Get("pkg")
	if !ok || folder.Kind != KindFolder {
		t.Fatalf("folder node missing: %+v", folder)
	}

	file, ok := tree.Get("pkg/app.py")
	if !ok || file.Kind != KindFile || file.Parent != "pkg" {
		t.Fatalf("file node wrong: %+v", file)
	}
	if file.Source != appSrc {
		t.Error("file node does not carry full source")
	}

	cls, ok := tree.Get("pkg/app.py::C")
	if !ok || cls.Kind != KindClass || cls.Parent != "pkg/app.py" {
		t.Fatalf("class node wrong: %+v", cls)
	}

	method, ok := tree.Get("pkg/app.py::C.m")
	if !ok || method.Kind != KindMethod || method.Parent != "pkg/app.py::C" {
		t.Fatalf("method should attach under its class: %+v", method)
	}
	if !method.IsLeaf() {
		t.Error("method should be a leaf")
	}
	if !strings.Contains(method.Source, "def m(self):") {
		t.Errorf("method source wrong: %q", method.Source)
	}
	if got := method.Meta.Position; len(got) != 2 || got[0] != 2 {
		t.Errorf("method position = %v, want start line 2", got)
	}

	fn, ok := tree.Get("pkg/app.py::f")
	if !ok || fn.Kind != KindFunction || fn.Parent != "pkg/app.py" {
		t.Fatalf("function node wrong: %+v", fn)
	}
}

func TestAncestorsAndPath(t *testing.T) {
	tree, _ := buildFixture(t)

	anc := tree.Ancestors("pkg/app.py::C.m")
	want := []string{"root", "pkg", "pkg/app.py", "pkg/app.py::C"}
	if len(anc) != len(want) {
		t.Fatalf("ancestors = %v, want %v", anc, want)
	}
	for i := range want {
		if anc[i] != want[i] {
			t.Fatalf("ancestors = %v, want %v", anc, want)
		}
	}

	path := tree.PathTo("pkg/app.py::C.m")
	if path[len(path)-1] != "pkg/app.py::C.m" {
		t.Errorf("path should end at the node: %v", path)
	}
}

func TestWalkDFSOrder(t *testing.T) {
	tree, _ := buildFixture(t)

	var ids []string
	tree.WalkDFS(RootID, func(n *Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	if len(ids) != tree.Len() {
		t.Fatalf("walk visited %d of %d nodes", len(ids), tree.Len())
	}
	// Parent always precedes child.
	seen := map[string]int{}
	for i, id := range ids {
		seen[id] = i
	}
	for _, id := range ids {
		n, _ := tree.Get(id)
		if n.Parent != "" && seen[n.Parent] > seen[id] {
			t.Errorf("child %s visited before parent %s", id, n.Parent)
		}
	}

	// Early termination.
	count := 0
	tree.WalkDFS(RootID, func(n *Node) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Errorf("walk did not stop early: %d visits", count)
	}
}

func TestFind(t *testing.T) {
	tree, _ := buildFixture(t)

	ids, err := tree.Find(`^C\.m$`)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(ids) != 1 || ids[0] != "pkg/app.py::C.m" {
		t.Fatalf("Find = %v", ids)
	}

	if _, err := tree.Find("["); err == nil {
		t.Error("bad pattern should fail")
	}
}

func TestDisplayGolden(t *testing.T) {
	tree, _ := buildFixture(t)
	var buf bytes.Buffer
	tree.Display(&buf, RootID)
	golden.RequireEqual(t, buf.Bytes())
}

func TestEditSymbolRefreshesNodes(t *testing.T) {
	tree, idx := buildFixture(t)

	err := tree.EditSymbol(idx, "pkg/app.py", "C.m", 0, "self.x = 1", editor.ModeInsert)
	if err != nil {
		t.Fatalf("EditSymbol: %v", err)
	}

	file, _ := tree.Get("pkg/app.py")
	if !strings.Contains(file.Source, "self.x = 1") {
		t.Error("file node source not refreshed")
	}

	method, _ := tree.Get("pkg/app.py::C.m")
	if !strings.Contains(method.Source, "self.x = 1") {
		t.Errorf("method node source not refreshed:\n%s", method.Source)
	}

	// f shifted down one line; its position must be fresh.
	fn, _ := tree.Get("pkg/app.py::f")
	if fn.Meta.Position[0] != 6 {
		t.Errorf("f start line = %d, want 6", fn.Meta.Position[0])
	}
}

func TestEditSymbolPreservesSummaries(t *testing.T) {
	tree, idx := buildFixture(t)
	if err := tree.SetSummary("pkg/app.py", "file summary"); err != nil {
		t.Fatal(err)
	}

	if err := tree.EditSymbol(idx, "pkg/app.py", "f", 0, "y = 2", editor.ModeInsert); err != nil {
		t.Fatalf("EditSymbol: %v", err)
	}
	file, _ := tree.Get("pkg/app.py")
	if file.Summary != "file summary" {
		t.Error("file summary lost on edit")
	}
}

func TestEditSymbolPropagatesErrors(t *testing.T) {
	tree, idx := buildFixture(t)
	err := tree.EditSymbol(idx, "pkg/app.py", "missing", 0, "x = 1", editor.ModeInsert)
	if err == nil {
		t.Fatal("expected error for unknown symbol")
	}
}
