package model

import (
	"errors"
	"testing"
)

func mustResolve(t *testing.T, d *Node, pos int) *ResolvedPos {
	t.Helper()
	rp, err := d.Resolve(pos)
	if err != nil {
		t.Fatalf("Resolve(%d): %v", pos, err)
	}
	return rp
}

func TestResolve(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	tests := []struct {
		pos          int
		depth        int
		parentOffset int
		index        int // index at the deepest level
	}{
		{0, 0, 0, 0},
		{1, 1, 0, 0},
		{2, 1, 1, 0},
		{3, 1, 2, 1},
		{4, 0, 4, 1},
		{5, 1, 0, 0},
		{7, 1, 2, 1},
		{8, 0, 8, 2},
	}
	for _, tt := range tests {
		rp := mustResolve(t, d, tt.pos)
		if rp.Depth() != tt.depth {
			t.Errorf("Resolve(%d).Depth() = %d, want %d", tt.pos, rp.Depth(), tt.depth)
		}
		if rp.ParentOffset != tt.parentOffset {
			t.Errorf("Resolve(%d).ParentOffset = %d, want %d", tt.pos, rp.ParentOffset, tt.parentOffset)
		}
		if got := rp.Index(rp.Depth()); got != tt.index {
			t.Errorf("Resolve(%d).Index = %d, want %d", tt.pos, got, tt.index)
		}
		if rp.Doc() != d {
			t.Errorf("Resolve(%d).Doc() is not the document", tt.pos)
		}
	}
}

func TestResolveEndOfTextblock(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	rp := mustResolve(t, d, 3)
	if rp.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", rp.Depth())
	}
	if got := rp.Index(0); got != 0 {
		t.Errorf("parent index = %d, want 0 (first paragraph)", got)
	}
	if rp.Parent().Type.Name != "paragraph" {
		t.Errorf("Parent() = %s", rp.Parent().Type.Name)
	}
	if before := rp.NodeBefore(); before == nil || before.Text != "ab" {
		t.Errorf("NodeBefore() = %v", before)
	}
	if rp.NodeAfter() != nil {
		t.Errorf("NodeAfter() at content end should be nil")
	}
}

func TestResolveOutOfRange(t *testing.T) {
	d := doc(p(txt("ab")))
	for _, pos := range []int{-1, 7, 100} {
		if _, err := d.Resolve(pos); !errors.Is(err, ErrPositionOutOfRange) {
			t.Errorf("Resolve(%d) err = %v, want ErrPositionOutOfRange", pos, err)
		}
	}
}

func TestStartEndBeforeAfter(t *testing.T) {
	d := doc(bq(p(txt("ab"))))
	rp := mustResolve(t, d, 3) // inside the text
	if rp.Depth() != 2 {
		t.Fatalf("Depth() = %d", rp.Depth())
	}
	checks := []struct {
		name      string
		got, want int
	}{
		{"Start(0)", rp.Start(0), 0},
		{"End(0)", rp.End(0), 6},
		{"Start(1)", rp.Start(1), 1},
		{"End(1)", rp.End(1), 5},
		{"Start(2)", rp.Start(2), 2},
		{"End(2)", rp.End(2), 4},
		{"Before(1)", rp.Before(1), 0},
		{"After(1)", rp.After(1), 6},
		{"Before(2)", rp.Before(2), 1},
		{"After(2)", rp.After(2), 5},
		{"Start(-1)", rp.Start(-1), 1}, // negative depth counts down from the parent
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestTextOffsetAndNodeAround(t *testing.T) {
	d := doc(p(txt("ab")))
	rp := mustResolve(t, d, 2)
	if got := rp.TextOffset(); got != 1 {
		t.Errorf("TextOffset() = %d, want 1", got)
	}
	if before := rp.NodeBefore(); before == nil || before.Text != "a" {
		t.Errorf("NodeBefore() = %v, want the text before the offset", before)
	}
	if after := rp.NodeAfter(); after == nil || after.Text != "b" {
		t.Errorf("NodeAfter() = %v, want the text after the offset", after)
	}
}

func TestResolveMarks(t *testing.T) {
	d := doc(p(txt("ab", link("x")), txt("cd", em())))

	if got := mustResolve(t, d, 2).Marks(); len(got) != 1 || got[0].Type.Name != "link" {
		t.Errorf("marks inside link text = %v", namesOf(got))
	}
	// link is not inclusive, so it does not apply at its own end boundary
	if got := mustResolve(t, d, 3).Marks(); len(got) != 0 {
		t.Errorf("marks at link boundary = %v, want none", namesOf(got))
	}
	if got := mustResolve(t, d, 4).Marks(); len(got) != 1 || got[0].Type.Name != "em" {
		t.Errorf("marks inside em text = %v", namesOf(got))
	}
	if got := mustResolve(t, doc(p()), 1).Marks(); len(got) != 0 {
		t.Errorf("marks in empty paragraph = %v", namesOf(got))
	}
}

func TestSharedDepth(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	rp := mustResolve(t, d, 2)
	if got := rp.SharedDepth(3); got != 1 {
		t.Errorf("SharedDepth(3) = %d, want 1", got)
	}
	if got := rp.SharedDepth(5); got != 0 {
		t.Errorf("SharedDepth(5) = %d, want 0", got)
	}
}

func TestSameParent(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	if !mustResolve(t, d, 1).SameParent(mustResolve(t, d, 3)) {
		t.Errorf("positions in one paragraph should share a parent")
	}
	if mustResolve(t, d, 1).SameParent(mustResolve(t, d, 5)) {
		t.Errorf("positions in different paragraphs should not share a parent")
	}
}

func TestBlockRange(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))

	r := mustResolve(t, d, 1).BlockRange(mustResolve(t, d, 7), nil)
	if r == nil {
		t.Fatal("BlockRange = nil")
	}
	if r.Depth != 0 || r.StartIndex() != 0 || r.EndIndex() != 2 {
		t.Errorf("range = depth %d [%d, %d)", r.Depth, r.StartIndex(), r.EndIndex())
	}
	if r.Start() != 0 || r.End() != 8 {
		t.Errorf("range bounds = [%d, %d)", r.Start(), r.End())
	}

	single := mustResolve(t, d, 1).BlockRange(mustResolve(t, d, 3), nil)
	if single == nil || single.Depth != 0 || single.StartIndex() != 0 || single.EndIndex() != 1 {
		t.Errorf("single-paragraph range = %+v", single)
	}

	nested := doc(bq(p(txt("ab"))))
	inner := mustResolve(t, nested, 2).BlockRange(mustResolve(t, nested, 4), nil)
	if inner == nil || inner.Depth != 1 || inner.Parent().Type.Name != "blockquote" {
		t.Errorf("nested range = %+v", inner)
	}

	none := mustResolve(t, d, 1).BlockRange(mustResolve(t, d, 7), func(n *Node) bool {
		return n.Type.Name == "blockquote"
	})
	if none != nil {
		t.Errorf("predicate rejected every ancestor but a range was returned")
	}
}

func TestResolveCacheIsPerDocument(t *testing.T) {
	a := doc(p(txt("ab")))
	b := doc(p(txt("xy")))
	ra := mustResolve(t, a, 2)
	rb := mustResolve(t, b, 2)
	if ra.Doc() != a || rb.Doc() != b {
		t.Errorf("cache mixed up documents")
	}
	if again := mustResolve(t, a, 2); again.Doc() != a {
		t.Errorf("cached entry resolved against the wrong document")
	}
}
