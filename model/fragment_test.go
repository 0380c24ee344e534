package model

import "testing"

func TestFragmentFromMergesText(t *testing.T) {
	frag := FragmentFrom(txt("ab"), txt("cd"))
	if frag.ChildCount() != 1 {
		t.Fatalf("ChildCount() = %d, want 1", frag.ChildCount())
	}
	if got := frag.Child(0).Text; got != "abcd" {
		t.Errorf("merged text = %q, want %q", got, "abcd")
	}
	if frag.Size() != 4 {
		t.Errorf("Size() = %d, want 4", frag.Size())
	}

	mixed := FragmentFrom(txt("ab"), txt("cd", em()))
	if mixed.ChildCount() != 2 {
		t.Errorf("differently marked text merged: ChildCount() = %d, want 2", mixed.ChildCount())
	}
}

func TestFragmentAppend(t *testing.T) {
	a := FragmentFrom(p(txt("ab")))
	b := FragmentFrom(p(txt("cd")))
	joined := a.Append(b)
	if joined.ChildCount() != 2 || joined.Size() != 8 {
		t.Fatalf("Append() = %v (size %d), want two paragraphs of size 8", joined, joined.Size())
	}
	if got := a.Append(EmptyFragment); got != a {
		t.Errorf("appending the empty fragment should return the receiver")
	}
	if got := EmptyFragment.Append(b); got != b {
		t.Errorf("appending to the empty fragment should return the argument")
	}

	seam := FragmentFrom(txt("ab")).Append(FragmentFrom(txt("cd")))
	if seam.ChildCount() != 1 || seam.Child(0).Text != "abcd" {
		t.Errorf("text at the seam not merged: %v", seam)
	}
}

func TestFragmentAddToEnd(t *testing.T) {
	frag := EmptyFragment.AddToEnd(p(txt("ab"))).AddToEnd(p(txt("cd")))
	if frag.ChildCount() != 2 || frag.Size() != 8 {
		t.Fatalf("AddToEnd() = %v (size %d), want two paragraphs of size 8", frag, frag.Size())
	}
	seam := FragmentFrom(txt("ab")).AddToEnd(txt("cd"))
	if seam.ChildCount() != 1 || seam.Child(0).Text != "abcd" {
		t.Errorf("text at the seam not merged: %v", seam)
	}
}

func TestFragmentCut(t *testing.T) {
	content := doc(p(txt("ab")), p(txt("cd"))).Content()
	tests := []struct {
		name     string
		from, to int
		want     *Fragment
	}{
		{"all", 0, 8, content},
		{"first child", 0, 4, FragmentFrom(p(txt("ab")))},
		{"second child", 4, 8, FragmentFrom(p(txt("cd")))},
		{"into text", 2, 6, FragmentFrom(p(txt("b")), p(txt("c")))},
		{"empty", 3, 3, EmptyFragment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := content.Cut(tt.from, tt.to)
			if !got.Eq(tt.want) {
				t.Errorf("Cut(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestFragmentCutByIndex(t *testing.T) {
	content := doc(p(txt("ab")), hr(), p(txt("cd"))).Content()
	got := content.CutByIndex(1, 3)
	if !got.Eq(FragmentFrom(hr(), p(txt("cd")))) {
		t.Errorf("CutByIndex(1, 3) = %v", got)
	}
	if content.CutByIndex(1, 1) != EmptyFragment {
		t.Errorf("CutByIndex over an empty range should return the empty fragment")
	}
}

func TestFragmentFindIndex(t *testing.T) {
	content := doc(p(txt("ab")), p(txt("cd"))).Content()
	tests := []struct {
		pos, index, offset int
	}{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
		{3, 0, 0},
		{4, 1, 4},
		{5, 1, 4},
		{8, 2, 8},
	}
	for _, tt := range tests {
		index, offset := content.findIndex(tt.pos)
		if index != tt.index || offset != tt.offset {
			t.Errorf("findIndex(%d) = (%d, %d), want (%d, %d)", tt.pos, index, offset, tt.index, tt.offset)
		}
	}
}

func TestFragmentTextBetween(t *testing.T) {
	content := doc(p(txt("ab")), p(txt("cd"))).Content()
	if got := content.TextBetween(0, 8, "|", ""); got != "ab|cd" {
		t.Errorf("TextBetween(0, 8) = %q, want %q", got, "ab|cd")
	}
	if got := content.TextBetween(2, 6, "|", ""); got != "b|c" {
		t.Errorf("TextBetween(2, 6) = %q, want %q", got, "b|c")
	}
}

func TestFragmentNodesBetweenPrune(t *testing.T) {
	d := doc(bq(p(txt("ab"))), p(txt("cd")))
	var visited []string
	d.NodesBetween(0, d.Content().Size(), func(node *Node, pos int, _ *Node, _ int) bool {
		visited = append(visited, node.Type.Name)
		// do not descend into blockquotes
		return node.Type.Name != "blockquote"
	})
	want := []string{"blockquote", "paragraph", "text"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}

func TestFragmentReplaceChild(t *testing.T) {
	content := FragmentFrom(p(txt("ab")), p(txt("cd")))
	got := content.ReplaceChild(1, p(txt("xyz")))
	if !got.Eq(FragmentFrom(p(txt("ab")), p(txt("xyz")))) {
		t.Errorf("ReplaceChild = %v", got)
	}
	if got.Size() != content.Size()+1 {
		t.Errorf("size not adjusted: %d", got.Size())
	}
	if !content.Child(1).Eq(p(txt("cd"))) {
		t.Errorf("original fragment changed by ReplaceChild")
	}
}

func TestFragmentEq(t *testing.T) {
	a := FragmentFrom(p(txt("ab")), hr())
	b := FragmentFrom(p(txt("ab")), hr())
	if !a.Eq(b) {
		t.Errorf("equal fragments reported unequal")
	}
	if a.Eq(FragmentFrom(p(txt("ab")))) {
		t.Errorf("fragments of different length reported equal")
	}
	if a.Eq(FragmentFrom(p(txt("ab", em())), hr())) {
		t.Errorf("fragments with different marks reported equal")
	}
}
