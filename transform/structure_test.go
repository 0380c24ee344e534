package transform

import (
	"testing"

	"github.com/dshills/treedoc/model"
)

func rangeAt(t *testing.T, d *model.Node, from, to int) *model.NodeRange {
	t.Helper()
	pFrom, err := d.Resolve(from)
	if err != nil {
		t.Fatalf("resolve %d: %v", from, err)
	}
	pTo, err := d.Resolve(to)
	if err != nil {
		t.Fatalf("resolve %d: %v", to, err)
	}
	rng := pFrom.BlockRange(pTo, nil)
	if rng == nil {
		t.Fatalf("no block range for [%d, %d)", from, to)
	}
	return rng
}

func TestLift(t *testing.T) {
	d := doc(bq(p(txt("ab"))))
	rng := rangeAt(t, d, 2, 2)

	target, ok := LiftTarget(rng)
	if !ok || target != 0 {
		t.Fatalf("LiftTarget = %d, %v; want 0, true", target, ok)
	}

	tr := NewTransform(d)
	if err := Lift(tr, rng, target); err != nil {
		t.Fatalf("Lift: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("ab"))))
}

func TestLiftTargetAtTopLevel(t *testing.T) {
	d := doc(p(txt("ab")))
	if _, ok := LiftTarget(rangeAt(t, d, 1, 1)); ok {
		t.Error("top-level paragraph reported liftable")
	}
}

func TestWrap(t *testing.T) {
	d := doc(p(txt("ab")))
	rng := rangeAt(t, d, 1, 1)

	wrappers, ok := FindWrapping(rng, basic.Nodes["blockquote"], nil)
	if !ok {
		t.Fatal("FindWrapping found no wrapping")
	}
	if len(wrappers) != 1 || wrappers[0].Type != basic.Nodes["blockquote"] {
		t.Fatalf("wrappers = %+v", wrappers)
	}

	tr := NewTransform(d)
	if err := Wrap(tr, rng, wrappers); err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	checkDoc(t, tr, doc(bq(p(txt("ab")))))
}

func TestFindWrappingImpossible(t *testing.T) {
	d := doc(p(txt("ab")))
	if _, ok := FindWrapping(rangeAt(t, d, 1, 1), basic.Nodes["paragraph"], nil); ok {
		t.Error("found a wrapping of a paragraph in a paragraph")
	}
}

func TestSplit(t *testing.T) {
	d := doc(p(txt("ab")))
	if !CanSplit(d, 2, 1, nil) {
		t.Fatal("CanSplit = false in the middle of a paragraph")
	}

	tr := NewTransform(d)
	if err := Split(tr, 2, 1, nil); err != nil {
		t.Fatalf("Split: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("a")), p(txt("b"))))
}

func TestSplitWithTypeAfter(t *testing.T) {
	d := doc(h(txt("ab")))
	after := []*SplitType{{Type: basic.Nodes["paragraph"]}}
	if !CanSplit(d, 2, 1, after) {
		t.Fatal("CanSplit = false for a retyped split")
	}

	tr := NewTransform(d)
	if err := Split(tr, 2, 1, after); err != nil {
		t.Fatalf("Split: %v", err)
	}
	checkDoc(t, tr, doc(h(txt("a")), p(txt("b"))))
}

func TestCanSplitLimits(t *testing.T) {
	d := doc(p(txt("ab")))
	if CanSplit(d, 2, 2, nil) {
		t.Error("split deeper than the position's depth allowed")
	}
	if CanSplit(d, 0, 1, nil) {
		t.Error("split at the document boundary allowed")
	}
}

func TestJoin(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	if !CanJoin(d, 4) {
		t.Fatal("CanJoin = false between compatible paragraphs")
	}
	if CanJoin(d, 3) {
		t.Error("CanJoin = true inside a paragraph")
	}
	if CanJoin(doc(p(txt("ab")), hr()), 4) {
		t.Error("CanJoin = true before an incompatible leaf")
	}

	tr := NewTransform(d)
	if err := Join(tr, 4, 1); err != nil {
		t.Fatalf("Join: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("abcd"))))
	if got := tr.Mapping.Map(5, -1); got != 3 {
		t.Errorf("Map(5, -1) = %d, want 3", got)
	}
}

func TestInsertPoint(t *testing.T) {
	hrType := basic.Nodes["horizontal_rule"]
	d := doc(p(txt("ab")), p(txt("cd")))

	if pos, ok := InsertPoint(d, 1, hrType); !ok || pos != 0 {
		t.Errorf("InsertPoint(1) = %d, %v; want 0, true", pos, ok)
	}
	if _, ok := InsertPoint(d, 2, hrType); ok {
		t.Error("InsertPoint found a point in the middle of a text run")
	}
	if pos, ok := InsertPoint(d, 4, hrType); !ok || pos != 4 {
		t.Errorf("InsertPoint(4) = %d, %v; want 4, true", pos, ok)
	}
}

func TestDropPoint(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	slice := model.NewSlice(model.FragmentFrom(hr()), 0, 0)

	if pos, ok := DropPoint(d, 3, slice); !ok || pos != 4 {
		t.Errorf("DropPoint(3) = %d, %v; want 4, true", pos, ok)
	}
	if pos, ok := DropPoint(d, 2, slice); !ok || pos != 0 {
		t.Errorf("DropPoint(2) = %d, %v; want 0, true", pos, ok)
	}
	if pos, ok := DropPoint(d, 3, model.EmptySlice); !ok || pos != 3 {
		t.Errorf("DropPoint with empty slice = %d, %v; want 3, true", pos, ok)
	}
}
