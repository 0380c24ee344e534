package transform

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dshills/treedoc/model"
)

// Shared schema and document builders for the package tests.

func strOf(s string) *string { return &s }
func boolOf(b bool) *bool    { return &b }

var basic = model.MustSchema(&model.SchemaSpec{
	Nodes: []*model.NodeSpec{
		{Name: "doc", Content: "block+",
			Attrs: map[string]*model.AttrSpec{"lang": {Default: "en", HasDefault: true}}},
		{Name: "paragraph", Content: "inline*", Group: "block"},
		{Name: "heading", Content: "inline*", Group: "block",
			Attrs: map[string]*model.AttrSpec{"level": {Default: float64(1), HasDefault: true}}},
		{Name: "blockquote", Content: "block+", Group: "block"},
		{Name: "horizontal_rule", Group: "block"},
		{Name: "code_block", Content: "text*", Group: "block", Marks: strOf("")},
		{Name: "text", Group: "inline"},
		{Name: "image", Group: "inline", Inline: true,
			Attrs: map[string]*model.AttrSpec{"src": {}}},
	},
	Marks: []*model.MarkSpec{
		{Name: "link", Attrs: map[string]*model.AttrSpec{"href": {}}, Inclusive: boolOf(false)},
		{Name: "em"},
		{Name: "strong"},
	},
})

func block(typeName string, children ...*model.Node) *model.Node {
	node, err := basic.Node(typeName, nil, model.FragmentFrom(children...))
	if err != nil {
		panic(err)
	}
	return node
}

func doc(children ...*model.Node) *model.Node { return block("doc", children...) }
func p(children ...*model.Node) *model.Node   { return block("paragraph", children...) }
func h(children ...*model.Node) *model.Node   { return block("heading", children...) }
func bq(children ...*model.Node) *model.Node  { return block("blockquote", children...) }
func hr() *model.Node                         { return block("horizontal_rule") }

func txt(text string, marks ...*model.Mark) *model.Node { return basic.Text(text, marks...) }

func img(src string, marks ...*model.Mark) *model.Node {
	node, err := basic.Nodes["image"].Create(model.AttrMap{"src": src}, nil, marks)
	if err != nil {
		panic(err)
	}
	return node
}

// emptyBQ builds a blockquote with no children, bypassing the content
// check. Wrapping steps carry such nodes and fill them on apply.
func emptyBQ() *model.Node {
	node, err := basic.Nodes["blockquote"].Create(nil, nil, nil)
	if err != nil {
		panic(err)
	}
	return node
}

func em() *model.Mark              { return basic.Mark("em", nil) }
func strong() *model.Mark          { return basic.Mark("strong", nil) }
func link(href string) *model.Mark { return basic.Mark("link", model.AttrMap{"href": href}) }

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func checkDoc(t *testing.T, tr *Transform, want *model.Node) {
	t.Helper()
	if !tr.Doc.Eq(want) {
		t.Fatalf("got %v, want %v", tr.Doc, want)
	}
}

func TestTransformDelete(t *testing.T) {
	d := doc(p(txt("ab")), p(txt("cd")))
	tr := NewTransform(d)
	if err := tr.Delete(3, 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("abcd"))))
	if !tr.DocChanged() {
		t.Error("DocChanged() = false after a step")
	}
	if !tr.Before().Eq(d) {
		t.Errorf("Before() = %v, want the original document", tr.Before())
	}
}

func TestTransformInsert(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab")), p(txt("cd"))))
	if err := tr.Insert(2, model.FragmentFrom(txt("X"))); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("aXb")), p(txt("cd"))))
	if got := tr.Mapping.Map(2, -1); got != 2 {
		t.Errorf("Map(2, -1) = %d, want 2", got)
	}
	if got := tr.Mapping.Map(2, 1); got != 3 {
		t.Errorf("Map(2, 1) = %d, want 3", got)
	}
}

func TestTransformInsertText(t *testing.T) {
	t.Run("inherits inclusive marks", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("ab", em()), txt("cd"))))
		if err := tr.InsertText(2, 4, "X"); err != nil {
			t.Fatalf("InsertText: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("aX", em()), txt("d"))))
	})
	t.Run("drops non-inclusive marks at the boundary", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("ab", link("x")), txt("cd"))))
		if err := tr.InsertText(2, 4, "X"); err != nil {
			t.Fatalf("InsertText: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("a", link("x")), txt("Xd"))))
	})
	t.Run("at the end of a textblock", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("ab", em()))))
		if err := tr.InsertText(3, 3, "Y"); err != nil {
			t.Fatalf("InsertText: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("abY", em()))))
	})
	t.Run("empty string deletes the range", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("abcd"))))
		if err := tr.InsertText(2, 4, ""); err != nil {
			t.Fatalf("InsertText: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("ad"))))
	})
}

func TestTransformReplaceEmptyIsNoop(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab"))))
	if err := tr.Replace(1, 1, model.EmptySlice); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if tr.DocChanged() {
		t.Error("empty replace recorded a step")
	}
}

func TestTransformStepFailure(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab"))))
	err := tr.Step(NewReplaceStep(0, 4, model.NewSlice(model.FragmentFrom(txt("X")), 0, 0), false))
	if !errors.Is(err, ErrTransformFailed) {
		t.Fatalf("got %v, want ErrTransformFailed", err)
	}
	if tr.DocChanged() {
		t.Error("failed step was recorded")
	}
}

func TestTransformAddMark(t *testing.T) {
	tr := NewTransform(doc(p(txt("abcd"))))
	if err := tr.AddMark(2, 4, em()); err != nil {
		t.Fatalf("AddMark: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("a"), txt("bc", em()), txt("d"))))
}

func TestTransformAddMarkDisplaces(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab", link("x")))))
	if err := tr.AddMark(1, 3, link("y")); err != nil {
		t.Fatalf("AddMark: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("ab", link("y")))))
	if len(tr.Steps) != 2 {
		t.Errorf("len(Steps) = %d, want a remove and an add", len(tr.Steps))
	}
}

func TestTransformRemoveMark(t *testing.T) {
	t.Run("all marks", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("ab", em()), txt("cd", strong()))))
		if err := tr.RemoveMark(1, 5, nil, nil); err != nil {
			t.Fatalf("RemoveMark: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("abcd"))))
	})

	t.Run("by type", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("ab", em(), link("x")), txt("cd", em()))))
		if err := tr.RemoveMark(1, 5, nil, basic.Marks["link"]); err != nil {
			t.Fatalf("RemoveMark: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("ab", em()), txt("cd", em()))))
	})

	t.Run("specific mark", func(t *testing.T) {
		tr := NewTransform(doc(p(txt("ab", em()))))
		if err := tr.RemoveMark(1, 3, em(), nil); err != nil {
			t.Fatalf("RemoveMark: %v", err)
		}
		checkDoc(t, tr, doc(p(txt("ab"))))
	})
}

func TestTransformSetNodeMarkup(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab"))))
	if err := tr.SetNodeMarkup(0, basic.Nodes["heading"], nil, nil); err != nil {
		t.Fatalf("SetNodeMarkup: %v", err)
	}
	checkDoc(t, tr, doc(h(txt("ab"))))
}

func TestTransformSetNodeAttribute(t *testing.T) {
	tr := NewTransform(doc(h(txt("ab"))))
	if err := tr.SetNodeAttribute(0, "level", float64(3)); err != nil {
		t.Fatalf("SetNodeAttribute: %v", err)
	}
	if got := tr.Doc.Child(0).Attrs["level"]; got != float64(3) {
		t.Errorf("level = %v, want 3", got)
	}
	if !tr.Doc.Child(0).Content().Eq(model.FragmentFrom(txt("ab"))) {
		t.Errorf("content changed: %v", tr.Doc.Child(0))
	}
}

func TestTransformSetDocAttribute(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab"))))
	if err := tr.SetDocAttribute("lang", "fr"); err != nil {
		t.Fatalf("SetDocAttribute: %v", err)
	}
	if got := tr.Doc.Attrs["lang"]; got != "fr" {
		t.Errorf("lang = %v, want fr", got)
	}
}

func TestTransformNodeMarks(t *testing.T) {
	tr := NewTransform(doc(p(img("x.png"))))
	if err := tr.AddNodeMark(1, em()); err != nil {
		t.Fatalf("AddNodeMark: %v", err)
	}
	checkDoc(t, tr, doc(p(img("x.png", em()))))

	if err := tr.RemoveNodeMark(1, nil, basic.Marks["em"]); err != nil {
		t.Fatalf("RemoveNodeMark: %v", err)
	}
	checkDoc(t, tr, doc(p(img("x.png"))))
}

func TestTransformClearIncompatible(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab", em()), img("x.png"))))
	if err := tr.ClearIncompatible(0, basic.Nodes["code_block"]); err != nil {
		t.Fatalf("ClearIncompatible: %v", err)
	}
	checkDoc(t, tr, doc(p(txt("ab"))))
}

// Applying the inverse of every recorded step, newest first, restores the
// starting document.
func TestTransformInvertRoundTrip(t *testing.T) {
	tr := NewTransform(doc(p(txt("ab")), p(txt("cd"))))
	if err := tr.Delete(3, 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := tr.AddMark(1, 3, em()); err != nil {
		t.Fatalf("AddMark: %v", err)
	}
	if err := tr.Insert(3, model.FragmentFrom(txt("X"))); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	cur := tr.Doc
	for i := len(tr.Steps) - 1; i >= 0; i-- {
		inv, err := tr.Steps[i].Invert(tr.Docs[i])
		if err != nil {
			t.Fatalf("Invert step %d: %v", i, err)
		}
		result := inv.Apply(cur)
		if result.Failed != "" {
			t.Fatalf("applying inverse of step %d: %s", i, result.Failed)
		}
		cur = result.Doc
	}
	if !cur.Eq(tr.Before()) {
		t.Fatalf("undo ended at %v, want %v", cur, tr.Before())
	}
}
