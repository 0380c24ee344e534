package model

import (
	"errors"
	"testing"
)

func compile(t *testing.T, expr string) *ContentMatch {
	t.Helper()
	match, err := parseContentMatch(expr, basic.Nodes)
	if err != nil {
		t.Fatalf("parseContentMatch(%q): %v", expr, err)
	}
	return match
}

func accepts(match *ContentMatch, nodes ...*Node) bool {
	end := match.MatchFragment(FragmentFrom(nodes...), 0, -1)
	return end != nil && end.ValidEnd
}

func TestMatchFragment(t *testing.T) {
	tests := []struct {
		expr  string
		nodes []*Node
		want  bool
	}{
		{"paragraph", []*Node{p()}, true},
		{"paragraph", []*Node{hr()}, false},
		{"paragraph", nil, false},
		{"block+", []*Node{p(), bq(p())}, true},
		{"block+", nil, false},
		{"paragraph horizontal_rule?", []*Node{p()}, true},
		{"paragraph horizontal_rule?", []*Node{p(), hr()}, true},
		{"paragraph horizontal_rule?", []*Node{hr()}, false},
		{"paragraph horizontal_rule?", []*Node{p(), hr(), hr()}, false},
		{"(paragraph | horizontal_rule)+", []*Node{hr(), p()}, true},
		{"paragraph{2}", []*Node{p(), p()}, true},
		{"paragraph{2}", []*Node{p()}, false},
		{"paragraph{2}", []*Node{p(), p(), p()}, false},
		{"paragraph{1,2}", []*Node{p()}, true},
		{"paragraph{1,2}", []*Node{p(), p()}, true},
		{"paragraph{1,2}", []*Node{p(), p(), p()}, false},
		{"paragraph+ horizontal_rule", []*Node{p(), p(), hr()}, true},
		{"inline*", []*Node{txt("hi"), img("x.png")}, true},
		{"inline*", nil, true},
	}
	for _, tt := range tests {
		if got := accepts(compile(t, tt.expr), tt.nodes...); got != tt.want {
			t.Errorf("%q accepts %v = %v, want %v", tt.expr, tt.nodes, got, tt.want)
		}
	}
}

func TestParseContentMatchErrors(t *testing.T) {
	exprs := []string{
		")",
		"paragraph)",
		"(paragraph",
		"paragraph{",
		"paragraph{a}",
		"no_such_type",
		"paragraph |",
		"text", // required position only text can fill
	}
	for _, expr := range exprs {
		_, err := parseContentMatch(expr, basic.Nodes)
		if err == nil {
			t.Errorf("parseContentMatch(%q) succeeded, want error", expr)
		} else if !errors.Is(err, ErrInvalidExpr) {
			t.Errorf("parseContentMatch(%q) error %v does not wrap ErrInvalidExpr", expr, err)
		}
	}
}

func TestEmptyExpression(t *testing.T) {
	match := compile(t, "")
	if match != EmptyContentMatch {
		t.Errorf("empty expression should compile to the shared empty match")
	}
	if !match.ValidEnd || match.EdgeCount() != 0 {
		t.Errorf("empty match should accept immediately with no edges")
	}
}

func TestFillBefore(t *testing.T) {
	t.Run("optional tail needs nothing", func(t *testing.T) {
		after := compile(t, "paragraph heading?").MatchType(basic.Nodes["paragraph"])
		if after == nil {
			t.Fatal("paragraph did not match")
		}
		fill, ok := after.FillBefore(EmptyFragment, true, 0)
		if !ok || fill.ChildCount() != 0 {
			t.Errorf("FillBefore = %v, %v; want empty fragment", fill, ok)
		}
	})

	t.Run("required tail is synthesized", func(t *testing.T) {
		after := compile(t, "paragraph heading").MatchType(basic.Nodes["paragraph"])
		if after == nil {
			t.Fatal("paragraph did not match")
		}
		fill, ok := after.FillBefore(EmptyFragment, true, 0)
		if !ok || fill.ChildCount() != 1 {
			t.Fatalf("FillBefore = %v, %v; want one node", fill, ok)
		}
		node := fill.Child(0)
		if node.Type.Name != "heading" {
			t.Errorf("filled node is a %s, want heading", node.Type.Name)
		}
		if node.Attrs["level"] != float64(1) {
			t.Errorf("filled heading has attrs %v, want default level", node.Attrs)
		}
	})

	t.Run("required run from the start", func(t *testing.T) {
		fill, ok := compile(t, "paragraph+").FillBefore(EmptyFragment, true, 0)
		if !ok || fill.ChildCount() != 1 || fill.Child(0).Type.Name != "paragraph" {
			t.Errorf("FillBefore = %v, %v; want a single paragraph", fill, ok)
		}
	})

	t.Run("unreachable tail", func(t *testing.T) {
		_, ok := compile(t, "paragraph").FillBefore(FragmentFrom(hr()), true, 0)
		if ok {
			t.Errorf("FillBefore found a fill for content the expression can never accept")
		}
	})

	t.Run("fill before given content", func(t *testing.T) {
		fill, ok := compile(t, "paragraph horizontal_rule").FillBefore(FragmentFrom(hr()), true, 0)
		if !ok || fill.ChildCount() != 1 || fill.Child(0).Type.Name != "paragraph" {
			t.Errorf("FillBefore = %v, %v; want a paragraph before the rule", fill, ok)
		}
	})
}

func TestFindWrapping(t *testing.T) {
	docMatch := basic.Nodes["doc"].ContentMatch

	wrap, ok := docMatch.FindWrapping(basic.Nodes["text"])
	if !ok || len(wrap) != 1 || wrap[0].Name != "paragraph" {
		t.Errorf("wrapping for text in doc = %v, %v; want [paragraph]", wrap, ok)
	}

	direct, ok := basic.Nodes["blockquote"].ContentMatch.FindWrapping(basic.Nodes["paragraph"])
	if !ok || len(direct) != 0 {
		t.Errorf("paragraph fits blockquote directly, got %v, %v", direct, ok)
	}

	if _, ok := basic.Nodes["paragraph"].ContentMatch.FindWrapping(basic.Nodes["horizontal_rule"]); ok {
		t.Errorf("found a wrapping for a block inside inline content")
	}

	// memoized lookups return the same answer
	again, ok := docMatch.FindWrapping(basic.Nodes["text"])
	if !ok || len(again) != 1 || again[0] != wrap[0] {
		t.Errorf("memoized wrapping differs: %v", again)
	}
}

func TestContentMatchCompatible(t *testing.T) {
	para := basic.Nodes["paragraph"].ContentMatch
	if !para.Compatible(basic.Nodes["heading"].ContentMatch) {
		t.Errorf("paragraph and heading content should be compatible")
	}
	if !para.Compatible(basic.Nodes["code_block"].ContentMatch) {
		t.Errorf("paragraph and code_block both admit text")
	}
	if para.Compatible(basic.Nodes["doc"].ContentMatch) {
		t.Errorf("inline and block content reported compatible")
	}
}

func TestDefaultType(t *testing.T) {
	if got := compile(t, "heading | paragraph").DefaultType(); got == nil || got.Name != "heading" {
		t.Errorf("DefaultType = %v, want heading", got)
	}
	if got := compile(t, "image | paragraph").DefaultType(); got == nil || got.Name != "paragraph" {
		t.Errorf("DefaultType should skip types with required attrs, got %v", got)
	}
}

func FuzzContentExpr(f *testing.F) {
	for _, seed := range []string{
		"paragraph+", "(paragraph | heading)*", "block{1,3}", "inline*",
		"paragraph horizontal_rule?", "paragraph{2} block", "text*",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, expr string) {
		// parsing may fail, but must never panic
		match, err := parseContentMatch(expr, basic.Nodes)
		if err == nil && match == nil {
			t.Errorf("nil match without error for %q", expr)
		}
	})
}
