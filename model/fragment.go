package model

import (
	"fmt"
	"strings"
)

// Fragment is an ordered collection of sibling nodes. It forms the content
// of a node and is, like all model values, immutable. The total size of the
// children is precomputed so that position arithmetic stays cheap.
//
// Every construction path merges adjacent text nodes that carry the same
// mark set, so no fragment ever holds two consecutive identical-markup text
// nodes.
type Fragment struct {
	content []*Node
	size    int
}

// EmptyFragment is the shared empty fragment.
var EmptyFragment = &Fragment{content: []*Node{}, size: 0}

// newFragment wraps a node slice that is already normalized. The slice must
// not be mutated afterwards.
func newFragment(content []*Node, size int) *Fragment {
	if len(content) == 0 {
		return EmptyFragment
	}
	if size < 0 {
		size = 0
		for _, n := range content {
			size += n.NodeSize()
		}
	}
	return &Fragment{content: content, size: size}
}

// FragmentFrom builds a fragment from the given nodes, merging adjacent
// text nodes with identical mark sets.
func FragmentFrom(nodes ...*Node) *Fragment {
	if len(nodes) == 0 {
		return EmptyFragment
	}
	var content []*Node
	size := 0
	for _, node := range nodes {
		size += node.NodeSize()
		if len(content) > 0 {
			last := content[len(content)-1]
			if node.IsText() && last.IsText() && SameMarkSet(node.Marks, last.Marks) {
				content[len(content)-1] = last.WithText(last.Text + node.Text)
				continue
			}
		}
		content = append(content, node)
	}
	return newFragment(content, size)
}

// Size returns the total size of the fragment's nodes.
func (f *Fragment) Size() int { return f.size }

// ChildCount returns the number of children.
func (f *Fragment) ChildCount() int { return len(f.content) }

// Child returns the child at the given index, panicking when out of range.
func (f *Fragment) Child(index int) *Node {
	if index < 0 || index >= len(f.content) {
		panic(fmt.Sprintf("model: fragment child index %d out of range (%d children)", index, len(f.content)))
	}
	return f.content[index]
}

// MaybeChild returns the child at the given index, or nil when out of range.
func (f *Fragment) MaybeChild(index int) *Node {
	if index < 0 || index >= len(f.content) {
		return nil
	}
	return f.content[index]
}

// FirstChild returns the first child, or nil for an empty fragment.
func (f *Fragment) FirstChild() *Node { return f.MaybeChild(0) }

// LastChild returns the last child, or nil for an empty fragment.
func (f *Fragment) LastChild() *Node { return f.MaybeChild(len(f.content) - 1) }

// ForEach calls fn for every child with its start offset and index.
func (f *Fragment) ForEach(fn func(node *Node, offset, index int)) {
	offset := 0
	for i, child := range f.content {
		fn(child, offset, i)
		offset += child.NodeSize()
	}
}

// NodesBetween walks all nodes between the two positions, depth first,
// calling fn with each node, its absolute position, parent, and index.
// Returning false from fn prunes the walk below that node.
func (f *Fragment) NodesBetween(from, to int, fn func(node *Node, pos int, parent *Node, index int) bool, nodeStart int, parent *Node) {
	pos := 0
	for i := 0; pos < to; i++ {
		child := f.content[i]
		end := pos + child.NodeSize()
		if end > from && fn(child, nodeStart+pos, parent, i) && child.Content().Size() > 0 {
			start := pos + 1
			childFrom := max(0, from-start)
			childTo := min(child.Content().Size(), to-start)
			child.Content().NodesBetween(childFrom, childTo, fn, nodeStart+start, child)
		}
		pos = end
	}
}

// TextBetween concatenates all text between the two positions. blockSeparator
// is inserted between block nodes, leafText substitutes for leaf nodes.
func (f *Fragment) TextBetween(from, to int, blockSeparator, leafText string) string {
	var b strings.Builder
	separated := true
	f.NodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		switch {
		case node.IsText():
			b.WriteString(substring(node.Text, max(from, pos)-pos, to-pos))
			separated = blockSeparator == ""
		case node.IsLeaf():
			if leafText != "" {
				b.WriteString(leafText)
			}
			separated = blockSeparator == ""
		case node.IsBlock() && !separated:
			b.WriteString(blockSeparator)
			separated = true
		}
		return true
	}, 0, nil)
	return b.String()
}

// Append returns a fragment holding this fragment's children followed by
// the other's, merging text nodes at the seam.
func (f *Fragment) Append(other *Fragment) *Fragment {
	if other.size == 0 {
		return f
	}
	if f.size == 0 {
		return other
	}
	last, first := f.LastChild(), other.FirstChild()
	content := make([]*Node, len(f.content), len(f.content)+len(other.content))
	copy(content, f.content)
	i := 0
	if last.IsText() && first.IsText() && SameMarkSet(last.Marks, first.Marks) {
		content[len(content)-1] = last.WithText(last.Text + first.Text)
		i = 1
	}
	content = append(content, other.content[i:]...)
	return newFragment(content, f.size+other.size)
}

// Cut returns the sub-fragment between the two positions, cutting into
// child nodes where the positions fall inside them.
func (f *Fragment) Cut(from, to int) *Fragment {
	if from == 0 && to == f.size {
		return f
	}
	var result []*Node
	size := 0
	if to > from {
		pos := 0
		for i := 0; pos < to; i++ {
			child := f.content[i]
			end := pos + child.NodeSize()
			if end > from {
				if pos < from || end > to {
					if child.IsText() {
						child = child.cutText(max(0, from-pos), min(child.textLen, to-pos))
					} else {
						child = child.Cut(max(0, from-pos-1), min(child.Content().Size(), to-pos-1))
					}
				}
				result = append(result, child)
				size += child.NodeSize()
			}
			pos = end
		}
	}
	return newFragment(result, size)
}

// CutByIndex returns the sub-fragment spanning the given child index range.
func (f *Fragment) CutByIndex(from, to int) *Fragment {
	if from == to {
		return EmptyFragment
	}
	if from == 0 && to == len(f.content) {
		return f
	}
	return newFragment(f.content[from:to], -1)
}

// ReplaceChild returns a fragment with the child at index replaced.
func (f *Fragment) ReplaceChild(index int, node *Node) *Fragment {
	current := f.content[index]
	if current == node {
		return f
	}
	content := make([]*Node, len(f.content))
	copy(content, f.content)
	content[index] = node
	return newFragment(content, f.size+node.NodeSize()-current.NodeSize())
}

// AddToEnd returns a fragment with the node appended.
func (f *Fragment) AddToEnd(node *Node) *Fragment {
	return FragmentFrom(append(append([]*Node{}, f.content...), node)...)
}

// Eq reports whether two fragments hold equal nodes.
func (f *Fragment) Eq(other *Fragment) bool {
	if f == other {
		return true
	}
	if len(f.content) != len(other.content) {
		return false
	}
	for i := range f.content {
		if !f.content[i].Eq(other.content[i]) {
			return false
		}
	}
	return true
}

// findIndex maps a position in the fragment to the index of the child it
// points into and that child's start offset. A position exactly on the
// boundary between two children resolves to the index after it.
func (f *Fragment) findIndex(pos int) (index, offset int) {
	if pos == 0 {
		return 0, pos
	}
	if pos == f.size {
		return len(f.content), pos
	}
	if pos > f.size || pos < 0 {
		panic(fmt.Sprintf("model: position %d outside of fragment (size %d)", pos, f.size))
	}
	cur := 0
	for i := 0; ; i++ {
		end := cur + f.content[i].NodeSize()
		if end >= pos {
			if end == pos {
				return i + 1, end
			}
			return i, cur
		}
		cur = end
	}
}

// String returns a debugging representation of the fragment.
func (f *Fragment) String() string {
	var b strings.Builder
	b.WriteByte('<')
	for i, child := range f.content {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(child.String())
	}
	b.WriteByte('>')
	return b.String()
}

// toStringInner renders the children without the surrounding brackets.
func (f *Fragment) toStringInner() string {
	s := f.String()
	return s[1 : len(s)-1]
}

// substring slices a string by rune offsets, clamping out-of-range bounds.
func substring(s string, from, to int) string {
	runes := []rune(s)
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}
