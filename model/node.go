package model

import (
	"fmt"
	"unicode/utf8"
)

// Node is a single element of a document tree. A node carries a type, a set
// of attributes, zero or more marks, and either child content or (for text
// nodes) a string of text.
//
// Nodes are immutable and persistent: operations that change a document
// build new nodes along the changed path and share every untouched subtree
// with the old version. Never mutate a Node's fields after construction.
type Node struct {
	// Type is this node's type, which ties it to its schema.
	Type *NodeType

	// Attrs holds this node's attributes, complete per the type's
	// attribute descriptors.
	Attrs AttrMap

	// Marks is the ordered set of marks applied to this node.
	Marks []*Mark

	// Text holds the text of a text node; empty for all other nodes.
	Text string

	content *Fragment
	textLen int
}

// newNode builds a non-text node without content validation; callers are
// responsible for having checked the content.
func newNode(typ *NodeType, attrs AttrMap, content *Fragment, marks []*Mark) *Node {
	if content == nil {
		content = EmptyFragment
	}
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Marks: marks, content: content}
}

// newTextNode builds a text node. Text nodes must not be empty.
func newTextNode(typ *NodeType, attrs AttrMap, text string, marks []*Mark) *Node {
	if text == "" {
		panic("model: empty text node")
	}
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Marks: marks, Text: text,
		content: EmptyFragment, textLen: utf8.RuneCountInString(text)}
}

// Content returns the node's child fragment (empty for leaf and text nodes).
func (n *Node) Content() *Fragment { return n.content }

// NodeSize returns the node's size in position units: the text length for
// text nodes, 1 for other leaves, and 2 plus the content size otherwise.
func (n *Node) NodeSize() int {
	if n.IsText() {
		return n.textLen
	}
	if n.IsLeaf() {
		return 1
	}
	return 2 + n.content.size
}

// ChildCount returns the number of children the node has.
func (n *Node) ChildCount() int { return n.content.ChildCount() }

// Child returns the child at the given index, panicking when out of range.
func (n *Node) Child(index int) *Node { return n.content.Child(index) }

// MaybeChild returns the child at the given index, or nil when out of range.
func (n *Node) MaybeChild(index int) *Node { return n.content.MaybeChild(index) }

// FirstChild returns the node's first child, or nil.
func (n *Node) FirstChild() *Node { return n.content.FirstChild() }

// LastChild returns the node's last child, or nil.
func (n *Node) LastChild() *Node { return n.content.LastChild() }

// ForEach calls fn for each child with its offset and index.
func (n *Node) ForEach(fn func(node *Node, offset, index int)) { n.content.ForEach(fn) }

// NodesBetween walks all descendants between the two positions. Returning
// false from fn prunes the walk below that node.
func (n *Node) NodesBetween(from, to int, fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.content.NodesBetween(from, to, fn, 0, n)
}

// Descendants walks all descendant nodes depth first.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.NodesBetween(0, n.content.size, fn)
}

// TextContent returns the concatenated text of the node's descendants.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	return n.TextBetween(0, n.content.size, "", "")
}

// TextBetween returns the text between two positions inside the node.
func (n *Node) TextBetween(from, to int, blockSeparator, leafText string) string {
	if n.IsText() {
		return substring(n.Text, from, to)
	}
	return n.content.TextBetween(from, to, blockSeparator, leafText)
}

// IsText reports whether this is a text node.
func (n *Node) IsText() bool { return n.Type.isText() }

// IsBlock reports whether this is a block-level node.
func (n *Node) IsBlock() bool { return n.Type.IsBlock() }

// IsInline reports whether this is an inline node.
func (n *Node) IsInline() bool { return n.Type.IsInline() }

// IsTextblock reports whether this is a block node with inline content.
func (n *Node) IsTextblock() bool { return n.Type.IsTextblock() }

// InlineContent reports whether the node allows inline content.
func (n *Node) InlineContent() bool { return n.Type.InlineContent() }

// IsLeaf reports whether the node may not contain any content.
func (n *Node) IsLeaf() bool { return n.Type.IsLeaf() }

// IsAtom reports whether the node is treated as a single opaque unit.
func (n *Node) IsAtom() bool { return n.Type.IsAtom() }

// Copy returns a node with the same markup but new content. Passing the
// node's own content returns the node itself.
func (n *Node) Copy(content *Fragment) *Node {
	if content == nil {
		content = EmptyFragment
	}
	if content == n.content {
		return n
	}
	return newNode(n.Type, n.Attrs, content, n.Marks)
}

// Mark returns a copy of the node with the given mark set.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(marks, n.Marks) {
		return n
	}
	copied := *n
	copied.Marks = marks
	return &copied
}

// WithText returns a text node with the same markup and the given text.
func (n *Node) WithText(text string) *Node {
	if text == n.Text {
		return n
	}
	return newTextNode(n.Type, n.Attrs, text, n.Marks)
}

// cutText cuts a text node by rune offsets.
func (n *Node) cutText(from, to int) *Node {
	if from == 0 && to == n.textLen {
		return n
	}
	return n.WithText(substring(n.Text, from, to))
}

// Cut returns the node with only the content between the two positions.
func (n *Node) Cut(from, to int) *Node {
	if n.IsText() {
		return n.cutText(from, to)
	}
	if from == 0 && to == n.content.size {
		return n
	}
	return n.Copy(n.content.Cut(from, to))
}

// NodeAt returns the descendant node covering the given position, or nil.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset := node.content.findIndex(pos)
		node = node.MaybeChild(index)
		if node == nil {
			return nil
		}
		if offset == pos || node.IsText() {
			return node
		}
		pos -= offset + 1
	}
}

// ChildAfter returns the direct child after the given position along with
// its index and start offset. The node is nil when pos is at the end.
func (n *Node) ChildAfter(pos int) (node *Node, index, offset int) {
	index, offset = n.content.findIndex(pos)
	return n.content.MaybeChild(index), index, offset
}

// ChildBefore returns the direct child before the given position along with
// its index and start offset. The node is nil when pos is zero.
func (n *Node) ChildBefore(pos int) (node *Node, index, offset int) {
	if pos == 0 {
		return nil, 0, 0
	}
	index, offset = n.content.findIndex(pos)
	if offset < pos {
		return n.content.Child(index), index, offset
	}
	node = n.content.Child(index - 1)
	return node, index - 1, offset - node.NodeSize()
}

// Eq reports whether two nodes represent the same document subtree.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if !n.SameMarkup(other) {
		return false
	}
	if n.IsText() {
		return n.Text == other.Text
	}
	return n.content.Eq(other.content)
}

// SameMarkup reports whether the two nodes have the same type, attributes
// and marks.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// HasMarkup reports whether the node has the given type, attributes and
// marks.
func (n *Node) HasMarkup(typ *NodeType, attrs AttrMap, marks []*Mark) bool {
	return n.Type == typ && attrsEqual(n.Attrs, attrs) && SameMarkSet(n.Marks, marks)
}

// ContentMatchAt returns the content match state of the node's type after
// the children up to the given index.
func (n *Node) ContentMatchAt(index int) *ContentMatch {
	match := n.Type.ContentMatch.MatchFragment(n.content, 0, index)
	if match == nil {
		panic("model: called ContentMatchAt on a node with invalid content")
	}
	return match
}

// CanReplace reports whether replacing the children between the two indices
// with the given replacement range leaves the node schema-valid.
func (n *Node) CanReplace(from, to int, replacement *Fragment, start, end int) bool {
	if replacement == nil {
		replacement = EmptyFragment
	}
	if end < 0 {
		end = replacement.ChildCount()
	}
	one := n.ContentMatchAt(from).MatchFragment(replacement, start, end)
	if one == nil {
		return false
	}
	two := one.MatchFragment(n.content, to, n.ChildCount())
	if two == nil || !two.ValidEnd {
		return false
	}
	for i := start; i < end; i++ {
		if !n.Type.AllowsMarks(replacement.Child(i).Marks) {
			return false
		}
	}
	return true
}

// CanReplaceWith reports whether replacing the children between the two
// indices with a single node of the given type is schema-valid.
func (n *Node) CanReplaceWith(from, to int, typ *NodeType, marks []*Mark) bool {
	if marks != nil && !n.Type.AllowsMarks(marks) {
		return false
	}
	start := n.ContentMatchAt(from).MatchType(typ)
	if start == nil {
		return false
	}
	end := start.MatchFragment(n.content, to, n.ChildCount())
	return end != nil && end.ValidEnd
}

// CanAppend reports whether the other node's content can follow this
// node's content under this node's type.
func (n *Node) CanAppend(other *Node) bool {
	if other.ChildCount() > 0 {
		return n.CanReplace(n.ChildCount(), n.ChildCount(), other.content, 0, -1)
	}
	return n.Type.CompatibleContent(other.Type)
}

// Check verifies the node and all its descendants against the schema,
// returning a ContentError or attribute error when something is wrong.
// Documents built through the public API never fail this check.
func (n *Node) Check() error {
	if !n.Type.ValidContent(n.content) {
		return &ContentError{Type: n.Type.Name, Content: n.content.toStringInner()}
	}
	copied := NoMarks
	for _, m := range n.Marks {
		copied = m.AddToSet(copied)
	}
	if !SameMarkSet(copied, n.Marks) {
		return fmt.Errorf("%w: invalid mark set for node %s", ErrInvalidAttrs, n.Type.Name)
	}
	if err := n.Type.checkAttrs(n.Attrs); err != nil {
		return err
	}
	for _, child := range n.content.content {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Resolve resolves an integer position inside the node into full context.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	return resolvePosCached(n, pos)
}

// String returns a debugging representation of the node.
func (n *Node) String() string {
	var inner string
	switch {
	case n.IsText():
		inner = fmt.Sprintf("%q", n.Text)
	case n.content.size > 0:
		inner = n.Type.Name + "(" + n.content.toStringInner() + ")"
	default:
		inner = n.Type.Name
	}
	return wrapMarks(n.Marks, inner)
}

func wrapMarks(marks []*Mark, inner string) string {
	out := inner
	for i := len(marks) - 1; i >= 0; i-- {
		out = marks[i].Type.Name + "(" + out + ")"
	}
	return out
}
