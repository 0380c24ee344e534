package model

import (
	"fmt"
	"sync"
)

// ResolvedPos is an integer document position resolved into tree context:
// the chain of ancestor nodes, the child index at each depth, and the
// offset at which each ancestor starts. Resolved positions are derived
// views, valid only for the exact document value they were resolved
// against; after an edit, map the raw position forward and re-resolve.
type ResolvedPos struct {
	// Pos is the position this was resolved from.
	Pos int

	// ParentOffset is the offset of the position within its parent node.
	ParentOffset int

	path []pathEntry
}

type pathEntry struct {
	node   *Node
	index  int
	before int // absolute position before the node's content
}

// resolvePos resolves a position inside a document without consulting the
// cache.
func resolvePos(doc *Node, pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > doc.Content().Size() {
		return nil, fmt.Errorf("%w: position %d outside of document (size %d)", ErrPositionOutOfRange, pos, doc.Content().Size())
	}
	var path []pathEntry
	start, parentOffset := 0, pos
	node := doc
	for {
		index, offset := node.Content().findIndex(parentOffset)
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, before: start + offset})
		if rem == 0 {
			break
		}
		node = node.Child(index)
		if node.IsText() {
			break
		}
		parentOffset = rem - 1
		start += offset + 1
	}
	return &ResolvedPos{Pos: pos, ParentOffset: parentOffset, path: path}, nil
}

// resolveCache is a small bounded cache of recently resolved positions.
// Entries are tied to specific document values; resolving against a new
// document version never reuses an old entry.
var resolveCache = struct {
	sync.Mutex
	entries [12]struct {
		doc *Node
		res *ResolvedPos
	}
	next int
}{}

func resolvePosCached(doc *Node, pos int) (*ResolvedPos, error) {
	resolveCache.Lock()
	for _, e := range resolveCache.entries {
		if e.doc == doc && e.res.Pos == pos {
			resolveCache.Unlock()
			return e.res, nil
		}
	}
	resolveCache.Unlock()
	res, err := resolvePos(doc, pos)
	if err != nil {
		return nil, err
	}
	resolveCache.Lock()
	resolveCache.entries[resolveCache.next] = struct {
		doc *Node
		res *ResolvedPos
	}{doc: doc, res: res}
	resolveCache.next = (resolveCache.next + 1) % len(resolveCache.entries)
	resolveCache.Unlock()
	return res, nil
}

// Depth returns the number of ancestor levels above the position's parent.
// Depth 0 is the document itself.
func (p *ResolvedPos) Depth() int { return len(p.path) - 1 }

// Doc returns the root document the position points into.
func (p *ResolvedPos) Doc() *Node { return p.path[0].node }

// Parent returns the node the position points into directly.
func (p *ResolvedPos) Parent() *Node { return p.Node(p.Depth()) }

// Node returns the ancestor node at the given depth.
func (p *ResolvedPos) Node(depth int) *Node { return p.path[p.checkDepth(depth)].node }

// Index returns the child index the position points at inside the
// ancestor at the given depth.
func (p *ResolvedPos) Index(depth int) int { return p.path[p.checkDepth(depth)].index }

// IndexAfter returns the index after the position at the given depth.
func (p *ResolvedPos) IndexAfter(depth int) int {
	depth = p.checkDepth(depth)
	index := p.path[depth].index
	if depth == p.Depth() && p.TextOffset() == 0 {
		return index
	}
	return index + 1
}

// Start returns the absolute position where the content of the ancestor
// at the given depth starts.
func (p *ResolvedPos) Start(depth int) int {
	depth = p.checkDepth(depth)
	if depth == 0 {
		return 0
	}
	return p.path[depth-1].before + 1
}

// End returns the absolute position where the content of the ancestor at
// the given depth ends.
func (p *ResolvedPos) End(depth int) int {
	depth = p.checkDepth(depth)
	return p.Start(depth) + p.Node(depth).Content().Size()
}

// Before returns the position directly before the ancestor at the given
// depth. Panics at depth 0, which has no position before it.
func (p *ResolvedPos) Before(depth int) int {
	depth = p.checkDepth(depth)
	if depth == 0 {
		panic("model: there is no position before the top-level node")
	}
	return p.path[depth-1].before
}

// After returns the position directly after the ancestor at the given
// depth. Panics at depth 0.
func (p *ResolvedPos) After(depth int) int {
	depth = p.checkDepth(depth)
	if depth == 0 {
		panic("model: there is no position after the top-level node")
	}
	return p.path[depth-1].before + p.Node(depth).NodeSize()
}

func (p *ResolvedPos) checkDepth(depth int) int {
	if depth < 0 {
		depth = p.Depth() + depth
	}
	if depth < 0 || depth > p.Depth() {
		panic(fmt.Sprintf("model: depth %d out of range (max %d)", depth, p.Depth()))
	}
	return depth
}

// TextOffset returns the offset of the position into the text node it
// points into, or 0 when it does not point into text.
func (p *ResolvedPos) TextOffset() int {
	return p.Pos - p.path[len(p.path)-1].before
}

// NodeAfter returns the node directly after the position, splitting a
// text node virtually when the position points inside one. Nil at the end
// of the parent.
func (p *ResolvedPos) NodeAfter() *Node {
	parent := p.Parent()
	index := p.Index(p.Depth())
	if index == parent.ChildCount() {
		return nil
	}
	dOff := p.Pos - p.path[len(p.path)-1].before
	child := parent.Child(index)
	if dOff > 0 {
		return child.cutText(dOff, child.textLen)
	}
	return child
}

// NodeBefore returns the node directly before the position, splitting a
// text node virtually when the position points inside one. Nil at the
// start of the parent.
func (p *ResolvedPos) NodeBefore() *Node {
	index := p.Index(p.Depth())
	dOff := p.Pos - p.path[len(p.path)-1].before
	if dOff > 0 {
		return p.Parent().Child(index).cutText(0, dOff)
	}
	if index == 0 {
		return nil
	}
	return p.Parent().Child(index - 1)
}

// Marks returns the marks active at this position: the marks of the text
// around it, honoring each mark type's inclusive flag at boundaries.
func (p *ResolvedPos) Marks() []*Mark {
	parent := p.Parent()
	index := p.Index(p.Depth())
	if parent.Content().Size() == 0 {
		return NoMarks
	}
	if p.TextOffset() > 0 {
		return parent.Child(index).Marks
	}
	main := parent.MaybeChild(index - 1)
	other := parent.MaybeChild(index)
	if main == nil {
		main, other = other, main
	}
	marks := main.Marks
	for _, m := range main.Marks {
		if !m.Type.Inclusive() && (other == nil || !m.IsInSet(other.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// MarksAcross returns the marks that should be preserved when replacing
// the range between this position and end, or nil when the range does not
// border inline content.
func (p *ResolvedPos) MarksAcross(end *ResolvedPos) []*Mark {
	after := p.Parent().MaybeChild(p.Index(p.Depth()))
	if after == nil || !after.IsInline() {
		return nil
	}
	marks := after.Marks
	next := end.Parent().MaybeChild(end.Index(end.Depth()))
	for _, m := range after.Marks {
		if !m.Type.Inclusive() && (next == nil || !m.IsInSet(next.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// SharedDepth returns the deepest depth at which this position and the
// given raw position share an ancestor.
func (p *ResolvedPos) SharedDepth(pos int) int {
	for depth := p.Depth(); depth > 0; depth-- {
		if p.Start(depth) <= pos && p.End(depth) >= pos {
			return depth
		}
	}
	return 0
}

// SameParent reports whether the two positions point into the same
// parent node.
func (p *ResolvedPos) SameParent(other *ResolvedPos) bool {
	return p.Pos-p.ParentOffset == other.Pos-other.ParentOffset
}

// Max returns the position with the greater offset.
func (p *ResolvedPos) Max(other *ResolvedPos) *ResolvedPos {
	if other.Pos > p.Pos {
		return other
	}
	return p
}

// Min returns the position with the smaller offset.
func (p *ResolvedPos) Min(other *ResolvedPos) *ResolvedPos {
	if other.Pos < p.Pos {
		return other
	}
	return p
}

// BlockRange returns the shallowest node range enclosing both positions,
// optionally restricted to ancestors accepted by pred. Nil when no such
// range exists.
func (p *ResolvedPos) BlockRange(other *ResolvedPos, pred func(*Node) bool) *NodeRange {
	if other == nil {
		other = p
	}
	if other.Pos < p.Pos {
		return other.BlockRange(p, pred)
	}
	start := p.Depth()
	if p.Parent().InlineContent() || p.Pos == other.Pos {
		start--
	}
	for d := start; d >= 0; d-- {
		if other.Pos <= p.End(d) && (pred == nil || pred(p.Node(d))) {
			return &NodeRange{From: p, To: other, Depth: d}
		}
	}
	return nil
}

// String returns a debugging representation of the resolved position.
func (p *ResolvedPos) String() string {
	str := ""
	for i := 1; i <= p.Depth(); i++ {
		if str != "" {
			str += "/"
		}
		str += fmt.Sprintf("%s_%d", p.Node(i).Type.Name, p.Index(i-1))
	}
	return fmt.Sprintf("%s:%d", str, p.ParentOffset)
}

// NodeRange is a flat range of children inside one parent node, described
// by two resolved positions and the depth of their shared ancestor.
type NodeRange struct {
	From, To *ResolvedPos
	Depth    int
}

// Start returns the position at the start of the range.
func (r *NodeRange) Start() int { return r.From.Before(r.Depth + 1) }

// End returns the position at the end of the range.
func (r *NodeRange) End() int { return r.To.After(r.Depth + 1) }

// Parent returns the parent node the range points into.
func (r *NodeRange) Parent() *Node { return r.From.Node(r.Depth) }

// StartIndex returns the child index at which the range starts.
func (r *NodeRange) StartIndex() int { return r.From.Index(r.Depth) }

// EndIndex returns the child index at which the range ends.
func (r *NodeRange) EndIndex() int { return r.To.IndexAfter(r.Depth) }
