package model

import "fmt"

// Slice is a piece of document: a fragment whose outermost nodes may be
// "open" on either side, meaning they lack their own start or end boundary
// and expect to be merged with surrounding content when inserted.
type Slice struct {
	// Content is the slice's fragment.
	Content *Fragment

	// OpenStart is the number of open levels at the start of the
	// fragment.
	OpenStart int

	// OpenEnd is the number of open levels at the end of the fragment.
	OpenEnd int
}

// EmptySlice is the shared empty slice.
var EmptySlice = &Slice{Content: EmptyFragment}

// NewSlice builds a slice. The open depths must not exceed the depth of
// the content present on the corresponding side.
func NewSlice(content *Fragment, openStart, openEnd int) *Slice {
	return &Slice{Content: content, OpenStart: openStart, OpenEnd: openEnd}
}

// Size returns the size the slice adds when inserted into a document.
func (s *Slice) Size() int {
	return s.Content.Size() - s.OpenStart - s.OpenEnd
}

// Eq reports whether two slices are identical.
func (s *Slice) Eq(other *Slice) bool {
	return s.Content.Eq(other.Content) && s.OpenStart == other.OpenStart && s.OpenEnd == other.OpenEnd
}

// String returns a debugging representation of the slice.
func (s *Slice) String() string {
	return fmt.Sprintf("%v(%d,%d)", s.Content, s.OpenStart, s.OpenEnd)
}

// InsertAt returns a slice with the fragment inserted at the given
// position in the slice's content, or nil when the insertion would not
// produce valid content.
func (s *Slice) InsertAt(pos int, fragment *Fragment) *Slice {
	content := insertInto(s.Content, pos+s.OpenStart, fragment, nil)
	if content == nil {
		return nil
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd)
}

// RemoveBetween returns a slice with the content between the two
// positions removed. The range must not cut through a non-text node.
func (s *Slice) RemoveBetween(from, to int) (*Slice, error) {
	content, err := removeRange(s.Content, from+s.OpenStart, to+s.OpenStart)
	if err != nil {
		return nil, err
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd), nil
}

func removeRange(content *Fragment, from, to int) (*Fragment, error) {
	index, offset := content.findIndex(from)
	child := content.MaybeChild(index)
	indexTo, offsetTo := content.findIndex(to)
	if offset == from || child.IsText() {
		if offsetTo != to && !content.Child(indexTo).IsText() {
			return nil, replaceError("removing non-flat range")
		}
		return content.Cut(0, from).Append(content.Cut(to, content.Size())), nil
	}
	if index != indexTo {
		return nil, replaceError("removing non-flat range")
	}
	inner, err := removeRange(child.Content(), from-offset-1, to-offset-1)
	if err != nil {
		return nil, err
	}
	return content.ReplaceChild(index, child.Copy(inner)), nil
}

func insertInto(content *Fragment, dist int, insert *Fragment, parent *Node) *Fragment {
	index, offset := content.findIndex(dist)
	child := content.MaybeChild(index)
	if offset == dist || (child != nil && child.IsText()) {
		if parent != nil && !parent.CanReplace(index, index, insert, 0, -1) {
			return nil
		}
		return content.Cut(0, dist).Append(insert).Append(content.Cut(dist, content.Size()))
	}
	inner := insertInto(child.Content(), dist-offset-1, insert, child)
	if inner == nil {
		return nil
	}
	return content.ReplaceChild(index, child.Copy(inner))
}

// Slice extracts the part of the document between the two positions as a
// slice. When includeParents is set the slice is taken from the document
// root rather than the deepest shared ancestor.
func (n *Node) Slice(from, to int, includeParents bool) (*Slice, error) {
	if from == to {
		return EmptySlice, nil
	}
	pFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	pTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := 0
	if !includeParents {
		depth = pFrom.SharedDepth(to)
	}
	start := pFrom.Start(depth)
	node := pFrom.Node(depth)
	content := node.Content().Cut(pFrom.Pos-start, pTo.Pos-start)
	return NewSlice(content, pFrom.Depth()-depth, pTo.Depth()-depth), nil
}
