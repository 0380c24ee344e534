package transform

import (
	"fmt"

	"github.com/dshills/treedoc/model"
)

// canCut reports whether the node can be cut open between the given child
// indices without violating its content expression.
func canCut(node *model.Node, start, end int) bool {
	if start != 0 && !node.CanReplace(start, node.ChildCount(), nil, 0, -1) {
		return false
	}
	if end != node.ChildCount() && !node.CanReplace(0, end, nil, 0, -1) {
		return false
	}
	return true
}

// LiftTarget finds the shallowest ancestor depth to which the range's
// content can be lifted, or false when lifting is impossible.
func LiftTarget(rng *model.NodeRange) (int, bool) {
	parent := rng.Parent()
	content := parent.Content().CutByIndex(rng.StartIndex(), rng.EndIndex())
	for depth := rng.Depth; ; depth-- {
		node := rng.From.Node(depth)
		index := rng.From.Index(depth)
		endIndex := rng.To.IndexAfter(depth)
		if depth < rng.Depth && node.CanReplace(index, endIndex, content, 0, -1) {
			return depth, true
		}
		if depth == 0 || node.Type.Spec.Isolating || !canCut(node, index, endIndex) {
			return 0, false
		}
	}
}

// Lift moves the range's content to the given ancestor depth, removing
// the wrappers in between. Expressed as a single replace-around step.
func Lift(tr *Transform, rng *model.NodeRange, target int) error {
	from, to, depth := rng.From, rng.To, rng.Depth
	gapStart := from.Before(depth + 1)
	gapEnd := to.After(depth + 1)
	start, end := gapStart, gapEnd

	before := model.EmptyFragment
	openStart := 0
	splitting := false
	for d := depth; d > target; d-- {
		if splitting || from.Index(d) > 0 {
			splitting = true
			before = model.FragmentFrom(from.Node(d).Copy(before))
			openStart++
		} else {
			start--
		}
	}
	after := model.EmptyFragment
	openEnd := 0
	splitting = false
	for d := depth; d > target; d-- {
		if splitting || to.After(d+1) < to.End(d) {
			splitting = true
			after = model.FragmentFrom(to.Node(d).Copy(after))
			openEnd++
		} else {
			end++
		}
	}
	return tr.Step(NewReplaceAroundStep(start, end, gapStart, gapEnd,
		model.NewSlice(before.Append(after), openStart, openEnd),
		before.Size()-openStart, true))
}

// Wrapper is one level of wrapping produced by FindWrapping.
type Wrapper struct {
	Type  *model.NodeType
	Attrs model.AttrMap
}

// FindWrapping finds a chain of wrapper types that the range's content
// can be wrapped in to produce a node of the given type, or false when no
// valid wrapping exists.
func FindWrapping(rng *model.NodeRange, nodeType *model.NodeType, attrs model.AttrMap) ([]Wrapper, bool) {
	around, ok := findWrappingOutside(rng, nodeType)
	if !ok {
		return nil, false
	}
	inner, ok := findWrappingInside(rng, nodeType)
	if !ok {
		return nil, false
	}
	wrappers := make([]Wrapper, 0, len(around)+1+len(inner))
	for _, typ := range around {
		wrappers = append(wrappers, Wrapper{Type: typ})
	}
	wrappers = append(wrappers, Wrapper{Type: nodeType, Attrs: attrs})
	for _, typ := range inner {
		wrappers = append(wrappers, Wrapper{Type: typ})
	}
	return wrappers, true
}

func findWrappingOutside(rng *model.NodeRange, typ *model.NodeType) ([]*model.NodeType, bool) {
	parent := rng.Parent()
	startIndex, endIndex := rng.StartIndex(), rng.EndIndex()
	around, ok := parent.ContentMatchAt(startIndex).FindWrapping(typ)
	if !ok {
		return nil, false
	}
	outer := typ
	if len(around) > 0 {
		outer = around[0]
	}
	if !parent.CanReplaceWith(startIndex, endIndex, outer, nil) {
		return nil, false
	}
	return around, true
}

func findWrappingInside(rng *model.NodeRange, typ *model.NodeType) ([]*model.NodeType, bool) {
	parent := rng.Parent()
	startIndex, endIndex := rng.StartIndex(), rng.EndIndex()
	inner := parent.Child(startIndex)
	inside, ok := typ.ContentMatch.FindWrapping(inner.Type)
	if !ok {
		return nil, false
	}
	lastType := typ
	if len(inside) > 0 {
		lastType = inside[len(inside)-1]
	}
	innerMatch := lastType.ContentMatch
	for i := startIndex; innerMatch != nil && i < endIndex; i++ {
		innerMatch = innerMatch.MatchType(parent.Child(i).Type)
	}
	if innerMatch == nil || !innerMatch.ValidEnd {
		return nil, false
	}
	return inside, true
}

// Wrap wraps the range in the given chain of wrapper nodes, outermost
// first.
func Wrap(tr *Transform, rng *model.NodeRange, wrappers []Wrapper) error {
	content := model.EmptyFragment
	for i := len(wrappers) - 1; i >= 0; i-- {
		if content.Size() > 0 {
			match := wrappers[i].Type.ContentMatch.MatchFragment(content, 0, -1)
			if match == nil || !match.ValidEnd {
				return fmt.Errorf("%w: wrapper type given to Wrap does not form valid content of its parent wrapper", ErrTransformFailed)
			}
		}
		node, err := wrappers[i].Type.Create(wrappers[i].Attrs, content, nil)
		if err != nil {
			return err
		}
		content = model.FragmentFrom(node)
	}
	start, end := rng.Start(), rng.End()
	return tr.Step(NewReplaceAroundStep(start, end, start, end,
		model.NewSlice(content, 0, 0), len(wrappers), true))
}

// SplitType describes the type to give one level of the after-split
// ancestor chain.
type SplitType struct {
	Type  *model.NodeType
	Attrs model.AttrMap
}

// CanSplit reports whether splitting at the given position, across the
// given number of levels, would leave a valid document. typesAfter, when
// given, overrides the types of the after-split nodes.
func CanSplit(doc *model.Node, pos, depth int, typesAfter []*SplitType) bool {
	if depth <= 0 {
		return false
	}
	rp, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	base := rp.Depth() - depth
	var innerType *model.NodeType
	if len(typesAfter) > 0 && typesAfter[len(typesAfter)-1] != nil {
		innerType = typesAfter[len(typesAfter)-1].Type
	} else {
		innerType = rp.Parent().Type
	}
	if base < 0 || rp.Parent().Type.Spec.Isolating {
		return false
	}
	index := rp.Index(rp.Depth())
	if !rp.Parent().CanReplace(index, rp.Parent().ChildCount(), nil, 0, -1) {
		return false
	}
	rest := rp.Parent().Content().CutByIndex(index, rp.Parent().ChildCount())
	if !innerType.ValidContent(rest) {
		return false
	}
	for d, i := rp.Depth()-1, depth-2; d > base; d, i = d-1, i-1 {
		node := rp.Node(d)
		idx := rp.Index(d)
		if node.Type.Spec.Isolating {
			return false
		}
		rest := node.Content().CutByIndex(idx, node.ChildCount())
		var override *SplitType
		if i+1 >= 0 && i+1 < len(typesAfter) {
			override = typesAfter[i+1]
		}
		if override != nil {
			child, err := override.Type.Create(override.Attrs, nil, nil)
			if err != nil {
				return false
			}
			rest = rest.ReplaceChild(0, child)
		}
		afterType := node.Type
		if i >= 0 && i < len(typesAfter) && typesAfter[i] != nil {
			afterType = typesAfter[i].Type
		}
		if !node.CanReplace(idx+1, node.ChildCount(), nil, 0, -1) || !afterType.ValidContent(rest) {
			return false
		}
	}
	indexAfter := rp.IndexAfter(base)
	var baseType *model.NodeType
	if len(typesAfter) > 0 && typesAfter[0] != nil {
		baseType = typesAfter[0].Type
	} else {
		baseType = rp.Node(base + 1).Type
	}
	return rp.Node(base).CanReplaceWith(indexAfter, indexAfter, baseType, nil)
}

// Split splits the ancestor chain at the given position across the given
// number of levels, optionally retyping the after-split nodes.
func Split(tr *Transform, pos, depth int, typesAfter []*SplitType) error {
	rp, err := tr.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	before := model.EmptyFragment
	after := model.EmptyFragment
	for d, e, i := rp.Depth(), rp.Depth()-depth, depth-1; d > e; d, i = d-1, i-1 {
		before = model.FragmentFrom(rp.Node(d).Copy(before))
		var typeAfter *SplitType
		if i >= 0 && i < len(typesAfter) {
			typeAfter = typesAfter[i]
		}
		if typeAfter != nil {
			node, err := typeAfter.Type.Create(typeAfter.Attrs, after, nil)
			if err != nil {
				return err
			}
			after = model.FragmentFrom(node)
		} else {
			after = model.FragmentFrom(rp.Node(d).Copy(after))
		}
	}
	return tr.Step(NewReplaceStep(pos, pos,
		model.NewSlice(before.Append(after), depth, depth), true))
}

// joinableNodes reports whether two adjacent nodes can be joined.
func joinableNodes(a, b *model.Node) bool {
	return a != nil && b != nil && !a.IsLeaf() && a.CanAppend(b)
}

// CanJoin reports whether the nodes before and after the given position
// can be joined.
func CanJoin(doc *model.Node, pos int) bool {
	rp, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	index := rp.Index(rp.Depth())
	return joinableNodes(rp.NodeBefore(), rp.NodeAfter()) &&
		rp.Parent().CanReplace(index, index+1, nil, 0, -1)
}

// Join removes the boundaries between the nodes around the given
// position, across the given number of levels.
func Join(tr *Transform, pos, depth int) error {
	step := NewReplaceStep(pos-depth, pos+depth, model.EmptySlice, true)
	return tr.Step(step)
}

// InsertPoint searches outward from the given position for the nearest
// point where a node of the given type can be inserted. Used for paste
// and drop style insertions.
func InsertPoint(doc *model.Node, pos int, nodeType *model.NodeType) (int, bool) {
	rp, err := doc.Resolve(pos)
	if err != nil {
		return 0, false
	}
	if rp.Parent().CanReplaceWith(rp.Index(rp.Depth()), rp.Index(rp.Depth()), nodeType, nil) {
		return pos, true
	}
	if rp.ParentOffset == 0 {
		for d := rp.Depth() - 1; d >= 0; d-- {
			index := rp.Index(d)
			if rp.Node(d).CanReplaceWith(index, index, nodeType, nil) {
				return rp.Before(d + 1), true
			}
			if index > 0 {
				return 0, false
			}
		}
	}
	if rp.ParentOffset == rp.Parent().Content().Size() {
		for d := rp.Depth() - 1; d >= 0; d-- {
			index := rp.IndexAfter(d)
			if rp.Node(d).CanReplaceWith(index, index, nodeType, nil) {
				return rp.After(d + 1), true
			}
			if index < rp.Node(d).ChildCount() {
				return 0, false
			}
		}
	}
	return 0, false
}

// DropPoint searches for a position near the given one where the slice's
// content can be inserted, possibly after wrapping. Used for drag and
// drop.
func DropPoint(doc *model.Node, pos int, slice *model.Slice) (int, bool) {
	rp, err := doc.Resolve(pos)
	if err != nil {
		return 0, false
	}
	if slice.Content.Size() == 0 {
		return pos, true
	}
	content := slice.Content
	for i := 0; i < slice.OpenStart; i++ {
		content = content.FirstChild().Content()
	}
	passes := 1
	if slice.OpenStart == 0 && slice.Size() > 0 {
		passes = 2
	}
	for pass := 1; pass <= passes; pass++ {
		for d := rp.Depth(); d >= 0; d-- {
			bias := 0
			if d != rp.Depth() {
				if rp.Pos <= (rp.Start(d+1)+rp.End(d+1))/2 {
					bias = -1
				} else {
					bias = 1
				}
			}
			insertPos := rp.Index(d)
			if bias > 0 {
				insertPos++
			}
			parent := rp.Node(d)
			fits := false
			if pass == 1 {
				fits = parent.CanReplace(insertPos, insertPos, content, 0, -1)
			} else {
				wrapping, ok := parent.ContentMatchAt(insertPos).FindWrapping(content.FirstChild().Type)
				if ok && len(wrapping) > 0 {
					fits = parent.CanReplaceWith(insertPos, insertPos, wrapping[0], nil)
				}
			}
			if fits {
				switch {
				case bias == 0:
					return rp.Pos, true
				case bias < 0:
					return rp.Before(d + 1), true
				default:
					return rp.After(d + 1), true
				}
			}
		}
	}
	return 0, false
}
