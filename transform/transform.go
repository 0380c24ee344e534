package transform

import (
	"errors"
	"fmt"

	"github.com/dshills/treedoc/model"
)

// ErrTransformFailed wraps a step failure raised through Transform.Step.
var ErrTransformFailed = errors.New("transform failed")

// Transform accumulates a sequence of steps against a document, tracking
// every intermediate document version and the combined position mapping.
type Transform struct {
	// Doc is the current document, after all applied steps.
	Doc *model.Node

	// Steps are the steps in application order.
	Steps []Step

	// Docs holds the document before each step, aligned with Steps.
	Docs []*model.Node

	// Mapping maps positions in the starting document to the current
	// one.
	Mapping *Mapping

	before *model.Node
}

// NewTransform starts a transform on the given document.
func NewTransform(doc *model.Node) *Transform {
	return &Transform{Doc: doc, Mapping: &Mapping{}, before: doc}
}

// Before returns the document the transform started with.
func (tr *Transform) Before() *model.Node { return tr.before }

// DocChanged reports whether any steps have been applied.
func (tr *Transform) DocChanged() bool { return len(tr.Steps) > 0 }

// Step applies a step, recording it. The step's failure, if any, is
// returned as an error wrapping ErrTransformFailed and leaves the
// transform untouched.
func (tr *Transform) Step(s Step) error {
	result := tr.Maybe(s)
	if result.Failed != "" {
		return fmt.Errorf("%w: %s", ErrTransformFailed, result.Failed)
	}
	return nil
}

// Maybe tries to apply a step, recording it only on success, and returns
// the raw result either way.
func (tr *Transform) Maybe(s Step) StepResult {
	result := s.Apply(tr.Doc)
	if result.Failed == "" {
		tr.addStep(s, result.Doc)
	}
	return result
}

func (tr *Transform) addStep(s Step, doc *model.Node) {
	tr.Docs = append(tr.Docs, tr.Doc)
	tr.Steps = append(tr.Steps, s)
	tr.Mapping.AppendMap(s.GetMap())
	tr.Doc = doc
}

// Replace replaces the given range with a slice.
func (tr *Transform) Replace(from, to int, slice *model.Slice) error {
	if slice == nil {
		slice = model.EmptySlice
	}
	if from == to && slice.Size() == 0 {
		return nil
	}
	return tr.Step(NewReplaceStep(from, to, slice, false))
}

// ReplaceWith replaces the given range with the given content.
func (tr *Transform) ReplaceWith(from, to int, content *model.Fragment) error {
	return tr.Replace(from, to, model.NewSlice(content, 0, 0))
}

// Delete removes the content between the two positions.
func (tr *Transform) Delete(from, to int) error {
	return tr.Replace(from, to, model.EmptySlice)
}

// Insert inserts the given content at a position.
func (tr *Transform) Insert(pos int, content *model.Fragment) error {
	return tr.ReplaceWith(pos, pos, content)
}

// InsertText replaces the range with a text node carrying the marks that
// hold across the replaced content. An empty string deletes the range.
func (tr *Transform) InsertText(from, to int, text string) error {
	if text == "" {
		return tr.Delete(from, to)
	}
	rf, err := tr.Doc.Resolve(from)
	if err != nil {
		return err
	}
	rt, err := tr.Doc.Resolve(to)
	if err != nil {
		return err
	}
	marks := rf.MarksAcross(rt)
	if marks == nil {
		marks = rf.Marks()
	}
	node := rf.Doc().Type.Schema.Text(text, marks...)
	return tr.ReplaceWith(from, to, model.FragmentFrom(node))
}

// AddMark adds a mark to all inline content in the range, first removing
// any marks of the range's nodes the new mark displaces.
func (tr *Transform) AddMark(from, to int, mark *model.Mark) error {
	var removed, added []Step
	var removing *RemoveMarkStep
	var adding *AddMarkStep
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		marks := node.Marks
		if mark.IsInSet(marks) || parent == nil || !parent.Type.AllowsMarkType(mark.Type) {
			return true
		}
		start := max(pos, from)
		end := min(pos+node.NodeSize(), to)
		newSet := mark.AddToSet(marks)
		for _, m := range marks {
			if !m.IsInSet(newSet) {
				if removing != nil && removing.To == start && removing.Mark.Eq(m) {
					removing.To = end
				} else {
					removing = NewRemoveMarkStep(start, end, m)
					removed = append(removed, removing)
				}
			}
		}
		if adding != nil && adding.To == start {
			adding.To = end
		} else {
			adding = NewAddMarkStep(start, end, mark)
			added = append(added, adding)
		}
		return true
	})
	for _, s := range removed {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	for _, s := range added {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMark removes marks from inline content in the range: a specific
// mark, every mark of a type, or (with a nil mark and type) all marks.
func (tr *Transform) RemoveMark(from, to int, mark *model.Mark, markType *model.MarkType) error {
	type matchedMark struct {
		style    *model.Mark
		from, to int
		step     int
	}
	var matched []*matchedMark
	step := 0
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		step++
		var toRemove []*model.Mark
		switch {
		case markType != nil:
			set := node.Marks
			for {
				found := markType.IsInSet(set)
				if found == nil {
					break
				}
				toRemove = append(toRemove, found)
				set = found.RemoveFromSet(set)
			}
		case mark != nil:
			if mark.IsInSet(node.Marks) {
				toRemove = []*model.Mark{mark}
			}
		default:
			toRemove = node.Marks
		}
		if len(toRemove) == 0 {
			return true
		}
		end := min(pos+node.NodeSize(), to)
		for _, style := range toRemove {
			var found *matchedMark
			for _, m := range matched {
				if m.step == step-1 && style.Eq(m.style) {
					found = m
				}
			}
			if found != nil {
				found.to = end
				found.step = step
			} else {
				matched = append(matched, &matchedMark{style: style, from: max(pos, from), to: end, step: step})
			}
		}
		return true
	})
	for _, m := range matched {
		if err := tr.Step(NewRemoveMarkStep(m.from, m.to, m.style)); err != nil {
			return err
		}
	}
	return nil
}

// ClearIncompatible removes content and marks from the node at the given
// position that would not be allowed under the given type, so the node
// can be converted to it afterwards.
func (tr *Transform) ClearIncompatible(pos int, parentType *model.NodeType) error {
	node := tr.Doc.NodeAt(pos)
	if node == nil {
		return fmt.Errorf("%w: no node at given position", ErrTransformFailed)
	}
	match := parentType.ContentMatch
	var replSteps []Step
	cur := pos + 1
	for i := 0; i < node.ChildCount(); i++ {
		child := node.Child(i)
		end := cur + child.NodeSize()
		allowed := match.MatchType(child.Type)
		if allowed == nil {
			replSteps = append(replSteps, NewReplaceStep(cur, end, model.EmptySlice, false))
		} else {
			match = allowed
			for _, m := range child.Marks {
				if !parentType.AllowsMarkType(m.Type) {
					if err := tr.Step(NewRemoveMarkStep(cur, end, m)); err != nil {
						return err
					}
				}
			}
		}
		cur = end
	}
	if !match.ValidEnd {
		fill, ok := match.FillBefore(model.EmptyFragment, true, 0)
		if !ok {
			return fmt.Errorf("%w: cannot synthesize content to close node", ErrTransformFailed)
		}
		if err := tr.Replace(cur, cur, model.NewSlice(fill, 0, 0)); err != nil {
			return err
		}
	}
	for i := len(replSteps) - 1; i >= 0; i-- {
		if err := tr.Step(replSteps[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetNodeMarkup changes the type, attributes, or marks of the node at the
// given position while keeping its content.
func (tr *Transform) SetNodeMarkup(pos int, typ *model.NodeType, attrs model.AttrMap, marks []*model.Mark) error {
	node := tr.Doc.NodeAt(pos)
	if node == nil {
		return fmt.Errorf("%w: no node at given position", ErrTransformFailed)
	}
	if typ == nil {
		typ = node.Type
	}
	if attrs == nil {
		attrs = node.Attrs
	}
	if marks == nil {
		marks = node.Marks
	}
	updated, err := typ.Create(attrs, nil, marks)
	if err != nil {
		return err
	}
	if node.IsLeaf() {
		return tr.ReplaceWith(pos, pos+node.NodeSize(), model.FragmentFrom(updated))
	}
	if !typ.ValidContent(node.Content()) {
		return fmt.Errorf("%w: invalid content for node type %s", ErrTransformFailed, typ.Name)
	}
	return tr.Step(NewReplaceAroundStep(pos, pos+node.NodeSize(), pos+1, pos+node.NodeSize()-1,
		model.NewSlice(model.FragmentFrom(updated), 0, 0), 1, true))
}

// SetNodeAttribute sets one attribute on the node at the given position.
func (tr *Transform) SetNodeAttribute(pos int, attr string, value any) error {
	return tr.Step(NewAttrStep(pos, attr, value))
}

// SetDocAttribute sets one attribute on the document root.
func (tr *Transform) SetDocAttribute(attr string, value any) error {
	return tr.Step(NewDocAttrStep(attr, value))
}

// AddNodeMark adds a mark to the node at the given position.
func (tr *Transform) AddNodeMark(pos int, mark *model.Mark) error {
	return tr.Step(NewAddNodeMarkStep(pos, mark))
}

// RemoveNodeMark removes a mark (or the first mark of a type) from the
// node at the given position.
func (tr *Transform) RemoveNodeMark(pos int, mark *model.Mark, markType *model.MarkType) error {
	if mark == nil {
		if markType == nil {
			return fmt.Errorf("%w: no mark or mark type given", ErrTransformFailed)
		}
		node := tr.Doc.NodeAt(pos)
		if node == nil {
			return fmt.Errorf("%w: no node at given position", ErrTransformFailed)
		}
		mark = markType.IsInSet(node.Marks)
		if mark == nil {
			return nil
		}
	}
	return tr.Step(NewRemoveNodeMarkStep(pos, mark))
}
