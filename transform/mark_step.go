package transform

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/treedoc/model"
)

// mapInlineFragment rebuilds a fragment, applying fn to every inline node
// while recursing into block content.
func mapInlineFragment(fragment *model.Fragment, fn func(node, parent *model.Node) *model.Node, parent *model.Node) *model.Fragment {
	var mapped []*model.Node
	for i := 0; i < fragment.ChildCount(); i++ {
		child := fragment.Child(i)
		if child.Content().Size() > 0 {
			child = child.Copy(mapInlineFragment(child.Content(), fn, child))
		}
		if child.IsInline() {
			child = fn(child, parent)
		}
		mapped = append(mapped, child)
	}
	return model.FragmentFrom(mapped...)
}

// AddMarkStep adds a mark to all inline content between two positions.
type AddMarkStep struct {
	From, To int
	Mark     *model.Mark
}

// NewAddMarkStep builds an add-mark step.
func NewAddMarkStep(from, to int, mark *model.Mark) *AddMarkStep {
	return &AddMarkStep{From: from, To: to, Mark: mark}
}

// Apply implements Step.
func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	oldSlice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return Fail("%v", err)
	}
	pFrom, err := doc.Resolve(s.From)
	if err != nil {
		return Fail("%v", err)
	}
	parent := pFrom.Node(pFrom.SharedDepth(s.To))
	content := mapInlineFragment(oldSlice.Content, func(node, parent *model.Node) *model.Node {
		if parent == nil || !parent.Type.AllowsMarkType(s.Mark.Type) {
			return node
		}
		return node.Mark(s.Mark.AddToSet(node.Marks))
	}, parent)
	return FromReplace(doc, s.From, s.To, model.NewSlice(content, oldSlice.OpenStart, oldSlice.OpenEnd))
}

// GetMap implements Step.
func (s *AddMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *AddMarkStep) Invert(*model.Node) (Step, error) {
	return NewRemoveMarkStep(s.From, s.To, s.Mark), nil
}

// Map implements Step.
func (s *AddMarkStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return nil
	}
	return NewAddMarkStep(from.Pos, to.Pos, s.Mark)
}

// Merge implements Step.
func (s *AddMarkStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*AddMarkStep)
	if ok && o.Mark.Eq(s.Mark) && s.From <= o.To && s.To >= o.From {
		return NewAddMarkStep(min(s.From, o.From), max(s.To, o.To), s.Mark), true
	}
	return nil, false
}

// ToJSON implements Step.
func (s *AddMarkStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "addMark", "mark": s.Mark.ToJSON(), "from": s.From, "to": s.To}
}

func addMarkStepFromJSON(schema *model.Schema, data gjson.Result) (Step, error) {
	mark, from, to, err := markStepFields(schema, data, "addMark")
	if err != nil {
		return nil, err
	}
	return NewAddMarkStep(from, to, mark), nil
}

// RemoveMarkStep removes a mark from all inline content between two
// positions.
type RemoveMarkStep struct {
	From, To int
	Mark     *model.Mark
}

// NewRemoveMarkStep builds a remove-mark step.
func NewRemoveMarkStep(from, to int, mark *model.Mark) *RemoveMarkStep {
	return &RemoveMarkStep{From: from, To: to, Mark: mark}
}

// Apply implements Step.
func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	oldSlice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return Fail("%v", err)
	}
	content := mapInlineFragment(oldSlice.Content, func(node, _ *model.Node) *model.Node {
		return node.Mark(s.Mark.RemoveFromSet(node.Marks))
	}, doc)
	return FromReplace(doc, s.From, s.To, model.NewSlice(content, oldSlice.OpenStart, oldSlice.OpenEnd))
}

// GetMap implements Step.
func (s *RemoveMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *RemoveMarkStep) Invert(*model.Node) (Step, error) {
	return NewAddMarkStep(s.From, s.To, s.Mark), nil
}

// Map implements Step.
func (s *RemoveMarkStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return nil
	}
	return NewRemoveMarkStep(from.Pos, to.Pos, s.Mark)
}

// Merge implements Step.
func (s *RemoveMarkStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*RemoveMarkStep)
	if ok && o.Mark.Eq(s.Mark) && s.From <= o.To && s.To >= o.From {
		return NewRemoveMarkStep(min(s.From, o.From), max(s.To, o.To), s.Mark), true
	}
	return nil, false
}

// ToJSON implements Step.
func (s *RemoveMarkStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "removeMark", "mark": s.Mark.ToJSON(), "from": s.From, "to": s.To}
}

func removeMarkStepFromJSON(schema *model.Schema, data gjson.Result) (Step, error) {
	mark, from, to, err := markStepFields(schema, data, "removeMark")
	if err != nil {
		return nil, err
	}
	return NewRemoveMarkStep(from, to, mark), nil
}

func markStepFields(schema *model.Schema, data gjson.Result, kind string) (*model.Mark, int, int, error) {
	from, to := data.Get("from"), data.Get("to")
	rawMark := data.Get("mark")
	if !from.Exists() || !to.Exists() || !rawMark.Exists() {
		return nil, 0, 0, fmt.Errorf("invalid input for %s step", kind)
	}
	mark, err := model.MarkFromJSON(schema, []byte(rawMark.Raw))
	if err != nil {
		return nil, 0, 0, err
	}
	return mark, int(from.Int()), int(to.Int()), nil
}

// AddNodeMarkStep adds a mark to a single node.
type AddNodeMarkStep struct {
	Pos  int
	Mark *model.Mark
}

// NewAddNodeMarkStep builds an add-node-mark step.
func NewAddNodeMarkStep(pos int, mark *model.Mark) *AddNodeMarkStep {
	return &AddNodeMarkStep{Pos: pos, Mark: mark}
}

// Apply implements Step.
func (s *AddNodeMarkStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return Fail("no node at mark step's position")
	}
	updated, err := node.Type.Create(node.Attrs, nil, s.Mark.AddToSet(node.Marks))
	if err != nil {
		return Fail("%v", err)
	}
	return FromReplace(doc, s.Pos, s.Pos+1, openNodeSlice(updated, node))
}

// GetMap implements Step.
func (s *AddNodeMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *AddNodeMarkStep) Invert(doc *model.Node) (Step, error) {
	if node := doc.NodeAt(s.Pos); node != nil {
		newSet := s.Mark.AddToSet(node.Marks)
		if len(newSet) == len(node.Marks) {
			for _, m := range node.Marks {
				if !m.IsInSet(newSet) {
					return NewAddNodeMarkStep(s.Pos, m), nil
				}
			}
			return NewAddNodeMarkStep(s.Pos, s.Mark), nil
		}
	}
	return NewRemoveNodeMarkStep(s.Pos, s.Mark), nil
}

// Map implements Step.
func (s *AddNodeMarkStep) Map(mapping Mappable) Step {
	pos := mapping.MapResult(s.Pos, 1)
	if pos.DeletedAfter() {
		return nil
	}
	return NewAddNodeMarkStep(pos.Pos, s.Mark)
}

// Merge implements Step.
func (s *AddNodeMarkStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON implements Step.
func (s *AddNodeMarkStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "addNodeMark", "pos": s.Pos, "mark": s.Mark.ToJSON()}
}

func addNodeMarkStepFromJSON(schema *model.Schema, data gjson.Result) (Step, error) {
	mark, pos, err := nodeMarkStepFields(schema, data, "addNodeMark")
	if err != nil {
		return nil, err
	}
	return NewAddNodeMarkStep(pos, mark), nil
}

// RemoveNodeMarkStep removes a mark from a single node.
type RemoveNodeMarkStep struct {
	Pos  int
	Mark *model.Mark
}

// NewRemoveNodeMarkStep builds a remove-node-mark step.
func NewRemoveNodeMarkStep(pos int, mark *model.Mark) *RemoveNodeMarkStep {
	return &RemoveNodeMarkStep{Pos: pos, Mark: mark}
}

// Apply implements Step.
func (s *RemoveNodeMarkStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return Fail("no node at mark step's position")
	}
	updated, err := node.Type.Create(node.Attrs, nil, s.Mark.RemoveFromSet(node.Marks))
	if err != nil {
		return Fail("%v", err)
	}
	return FromReplace(doc, s.Pos, s.Pos+1, openNodeSlice(updated, node))
}

// GetMap implements Step.
func (s *RemoveNodeMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *RemoveNodeMarkStep) Invert(doc *model.Node) (Step, error) {
	node := doc.NodeAt(s.Pos)
	if node == nil || !s.Mark.IsInSet(node.Marks) {
		return s, nil
	}
	return NewAddNodeMarkStep(s.Pos, s.Mark), nil
}

// Map implements Step.
func (s *RemoveNodeMarkStep) Map(mapping Mappable) Step {
	pos := mapping.MapResult(s.Pos, 1)
	if pos.DeletedAfter() {
		return nil
	}
	return NewRemoveNodeMarkStep(pos.Pos, s.Mark)
}

// Merge implements Step.
func (s *RemoveNodeMarkStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON implements Step.
func (s *RemoveNodeMarkStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "removeNodeMark", "pos": s.Pos, "mark": s.Mark.ToJSON()}
}

func removeNodeMarkStepFromJSON(schema *model.Schema, data gjson.Result) (Step, error) {
	mark, pos, err := nodeMarkStepFields(schema, data, "removeNodeMark")
	if err != nil {
		return nil, err
	}
	return NewRemoveNodeMarkStep(pos, mark), nil
}

func nodeMarkStepFields(schema *model.Schema, data gjson.Result, kind string) (*model.Mark, int, error) {
	pos := data.Get("pos")
	rawMark := data.Get("mark")
	if !pos.Exists() || !rawMark.Exists() {
		return nil, 0, fmt.Errorf("invalid input for %s step", kind)
	}
	mark, err := model.MarkFromJSON(schema, []byte(rawMark.Raw))
	if err != nil {
		return nil, 0, err
	}
	return mark, int(pos.Int()), nil
}

// openNodeSlice wraps an updated copy of a node in a slice whose end is
// open for non-leaf nodes, so that the node's existing content is carried
// over by the replace.
func openNodeSlice(updated, original *model.Node) *model.Slice {
	openEnd := 1
	if original.IsLeaf() {
		openEnd = 0
	}
	return model.NewSlice(model.FragmentFrom(updated), 0, openEnd)
}
