package transform

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/treedoc/model"
)

// ReplaceStep replaces the range between From and To with a slice.
type ReplaceStep struct {
	From, To int
	Slice    *model.Slice

	// Structure, when set, makes the step fail if the replaced range
	// contains actual content rather than a clean run of node
	// boundaries. Structural operations use it to guard against
	// overwriting content that concurrent steps moved into the range.
	Structure bool
}

// NewReplaceStep builds a replace step.
func NewReplaceStep(from, to int, slice *model.Slice, structure bool) *ReplaceStep {
	return &ReplaceStep{From: from, To: to, Slice: slice, Structure: structure}
}

// Apply implements Step.
func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.Structure && contentBetween(doc, s.From, s.To) {
		return Fail("structure replace would overwrite content")
	}
	return FromReplace(doc, s.From, s.To, s.Slice)
}

// GetMap implements Step.
func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap([]int{s.From, s.To - s.From, s.Slice.Size()})
}

// Invert implements Step.
func (s *ReplaceStep) Invert(doc *model.Node) (Step, error) {
	slice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return nil, err
	}
	return NewReplaceStep(s.From, s.From+s.Slice.Size(), slice, false), nil
}

// Map implements Step.
func (s *ReplaceStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if from.DeletedAcross() && to.DeletedAcross() {
		return nil
	}
	return NewReplaceStep(from.Pos, max(from.Pos, to.Pos), s.Slice, s.Structure)
}

// Merge implements Step. Two replace steps merge when they are adjacent
// and their slices close cleanly against each other.
func (s *ReplaceStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*ReplaceStep)
	if !ok || o.Structure || s.Structure {
		return nil, false
	}
	switch {
	case s.From+s.Slice.Size() == o.From && s.Slice.OpenEnd == 0 && o.Slice.OpenStart == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() != 0 {
			slice = model.NewSlice(s.Slice.Content.Append(o.Slice.Content), s.Slice.OpenStart, o.Slice.OpenEnd)
		}
		return NewReplaceStep(s.From, s.To+(o.To-o.From), slice, s.Structure), true
	case o.To == s.From && s.Slice.OpenStart == 0 && o.Slice.OpenEnd == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() != 0 {
			slice = model.NewSlice(o.Slice.Content.Append(s.Slice.Content), o.Slice.OpenStart, s.Slice.OpenEnd)
		}
		return NewReplaceStep(o.From, s.To, slice, s.Structure), true
	}
	return nil, false
}

// ToJSON implements Step.
func (s *ReplaceStep) ToJSON() map[string]any {
	obj := map[string]any{"stepType": "replace", "from": s.From, "to": s.To}
	if s.Slice.Content.Size() > 0 {
		obj["slice"] = s.Slice.ToJSON()
	}
	if s.Structure {
		obj["structure"] = true
	}
	return obj
}

func replaceStepFromJSON(schema *model.Schema, data gjson.Result) (Step, error) {
	from, to := data.Get("from"), data.Get("to")
	if !from.Exists() || !to.Exists() {
		return nil, fmt.Errorf("invalid input for replace step")
	}
	slice := model.EmptySlice
	if raw := data.Get("slice"); raw.Exists() {
		var err error
		slice, err = model.SliceFromJSON(schema, []byte(raw.Raw))
		if err != nil {
			return nil, err
		}
	}
	return NewReplaceStep(int(from.Int()), int(to.Int()), slice, data.Get("structure").Bool()), nil
}

// ReplaceAroundStep replaces the range between From and To with a slice,
// but moves the untouched range between GapFrom and GapTo into a hole at
// offset Insert inside the slice instead of deleting it.
type ReplaceAroundStep struct {
	From, To       int
	GapFrom, GapTo int
	Slice          *model.Slice
	Insert         int
	Structure      bool
}

// NewReplaceAroundStep builds a replace-around step.
func NewReplaceAroundStep(from, to, gapFrom, gapTo int, slice *model.Slice, insert int, structure bool) *ReplaceAroundStep {
	return &ReplaceAroundStep{From: from, To: to, GapFrom: gapFrom, GapTo: gapTo,
		Slice: slice, Insert: insert, Structure: structure}
}

// Apply implements Step.
func (s *ReplaceAroundStep) Apply(doc *model.Node) StepResult {
	if s.Structure && (contentBetween(doc, s.From, s.GapFrom) || contentBetween(doc, s.GapTo, s.To)) {
		return Fail("structure gap-replace would overwrite content")
	}
	gap, err := doc.Slice(s.GapFrom, s.GapTo, false)
	if err != nil {
		return Fail("%v", err)
	}
	if gap.OpenStart > 0 || gap.OpenEnd > 0 {
		return Fail("gap is not a flat range")
	}
	inserted := s.Slice.InsertAt(s.Insert, gap.Content)
	if inserted == nil {
		return Fail("content does not fit in gap")
	}
	return FromReplace(doc, s.From, s.To, inserted)
}

// GetMap implements Step.
func (s *ReplaceAroundStep) GetMap() *StepMap {
	return NewStepMap([]int{
		s.From, s.GapFrom - s.From, s.Insert,
		s.GapTo, s.To - s.GapTo, s.Slice.Size() - s.Insert,
	})
}

// Invert implements Step.
func (s *ReplaceAroundStep) Invert(doc *model.Node) (Step, error) {
	gap := s.GapTo - s.GapFrom
	slice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return nil, err
	}
	removed, err := slice.RemoveBetween(s.GapFrom-s.From, s.GapTo-s.From)
	if err != nil {
		return nil, err
	}
	return NewReplaceAroundStep(
		s.From, s.From+s.Slice.Size()+gap,
		s.From+s.Insert, s.From+s.Insert+gap,
		removed, s.GapFrom-s.From, s.Structure), nil
}

// Map implements Step.
func (s *ReplaceAroundStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	gapFrom := from.Pos
	if s.From != s.GapFrom {
		gapFrom = mapping.Map(s.GapFrom, -1)
	}
	gapTo := to.Pos
	if s.To != s.GapTo {
		gapTo = mapping.Map(s.GapTo, 1)
	}
	if (from.DeletedAcross() && to.DeletedAcross()) || gapFrom < from.Pos || gapTo > to.Pos {
		return nil
	}
	return NewReplaceAroundStep(from.Pos, to.Pos, gapFrom, gapTo, s.Slice, s.Insert, s.Structure)
}

// Merge implements Step.
func (s *ReplaceAroundStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON implements Step.
func (s *ReplaceAroundStep) ToJSON() map[string]any {
	obj := map[string]any{
		"stepType": "replaceAround",
		"from":     s.From, "to": s.To,
		"gapFrom": s.GapFrom, "gapTo": s.GapTo,
		"insert": s.Insert,
	}
	if s.Slice.Content.Size() > 0 {
		obj["slice"] = s.Slice.ToJSON()
	}
	if s.Structure {
		obj["structure"] = true
	}
	return obj
}

func replaceAroundStepFromJSON(schema *model.Schema, data gjson.Result) (Step, error) {
	for _, field := range []string{"from", "to", "gapFrom", "gapTo", "insert"} {
		if !data.Get(field).Exists() {
			return nil, fmt.Errorf("invalid input for replaceAround step: missing %s", field)
		}
	}
	slice := model.EmptySlice
	if raw := data.Get("slice"); raw.Exists() {
		var err error
		slice, err = model.SliceFromJSON(schema, []byte(raw.Raw))
		if err != nil {
			return nil, err
		}
	}
	return NewReplaceAroundStep(
		int(data.Get("from").Int()), int(data.Get("to").Int()),
		int(data.Get("gapFrom").Int()), int(data.Get("gapTo").Int()),
		slice, int(data.Get("insert").Int()), data.Get("structure").Bool()), nil
}

// contentBetween reports whether there is real content (rather than a
// clean run of node boundaries) between the two positions.
func contentBetween(doc *model.Node, from, to int) bool {
	pFrom, err := doc.Resolve(from)
	if err != nil {
		return true
	}
	dist := to - from
	depth := pFrom.Depth()
	for dist > 0 && depth > 0 && pFrom.IndexAfter(depth) == pFrom.Node(depth).ChildCount() {
		depth--
		dist--
	}
	if dist > 0 {
		next := pFrom.Node(depth).MaybeChild(pFrom.IndexAfter(depth))
		for dist > 0 {
			if next == nil || next.IsLeaf() {
				return true
			}
			next = next.FirstChild()
			dist--
		}
	}
	return false
}
