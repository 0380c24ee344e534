package transform

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/treedoc/model"
)

// AttrStep sets a single attribute on the node at a position, keeping its
// content and marks.
type AttrStep struct {
	Pos   int
	Attr  string
	Value any
}

// NewAttrStep builds an attribute step.
func NewAttrStep(pos int, attr string, value any) *AttrStep {
	return &AttrStep{Pos: pos, Attr: attr, Value: value}
}

// Apply implements Step.
func (s *AttrStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return Fail("no node at attribute step's position")
	}
	attrs := model.AttrMap{}
	for name, value := range node.Attrs {
		attrs[name] = value
	}
	attrs[s.Attr] = s.Value
	updated, err := node.Type.Create(attrs, nil, node.Marks)
	if err != nil {
		return Fail("%v", err)
	}
	return FromReplace(doc, s.Pos, s.Pos+1, openNodeSlice(updated, node))
}

// GetMap implements Step.
func (s *AttrStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *AttrStep) Invert(doc *model.Node) (Step, error) {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return nil, fmt.Errorf("no node at attribute step's position %d", s.Pos)
	}
	return NewAttrStep(s.Pos, s.Attr, node.Attrs[s.Attr]), nil
}

// Map implements Step.
func (s *AttrStep) Map(mapping Mappable) Step {
	pos := mapping.MapResult(s.Pos, 1)
	if pos.DeletedAfter() {
		return nil
	}
	return NewAttrStep(pos.Pos, s.Attr, s.Value)
}

// Merge implements Step.
func (s *AttrStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON implements Step.
func (s *AttrStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "attr", "pos": s.Pos, "attr": s.Attr, "value": s.Value}
}

func attrStepFromJSON(_ *model.Schema, data gjson.Result) (Step, error) {
	pos, attr := data.Get("pos"), data.Get("attr")
	if !pos.Exists() || attr.String() == "" {
		return nil, fmt.Errorf("invalid input for attr step")
	}
	return NewAttrStep(int(pos.Int()), attr.String(), data.Get("value").Value()), nil
}

// DocAttrStep sets a single attribute on the document root.
type DocAttrStep struct {
	Attr  string
	Value any
}

// NewDocAttrStep builds a document-attribute step.
func NewDocAttrStep(attr string, value any) *DocAttrStep {
	return &DocAttrStep{Attr: attr, Value: value}
}

// Apply implements Step.
func (s *DocAttrStep) Apply(doc *model.Node) StepResult {
	attrs := model.AttrMap{}
	for name, value := range doc.Attrs {
		attrs[name] = value
	}
	attrs[s.Attr] = s.Value
	updated, err := doc.Type.Create(attrs, doc.Content(), doc.Marks)
	if err != nil {
		return Fail("%v", err)
	}
	return OK(updated)
}

// GetMap implements Step.
func (s *DocAttrStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *DocAttrStep) Invert(doc *model.Node) (Step, error) {
	return NewDocAttrStep(s.Attr, doc.Attrs[s.Attr]), nil
}

// Map implements Step.
func (s *DocAttrStep) Map(Mappable) Step { return s }

// Merge implements Step.
func (s *DocAttrStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON implements Step.
func (s *DocAttrStep) ToJSON() map[string]any {
	return map[string]any{"stepType": "docAttr", "attr": s.Attr, "value": s.Value}
}

func docAttrStepFromJSON(_ *model.Schema, data gjson.Result) (Step, error) {
	attr := data.Get("attr")
	if attr.String() == "" {
		return nil, fmt.Errorf("invalid input for docAttr step")
	}
	return NewDocAttrStep(attr.String(), data.Get("value").Value()), nil
}
