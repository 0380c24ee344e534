package model

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ToJSON returns the canonical JSON shape of the node:
// {"type": ..., "attrs"?: ..., "content"?: [...], "marks"?: [...],
// "text"?: ...}.
func (n *Node) ToJSON() map[string]any {
	obj := map[string]any{"type": n.Type.Name}
	if len(n.Attrs) > 0 {
		obj["attrs"] = map[string]any(n.Attrs)
	}
	if n.IsText() {
		obj["text"] = n.Text
	} else if n.content.Size() > 0 {
		obj["content"] = n.content.ToJSON()
	}
	if len(n.Marks) > 0 {
		marks := make([]any, len(n.Marks))
		for i, m := range n.Marks {
			marks[i] = m.ToJSON()
		}
		obj["marks"] = marks
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) { return json.Marshal(n.ToJSON()) }

// ToJSON returns the fragment as a plain array of node shapes, or nil for
// an empty fragment.
func (f *Fragment) ToJSON() []any {
	if len(f.content) == 0 {
		return nil
	}
	out := make([]any, len(f.content))
	for i, child := range f.content {
		out[i] = child.ToJSON()
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (f *Fragment) MarshalJSON() ([]byte, error) { return json.Marshal(f.ToJSON()) }

// ToJSON returns the canonical JSON shape of the mark.
func (m *Mark) ToJSON() map[string]any {
	obj := map[string]any{"type": m.Type.Name}
	if len(m.Attrs) > 0 {
		obj["attrs"] = map[string]any(m.Attrs)
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (m *Mark) MarshalJSON() ([]byte, error) { return json.Marshal(m.ToJSON()) }

// ToJSON returns the canonical JSON shape of the slice. Open depths are
// omitted when zero.
func (s *Slice) ToJSON() map[string]any {
	obj := map[string]any{"content": s.Content.ToJSON()}
	if s.OpenStart > 0 {
		obj["openStart"] = s.OpenStart
	}
	if s.OpenEnd > 0 {
		obj["openEnd"] = s.OpenEnd
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (s *Slice) MarshalJSON() ([]byte, error) { return json.Marshal(s.ToJSON()) }

// NodeFromJSON rebuilds a node from its canonical JSON shape, validating
// types, attributes and content against the schema.
func NodeFromJSON(schema *Schema, data []byte) (*Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed node JSON", ErrUnknownType)
	}
	return nodeFromResult(schema, gjson.ParseBytes(data))
}

func nodeFromResult(schema *Schema, res gjson.Result) (*Node, error) {
	if !res.IsObject() {
		return nil, fmt.Errorf("invalid node JSON: %s", res.Raw)
	}
	typeName := res.Get("type").String()
	if typeName == "" {
		return nil, fmt.Errorf("%w: node JSON without a type", ErrUnknownType)
	}
	marks, err := markSetFromResult(schema, res.Get("marks"))
	if err != nil {
		return nil, err
	}
	if typeName == "text" {
		text := res.Get("text")
		if !text.Exists() || text.String() == "" {
			return nil, fmt.Errorf("%w: text node without text", ErrInvalidContent)
		}
		return schema.Text(text.String(), marks...), nil
	}
	typ, err := schema.NodeType(typeName)
	if err != nil {
		return nil, err
	}
	content, err := fragmentFromResult(schema, res.Get("content"))
	if err != nil {
		return nil, err
	}
	attrs, err := attrsFromResult(res.Get("attrs"))
	if err != nil {
		return nil, err
	}
	return typ.CreateChecked(attrs, content, MarkSetFrom(marks...))
}

// FragmentFromJSON rebuilds a fragment from a JSON array of node shapes.
func FragmentFromJSON(schema *Schema, data []byte) (*Fragment, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed fragment JSON", ErrUnknownType)
	}
	return fragmentFromResult(schema, gjson.ParseBytes(data))
}

func fragmentFromResult(schema *Schema, res gjson.Result) (*Fragment, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return EmptyFragment, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("invalid fragment JSON: %s", res.Raw)
	}
	frag := EmptyFragment
	var err error
	res.ForEach(func(_, value gjson.Result) bool {
		var node *Node
		node, err = nodeFromResult(schema, value)
		if err != nil {
			return false
		}
		frag = frag.AddToEnd(node)
		return true
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

// MarkFromJSON rebuilds a mark from its canonical JSON shape.
func MarkFromJSON(schema *Schema, data []byte) (*Mark, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed mark JSON", ErrUnknownType)
	}
	return markFromResult(schema, gjson.ParseBytes(data))
}

func markFromResult(schema *Schema, res gjson.Result) (*Mark, error) {
	if !res.IsObject() {
		return nil, fmt.Errorf("invalid mark JSON: %s", res.Raw)
	}
	typeName := res.Get("type").String()
	if typeName == "" {
		return nil, fmt.Errorf("%w: mark JSON without a type", ErrUnknownType)
	}
	typ, err := schema.MarkType(typeName)
	if err != nil {
		return nil, err
	}
	attrs, err := attrsFromResult(res.Get("attrs"))
	if err != nil {
		return nil, err
	}
	return typ.Create(attrs)
}

func markSetFromResult(schema *Schema, res gjson.Result) ([]*Mark, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("invalid mark array JSON: %s", res.Raw)
	}
	var marks []*Mark
	var err error
	res.ForEach(func(_, value gjson.Result) bool {
		var mark *Mark
		mark, err = markFromResult(schema, value)
		if err != nil {
			return false
		}
		marks = append(marks, mark)
		return true
	})
	if err != nil {
		return nil, err
	}
	return marks, nil
}

// SliceFromJSON rebuilds a slice from its canonical JSON shape, checking
// that the open depths do not exceed the content actually present.
func SliceFromJSON(schema *Schema, data []byte) (*Slice, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed slice JSON", ErrUnknownType)
	}
	return sliceFromResult(schema, gjson.ParseBytes(data))
}

func sliceFromResult(schema *Schema, res gjson.Result) (*Slice, error) {
	content, err := fragmentFromResult(schema, res.Get("content"))
	if err != nil {
		return nil, err
	}
	openStart := int(res.Get("openStart").Int())
	openEnd := int(res.Get("openEnd").Int())
	if openStart < 0 || openEnd < 0 {
		return nil, fmt.Errorf("invalid slice JSON: negative open depth")
	}
	if openStart > openDepth(content, true) || openEnd > openDepth(content, false) {
		return nil, fmt.Errorf("invalid slice JSON: open depth exceeds content depth")
	}
	return NewSlice(content, openStart, openEnd), nil
}

// openDepth measures how many levels of non-leaf nodes are present on one
// side of a fragment.
func openDepth(content *Fragment, start bool) int {
	depth := 0
	for {
		var node *Node
		if start {
			node = content.FirstChild()
		} else {
			node = content.LastChild()
		}
		if node == nil || node.IsLeaf() || node.IsText() {
			return depth
		}
		depth++
		content = node.Content()
	}
}

func attrsFromResult(res gjson.Result) (AttrMap, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: attrs JSON is not an object", ErrInvalidAttrs)
	}
	value, ok := res.Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: attrs JSON is not an object", ErrInvalidAttrs)
	}
	return AttrMap(value), nil
}
