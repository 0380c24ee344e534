package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AttrValidator checks a prospective attribute value. It is one of the
// small set of capabilities a spec author can attach to an attribute.
type AttrValidator func(value any) error

// AttrSpec describes one attribute of a node or mark type.
type AttrSpec struct {
	// Default is the value used when the attribute is not supplied.
	// Only meaningful when HasDefault is set; an attribute without a
	// default is required.
	Default any

	// HasDefault distinguishes "defaults to nil" from "required".
	HasDefault bool

	// Validate, when non-nil, is run against every supplied value.
	Validate AttrValidator
}

// NodeSpec describes one node type in a schema spec table. The order of
// specs in the table is meaningful: it decides group-expansion order in
// content expressions.
type NodeSpec struct {
	// Name is the node type's name.
	Name string

	// Content is the content expression for this node type.
	Content string

	// Marks names the mark types allowed inside this node, as a
	// space-separated string of names or groups. "_" allows all marks.
	// nil applies the default: all marks for inline content, none
	// otherwise.
	Marks *string

	// Group is a space-separated list of groups this type belongs to.
	Group string

	// Inline marks the type as inline (text-like) rather than block.
	Inline bool

	// Atom marks a non-leaf node that should be treated as a single
	// opaque unit.
	Atom bool

	// Isolating keeps lift and join operations from crossing this
	// node's boundary.
	Isolating bool

	// Attrs describes the attributes allowed on this type.
	Attrs map[string]*AttrSpec
}

// MarkSpec describes one mark type in a schema spec table. Table order
// assigns each mark its rank, which orders marks within a mark set.
type MarkSpec struct {
	// Name is the mark type's name.
	Name string

	// Attrs describes the attributes allowed on this mark.
	Attrs map[string]*AttrSpec

	// Excludes names the marks this mark may not coexist with. nil
	// means only the mark itself, "" means nothing, "_" means all.
	Excludes *string

	// Group is a space-separated list of groups this mark belongs to.
	Group string

	// Inclusive, when false, keeps the mark from being active at its
	// own end boundary. Defaults to true.
	Inclusive *bool
}

// SchemaSpec is the authoring surface for a schema: ordered node and mark
// spec tables plus the name of the top-level node type.
type SchemaSpec struct {
	Nodes   []*NodeSpec
	Marks   []*MarkSpec
	TopNode string // defaults to "doc"
}

// Attribute is the compiled form of an AttrSpec.
type Attribute struct {
	name       string
	hasDefault bool
	defaultVal any
	validate   AttrValidator
}

// Required reports whether the attribute must be supplied at creation.
func (a *Attribute) Required() bool { return !a.hasDefault }

// NodeType is the compiled, schema-owned descriptor for one kind of node.
// NodeTypes are created once per schema, shared by reference, and never
// change after construction.
type NodeType struct {
	// Name is the type's name in its schema.
	Name string

	// Schema is the schema this type belongs to.
	Schema *Schema

	// Spec is the spec this type was compiled from.
	Spec *NodeSpec

	// ContentMatch is the entry state of the compiled content automaton.
	ContentMatch *ContentMatch

	groups        []string
	attrs         map[string]*Attribute
	attrOrder     []string
	defaultAttrs  AttrMap
	inlineContent bool
	markSet       []*MarkType // nil means all marks allowed
	order         int
}

func (t *NodeType) isText() bool { return t.Name == "text" }

// IsInline reports whether the type is inline.
func (t *NodeType) IsInline() bool { return t.Spec.Inline || t.isText() }

// IsBlock reports whether the type is block-level.
func (t *NodeType) IsBlock() bool { return !t.IsInline() }

// IsTextblock reports whether this is a block type with inline content.
func (t *NodeType) IsTextblock() bool { return t.IsBlock() && t.inlineContent }

// InlineContent reports whether nodes of this type hold inline children.
func (t *NodeType) InlineContent() bool { return t.inlineContent }

// IsLeaf reports whether nodes of this type allow no content.
func (t *NodeType) IsLeaf() bool { return t.ContentMatch == EmptyContentMatch }

// IsAtom reports whether nodes of this type are treated as opaque units.
func (t *NodeType) IsAtom() bool { return t.IsLeaf() || t.Spec.Atom }

// isInGroup reports whether the type belongs to the named group.
func (t *NodeType) isInGroup(group string) bool {
	for _, g := range t.groups {
		if g == group {
			return true
		}
	}
	return false
}

func (t *NodeType) hasRequiredAttrs() bool {
	for _, name := range t.attrOrder {
		if t.attrs[name].Required() {
			return true
		}
	}
	return false
}

// CompatibleContent reports whether this type and the other share any
// legal content.
func (t *NodeType) CompatibleContent(other *NodeType) bool {
	return t == other || t.ContentMatch.Compatible(other.ContentMatch)
}

// computeAttrs completes a given attribute map against the type's
// descriptors, applying defaults and running validators.
func computeAttrs(attrs map[string]*Attribute, order []string, owner string, given AttrMap) (AttrMap, error) {
	built := AttrMap{}
	for _, name := range order {
		attr := attrs[name]
		value, supplied := given[name]
		if !supplied {
			if !attr.hasDefault {
				return nil, fmt.Errorf("%w: no value supplied for required attribute %s.%s", ErrInvalidAttrs, owner, name)
			}
			value = attr.defaultVal
		} else if attr.validate != nil {
			if err := attr.validate(value); err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidAttrs, owner, name, err)
			}
		}
		built[name] = value
	}
	return built, nil
}

func checkAttrs(attrs map[string]*Attribute, owner string, given AttrMap) error {
	for name := range given {
		if _, ok := attrs[name]; !ok {
			return fmt.Errorf("%w: unsupported attribute %s.%s", ErrInvalidAttrs, owner, name)
		}
	}
	for name, attr := range attrs {
		value, ok := given[name]
		if !ok {
			return fmt.Errorf("%w: missing attribute %s.%s", ErrInvalidAttrs, owner, name)
		}
		if attr.validate != nil {
			if err := attr.validate(value); err != nil {
				return fmt.Errorf("%w: %s.%s: %v", ErrInvalidAttrs, owner, name, err)
			}
		}
	}
	return nil
}

func (t *NodeType) checkAttrs(given AttrMap) error {
	return checkAttrs(t.attrs, t.Name, given)
}

// Create builds a node of this type. The content is not validated against
// the type's content expression; use CreateChecked for that.
func (t *NodeType) Create(attrs AttrMap, content *Fragment, marks []*Mark) (*Node, error) {
	if t.isText() {
		return nil, fmt.Errorf("%w: cannot use Create for a text node", ErrInvalidContent)
	}
	computed, err := computeAttrs(t.attrs, t.attrOrder, t.Name, attrs)
	if err != nil {
		return nil, err
	}
	return newNode(t, computed, content, marks), nil
}

// CreateChecked is like Create but validates the content against the
// type's content expression.
func (t *NodeType) CreateChecked(attrs AttrMap, content *Fragment, marks []*Mark) (*Node, error) {
	if content == nil {
		content = EmptyFragment
	}
	if !t.ValidContent(content) {
		return nil, &ContentError{Type: t.Name, Content: content.toStringInner()}
	}
	return t.Create(attrs, content, marks)
}

// CreateAndFill builds a node of this type, synthesizing whatever content
// must surround the given fragment to make it valid. Returns nil when the
// required content cannot be generated (or a required attribute is
// missing).
func (t *NodeType) CreateAndFill(attrs AttrMap, content *Fragment, marks []*Mark) *Node {
	computed, err := computeAttrs(t.attrs, t.attrOrder, t.Name, attrs)
	if err != nil {
		return nil
	}
	if content == nil {
		content = EmptyFragment
	}
	if content.Size() > 0 {
		before, ok := t.ContentMatch.FillBefore(content, false, 0)
		if !ok {
			return nil
		}
		content = before.Append(content)
	}
	matched := t.ContentMatch.MatchFragment(content, 0, -1)
	if matched == nil {
		return nil
	}
	after, ok := matched.FillBefore(EmptyFragment, true, 0)
	if !ok {
		return nil
	}
	return newNode(t, computed, content.Append(after), marks)
}

// ValidContent reports whether the fragment is valid content for this
// type, including mark legality of every child.
func (t *NodeType) ValidContent(content *Fragment) bool {
	result := t.ContentMatch.MatchFragment(content, 0, -1)
	if result == nil || !result.ValidEnd {
		return false
	}
	for i := 0; i < content.ChildCount(); i++ {
		if !t.AllowsMarks(content.Child(i).Marks) {
			return false
		}
	}
	return true
}

// AllowsMarkType reports whether marks of the given type may appear in
// nodes of this type.
func (t *NodeType) AllowsMarkType(markType *MarkType) bool {
	if t.markSet == nil {
		return true
	}
	for _, mt := range t.markSet {
		if mt == markType {
			return true
		}
	}
	return false
}

// AllowsMarks reports whether every mark in the set is allowed here.
func (t *NodeType) AllowsMarks(marks []*Mark) bool {
	if t.markSet == nil {
		return true
	}
	for _, m := range marks {
		if !t.AllowsMarkType(m.Type) {
			return false
		}
	}
	return true
}

// AllowedMarks filters a mark set down to the marks allowed in this type.
func (t *NodeType) AllowedMarks(marks []*Mark) []*Mark {
	if t.markSet == nil {
		return marks
	}
	var result []*Mark
	changed := false
	for _, m := range marks {
		if t.AllowsMarkType(m.Type) {
			result = append(result, m)
		} else {
			changed = true
		}
	}
	if !changed {
		return marks
	}
	if result == nil {
		return NoMarks
	}
	return result
}

// MarkType is the compiled, schema-owned descriptor for one kind of mark.
type MarkType struct {
	// Name is the mark type's name in its schema.
	Name string

	// Schema is the schema this type belongs to.
	Schema *Schema

	// Spec is the spec this type was compiled from.
	Spec *MarkSpec

	// Rank orders marks of this type within mark sets.
	Rank int

	attrs     map[string]*Attribute
	attrOrder []string
	excluded  []*MarkType
	instance  *Mark // shared instance for attribute-less marks
}

// Create builds a mark of this type with the given attributes.
func (t *MarkType) Create(attrs AttrMap) (*Mark, error) {
	if len(attrs) == 0 && t.instance != nil {
		return t.instance, nil
	}
	computed, err := computeAttrs(t.attrs, t.attrOrder, t.Name, attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{Type: t, Attrs: computed}, nil
}

// Excludes reports whether this mark type excludes the other from sharing
// a mark set with it.
func (t *MarkType) Excludes(other *MarkType) bool {
	for _, ex := range t.excluded {
		if ex == other {
			return true
		}
	}
	return false
}

// Inclusive reports whether the mark stays active at its end boundary.
func (t *MarkType) Inclusive() bool {
	return t.Spec.Inclusive == nil || *t.Spec.Inclusive
}

// IsInSet returns the mark of this type inside the given set, or nil.
func (t *MarkType) IsInSet(set []*Mark) *Mark {
	for _, m := range set {
		if m.Type == t {
			return m
		}
	}
	return nil
}

// isInGroup reports whether the mark type belongs to the named group.
func (t *MarkType) isInGroup(group string) bool {
	for _, g := range strings.Fields(t.Spec.Group) {
		if g == group {
			return true
		}
	}
	return false
}

// Schema is a compiled document schema: the full set of node and mark
// types plus the compiled content automata. A schema is built once, at
// application start, and shared by reference by every document created
// from it.
type Schema struct {
	// Spec is the spec table the schema was compiled from.
	Spec *SchemaSpec

	// Nodes maps node type names to their compiled types.
	Nodes map[string]*NodeType

	// Marks maps mark type names to their compiled types.
	Marks map[string]*MarkType

	// TopNodeType is the type of the document's root node.
	TopNodeType *NodeType

	cacheMu sync.Mutex
	cached  map[string]any
}

// NewSchema compiles a schema spec. Errors here are construction-time and
// fatal for the spec: a malformed content expression, a missing top or
// text type, or a required position only non-generatable types can fill.
func NewSchema(spec *SchemaSpec) (*Schema, error) {
	schema := &Schema{Spec: spec, Nodes: map[string]*NodeType{}, Marks: map[string]*MarkType{}}

	for i, ns := range spec.Nodes {
		if ns.Name == "" {
			return nil, fmt.Errorf("%w: node spec %d has no name", ErrInvalidAttrs, i)
		}
		if _, dup := schema.Nodes[ns.Name]; dup {
			return nil, fmt.Errorf("duplicate node type name %q", ns.Name)
		}
		attrs, order := compileAttrs(ns.Attrs)
		schema.Nodes[ns.Name] = &NodeType{
			Name:      ns.Name,
			Schema:    schema,
			Spec:      ns,
			groups:    strings.Fields(ns.Group),
			attrs:     attrs,
			attrOrder: order,
			order:     i,
		}
	}
	for i, ms := range spec.Marks {
		if ms.Name == "" {
			return nil, fmt.Errorf("%w: mark spec %d has no name", ErrInvalidAttrs, i)
		}
		if _, dup := schema.Marks[ms.Name]; dup {
			return nil, fmt.Errorf("duplicate mark type name %q", ms.Name)
		}
		attrs, order := compileAttrs(ms.Attrs)
		mt := &MarkType{
			Name:      ms.Name,
			Schema:    schema,
			Spec:      ms,
			Rank:      i,
			attrs:     attrs,
			attrOrder: order,
		}
		if !mt.hasRequiredAttrs() {
			defaults, err := computeAttrs(attrs, order, ms.Name, nil)
			if err != nil {
				return nil, err
			}
			mt.instance = &Mark{Type: mt, Attrs: defaults}
		}
		schema.Marks[ms.Name] = mt
	}

	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	topType, ok := schema.Nodes[top]
	if !ok {
		return nil, fmt.Errorf("%w: schema is missing its top node type %q", ErrUnknownType, top)
	}
	schema.TopNodeType = topType
	text, ok := schema.Nodes["text"]
	if !ok {
		return nil, fmt.Errorf("%w: every schema needs a \"text\" type", ErrUnknownType)
	}
	if len(text.attrs) > 0 {
		return nil, fmt.Errorf("%w: the text node type should not have attributes", ErrInvalidAttrs)
	}

	exprCache := map[string]*ContentMatch{}
	for _, typ := range sortedTypes(schema.Nodes) {
		match, ok := exprCache[typ.Spec.Content]
		if !ok {
			var err error
			match, err = parseContentMatch(typ.Spec.Content, schema.Nodes)
			if err != nil {
				return nil, fmt.Errorf("in content of node type %q: %w", typ.Name, err)
			}
			exprCache[typ.Spec.Content] = match
		}
		typ.ContentMatch = match
		typ.inlineContent = match.inlineContent()
		switch {
		case typ.Spec.Marks != nil && *typ.Spec.Marks == "_":
			typ.markSet = nil
		case typ.Spec.Marks != nil && *typ.Spec.Marks != "":
			set, err := gatherMarks(schema, strings.Fields(*typ.Spec.Marks))
			if err != nil {
				return nil, fmt.Errorf("in marks of node type %q: %w", typ.Name, err)
			}
			typ.markSet = set
		case (typ.Spec.Marks != nil && *typ.Spec.Marks == "") || !typ.inlineContent:
			typ.markSet = []*MarkType{}
		default:
			typ.markSet = nil
		}
	}
	for _, mt := range schema.Marks {
		switch {
		case mt.Spec.Excludes == nil:
			mt.excluded = []*MarkType{mt}
		case *mt.Spec.Excludes == "":
			mt.excluded = []*MarkType{}
		default:
			set, err := gatherMarks(schema, strings.Fields(*mt.Spec.Excludes))
			if err != nil {
				return nil, fmt.Errorf("in excludes of mark type %q: %w", mt.Name, err)
			}
			mt.excluded = set
		}
	}
	return schema, nil
}

// MustSchema compiles a schema spec and panics on error, for schemas
// defined at process start.
func MustSchema(spec *SchemaSpec) *Schema {
	schema, err := NewSchema(spec)
	if err != nil {
		panic(fmt.Sprintf("model: invalid schema: %v", err))
	}
	return schema
}

func (t *MarkType) hasRequiredAttrs() bool {
	for _, name := range t.attrOrder {
		if t.attrs[name].Required() {
			return true
		}
	}
	return false
}

func compileAttrs(specs map[string]*AttrSpec) (map[string]*Attribute, []string) {
	attrs := map[string]*Attribute{}
	var order []string
	for _, name := range sortedKeys(specs) {
		spec := specs[name]
		attrs[name] = &Attribute{
			name:       name,
			hasDefault: spec.HasDefault,
			defaultVal: spec.Default,
			validate:   spec.Validate,
		}
		order = append(order, name)
	}
	return attrs, order
}

func sortedKeys(specs map[string]*AttrSpec) []string {
	keys := make([]string, 0, len(specs))
	for name := range specs {
		keys = append(keys, name)
	}
	// map iteration order is random; attribute handling must be stable
	sort.Strings(keys)
	return keys
}

// gatherMarks expands a list of mark names or group names into mark types,
// in mark-table rank order for group expansions.
func gatherMarks(schema *Schema, names []string) ([]*MarkType, error) {
	var found []*MarkType
	for _, name := range names {
		if mt, ok := schema.Marks[name]; ok {
			found = append(found, mt)
			continue
		}
		matched := false
		for _, ms := range schema.Spec.Marks {
			mt := schema.Marks[ms.Name]
			if name == "_" || mt.isInGroup(name) {
				found = append(found, mt)
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: unknown mark type %q", ErrUnknownType, name)
		}
	}
	return found, nil
}

// NodeType looks up a node type by name.
func (s *Schema) NodeType(name string) (*NodeType, error) {
	typ, ok := s.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown node type %q", ErrUnknownType, name)
	}
	return typ, nil
}

// MarkType looks up a mark type by name.
func (s *Schema) MarkType(name string) (*MarkType, error) {
	typ, ok := s.Marks[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mark type %q", ErrUnknownType, name)
	}
	return typ, nil
}

// Node builds a checked node of the named type.
func (s *Schema) Node(typeName string, attrs AttrMap, content *Fragment, marks ...*Mark) (*Node, error) {
	typ, err := s.NodeType(typeName)
	if err != nil {
		return nil, err
	}
	return typ.CreateChecked(attrs, content, MarkSetFrom(marks...))
}

// Text builds a text node with the given marks.
func (s *Schema) Text(text string, marks ...*Mark) *Node {
	return newTextNode(s.Nodes["text"], AttrMap{}, text, MarkSetFrom(marks...))
}

// Mark builds a mark of the named type, panicking on unknown names or
// invalid attributes. Intended for schema-static marks.
func (s *Schema) Mark(typeName string, attrs AttrMap) *Mark {
	typ, err := s.MarkType(typeName)
	if err != nil {
		panic(err)
	}
	mark, err := typ.Create(attrs)
	if err != nil {
		panic(err)
	}
	return mark
}

// Cached returns the value stored under the key in the schema's derived-
// artifact cache, computing and storing it on first use. Safe for
// concurrent use.
func (s *Schema) Cached(key string, compute func() any) any {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if v, ok := s.cached[key]; ok {
		return v
	}
	v := compute()
	if s.cached == nil {
		s.cached = map[string]any{}
	}
	s.cached[key] = v
	return v
}
