package model

// Shared schema and document builders for the package tests: a small
// rich-text schema with block nodes (paragraph, heading, blockquote,
// code_block, horizontal_rule), inline text and images, and three marks.

func strOf(s string) *string { return &s }
func boolOf(b bool) *bool    { return &b }

var basic = MustSchema(&SchemaSpec{
	Nodes: []*NodeSpec{
		{Name: "doc", Content: "block+"},
		{Name: "paragraph", Content: "inline*", Group: "block"},
		{Name: "heading", Content: "inline*", Group: "block",
			Attrs: map[string]*AttrSpec{"level": {Default: float64(1), HasDefault: true}}},
		{Name: "blockquote", Content: "block+", Group: "block"},
		{Name: "horizontal_rule", Group: "block"},
		{Name: "code_block", Content: "text*", Group: "block", Marks: strOf("")},
		{Name: "text", Group: "inline"},
		{Name: "image", Group: "inline", Inline: true,
			Attrs: map[string]*AttrSpec{"src": {}}},
	},
	Marks: []*MarkSpec{
		{Name: "link", Attrs: map[string]*AttrSpec{"href": {}}, Inclusive: boolOf(false)},
		{Name: "em"},
		{Name: "strong"},
	},
})

func block(typeName string, children ...*Node) *Node {
	node, err := basic.Node(typeName, nil, FragmentFrom(children...))
	if err != nil {
		panic(err)
	}
	return node
}

func doc(children ...*Node) *Node { return block("doc", children...) }
func p(children ...*Node) *Node   { return block("paragraph", children...) }
func h(children ...*Node) *Node   { return block("heading", children...) }
func bq(children ...*Node) *Node  { return block("blockquote", children...) }
func hr() *Node                   { return block("horizontal_rule") }

func txt(text string, marks ...*Mark) *Node { return basic.Text(text, marks...) }

func img(src string) *Node {
	node, err := basic.Nodes["image"].Create(AttrMap{"src": src}, nil, nil)
	if err != nil {
		panic(err)
	}
	return node
}

func em() *Mark              { return basic.Mark("em", nil) }
func strong() *Mark          { return basic.Mark("strong", nil) }
func link(href string) *Mark { return basic.Mark("link", AttrMap{"href": href}) }
