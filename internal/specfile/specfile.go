// Package specfile loads document schema specs from TOML or JSON files
// and translates them into model.SchemaSpec tables.
//
// The file format mirrors the in-memory spec: an ordered list of node
// specs, an ordered list of mark specs, and an optional top node name.
//
//	top_node = "doc"
//
//	[[nodes]]
//	name = "doc"
//	content = "block+"
//
//	[[nodes]]
//	name = "paragraph"
//	content = "inline*"
//	group = "block"
//
//	[[nodes]]
//	name = "text"
//	inline = true
//	group = "inline"
//
//	[[marks]]
//	name = "em"
//
// Attribute validators cannot be expressed in a file; specs that need
// them are built in code.
package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"

	"github.com/dshills/treedoc/model"
)

// Load reads a schema spec from the given path, choosing the format by
// file extension (.toml, .json).
func Load(path string) (*model.SchemaSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema spec %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("schema spec %s: unsupported format %q", path, filepath.Ext(path))
	}
}

// ParseTOML parses a schema spec from TOML data.
func ParseTOML(data []byte) (*model.SchemaSpec, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing schema spec TOML: %w", err)
	}
	return fromRaw(raw)
}

// ParseJSON parses a schema spec from JSON data.
func ParseJSON(data []byte) (*model.SchemaSpec, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing schema spec JSON: malformed document")
	}
	value, ok := gjson.ParseBytes(data).Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parsing schema spec JSON: top level is not an object")
	}
	return fromRaw(value)
}

func fromRaw(raw map[string]any) (*model.SchemaSpec, error) {
	spec := &model.SchemaSpec{}
	if top, ok := raw["top_node"].(string); ok {
		spec.TopNode = top
	}
	nodes, err := rawList(raw, "nodes")
	if err != nil {
		return nil, err
	}
	for i, entry := range nodes {
		ns, err := nodeSpecFromRaw(entry)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		spec.Nodes = append(spec.Nodes, ns)
	}
	marks, err := rawList(raw, "marks")
	if err != nil {
		return nil, err
	}
	for i, entry := range marks {
		ms, err := markSpecFromRaw(entry)
		if err != nil {
			return nil, fmt.Errorf("marks[%d]: %w", i, err)
		}
		spec.Marks = append(spec.Marks, ms)
	}
	return spec, nil
}

func rawList(raw map[string]any, key string) ([]map[string]any, error) {
	value, ok := raw[key]
	if !ok {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not a list", key)
	}
	entries := make([]map[string]any, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a table", key, i)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func nodeSpecFromRaw(raw map[string]any) (*model.NodeSpec, error) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("node spec without a name")
	}
	ns := &model.NodeSpec{Name: name}
	ns.Content, _ = raw["content"].(string)
	ns.Group, _ = raw["group"].(string)
	ns.Inline, _ = raw["inline"].(bool)
	ns.Atom, _ = raw["atom"].(bool)
	ns.Isolating, _ = raw["isolating"].(bool)
	if marks, ok := raw["marks"].(string); ok {
		ns.Marks = &marks
	}
	attrs, err := attrSpecsFromRaw(raw)
	if err != nil {
		return nil, err
	}
	ns.Attrs = attrs
	return ns, nil
}

func markSpecFromRaw(raw map[string]any) (*model.MarkSpec, error) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("mark spec without a name")
	}
	ms := &model.MarkSpec{Name: name}
	ms.Group, _ = raw["group"].(string)
	if excludes, ok := raw["excludes"].(string); ok {
		ms.Excludes = &excludes
	}
	if inclusive, ok := raw["inclusive"].(bool); ok {
		ms.Inclusive = &inclusive
	}
	attrs, err := attrSpecsFromRaw(raw)
	if err != nil {
		return nil, err
	}
	ms.Attrs = attrs
	return ms, nil
}

func attrSpecsFromRaw(raw map[string]any) (map[string]*model.AttrSpec, error) {
	value, ok := raw["attrs"]
	if !ok {
		return nil, nil
	}
	table, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("attrs is not a table")
	}
	attrs := map[string]*model.AttrSpec{}
	for name, item := range table {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("attrs.%s is not a table", name)
		}
		spec := &model.AttrSpec{}
		if def, present := entry["default"]; present {
			spec.Default = def
			spec.HasDefault = true
		}
		attrs[name] = spec
	}
	return attrs, nil
}
