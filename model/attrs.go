package model

import "reflect"

// AttrMap holds the attributes of a node or mark. Values are scalars or
// plain JSON-shaped data; the schema's attribute descriptors constrain them.
// An AttrMap is never mutated after the node or mark owning it is built.
type AttrMap map[string]any

// attrsEqual reports whether two attribute maps hold the same entries.
func attrsEqual(a, b AttrMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}
