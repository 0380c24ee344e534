package model

// Mark is a piece of metadata attached to a node, such as emphasis or a
// link. Marks are immutable; a given mark value may be shared between any
// number of nodes.
type Mark struct {
	// Type is the kind of this mark.
	Type *MarkType

	// Attrs holds the attributes attached to this mark instance.
	Attrs AttrMap
}

// NoMarks is the empty mark set.
var NoMarks = []*Mark{}

// Eq reports whether this mark has the same type and attributes as another.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	return m.Type == other.Type && attrsEqual(m.Attrs, other.Attrs)
}

// AddToSet returns a mark set with this mark added to the given set. The
// result keeps marks ordered by their schema rank, replaces an existing mark
// of the same type, and drops marks excluded by the added one. Adding a mark
// that is itself excluded by a member of the set returns the set unchanged.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	var result []*Mark
	copied := false
	placed := false
	for i, other := range set {
		if m.Eq(other) {
			return set
		}
		if m.Type.Excludes(other.Type) {
			if !copied {
				result = append(result, set[:i]...)
				copied = true
			}
			continue
		}
		if other.Type.Excludes(m.Type) {
			return set
		}
		if !placed && other.Type.Rank > m.Type.Rank {
			if !copied {
				result = append(result, set[:i]...)
				copied = true
			}
			result = append(result, m)
			placed = true
		}
		if copied {
			result = append(result, other)
		}
	}
	if !copied {
		result = append(result, set...)
	}
	if !placed {
		result = append(result, m)
	}
	return result
}

// RemoveFromSet returns the given set without any mark equal to this one.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, other := range set {
		if m.Eq(other) {
			result := make([]*Mark, 0, len(set)-1)
			result = append(result, set[:i]...)
			result = append(result, set[i+1:]...)
			return result
		}
	}
	return set
}

// IsInSet reports whether a mark equal to this one is in the given set.
func (m *Mark) IsInSet(set []*Mark) bool {
	for _, other := range set {
		if m.Eq(other) {
			return true
		}
	}
	return false
}

// SameMarkSet reports whether two mark sets contain the same marks in the
// same order.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// MarkSetFrom normalizes its argument into a valid mark set: nil stays the
// empty set, a single mark becomes a one-element set, and a slice is sorted
// and de-duplicated through AddToSet.
func MarkSetFrom(marks ...*Mark) []*Mark {
	switch len(marks) {
	case 0:
		return NoMarks
	case 1:
		return []*Mark{marks[0]}
	default:
		set := NoMarks
		for _, m := range marks {
			set = m.AddToSet(set)
		}
		return set
	}
}
