package transform

import "fmt"

// Mappable is anything that can translate document positions from before
// a change to after it. Consumers holding positions into an older document
// version (selections, bookmarks, decorations) use a Mappable to stay
// valid across edits.
type Mappable interface {
	// Map translates a position. assoc determines which side the
	// position associates with when content is inserted exactly at it:
	// negative keeps it before the insertion, positive after.
	Map(pos, assoc int) int

	// MapResult translates a position and also reports what was deleted
	// around it.
	MapResult(pos, assoc int) MapResult
}

// Deletion detail bits in MapResult.
const (
	delBefore = 1 << iota
	delAfter
	delAcross
	delSide
)

// MapResult is a mapped position plus information about the content that
// was deleted around the original position.
type MapResult struct {
	// Pos is the mapped position.
	Pos int

	delInfo int
	recover recoverValue
}

type recoverValue struct {
	ok     bool
	index  int
	offset int
}

// Deleted reports whether the position was inside content that the
// mapped-through change deleted on its associated side.
func (r MapResult) Deleted() bool { return r.delInfo&delSide > 0 }

// DeletedBefore reports whether content directly before the position was
// deleted.
func (r MapResult) DeletedBefore() bool { return r.delInfo&(delBefore|delAcross) > 0 }

// DeletedAfter reports whether content directly after the position was
// deleted.
func (r MapResult) DeletedAfter() bool { return r.delInfo&(delAfter|delAcross) > 0 }

// DeletedAcross reports whether the position was inside a fully deleted
// range.
func (r MapResult) DeletedAcross() bool { return r.delInfo&delAcross > 0 }

// StepMap encodes the position changes one step produced, as a run-length
// list of (start, oldSize, newSize) chunks.
type StepMap struct {
	ranges   []int
	inverted bool
}

// EmptyStepMap is the map of a step that moved no positions.
var EmptyStepMap = &StepMap{}

// NewStepMap builds a step map from (start, oldSize, newSize) triples.
func NewStepMap(ranges []int) *StepMap {
	if len(ranges)%3 != 0 {
		panic("transform: step map ranges must come in triples")
	}
	if len(ranges) == 0 {
		return EmptyStepMap
	}
	return &StepMap{ranges: ranges}
}

// Invert returns a map that undoes this one's position changes.
func (m *StepMap) Invert() *StepMap {
	if len(m.ranges) == 0 {
		return EmptyStepMap
	}
	return &StepMap{ranges: m.ranges, inverted: !m.inverted}
}

// Map translates a position through the step map.
func (m *StepMap) Map(pos, assoc int) int {
	result, _ := m.mapInner(pos, assoc, true)
	return result.Pos
}

// MapResult translates a position and reports surrounding deletions.
func (m *StepMap) MapResult(pos, assoc int) MapResult {
	result, _ := m.mapInner(pos, assoc, false)
	return result
}

func (m *StepMap) oldIndex() int {
	if m.inverted {
		return 2
	}
	return 1
}

func (m *StepMap) newIndex() int {
	if m.inverted {
		return 1
	}
	return 2
}

func (m *StepMap) mapInner(pos, assoc int, simple bool) (MapResult, bool) {
	diff := 0
	oldIndex, newIndex := m.oldIndex(), m.newIndex()
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		end := start + oldSize
		if pos <= end {
			var side int
			switch {
			case oldSize == 0:
				side = assoc
			case pos == start:
				side = -1
			case pos == end:
				side = 1
			default:
				side = assoc
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}
			if simple {
				return MapResult{Pos: result}, true
			}
			var rec recoverValue
			boundary := end
			if assoc < 0 {
				boundary = start
			}
			if pos != boundary {
				rec = recoverValue{ok: true, index: i / 3, offset: pos - start}
			}
			del := delAcross
			if pos == start {
				del = delAfter
			} else if pos == end {
				del = delBefore
			}
			if assoc < 0 && pos != start || assoc >= 0 && pos != end {
				del |= delSide
			}
			return MapResult{Pos: result, delInfo: del, recover: rec}, true
		}
		diff += newSize - oldSize
	}
	return MapResult{Pos: pos + diff}, false
}

// recoverPos rebuilds the position inside the chunk a recover value
// points at, used when mapping through a step and its mirror inverse.
func (m *StepMap) recoverPos(rec recoverValue) int {
	diff := 0
	for i := 0; i < rec.index; i++ {
		diff += m.ranges[i*3+m.newIndex()] - m.ranges[i*3+m.oldIndex()]
	}
	return m.ranges[rec.index*3] + diff + rec.offset
}

// ForEach calls fn for every changed chunk with its old and new extent.
func (m *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	oldIndex, newIndex := m.oldIndex(), m.newIndex()
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		oldStart := start
		if m.inverted {
			oldStart -= diff
		}
		newStart := start
		if !m.inverted {
			newStart += diff
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// String returns a debugging representation of the map.
func (m *StepMap) String() string {
	prefix := ""
	if m.inverted {
		prefix = "-"
	}
	return prefix + fmt.Sprint(m.ranges)
}

// Mapping is an ordered pipeline of step maps, able to translate a
// position across a whole sequence of steps. Mirror links connect a step
// map with the map of its inverse so that positions travelling through
// both recover exactly instead of drifting.
type Mapping struct {
	maps   []*StepMap
	mirror map[int]int

	// From and To bound the sub-range of maps this mapping applies.
	From, To int
}

// NewMapping builds a mapping over the given step maps.
func NewMapping(maps []*StepMap) *Mapping {
	return &Mapping{maps: maps, To: len(maps)}
}

// Maps returns the step maps in the mapping.
func (m *Mapping) Maps() []*StepMap { return m.maps }

// Slice returns a mapping that only applies maps in [from, to).
func (m *Mapping) Slice(from, to int) *Mapping {
	return &Mapping{maps: m.maps, mirror: m.mirror, From: from, To: to}
}

// AppendMap adds a step map to the end of the mapping.
func (m *Mapping) AppendMap(stepMap *StepMap) {
	m.maps = append(m.maps, stepMap)
	m.To = len(m.maps)
}

// AppendMapMirrored adds a step map that mirrors the map at the given
// index.
func (m *Mapping) AppendMapMirrored(stepMap *StepMap, mirrors int) {
	m.AppendMap(stepMap)
	m.SetMirror(len(m.maps)-1, mirrors)
}

// AppendMapping appends another mapping's maps, carrying over its mirror
// links.
func (m *Mapping) AppendMapping(other *Mapping) {
	startSize := len(m.maps)
	for i, stepMap := range other.maps {
		if mirr, ok := other.getMirror(i); ok && mirr < i {
			m.AppendMapMirrored(stepMap, startSize+mirr)
		} else {
			m.AppendMap(stepMap)
		}
	}
}

// AppendMappingInverted appends the inverse of another mapping, linking
// each inverted map to its original as a mirror.
func (m *Mapping) AppendMappingInverted(other *Mapping) {
	totalSize := len(m.maps) + len(other.maps)
	for i := len(other.maps) - 1; i >= 0; i-- {
		mirr, ok := other.getMirror(i)
		if ok && mirr > i {
			m.AppendMapMirrored(other.maps[i].Invert(), totalSize-mirr-1)
		} else {
			m.AppendMap(other.maps[i].Invert())
		}
	}
}

// Invert returns a mapping that undoes this one.
func (m *Mapping) Invert() *Mapping {
	inverse := &Mapping{}
	inverse.AppendMappingInverted(m)
	return inverse
}

func (m *Mapping) getMirror(n int) (int, bool) {
	if m.mirror == nil {
		return 0, false
	}
	v, ok := m.mirror[n]
	return v, ok
}

// SetMirror records that the maps at the two indices are inverses of each
// other.
func (m *Mapping) SetMirror(n, other int) {
	if m.mirror == nil {
		m.mirror = map[int]int{}
	}
	m.mirror[n] = other
	m.mirror[other] = n
}

// Map translates a position through the whole mapping.
func (m *Mapping) Map(pos, assoc int) int {
	if m.mirror != nil {
		result := m.mapInner(pos, assoc, true)
		return result.Pos
	}
	for i := m.From; i < m.To; i++ {
		pos = m.maps[i].Map(pos, assoc)
	}
	return pos
}

// MapResult translates a position and reports deletions along the way.
func (m *Mapping) MapResult(pos, assoc int) MapResult {
	return m.mapInner(pos, assoc, false)
}

func (m *Mapping) mapInner(pos, assoc int, simple bool) MapResult {
	delInfo := 0
	for i := m.From; i < m.To; i++ {
		stepMap := m.maps[i]
		result, _ := stepMap.mapInner(pos, assoc, false)
		if result.recover.ok {
			if corr, ok := m.getMirror(i); ok && corr > i && corr < m.To {
				// the inverse undoes this map exactly; skip ahead
				pos = m.maps[corr].recoverPos(result.recover)
				i = corr
				continue
			}
		}
		delInfo |= result.delInfo
		pos = result.Pos
	}
	if simple {
		return MapResult{Pos: pos}
	}
	return MapResult{Pos: pos, delInfo: delInfo}
}
