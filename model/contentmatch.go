package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// ContentMatch is one state of the deterministic automaton compiled from a
// node type's content expression. The entry state for a type is available
// as NodeType.ContentMatch; successor states are reached by matching child
// node types one at a time.
//
// States are interned during compilation: two expressions that produce
// structurally identical automata share state values. All fields are frozen
// after schema construction except the wrapping cache, which is guarded by
// a mutex.
type ContentMatch struct {
	// ValidEnd reports whether this state is a valid end of the content
	// expression, i.e. the children matched so far form complete content.
	ValidEnd bool

	next []MatchEdge

	wrapMu    sync.Mutex
	wrapCache map[*NodeType]wrapResult
}

// MatchEdge is a single outgoing transition of a ContentMatch state.
type MatchEdge struct {
	Type *NodeType
	Next *ContentMatch
}

type wrapResult struct {
	types []*NodeType
	ok    bool
}

// EmptyContentMatch is the match state for the empty expression.
var EmptyContentMatch = &ContentMatch{ValidEnd: true}

// MatchType matches a single node type, returning the successor state or
// nil when the type cannot occur here.
func (m *ContentMatch) MatchType(typ *NodeType) *ContentMatch {
	for _, edge := range m.next {
		if edge.Type == typ {
			return edge.Next
		}
	}
	return nil
}

// MatchFragment matches the fragment's children between the two indices
// against this state, returning the resulting state or nil on mismatch.
// Negative end means the fragment's child count.
func (m *ContentMatch) MatchFragment(frag *Fragment, start, end int) *ContentMatch {
	if end < 0 {
		end = frag.ChildCount()
	}
	cur := m
	for i := start; cur != nil && i < end; i++ {
		cur = cur.MatchType(frag.Child(i).Type)
	}
	return cur
}

// inlineContent reports whether this state's edges lead over inline types.
func (m *ContentMatch) inlineContent() bool {
	return len(m.next) > 0 && m.next[0].Type.IsInline()
}

// DefaultType returns the first node type at this state that can be
// generated without outside input (not text, no required attributes).
func (m *ContentMatch) DefaultType() *NodeType {
	for _, edge := range m.next {
		if !edge.Type.isText() && !edge.Type.hasRequiredAttrs() {
			return edge.Type
		}
	}
	return nil
}

// Compatible reports whether the two states share at least one node type
// among their transitions.
func (m *ContentMatch) Compatible(other *ContentMatch) bool {
	for _, a := range m.next {
		for _, b := range other.next {
			if a.Type == b.Type {
				return true
			}
		}
	}
	return false
}

// FillBefore synthesizes the minimal sequence of generatable nodes needed
// at this state so that the given fragment (from startIndex on) becomes
// matchable. When toEnd is set the combined content must also end in a
// valid state. Returns nil, false when no such sequence exists.
func (m *ContentMatch) FillBefore(after *Fragment, toEnd bool, startIndex int) (*Fragment, bool) {
	seen := []*ContentMatch{m}
	var search func(match *ContentMatch, types []*NodeType) (*Fragment, bool)
	search = func(match *ContentMatch, types []*NodeType) (*Fragment, bool) {
		finished := match.MatchFragment(after, startIndex, -1)
		if finished != nil && (!toEnd || finished.ValidEnd) {
			nodes := make([]*Node, 0, len(types))
			for _, typ := range types {
				node := typ.CreateAndFill(nil, nil, nil)
				if node == nil {
					return nil, false
				}
				nodes = append(nodes, node)
			}
			return FragmentFrom(nodes...), true
		}
		for _, edge := range match.next {
			if edge.Type.isText() || edge.Type.hasRequiredAttrs() {
				continue
			}
			if containsMatch(seen, edge.Next) {
				continue
			}
			seen = append(seen, edge.Next)
			if found, ok := search(edge.Next, append(types[:len(types):len(types)], edge.Type)); ok {
				return found, true
			}
		}
		return nil, false
	}
	return search(m, nil)
}

// FindWrapping returns a chain of node types that can be wrapped around
// content of the given type to make it fit at this state, or nil, false
// when no such chain exists. An empty chain means the type fits directly.
// Results are memoized per state and target type.
func (m *ContentMatch) FindWrapping(target *NodeType) ([]*NodeType, bool) {
	m.wrapMu.Lock()
	defer m.wrapMu.Unlock()
	if cached, ok := m.wrapCache[target]; ok {
		return cached.types, cached.ok
	}
	types, ok := m.computeWrapping(target)
	if m.wrapCache == nil {
		m.wrapCache = make(map[*NodeType]wrapResult)
	}
	m.wrapCache[target] = wrapResult{types: types, ok: ok}
	return types, ok
}

type wrapStep struct {
	match *ContentMatch
	typ   *NodeType
	via   *wrapStep
}

// computeWrapping does a breadth-first search over generatable wrapper
// types, keeping the schema's declared edge order as the tie-break.
func (m *ContentMatch) computeWrapping(target *NodeType) ([]*NodeType, bool) {
	seen := map[string]bool{}
	active := []*wrapStep{{match: m}}
	for len(active) > 0 {
		current := active[0]
		active = active[1:]
		if current.match.MatchType(target) != nil {
			var result []*NodeType
			for obj := current; obj.typ != nil; obj = obj.via {
				result = append(result, obj.typ)
			}
			reverseTypes(result)
			return result, true
		}
		for _, edge := range current.match.next {
			typ := edge.Type
			if typ.IsLeaf() || typ.hasRequiredAttrs() || seen[typ.Name] {
				continue
			}
			if current.typ != nil && !edge.Next.ValidEnd {
				continue
			}
			active = append(active, &wrapStep{match: typ.ContentMatch, typ: typ, via: current})
			seen[typ.Name] = true
		}
	}
	return nil, false
}

// EdgeCount returns the number of outgoing transitions.
func (m *ContentMatch) EdgeCount() int { return len(m.next) }

// Edge returns the i-th outgoing transition.
func (m *ContentMatch) Edge(i int) MatchEdge {
	if i < 0 || i >= len(m.next) {
		panic(fmt.Sprintf("model: content match edge %d out of range (%d edges)", i, len(m.next)))
	}
	return m.next[i]
}

// String returns a debugging dump of the automaton reachable from here.
func (m *ContentMatch) String() string {
	var seen []*ContentMatch
	var scan func(state *ContentMatch)
	scan = func(state *ContentMatch) {
		seen = append(seen, state)
		for _, edge := range state.next {
			if !containsMatch(seen, edge.Next) {
				scan(edge.Next)
			}
		}
	}
	scan(m)
	var b strings.Builder
	for i, state := range seen {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d%s", i, map[bool]string{true: "*", false: " "}[state.ValidEnd])
		for j, edge := range state.next {
			if j > 0 {
				b.WriteString(", ")
			} else {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s->%d", edge.Type.Name, indexOfMatch(seen, edge.Next))
		}
	}
	return b.String()
}

func containsMatch(set []*ContentMatch, m *ContentMatch) bool {
	return indexOfMatch(set, m) >= 0
}

func indexOfMatch(set []*ContentMatch, m *ContentMatch) int {
	for i, s := range set {
		if s == m {
			return i
		}
	}
	return -1
}

func reverseTypes(ts []*NodeType) {
	for i, j := 0, len(ts)-1; i < j; i, j = i+1, j-1 {
		ts[i], ts[j] = ts[j], ts[i]
	}
}

// --- content expression parsing ---

// tokenStream tokenizes a content expression. Word characters group into
// name tokens; every other non-space character is its own token.
type tokenStream struct {
	expr      string
	tokens    []string
	pos       int
	nodeTypes map[string]*NodeType
}

func newTokenStream(expr string, nodeTypes map[string]*NodeType) *tokenStream {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return &tokenStream{expr: expr, tokens: tokens, nodeTypes: nodeTypes}
}

func (s *tokenStream) current() string {
	if s.pos < len(s.tokens) {
		return s.tokens[s.pos]
	}
	return ""
}

func (s *tokenStream) eat(tok string) bool {
	if s.current() == tok {
		s.pos++
		return true
	}
	return false
}

func (s *tokenStream) errf(format string, args ...any) error {
	return fmt.Errorf("%w: %s (in content expression %q)", ErrInvalidExpr, fmt.Sprintf(format, args...), s.expr)
}

// expression AST

type exprKind uint8

const (
	exprChoice exprKind = iota
	exprSeq
	exprStar
	exprPlus
	exprOpt
	exprRange
	exprName
)

type contentExpr struct {
	kind     exprKind
	exprs    []*contentExpr // choice, seq
	expr     *contentExpr   // star, plus, opt, range
	min, max int            // range; max < 0 means unbounded
	value    *NodeType      // name
}

func parseExpr(s *tokenStream) (*contentExpr, error) {
	var exprs []*contentExpr
	for {
		next, err := parseExprSeq(s)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
		if !s.eat("|") {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &contentExpr{kind: exprChoice, exprs: exprs}, nil
}

func parseExprSeq(s *tokenStream) (*contentExpr, error) {
	var exprs []*contentExpr
	for {
		cur := s.current()
		if cur == "" || cur == ")" || cur == "|" {
			break
		}
		next, err := parseExprSubscript(s)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	if len(exprs) == 0 {
		return nil, s.errf("unexpected end of sequence")
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &contentExpr{kind: exprSeq, exprs: exprs}, nil
}

func parseExprSubscript(s *tokenStream) (*contentExpr, error) {
	expr, err := parseExprAtom(s)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case s.eat("+"):
			expr = &contentExpr{kind: exprPlus, expr: expr}
		case s.eat("*"):
			expr = &contentExpr{kind: exprStar, expr: expr}
		case s.eat("?"):
			expr = &contentExpr{kind: exprOpt, expr: expr}
		case s.eat("{"):
			expr, err = parseExprRange(s, expr)
			if err != nil {
				return nil, err
			}
		default:
			return expr, nil
		}
	}
}

func parseNum(s *tokenStream) (int, error) {
	tok := s.current()
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, s.errf("expected number, got %q", tok)
	}
	s.pos++
	return n, nil
}

func parseExprRange(s *tokenStream, expr *contentExpr) (*contentExpr, error) {
	min, err := parseNum(s)
	if err != nil {
		return nil, err
	}
	max := min
	if s.eat(",") {
		if s.current() != "}" {
			max, err = parseNum(s)
			if err != nil {
				return nil, err
			}
		} else {
			max = -1
		}
	}
	if !s.eat("}") {
		return nil, s.errf("unclosed braced range")
	}
	return &contentExpr{kind: exprRange, min: min, max: max, expr: expr}, nil
}

func parseExprAtom(s *tokenStream) (*contentExpr, error) {
	if s.eat("(") {
		expr, err := parseExpr(s)
		if err != nil {
			return nil, err
		}
		if !s.eat(")") {
			return nil, s.errf("missing closing paren")
		}
		return expr, nil
	}
	name := s.current()
	if name == "" || !isWord(name) {
		return nil, s.errf("unexpected token %q", name)
	}
	s.pos++
	types, err := resolveName(s, name)
	if err != nil {
		return nil, err
	}
	if len(types) == 1 {
		return &contentExpr{kind: exprName, value: types[0]}, nil
	}
	exprs := make([]*contentExpr, len(types))
	for i, typ := range types {
		exprs[i] = &contentExpr{kind: exprName, value: typ}
	}
	return &contentExpr{kind: exprChoice, exprs: exprs}, nil
}

func isWord(tok string) bool {
	for _, r := range tok {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return len(tok) > 0
}

// resolveName expands a name token into the node types it denotes: a type
// name names that one type; a group name names every member, in schema
// declaration order.
func resolveName(s *tokenStream, name string) ([]*NodeType, error) {
	if typ, ok := s.nodeTypes[name]; ok {
		return []*NodeType{typ}, nil
	}
	var result []*NodeType
	for _, typ := range sortedTypes(s.nodeTypes) {
		if typ.isInGroup(name) {
			result = append(result, typ)
		}
	}
	if len(result) == 0 {
		return nil, s.errf("no node type or group %q found", name)
	}
	return result, nil
}

// sortedTypes returns the schema's node types in declaration order.
func sortedTypes(types map[string]*NodeType) []*NodeType {
	list := make([]*NodeType, 0, len(types))
	for _, typ := range types {
		list = append(list, typ)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].order < list[j].order })
	return list
}

// --- NFA construction and determinization ---

type nfaEdge struct {
	term *NodeType // nil for a null edge
	to   int       // -1 while dangling
}

type nfaGraph struct {
	nodes [][]*nfaEdge
}

func (g *nfaGraph) node() int {
	g.nodes = append(g.nodes, nil)
	return len(g.nodes) - 1
}

func (g *nfaGraph) edge(from int, term *NodeType, to int) *nfaEdge {
	e := &nfaEdge{term: term, to: to}
	g.nodes[from] = append(g.nodes[from], e)
	return e
}

func connect(edges []*nfaEdge, to int) []*nfaEdge {
	for _, e := range edges {
		e.to = to
	}
	return edges
}

// buildNFA compiles an expression AST into an NFA with null edges. The
// accepting state is the last node created.
func buildNFA(expr *contentExpr) *nfaGraph {
	g := &nfaGraph{}
	g.node()
	dangling := compileExpr(g, expr, 0)
	accept := g.node()
	connect(dangling, accept)
	return g
}

func compileExpr(g *nfaGraph, expr *contentExpr, from int) []*nfaEdge {
	switch expr.kind {
	case exprChoice:
		var out []*nfaEdge
		for _, sub := range expr.exprs {
			out = append(out, compileExpr(g, sub, from)...)
		}
		return out
	case exprSeq:
		cur := from
		for i, sub := range expr.exprs {
			next := compileExpr(g, sub, cur)
			if i == len(expr.exprs)-1 {
				return next
			}
			cur = g.node()
			connect(next, cur)
		}
		panic("unreachable")
	case exprStar:
		loop := g.node()
		g.edge(from, nil, loop)
		connect(compileExpr(g, expr.expr, loop), loop)
		return []*nfaEdge{g.edge(loop, nil, -1)}
	case exprPlus:
		loop := g.node()
		connect(compileExpr(g, expr.expr, from), loop)
		connect(compileExpr(g, expr.expr, loop), loop)
		return []*nfaEdge{g.edge(loop, nil, -1)}
	case exprOpt:
		return append([]*nfaEdge{g.edge(from, nil, -1)}, compileExpr(g, expr.expr, from)...)
	case exprRange:
		cur := from
		for i := 0; i < expr.min; i++ {
			next := g.node()
			connect(compileExpr(g, expr.expr, cur), next)
			cur = next
		}
		if expr.max < 0 {
			connect(compileExpr(g, expr.expr, cur), cur)
		} else {
			for i := expr.min; i < expr.max; i++ {
				next := g.node()
				g.edge(cur, nil, next)
				connect(compileExpr(g, expr.expr, cur), next)
				cur = next
			}
		}
		return []*nfaEdge{g.edge(cur, nil, -1)}
	case exprName:
		return []*nfaEdge{g.edge(from, expr.value, -1)}
	default:
		panic("unknown content expression kind")
	}
}

// nullFrom computes the set of nodes reachable from the given node through
// null edges, sorted descending for a stable interning key.
func nullFrom(g *nfaGraph, node int) []int {
	var result []int
	var scan func(n int)
	scan = func(n int) {
		edges := g.nodes[n]
		if len(edges) == 1 && edges[0].term == nil {
			scan(edges[0].to)
			return
		}
		result = append(result, n)
		for _, e := range edges {
			if e.term == nil && !containsInt(result, e.to) {
				scan(e.to)
			}
		}
	}
	scan(node)
	sort.Sort(sort.Reverse(sort.IntSlice(result)))
	return result
}

// buildDFA converts the NFA into a ContentMatch graph through subset
// construction, interning states by their sorted subset key.
func buildDFA(g *nfaGraph) *ContentMatch {
	labeled := map[string]*ContentMatch{}
	accept := len(g.nodes) - 1
	var explore func(states []int) *ContentMatch
	explore = func(states []int) *ContentMatch {
		state := &ContentMatch{ValidEnd: containsInt(states, accept)}
		labeled[intKey(states)] = state
		var terms []*NodeType
		sets := map[*NodeType][]int{}
		for _, n := range states {
			for _, e := range g.nodes[n] {
				if e.term == nil {
					continue
				}
				if _, seen := sets[e.term]; !seen {
					terms = append(terms, e.term)
				}
				for _, target := range nullFrom(g, e.to) {
					if !containsInt(sets[e.term], target) {
						sets[e.term] = append(sets[e.term], target)
					}
				}
			}
		}
		for _, term := range terms {
			set := sets[term]
			sort.Sort(sort.Reverse(sort.IntSlice(set)))
			next, ok := labeled[intKey(set)]
			if !ok {
				next = explore(set)
			}
			state.next = append(state.next, MatchEdge{Type: term, Next: next})
		}
		return state
	}
	return explore(nullFrom(g, 0))
}

func containsInt(set []int, n int) bool {
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}

func intKey(set []int) string {
	var b strings.Builder
	for i, n := range set {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// parseContentMatch compiles a content expression string into the entry
// state of its deterministic automaton.
func parseContentMatch(expr string, nodeTypes map[string]*NodeType) (*ContentMatch, error) {
	if strings.TrimSpace(expr) == "" {
		return EmptyContentMatch, nil
	}
	stream := newTokenStream(expr, nodeTypes)
	ast, err := parseExpr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, stream.errf("unexpected trailing token %q", stream.current())
	}
	match := buildDFA(buildNFA(ast))
	if err := checkForDeadEnds(match, stream); err != nil {
		return nil, err
	}
	return match, nil
}

// checkForDeadEnds rejects expressions with a required position that only
// non-generatable types (text, or types with required attributes) can fill.
func checkForDeadEnds(match *ContentMatch, stream *tokenStream) error {
	work := []*ContentMatch{match}
	for i := 0; i < len(work); i++ {
		state := work[i]
		dead := !state.ValidEnd
		var names []string
		for _, edge := range state.next {
			names = append(names, edge.Type.Name)
			if dead && !edge.Type.isText() && !edge.Type.hasRequiredAttrs() {
				dead = false
			}
			if !containsMatch(work, edge.Next) {
				work = append(work, edge.Next)
			}
		}
		if dead {
			return stream.errf("only non-generatable nodes (%s) in a required position", strings.Join(names, ", "))
		}
	}
	return nil
}
