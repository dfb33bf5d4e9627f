// Package router implements the radix-style route trie: static segments,
// typed dynamic segments (<id:uint>, <int>, <string>, <uuid>; a bare
// <name> is a string parameter), and a
// trailing wildcard '*', plus PushGroup/PopGroup nesting for prefix
// groups. Adapted from the teacher's mux package shape, generalized to a
// generic handler type and grounded on the original route_trie/route_segment
// C++ sources for matching order and wildcard semantics.
package router

import (
	"strings"

	"github.com/google/uuid"
)

// ParamType is the type a dynamic segment decodes to.
type ParamType uint8

const (
	ParamUnknown ParamType = iota
	ParamUint
	ParamInt
	ParamString
	ParamUUID
)

func (t ParamType) String() string {
	switch t {
	case ParamUint:
		return "uint"
	case ParamInt:
		return "int"
	case ParamString:
		return "string"
	case ParamUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// Param is one matched dynamic-segment value. Only the field matching Type
// is meaningful.
type Param struct {
	Type ParamType
	Uint uint64
	Int  int64
	Str  string
	UUID uuid.UUID
}

type edge[H any] struct {
	isStatic  bool
	static    string
	paramType ParamType
	child     *node[H]
}

type node[H any] struct {
	children   []*edge[H]
	handler    H
	hasHandler bool
}

// RouteHandle is the opaque identity of one trie node, returned by Insert
// and Match so callers (the middleware registry) can key per-route state
// the same way the original keys per-route middleware off a TrieNode*.
type RouteHandle = any

// Trie is one method's route tree (the teacher/original keep one Trie per
// HTTP method rather than branching on method inside a single tree).
type Trie[H any] struct {
	root         node[H]
	insertCursor *node[H]
	cursorStack  []*node[H]
}

// New returns an empty trie ready for Insert.
func New[H any]() *Trie[H] {
	t := &Trie[H]{}
	t.insertCursor = &t.root
	return t
}

// Insert registers handler for fullRoute ("/a/<id:uint>/b"), creating
// intermediate nodes as needed under the current group cursor.
func (t *Trie[H]) Insert(fullRoute string, handler H) RouteHandle {
	n := t.insertRoute(fullRoute)
	n.handler = handler
	n.hasHandler = true
	return n
}

// Match walks requestPath against the trie, returning the matched node's
// handler, its route handle, and the dynamic segments captured along the
// way, in path order. At each depth an exact static child is preferred;
// otherwise the wildcard and typed-parameter children are tried in
// registration order and the first that matches wins.
func (t *Trie[H]) Match(requestPath string) (handler H, handle RouteHandle, params []Param, ok bool) {
	current := &t.root
	remaining := stripLeadingSlash(requestPath)

	for len(remaining) > 0 {
		segment, rest := splitFirstSegment(remaining)
		remaining = rest

		var next *node[H]
		var candidate Param
		matched := false

		for _, e := range current.children {
			if e.isStatic && e.static != "*" && e.static == segment {
				next = e.child
				matched = true
				break
			}
		}

		for _, e := range current.children {
			if matched {
				break
			}
			if e.isStatic {
				if e.static == "*" {
					captured := segment
					if len(remaining) > 0 {
						captured = segment + "/" + remaining
					}
					params = append(params, Param{Type: ParamString, Str: captured})
					remaining = ""
					next = e.child
					matched = true
					break
				}
				if e.static == segment {
					next = e.child
					matched = true
					break
				}
				continue
			}

			switch e.paramType {
			case ParamUint:
				v, ok2 := parseUint(segment)
				if !ok2 {
					continue
				}
				candidate = Param{Type: ParamUint, Uint: v}
			case ParamInt:
				v, ok2 := parseInt(segment)
				if !ok2 {
					continue
				}
				candidate = Param{Type: ParamInt, Int: v}
			case ParamUUID:
				v, err := uuid.Parse(segment)
				if err != nil {
					continue
				}
				candidate = Param{Type: ParamUUID, UUID: v}
			case ParamString:
				candidate = Param{Type: ParamString, Str: segment}
			default:
				var zero H
				return zero, nil, nil, false
			}

			next = e.child
			matched = true
			params = append(params, candidate)
			break
		}

		if !matched || next == nil {
			var zero H
			return zero, nil, nil, false
		}
		current = next
	}

	if !current.hasHandler {
		var zero H
		return zero, nil, nil, false
	}
	return current.handler, current, params, true
}

// PushGroup redirects subsequent Insert calls under prefix, remembering
// the current cursor so PopGroup can restore it.
func (t *Trie[H]) PushGroup(prefix string) {
	t.cursorStack = append(t.cursorStack, t.insertCursor)
	t.insertCursor = t.insertRoute(prefix)
}

// PopGroup restores the cursor from before the matching PushGroup. Calling
// it with no corresponding PushGroup is a programming error, per the
// original's Logger::Fatal, and panics rather than returning an error.
func (t *Trie[H]) PopGroup() {
	if len(t.cursorStack) == 0 {
		panic("router: PopGroup called without corresponding PushGroup")
	}
	t.insertCursor = t.cursorStack[len(t.cursorStack)-1]
	t.cursorStack = t.cursorStack[:len(t.cursorStack)-1]
}

func (t *Trie[H]) insertRoute(route string) *node[H] {
	current := t.insertCursor
	remaining := stripLeadingSlash(route)

	for len(remaining) > 0 {
		segment, rest := splitFirstSegment(remaining)
		remaining = rest

		var next *node[H]

		if isDynamicSegment(segment) {
			paramType := parseParamType(segment)
			if paramType == ParamUnknown {
				panic("router: unknown parameter type in segment " + segment)
			}
			n := &node[H]{}
			current.children = append(current.children, &edge[H]{paramType: paramType, child: n})
			next = n
		} else {
			found := false
			for _, e := range current.children {
				if e.isStatic && e.static == segment {
					next = e.child
					found = true
					break
				}
			}
			if !found {
				n := &node[H]{}
				current.children = append(current.children, &edge[H]{isStatic: true, static: segment, child: n})
				next = n
				if segment == "*" && remaining != "" {
					panic("router: wildcard '*' must be the last segment in a route")
				}
			}
		}

		current = next
	}

	return current
}

func stripLeadingSlash(s string) string {
	if strings.HasPrefix(s, "/") {
		return s[1:]
	}
	return s
}

func splitFirstSegment(s string) (segment, rest string) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func isDynamicSegment(segment string) bool {
	return len(segment) >= 2 && segment[0] == '<' && segment[len(segment)-1] == '>'
}

func parseParamType(segment string) ParamType {
	if len(segment) <= 2 {
		panic("router: empty parameter segment: " + segment)
	}
	inner := segment[1 : len(segment)-1]
	typeName := inner
	colon := strings.IndexByte(inner, ':')
	if colon >= 0 {
		if colon == 0 || colon == len(inner)-1 {
			panic("router: malformed dynamic segment: " + segment)
		}
		typeName = inner[colon+1:]
	}
	switch typeName {
	case "uint":
		return ParamUint
	case "int":
		return ParamInt
	case "uuid":
		return ParamUUID
	case "string":
		return ParamString
	default:
		if colon < 0 {
			// A bare "<name>" with no type is a string parameter.
			return ParamString
		}
		return ParamUnknown
	}
}

func parseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	return v, true
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	i := 0
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		i = 1
		if i == len(s) {
			return 0, false
		}
	}
	var v int64
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, true
}
