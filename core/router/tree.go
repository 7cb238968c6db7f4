package router

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/quiverhttp/quiver/core/handler"
)

// methodAny is the endpoint key used for routes registered via Handle,
// which match every HTTP method.
const methodAny = "*"

// Params holds the path parameters captured during route matching, in the
// order their segments appear in the pattern.
type Params struct {
	Keys   []string
	Values []string
}

// Get returns the value captured under the given name, or "" if absent.
func (p *Params) Get(key string) string {
	for i, k := range p.Keys {
		if k == key {
			return p.Values[i]
		}
	}
	return ""
}

func (p *Params) add(key, value string) {
	p.Keys = append(p.Keys, key)
	p.Values = append(p.Values, value)
}

func (p *Params) pop() {
	p.Keys = p.Keys[:len(p.Keys)-1]
	p.Values = p.Values[:len(p.Values)-1]
}

// endpoint is a terminal handler registered for one method at one pattern.
type endpoint[C handler.Context] struct {
	handler handler.HandlerFunc[C]
	pattern string
	method  string
}

// node is a segment of the routing tree. Children are partitioned by kind:
// exact-text segments, a single parameter child, and a single wildcard
// child. The partition is what makes precedence deterministic; a request
// segment is tried against static children first, then the parameter child,
// then the wildcard.
type node[C handler.Context] struct {
	static   map[string]*node[C]
	param    *node[C]
	wildcard *node[C]

	// name is the capture name when this node is a param or wildcard child.
	name string

	endpoints map[string]*endpoint[C]
}

// segmentKind classifies one pattern segment.
type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

// parseSegment classifies a pattern segment and extracts the capture name
// for dynamic segments.
func parseSegment(seg string) (segmentKind, string) {
	if len(seg) >= 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		inner := seg[1 : len(seg)-1]
		if strings.HasPrefix(inner, "*") {
			return segWildcard, inner[1:]
		}
		return segParam, inner
	}
	return segLiteral, ""
}

// insertRoute registers a handler at the given pattern, creating tree nodes
// as needed. It panics on malformed patterns and on registrations that would
// make matching ambiguous: conflicting capture names at the same position,
// a wildcard before the final segment, or a second handler for the same
// method and pattern.
func (n *node[C]) insertRoute(method, pattern string, h handler.HandlerFunc[C]) {
	if len(pattern) == 0 || pattern[0] != '/' {
		panic(fmt.Errorf("%w: %q", ErrInvalidPattern, pattern))
	}

	segs := splitPattern(pattern)
	seen := make(map[string]bool)

	curr := n
	for i, seg := range segs {
		kind, name := parseSegment(seg)

		switch kind {
		case segLiteral:
			if curr.static == nil {
				curr.static = make(map[string]*node[C])
			}
			child := curr.static[seg]
			if child == nil {
				child = &node[C]{}
				curr.static[seg] = child
			}
			curr = child

		case segParam:
			if name == "" {
				panic(fmt.Errorf("%w: empty parameter name in %q", ErrInvalidPattern, pattern))
			}
			if seen[name] {
				panic(fmt.Errorf("%w: %q in %q", ErrDuplicateParam, name, pattern))
			}
			seen[name] = true

			if curr.param == nil {
				curr.param = &node[C]{name: name}
			} else if curr.param.name != name {
				panic(fmt.Errorf("%w: {%s} vs {%s} in %q", ErrParamConflict, curr.param.name, name, pattern))
			}
			curr = curr.param

		case segWildcard:
			if name == "" {
				panic(fmt.Errorf("%w: empty wildcard name in %q", ErrInvalidPattern, pattern))
			}
			if i != len(segs)-1 {
				panic(fmt.Errorf("%w: %q", ErrWildcardPosition, pattern))
			}
			if seen[name] {
				panic(fmt.Errorf("%w: %q in %q", ErrDuplicateParam, name, pattern))
			}

			if curr.wildcard == nil {
				curr.wildcard = &node[C]{name: name}
			} else if curr.wildcard.name != name {
				panic(fmt.Errorf("%w: {*%s} vs {*%s} in %q", ErrParamConflict, curr.wildcard.name, name, pattern))
			}
			curr = curr.wildcard
		}
	}

	if curr.endpoints == nil {
		curr.endpoints = make(map[string]*endpoint[C])
	}
	if _, exists := curr.endpoints[method]; exists {
		panic(fmt.Errorf("%w: %s %q", ErrDuplicateRoute, method, pattern))
	}
	curr.endpoints[method] = &endpoint[C]{handler: h, pattern: pattern, method: method}
}

// findRoute matches the decoded path segments against the tree. Matching is
// method-aware: a terminal whose shape matches but whose method table lacks
// the request method is skipped, its methods recorded in allowed, and
// matching backtracks to the next candidate by precedence. The caller uses a
// non-empty allowed set to distinguish 405 from 404.
func (n *node[C]) findRoute(method string, segs []string, params *Params, allowed map[string]struct{}) *endpoint[C] {
	if len(segs) == 0 {
		if ep := n.endpoints[method]; ep != nil {
			return ep
		}
		if ep := n.endpoints[methodAny]; ep != nil {
			return ep
		}
		for m := range n.endpoints {
			if m != methodAny {
				allowed[m] = struct{}{}
			}
		}
		return nil
	}

	seg := segs[0]

	if child := n.static[seg]; child != nil {
		if ep := child.findRoute(method, segs[1:], params, allowed); ep != nil {
			return ep
		}
	}

	// Parameters never capture an empty segment; a trailing slash is not a
	// parameter value.
	if n.param != nil && seg != "" {
		params.add(n.param.name, seg)
		if ep := n.param.findRoute(method, segs[1:], params, allowed); ep != nil {
			return ep
		}
		params.pop()
	}

	if n.wildcard != nil {
		params.add(n.wildcard.name, strings.Join(segs, "/"))
		if ep := n.wildcard.findRoute(method, nil, params, allowed); ep != nil {
			return ep
		}
		params.pop()
	}

	return nil
}

// routes returns every registered method and pattern, sorted for stable
// introspection output.
func (n *node[C]) routes() []Route {
	var out []Route
	n.collectRoutes(&out)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (n *node[C]) collectRoutes(out *[]Route) {
	for _, ep := range n.endpoints {
		method := ep.method
		if method == methodAny {
			method = "*"
		}
		*out = append(*out, Route{Method: method, Pattern: ep.pattern})
	}
	for _, child := range n.static {
		child.collectRoutes(out)
	}
	if n.param != nil {
		n.param.collectRoutes(out)
	}
	if n.wildcard != nil {
		n.wildcard.collectRoutes(out)
	}
}

// splitPattern splits a registration pattern into segments. The leading
// slash is dropped; a trailing slash yields a final empty segment, so
// "/users" and "/users/" are distinct routes.
func splitPattern(pattern string) []string {
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return nil
	}
	return strings.Split(pattern, "/")
}

// splitPath splits a request path into decoded segments. Splitting happens
// on the raw path before decoding, so an encoded slash inside a segment
// stays inside that segment instead of creating a new one.
func splitPath(path string) ([]string, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, nil
	}

	raw := strings.Split(path, "/")
	segs := make([]string, len(raw))
	for i, s := range raw {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return nil, fmt.Errorf("malformed path segment %q: %w", s, err)
		}
		segs[i] = decoded
	}
	return segs, nil
}
