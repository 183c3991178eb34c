// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"strings"
)

// segment is one element of a compiled path pattern. A non-empty param
// marks a placeholder segment; otherwise literal is matched exactly.
type segment struct {
	literal string
	param   string
}

// splitPattern compiles a pattern into segments. Empty segments from
// leading, trailing or doubled slashes are dropped.
func splitPattern(pattern string) []segment {
	parts := strings.Split(pattern, "/")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, ":") {
			segs = append(segs, segment{param: part[1:]})
			continue
		}
		segs = append(segs, segment{literal: part})
	}
	return segs
}

// patternString renders compiled segments back into ":name" form.
func patternString(segs []segment) string {
	var sb strings.Builder
	for _, seg := range segs {
		sb.WriteByte('/')
		if seg.param != "" {
			sb.WriteByte(':')
			sb.WriteString(seg.param)
			continue
		}
		sb.WriteString(seg.literal)
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}

// splitPath splits a concrete request path into segments, normalizing
// the trailing slash away.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// overlaps reports whether two patterns could both match some request
// path. Literal segments are compared case sensitively; a placeholder
// is compatible with any segment.
func overlaps(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].param != "" || b[i].param != "" {
			continue
		}
		if a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}

type routeTable struct {
	// byMethod holds endpoints in registration order. Overlap checks
	// at build time guarantee at most one entry matches any request.
	byMethod map[string][]*EndpointDescriptor
}

func buildRouteTable(controllers []*ControllerDescriptor) (*routeTable, error) {
	t := &routeTable{
		byMethod: make(map[string][]*EndpointDescriptor),
	}
	for _, c := range controllers {
		for _, e := range c.endpoints {
			for _, registered := range t.byMethod[e.method] {
				if !overlaps(registered.pattern, e.pattern) {
					continue
				}
				return nil, RouteCollisionError{
					Method:   e.method,
					Pattern:  patternString(e.pattern),
					Existing: patternString(registered.pattern),
				}
			}
			t.byMethod[e.method] = append(t.byMethod[e.method], e)
		}
	}
	return t, nil
}

// resolve matches a concrete request against the table. On success it
// returns the matched endpoint and the captured placeholder values.
func (t *routeTable) resolve(method, path string) (*EndpointDescriptor, map[string]string, error) {
	parts := splitPath(path)

	for _, e := range t.byMethod[method] {
		values, ok := match(e.pattern, parts)
		if !ok {
			continue
		}
		return e, values, nil
	}
	return nil, nil, RouteNotFoundError{Method: method, Path: path}
}

func match(pattern []segment, parts []string) (map[string]string, bool) {
	if len(pattern) != len(parts) {
		return nil, false
	}

	var values map[string]string
	for i, seg := range pattern {
		if seg.param != "" {
			if parts[i] == "" {
				return nil, false
			}
			if values == nil {
				values = make(map[string]string)
			}
			values[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return values, true
}
