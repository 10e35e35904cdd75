package gateway

import "strings"

// PathMatcher matches request paths against ant-style glob patterns:
// `?` matches one character within a segment, `*` any run of characters
// within a segment, `**` any number of whole segments.
type PathMatcher struct {
	patterns [][]string
}

// NewPathMatcher compiles the given patterns. Empty patterns are dropped.
func NewPathMatcher(patterns []string) *PathMatcher {
	m := &PathMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, splitPath(p))
	}
	return m
}

// Matches reports whether path matches any pattern. The path is normalized
// first: the query string is stripped and a leading slash ensured.
func (m *PathMatcher) Matches(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segs := splitPath(path)
	for _, pat := range m.patterns {
		if matchSegments(pat, segs) {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		// `**` absorbs zero or more segments.
		if matchSegments(pattern[1:], path) {
			return true
		}
		if len(path) > 0 {
			return matchSegments(pattern, path[1:])
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if !matchSegment(pattern[0], path[0]) {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// matchSegment matches one path segment against a pattern segment supporting
// `*` and `?`.
func matchSegment(pattern, seg string) bool {
	var p, s, starP, starS int
	starP, starS = -1, -1
	for s < len(seg) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == seg[s]):
			p++
			s++
		case p < len(pattern) && pattern[p] == '*':
			starP, starS = p, s
			p++
		case starP >= 0:
			starS++
			p = starP + 1
			s = starS
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
