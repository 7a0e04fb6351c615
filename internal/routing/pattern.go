package routing

import "strings"

type PathPattern struct {
	raw      string
	segments []string
}

// ParsePathPattern parses a route template with {name} segments. The second
// return is false when the template has no parameters or is malformed.
func ParsePathPattern(raw string) (PathPattern, bool) {
	return parsePathPattern(raw)
}

func parsePathPattern(raw string) (PathPattern, bool) {
	if !strings.Contains(raw, "{") {
		return PathPattern{}, false
	}
	if raw == "" || raw[0] != '/' {
		return PathPattern{}, false
	}

	parts := splitPathSegments(raw)
	for _, s := range parts {
		if s == "" {
			return PathPattern{}, false
		}
		if strings.Contains(s, "{") || strings.Contains(s, "}") {
			if !isParamSegment(s) {
				return PathPattern{}, false
			}
		}
	}
	return PathPattern{raw: raw, segments: parts}, true
}

func (p PathPattern) Match(path string) bool {
	if p.raw == "" {
		return false
	}
	in := splitPathSegments(path)
	if len(in) != len(p.segments) {
		return false
	}
	for i := range p.segments {
		want := p.segments[i]
		got := in[i]
		if got == "" {
			return false
		}
		if isParamSegment(want) {
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// Params extracts named segments from a matching path. The caller is
// expected to have checked Match first; a non-matching path returns nil.
func (p PathPattern) Params(path string) map[string]string {
	if !p.Match(path) {
		return nil
	}
	in := splitPathSegments(path)
	out := make(map[string]string)
	for i, want := range p.segments {
		if isParamSegment(want) {
			out[want[1:len(want)-1]] = in[i]
		}
	}
	return out
}

func splitPathSegments(path string) []string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func isParamSegment(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) > 2
}
