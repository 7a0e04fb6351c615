package routing

import (
	"errors"
	"strings"
)

type RouteClass string

const (
	RouteClassInternalAPI RouteClass = "internal_api"
	RouteClassOps         RouteClass = "ops"
)

// Classifier answers "what class of route is this path" for requests that
// never reached a registered handler, so error responses still carry the
// right shape.
type Classifier struct {
	entrypoint        string
	allowExact        map[string]RouteClass
	allowPathPatterns []pathPatternRoute
}

type pathPatternRoute struct {
	pattern PathPattern
	rc      RouteClass
}

func NewClassifier(a Allowlist, entrypoint string) (*Classifier, error) {
	ep, ok := a.Entrypoints[entrypoint]
	if !ok {
		return nil, errors.New("allowlist: missing entrypoint")
	}
	if len(ep.Routes) == 0 {
		return nil, errors.New("allowlist: entrypoint routes empty")
	}

	exact := make(map[string]RouteClass, len(ep.Routes))
	var patterns []pathPatternRoute
	for _, r := range ep.Routes {
		if r.Path == "" || r.RouteClass == "" {
			return nil, errors.New("allowlist: invalid route")
		}
		if p, ok := parsePathPattern(r.Path); ok {
			patterns = append(patterns, pathPatternRoute{pattern: p, rc: RouteClass(r.RouteClass)})
			continue
		}
		exact[r.Path] = RouteClass(r.RouteClass)
	}

	return &Classifier{
		entrypoint:        entrypoint,
		allowExact:        exact,
		allowPathPatterns: patterns,
	}, nil
}

func (c *Classifier) Classify(path string) RouteClass {
	path = strings.TrimSpace(path)
	if rc, ok := c.allowExact[path]; ok {
		return rc
	}
	for _, pr := range c.allowPathPatterns {
		if pr.pattern.Match(path) {
			return pr.rc
		}
	}
	return RouteClassInternalAPI
}
