package routing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Allowlist is the parsed configs/allowlist.yaml: the full set of routes
// this server is permitted to serve, keyed by entrypoint. The registry
// server runs a single "server" entrypoint; the map form leaves room for
// splitting ops traffic out later without a format change.
type Allowlist struct {
	Version     int                   `yaml:"version"`
	Entrypoints map[string]Entrypoint `yaml:"entrypoints"`
}

type Entrypoint struct {
	Routes []Route `yaml:"routes"`
}

// Route pairs a path template (literal or {param} segments) with its route
// class, which decides how errors for it are shaped.
type Route struct {
	Path       string   `yaml:"path"`
	Methods    []string `yaml:"methods"`
	RouteClass string   `yaml:"route_class"`
}

func ParseAllowlistYAML(b []byte) (Allowlist, error) {
	var a Allowlist
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Allowlist{}, err
	}
	if a.Version != 1 {
		return Allowlist{}, fmt.Errorf("allowlist: unsupported version %d", a.Version)
	}
	if a.Entrypoints == nil {
		return Allowlist{}, errors.New("allowlist: missing entrypoints")
	}
	return a, nil
}

func LoadAllowlist(path string) (Allowlist, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Allowlist{}, err
	}
	return ParseAllowlistYAML(b)
}
