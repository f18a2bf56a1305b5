// Package legal serves per-state legal information links.
package legal

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NoInfo is returned for states missing from the catalog.
const NoInfo = "No legal info available for this state."

//go:embed states.yaml
var defaultCatalog []byte

type catalogFile struct {
	States map[string]string `yaml:"states"`
}

// Catalog maps state names to legal information links.
type Catalog struct {
	exact map[string]string
	fold  map[string]string
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the bundled one for an empty path.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legal catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML of the form `states: {<state>: <link>}`.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse legal catalog: %w", err)
	}
	c := &Catalog{
		exact: make(map[string]string, len(f.States)),
		fold:  make(map[string]string, len(f.States)),
	}
	for state, link := range f.States {
		state = strings.TrimSpace(state)
		c.exact[state] = link
		c.fold[strings.ToLower(state)] = link
	}
	return c, nil
}

// Lookup returns the link for state, matching exactly first and then
// case-insensitively, or NoInfo.
func (c *Catalog) Lookup(state string) string {
	state = strings.TrimSpace(state)
	if link, ok := c.exact[state]; ok {
		return link
	}
	if link, ok := c.fold[strings.ToLower(state)]; ok {
		return link
	}
	return NoInfo
}
