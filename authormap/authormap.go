// Package authormap resolves CVS usernames into full git identities,
// mirroring config/config.go's YAML-unmarshal-then-validate shape from
// the teacher repo.
package authormap

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// entry is one author's YAML record. Timezone is optional; when absent
// the resolved identity carries no Location and the writer falls back
// to UTC (spec.md §4.5.7).
type entry struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Timezone string `yaml:"timezone"`
}

// Map resolves a CVS username to a model.Identity. Unknown usernames
// resolve to an identity with Name equal to the username and an empty
// email, rather than an error — an unmapped author is a normal, if
// unpolished, outcome, not a fatal condition.
type Map struct {
	entries map[string]entry
}

// Unmarshal parses a YAML author map of the form:
//
//	alice:
//	  name: Alice Example
//	  email: alice@example.com
//	  timezone: America/New_York
func Unmarshal(content []byte) (*Map, error) {
	raw := map[string]entry{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("authormap: invalid configuration: %w", err)
	}
	for user, e := range raw {
		if e.Timezone != "" {
			if _, err := time.LoadLocation(e.Timezone); err != nil {
				return nil, fmt.Errorf("authormap: %s: invalid timezone %q: %w", user, e.Timezone, err)
			}
		}
	}
	return &Map{entries: raw}, nil
}

// Load reads and parses an author map file.
func Load(path string) (*Map, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authormap: failed to load %s: %w", path, err)
	}
	m, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("authormap: failed to load %s: %w", path, err)
	}
	return m, nil
}

// Resolve returns cvsUsername's full identity, or a bare identity
// carrying only the username if it has no entry.
func (m *Map) Resolve(cvsUsername string) model.Identity {
	e, ok := m.entries[cvsUsername]
	if !ok {
		return model.Identity{Name: cvsUsername}
	}
	id := model.Identity{Name: e.Name, Email: e.Email}
	if e.Timezone != "" {
		if loc, err := time.LoadLocation(e.Timezone); err == nil {
			id.Location = loc
		}
	}
	return id
}
