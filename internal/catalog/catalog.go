// Package catalog holds the named, pre-approved SQL queries the API may run.
// A Catalog is built once at startup and never mutated, so it is safe for
// concurrent use without locking.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
)

type Query struct {
	Name        string
	SQL         string
	Description string
}

type Catalog struct {
	queries map[string]Query
	names   []string
}

// ConfigError reports a catalog source that is missing, unreadable or
// malformed. The process cannot start without a catalog.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("query catalog %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// New builds a catalog from explicit definitions. Names must be unique and
// every query needs SQL text.
func New(queries ...Query) (*Catalog, error) {
	c := &Catalog{
		queries: make(map[string]Query, len(queries)),
		names:   make([]string, 0, len(queries)),
	}
	for _, q := range queries {
		if q.Name == "" {
			return nil, errors.New("query with empty name")
		}
		if q.SQL == "" {
			return nil, fmt.Errorf("query %q has no SQL text", q.Name)
		}
		if _, dup := c.queries[q.Name]; dup {
			return nil, fmt.Errorf("duplicate query name %q", q.Name)
		}
		c.queries[q.Name] = q
		c.names = append(c.names, q.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Load picks the source format from what source points at: a directory of
// .sql files or a single YAML document.
func Load(source string) (*Catalog, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	if info.IsDir() {
		return LoadDir(source)
	}
	return LoadFile(source)
}

// Lookup is an exact, case-sensitive match. A missing name is not an error.
func (c *Catalog) Lookup(name string) (Query, bool) {
	q, ok := c.queries[name]
	return q, ok
}

// List returns the query names in sorted order.
func (c *Catalog) List() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Catalog) Queries() []Query {
	out := make([]Query, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.queries[name])
	}
	return out
}

func (c *Catalog) Len() int { return len(c.names) }

// ValidateReadOnly rejects any query in the catalog that is not a plain read.
func (c *Catalog) ValidateReadOnly() error {
	for _, name := range c.names {
		if err := ValidateQueryReadOnly(c.queries[name].SQL); err != nil {
			return fmt.Errorf("query %q: %w", name, err)
		}
	}
	return nil
}
