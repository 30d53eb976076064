package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"query-api/pkg/logger"
)

const nameMarker = "-- name:"

// LoadDir reads every *.sql file in dir. Each file holds one or more blocks
// introduced by a "-- name: <identifier>" line; the block's SQL runs until
// the next marker or the end of the file. Text before the first marker is
// ignored.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ConfigError{Source: dir, Err: err}
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	byName := make(map[string]Query)
	order := make([]string, 0)
	for _, f := range files {
		path := filepath.Join(dir, f)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Source: path, Err: err}
		}
		queries, empty := splitSQL(string(content))
		for _, name := range empty {
			logger.Warn().Str("query", name).Str("file", path).Msg("query has no SQL body, skipped")
		}
		for _, q := range queries {
			if _, dup := byName[q.Name]; dup {
				logger.Warn().Str("query", q.Name).Str("file", path).Msg("query redefined, later definition wins")
			} else {
				order = append(order, q.Name)
			}
			byName[q.Name] = q
		}
	}

	queries := make([]Query, 0, len(order))
	for _, name := range order {
		queries = append(queries, byName[name])
	}
	c, err := New(queries...)
	if err != nil {
		return nil, &ConfigError{Source: dir, Err: err}
	}

	logger.Info().Str("source", dir).Int("files", len(files)).Int("queries", c.Len()).Msg("Query catalog loaded")
	return c, nil
}

// ParseSQL splits a .sql file's content on name markers. Markers without a
// name or without SQL are dropped.
func ParseSQL(content string) []Query {
	queries, _ := splitSQL(content)
	return queries
}

// splitSQL also reports the names of markers that carried no SQL.
func splitSQL(content string) (queries []Query, empty []string) {
	blocks := strings.Split(content, nameMarker)
	queries = make([]Query, 0, len(blocks))
	for _, block := range blocks[1:] {
		head, body, _ := strings.Cut(strings.TrimSpace(block), "\n")
		name := strings.TrimSpace(head)
		sqlText := strings.TrimSpace(body)
		if name == "" {
			continue
		}
		if sqlText == "" {
			empty = append(empty, name)
			continue
		}
		queries = append(queries, Query{Name: name, SQL: sqlText})
	}
	return queries, empty
}

type document struct {
	Queries map[string]*documentEntry `yaml:"queries" validate:"required,min=1,dive,required"`
}

type documentEntry struct {
	Query       string `yaml:"query" validate:"required"`
	Description string `yaml:"description"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadFile reads a YAML document with a top-level queries mapping:
//
//	queries:
//	  ping:
//	    query: "SELECT 1 AS ok"
//	    description: "health check"
func LoadFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	c, err := Parse(content)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	logger.Info().Str("source", path).Int("queries", c.Len()).Msg("Query catalog loaded")
	return c, nil
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(content []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, fmt.Errorf("malformed document: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	queries := make([]Query, 0, len(doc.Queries))
	for name, entry := range doc.Queries {
		if entry == nil {
			return nil, fmt.Errorf("query %q has no definition", name)
		}
		queries = append(queries, Query{
			Name:        name,
			SQL:         entry.Query,
			Description: entry.Description,
		})
	}
	return New(queries...)
}
