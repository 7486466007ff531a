// Package idmap persists the mapping from entity name to Notion database id.
//
// The mapping is the only record of which databases exist; a name present in
// the mapping is updated in place rather than created again. The file is a
// flat JSON object whose key order is preserved across load and save.
package idmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotFound is returned by Load when the mapping file does not exist.
var ErrNotFound = errors.New("id mapping file not found")

// Mapping maps entity names to database ids, in insertion order.
type Mapping struct {
	m *orderedmap.OrderedMap[string, string]
}

// New returns an empty mapping.
func New() *Mapping {
	return &Mapping{m: orderedmap.New[string, string]()}
}

// Get returns the database id for name.
func (m *Mapping) Get(name string) (string, bool) {
	return m.m.Get(name)
}

// Set records the database id for name. An existing name keeps its position.
func (m *Mapping) Set(name, id string) {
	m.m.Set(name, id)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return m.m.Len()
}

// All iterates over entries in order.
func (m *Mapping) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for pair := m.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// MarshalJSON implements json.Marshaler.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	return m.m.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, string]()
	if err := om.UnmarshalJSON(data); err != nil {
		return err
	}
	m.m = om
	return nil
}

// Load reads the mapping file. A missing file returns ErrNotFound.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified mapping path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read id mapping: %w", err)
	}
	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse id mapping %s: %w", path, err)
	}
	return m, nil
}

// LoadOrEmpty reads the mapping file, returning an empty mapping when the
// file does not exist.
func LoadOrEmpty(path string) (*Mapping, error) {
	m, err := Load(path)
	if errors.Is(err, ErrNotFound) {
		return New(), nil
	}
	return m, err
}

// Save writes the mapping file, indented.
func (m *Mapping) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal id mapping: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: 0o644 is intentional for readable files
		return fmt.Errorf("failed to write id mapping: %w", err)
	}
	return nil
}
