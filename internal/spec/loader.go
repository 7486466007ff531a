// Parses YAML schema spec documents.

package spec

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpecParseError is returned when a spec document is malformed.
type SpecParseError struct {
	Path string // file path, empty when parsing bytes
	Line int    // 1-based, 0 when unknown
	Msg  string
	Err  error
}

func (e *SpecParseError) Error() string {
	where := "spec"
	if e.Path != "" {
		where = e.Path
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Err != nil {
		if e.Msg == "" {
			return fmt.Sprintf("%s: %v", where, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Msg)
}

func (e *SpecParseError) Unwrap() error {
	return e.Err
}

// Load reads and parses the spec document at path.
// The path is provided by the CLI user, so file inclusion is expected.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified spec path
	if err != nil {
		return nil, fmt.Errorf("failed to read spec: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		var perr *SpecParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse parses a spec document from bytes.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SpecParseError{Msg: "invalid YAML", Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &SpecParseError{Msg: "empty document"}
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &SpecParseError{Line: top.Line, Msg: "document root must be a mapping"}
	}
	entities := mappingValue(top, "entities")
	if entities == nil {
		return nil, &SpecParseError{Line: top.Line, Msg: "missing 'entities' root key"}
	}
	if entities.Kind != yaml.MappingNode {
		return nil, &SpecParseError{Line: entities.Line, Msg: "'entities' must be a mapping of entity name to definition"}
	}
	if len(entities.Content) == 0 {
		return nil, &SpecParseError{Line: entities.Line, Msg: "'entities' is empty"}
	}

	doc := &Document{}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(entities.Content); i += 2 {
		key, val := entities.Content[i], entities.Content[i+1]
		if seen[key.Value] {
			return nil, &SpecParseError{Line: key.Line, Msg: fmt.Sprintf("duplicate entity %q", key.Value)}
		}
		seen[key.Value] = true
		e, err := parseEntity(key.Value, val)
		if err != nil {
			return nil, err
		}
		doc.Entities = append(doc.Entities, e)
	}
	return doc, nil
}

// rawProperty is the long form of a property definition.
type rawProperty struct {
	Type         string   `yaml:"type"`
	Options      []string `yaml:"options"`
	Format       string   `yaml:"format"`
	Formula      string   `yaml:"formula"`
	TargetEntity string   `yaml:"target_entity"`
}

func parseEntity(name string, n *yaml.Node) (*Entity, error) {
	if name == "" {
		return nil, &SpecParseError{Line: n.Line, Msg: "entity name is empty"}
	}
	if n.Kind != yaml.MappingNode {
		return nil, &SpecParseError{Line: n.Line, Msg: fmt.Sprintf("entity %q must be a mapping", name)}
	}
	e := &Entity{Name: name}

	props := mappingValue(n, "properties")
	if props == nil || props.Kind != yaml.MappingNode {
		return nil, &SpecParseError{Line: n.Line, Msg: fmt.Sprintf("entity %q: 'properties' must be a mapping", name)}
	}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(props.Content); i += 2 {
		key, val := props.Content[i], props.Content[i+1]
		if seen[key.Value] {
			return nil, &SpecParseError{Line: key.Line, Msg: fmt.Sprintf("entity %q: duplicate property %q", name, key.Value)}
		}
		seen[key.Value] = true
		p, err := parseProperty(name, key.Value, val)
		if err != nil {
			return nil, err
		}
		e.Properties = append(e.Properties, p)
	}

	if rows := mappingValue(n, "sample_data"); rows != nil && !isNull(rows) {
		if rows.Kind != yaml.SequenceNode {
			return nil, &SpecParseError{Line: rows.Line, Msg: fmt.Sprintf("entity %q: 'sample_data' must be a sequence", name)}
		}
		for _, r := range rows.Content {
			var row map[string]any
			if r.Kind != yaml.MappingNode {
				return nil, &SpecParseError{Line: r.Line, Msg: fmt.Sprintf("entity %q: sample row must be a mapping", name)}
			}
			if err := r.Decode(&row); err != nil {
				return nil, &SpecParseError{Line: r.Line, Msg: fmt.Sprintf("entity %q: invalid sample row", name), Err: err}
			}
			e.SampleRows = append(e.SampleRows, Row(row))
		}
	}
	return e, nil
}

func parseProperty(entity, name string, n *yaml.Node) (PropertyDef, error) {
	p := PropertyDef{Name: name}
	// Short form: "Name: title".
	if n.Kind == yaml.ScalarNode {
		p.Type = PropertyType(n.Value)
	} else {
		var raw rawProperty
		if err := n.Decode(&raw); err != nil {
			return p, &SpecParseError{Line: n.Line, Msg: fmt.Sprintf("entity %q, property %q", entity, name), Err: err}
		}
		p.Type = PropertyType(raw.Type)
		p.Options = raw.Options
		p.Format = raw.Format
		p.Formula = raw.Formula
		p.TargetEntity = raw.TargetEntity
	}
	if p.Type == "" {
		return p, &SpecParseError{Line: n.Line, Msg: fmt.Sprintf("entity %q, property %q: type is required", entity, name)}
	}
	if p.Type == TypeRelation && p.TargetEntity == "" {
		return p, &SpecParseError{Line: n.Line, Msg: fmt.Sprintf("entity %q, property %q: target_entity is required for relations", entity, name)}
	}
	return p, nil
}

// mappingValue returns the value node for key in mapping node n.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
