// Translates spec property definitions to Notion database properties.

package provision

import (
	"fmt"

	"github.com/maruel/notionspec/internal/idmap"
	"github.com/maruel/notionspec/internal/notion"
	"github.com/maruel/notionspec/internal/spec"
)

// UnknownPropertyTypeError is returned when a property type has no Notion
// equivalent.
type UnknownPropertyTypeError struct {
	Entity   string
	Property string
	Type     spec.PropertyType
}

func (e *UnknownPropertyTypeError) Error() string {
	return fmt.Sprintf("unknown property type %q for property %q in entity %q", e.Type, e.Property, e.Entity)
}

// RelationLink is a relation property whose target database did not exist
// when its source database was synchronized.
type RelationLink struct {
	Source   string // entity owning the property
	Property string
	Target   string // entity the relation points at
}

// entitySchema is the translated schema of one entity.
type entitySchema struct {
	create   map[string]notion.DBProperty // every property, title included
	update   map[string]notion.DBProperty // title excluded
	attached []RelationLink               // relations included in create/update
	deferred []RelationLink               // relations left for the wiring pass
}

// CheckTypes returns an *UnknownPropertyTypeError for the first property in
// document order whose type is not known.
func CheckTypes(doc *spec.Document) error {
	for _, e := range doc.Entities {
		for i := range e.Properties {
			if p := &e.Properties[i]; !p.Type.Known() {
				return &UnknownPropertyTypeError{Entity: e.Name, Property: p.Name, Type: p.Type}
			}
		}
	}
	return nil
}

// translateEntity builds the Notion schema of e. Relations whose target is
// in ids are included; the others are returned as deferred links.
func translateEntity(e *spec.Entity, ids *idmap.Mapping) (*entitySchema, error) {
	s := &entitySchema{
		create: make(map[string]notion.DBProperty, len(e.Properties)),
		update: make(map[string]notion.DBProperty, len(e.Properties)),
	}
	for i := range e.Properties {
		p := &e.Properties[i]
		if p.Type == spec.TypeRelation {
			link := RelationLink{Source: e.Name, Property: p.Name, Target: p.TargetEntity}
			targetID, ok := ids.Get(p.TargetEntity)
			if !ok {
				s.deferred = append(s.deferred, link)
				continue
			}
			prop := notion.DBProperty{Relation: notion.SingleRelation(targetID)}
			s.create[p.Name] = prop
			s.update[p.Name] = prop
			s.attached = append(s.attached, link)
			continue
		}
		prop, err := schemaProperty(e.Name, p)
		if err != nil {
			return nil, err
		}
		s.create[p.Name] = prop
		// Title properties cannot be changed once the database exists.
		if p.Type != spec.TypeTitle {
			s.update[p.Name] = prop
		}
	}
	return s, nil
}

// schemaProperty converts a non-relation property definition.
func schemaProperty(entity string, p *spec.PropertyDef) (notion.DBProperty, error) {
	var prop notion.DBProperty
	switch p.Type {
	case spec.TypeTitle:
		prop.Title = &struct{}{}
	case spec.TypeRichText:
		prop.RichText = &struct{}{}
	case spec.TypeNumber:
		format := p.Format
		if format == "" {
			format = "number"
		}
		prop.Number = &notion.NumberConfig{Format: format}
	case spec.TypeSelect:
		prop.Select = &notion.SelectConfig{Options: selectOptions(p.Options)}
	case spec.TypeMultiSelect:
		prop.MultiSelect = &notion.SelectConfig{Options: selectOptions(p.Options)}
	case spec.TypeStatus:
		// Notion manages status options itself.
		prop.Status = &notion.SelectConfig{}
	case spec.TypeDate:
		prop.Date = &struct{}{}
	case spec.TypePeople:
		prop.People = &struct{}{}
	case spec.TypeFiles:
		prop.Files = &struct{}{}
	case spec.TypeCheckbox:
		prop.Checkbox = &struct{}{}
	case spec.TypeURL:
		prop.URL = &struct{}{}
	case spec.TypeEmail:
		prop.Email = &struct{}{}
	case spec.TypePhone:
		prop.PhoneNumber = &struct{}{}
	case spec.TypeFormula:
		prop.Formula = &notion.FormulaConfig{Expression: p.Formula}
	case spec.TypeCreatedTime:
		prop.CreatedTime = &struct{}{}
	case spec.TypeLastEditedTime:
		prop.LastEditedTime = &struct{}{}
	case spec.TypeCreatedBy:
		prop.CreatedBy = &struct{}{}
	default:
		return prop, &UnknownPropertyTypeError{Entity: entity, Property: p.Name, Type: p.Type}
	}
	return prop, nil
}

func selectOptions(names []string) []notion.SelectOption {
	opts := make([]notion.SelectOption, 0, len(names))
	for _, n := range names {
		opts = append(opts, notion.SelectOption{Name: n})
	}
	return opts
}
