// Defines the in-memory model of a schema spec document.

package spec

import "slices"

// PropertyType is the type name of a property as written in the spec document.
type PropertyType string

// Property types understood by the provisioner.
const (
	TypeTitle          PropertyType = "title"
	TypeRichText       PropertyType = "rich_text"
	TypeNumber         PropertyType = "number"
	TypeSelect         PropertyType = "select"
	TypeMultiSelect    PropertyType = "multi_select"
	TypeStatus         PropertyType = "status"
	TypeDate           PropertyType = "date"
	TypePeople         PropertyType = "people"
	TypeFiles          PropertyType = "files"
	TypeCheckbox       PropertyType = "checkbox"
	TypeURL            PropertyType = "url"
	TypeEmail          PropertyType = "email"
	TypePhone          PropertyType = "phone"
	TypeFormula        PropertyType = "formula"
	TypeCreatedTime    PropertyType = "created_time"
	TypeLastEditedTime PropertyType = "last_edited_time"
	TypeCreatedBy      PropertyType = "created_by"
	TypeRelation       PropertyType = "relation"
)

// PropertyTypes lists every known property type.
var PropertyTypes = []PropertyType{
	TypeTitle, TypeRichText, TypeNumber, TypeSelect, TypeMultiSelect, TypeStatus,
	TypeDate, TypePeople, TypeFiles, TypeCheckbox, TypeURL, TypeEmail, TypePhone,
	TypeFormula, TypeCreatedTime, TypeLastEditedTime, TypeCreatedBy, TypeRelation,
}

// Known reports whether t is one of PropertyTypes.
func (t PropertyType) Known() bool {
	return slices.Contains(PropertyTypes, t)
}

// ReadOnly reports whether values of this type are computed by the workspace
// and cannot be written when seeding.
func (t PropertyType) ReadOnly() bool {
	switch t {
	case TypeFormula, TypeCreatedTime, TypeLastEditedTime, TypeCreatedBy:
		return true
	default:
		return false
	}
}

// PropertyDef is a single typed property of an Entity.
type PropertyDef struct {
	Name string
	Type PropertyType

	// Options lists the option names for select, multi_select and status.
	Options []string
	// Format is the number format; empty means "number".
	Format string
	// Formula is the formula expression.
	Formula string
	// TargetEntity is the entity a relation points at.
	TargetEntity string
}

// Row is one sample row, keyed by property name.
type Row map[string]any

// Entity is a named record type. Properties keep document order.
type Entity struct {
	Name       string
	Properties []PropertyDef
	SampleRows []Row
}

// Property returns the property with the given name.
func (e *Entity) Property(name string) (*PropertyDef, bool) {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i], true
		}
	}
	return nil, false
}

// TitleProperty returns the name of the first title property, or "" if the
// entity has none.
func (e *Entity) TitleProperty() string {
	for i := range e.Properties {
		if e.Properties[i].Type == TypeTitle {
			return e.Properties[i].Name
		}
	}
	return ""
}

// Document is a parsed spec. Entities keep document order.
type Document struct {
	Entities []*Entity
}

// Names returns entity names in document order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Entities))
	for _, e := range d.Entities {
		names = append(names, e.Name)
	}
	return names
}
