// Generates the JSON Schema describing spec documents.

package spec

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// documentSchema mirrors the YAML layout accepted by Parse. It only exists to
// drive schema reflection.
type documentSchema struct {
	Entities map[string]entitySchema `json:"entities" jsonschema:"description=Entity name to definition. Each entity becomes one database."`
}

type entitySchema struct {
	Properties map[string]propertySchema `json:"properties" jsonschema:"description=Property name to definition, in display order"`
	SampleData []map[string]any          `json:"sample_data,omitempty" jsonschema:"description=Rows to insert when seeding. Relation values are titles of rows in the target entity."`
}

type propertySchema struct {
	Type         string   `json:"type" jsonschema:"enum=title,enum=rich_text,enum=number,enum=select,enum=multi_select,enum=status,enum=date,enum=people,enum=files,enum=checkbox,enum=url,enum=email,enum=phone,enum=formula,enum=created_time,enum=last_edited_time,enum=created_by,enum=relation"`
	Options      []string `json:"options,omitempty" jsonschema:"description=Option names used by select and multi_select and status properties"`
	Format       string   `json:"format,omitempty" jsonschema:"description=Number format,default=number"`
	Formula      string   `json:"formula,omitempty" jsonschema:"description=Formula expression"`
	TargetEntity string   `json:"target_entity,omitempty" jsonschema:"description=Entity referenced by a relation"`
}

// JSONSchema returns the JSON Schema of the spec document format, indented.
func JSONSchema() ([]byte, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(&documentSchema{})
	s.Title = "notionspec schema document"
	return json.MarshalIndent(s, "", "  ")
}
