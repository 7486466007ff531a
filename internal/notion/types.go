// Defines Notion API request and response types.

package notion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PaginatedResponse is the common structure for paginated API responses.
type PaginatedResponse[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// QueryResponse is the response from database query endpoint.
type QueryResponse = PaginatedResponse[Page]

// Parent represents the parent of a page or database.
type Parent struct {
	Type       string `json:"type,omitempty"` // "database_id", "page_id", "workspace", "block_id"
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// PageParent returns a parent referencing a page.
func PageParent(id string) Parent {
	return Parent{Type: "page_id", PageID: id}
}

// DatabaseParent returns a parent referencing a database.
func DatabaseParent(id string) Parent {
	return Parent{Type: "database_id", DatabaseID: id}
}

// Database represents a Notion database.
type Database struct {
	Object         string                `json:"object"`
	ID             string                `json:"id"`
	CreatedTime    time.Time             `json:"created_time"`
	LastEditedTime time.Time             `json:"last_edited_time"`
	Title          []RichText            `json:"title"`
	Properties     map[string]DBProperty `json:"properties"`
	Parent         Parent                `json:"parent"`
	URL            string                `json:"url"`
	Archived       bool                  `json:"archived"`
}

// DBProperty represents a property definition in a database schema. It is
// used both in responses and in create/update requests, where exactly one of
// the type-specific fields is set.
type DBProperty struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`

	// Type-specific configuration
	Title          *struct{}       `json:"title,omitempty"`
	RichText       *struct{}       `json:"rich_text,omitempty"`
	Number         *NumberConfig   `json:"number,omitempty"`
	Select         *SelectConfig   `json:"select,omitempty"`
	MultiSelect    *SelectConfig   `json:"multi_select,omitempty"`
	Status         *SelectConfig   `json:"status,omitempty"`
	Date           *struct{}       `json:"date,omitempty"`
	Checkbox       *struct{}       `json:"checkbox,omitempty"`
	URL            *struct{}       `json:"url,omitempty"`
	Email          *struct{}       `json:"email,omitempty"`
	PhoneNumber    *struct{}       `json:"phone_number,omitempty"`
	Formula        *FormulaConfig  `json:"formula,omitempty"`
	Relation       *RelationConfig `json:"relation,omitempty"`
	People         *struct{}       `json:"people,omitempty"`
	Files          *struct{}       `json:"files,omitempty"`
	CreatedTime    *struct{}       `json:"created_time,omitempty"`
	CreatedBy      *struct{}       `json:"created_by,omitempty"`
	LastEditedTime *struct{}       `json:"last_edited_time,omitempty"`
}

// NumberConfig defines number property configuration.
type NumberConfig struct {
	Format string `json:"format"` // number, number_with_commas, percent, dollar, etc.
}

// SelectConfig defines select/multi_select/status property configuration.
type SelectConfig struct {
	Options []SelectOption `json:"options,omitempty"`
}

// SelectOption represents a select option.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// FormulaConfig defines formula property configuration.
type FormulaConfig struct {
	Expression string `json:"expression"`
}

// RelationConfig defines relation property configuration.
type RelationConfig struct {
	DatabaseID     string    `json:"database_id"`
	Type           string    `json:"type,omitempty"` // Always "single_property".
	SingleProperty *struct{} `json:"single_property,omitempty"`
}

// SingleRelation returns a one-way relation to the database.
func SingleRelation(databaseID string) *RelationConfig {
	return &RelationConfig{
		DatabaseID:     databaseID,
		Type:           "single_property",
		SingleProperty: &struct{}{},
	}
}

// Properties holds raw property values keyed by name, in API response order.
type Properties = orderedmap.OrderedMap[string, json.RawMessage]

// NewProperties returns an empty Properties map.
func NewProperties() *Properties {
	return orderedmap.New[string, json.RawMessage]()
}

// Page represents a Notion page (including database rows).
//
// Properties are left undecoded; use Property to decode one value.
type Page struct {
	Object         string      `json:"object"`
	ID             string      `json:"id"`
	CreatedTime    time.Time   `json:"created_time"`
	LastEditedTime time.Time   `json:"last_edited_time"`
	Parent         Parent      `json:"parent"`
	Archived       bool        `json:"archived"`
	Properties     *Properties `json:"properties"`
	URL            string      `json:"url"`
}

// Property decodes the named property value.
func (p *Page) Property(name string) (*PropertyValue, error) {
	if p.Properties == nil {
		return nil, fmt.Errorf("page %s has no property %q", p.ID, name)
	}
	raw, ok := p.Properties.Get(name)
	if !ok {
		return nil, fmt.Errorf("page %s has no property %q", p.ID, name)
	}
	var pv PropertyValue
	if err := json.Unmarshal(raw, &pv); err != nil {
		return nil, fmt.Errorf("failed to decode property %q: %w", name, err)
	}
	return &pv, nil
}

// PropertyValue represents a property value on a page. In requests only the
// field matching the property type is set.
type PropertyValue struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`

	// Value fields based on type
	Title          []RichText      `json:"title,omitempty"`
	RichText       []RichText      `json:"rich_text,omitempty"`
	Number         *float64        `json:"number,omitempty"`
	Select         *SelectValue    `json:"select,omitempty"`
	MultiSelect    []SelectValue   `json:"multi_select,omitempty"`
	Status         *SelectValue    `json:"status,omitempty"`
	Date           *DateValue      `json:"date,omitempty"`
	Checkbox       *bool           `json:"checkbox,omitempty"`
	URL            *string         `json:"url,omitempty"`
	Email          *string         `json:"email,omitempty"`
	PhoneNumber    *string         `json:"phone_number,omitempty"`
	Relation       []RelationValue `json:"relation,omitempty"`
	People         []Person        `json:"people,omitempty"`
	Files          []FileValue     `json:"files,omitempty"`
	CreatedTime    *time.Time      `json:"created_time,omitempty"`
	CreatedBy      *Person         `json:"created_by,omitempty"`
	LastEditedTime *time.Time      `json:"last_edited_time,omitempty"`
}

// PlainText returns the concatenated text of a title or rich_text value.
func (pv *PropertyValue) PlainText() string {
	if pv.Title != nil {
		return richTextToPlain(pv.Title)
	}
	return richTextToPlain(pv.RichText)
}

// RichText represents formatted text content.
type RichText struct {
	Type      string       `json:"type"` // "text", "mention", "equation"
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
	Href      *string      `json:"href,omitempty"`
}

// TextContent represents plain text content.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link represents a hyperlink.
type Link struct {
	URL string `json:"url"`
}

// Text returns a single plain text run.
func Text(s string) []RichText {
	return []RichText{{Type: "text", Text: &TextContent{Content: s}}}
}

// richTextToPlain converts rich text to plain text. Request-side values only
// carry Text.Content, response-side values carry PlainText.
func richTextToPlain(rt []RichText) string {
	var b strings.Builder
	for i := range rt {
		switch {
		case rt[i].PlainText != "":
			b.WriteString(rt[i].PlainText)
		case rt[i].Text != nil:
			b.WriteString(rt[i].Text.Content)
		}
	}
	return b.String()
}

// SelectValue represents a select, multi_select or status value.
type SelectValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue represents a date property value.
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// RelationValue represents a relation to another page.
type RelationValue struct {
	ID string `json:"id"`
}

// Person represents a Notion user.
type Person struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
}

// FileValue represents a file property value.
type FileValue struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "file" or "external"
	File     *File  `json:"file,omitempty"`
	External *File  `json:"external,omitempty"`
}

// File represents a file reference.
type File struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// CreateDatabaseRequest is the body of POST /databases.
type CreateDatabaseRequest struct {
	Parent     Parent                `json:"parent"`
	Title      []RichText            `json:"title"`
	Properties map[string]DBProperty `json:"properties"`
}

// UpdateDatabaseRequest is the body of PATCH /databases/{id}.
type UpdateDatabaseRequest struct {
	Properties map[string]DBProperty `json:"properties"`
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Parent     Parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}.
type UpdatePageRequest struct {
	Properties map[string]PropertyValue `json:"properties"`
}

// Error represents a Notion API error response.
type Error struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
}
