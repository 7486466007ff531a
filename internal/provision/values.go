// Converts sample row values to Notion page property values.

package provision

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/notionspec/internal/notion"
	"github.com/maruel/notionspec/internal/spec"
)

// errSkipValue is returned by cellValue when a value cannot be written; the
// error text is reported as a warning.
type errSkipValue struct {
	msg string
}

func (e *errSkipValue) Error() string { return e.msg }

// cellValue converts v, the sample value of property p, to a page property
// value. Relation, people and read-only properties are not handled here.
func cellValue(p *spec.PropertyDef, v any) (notion.PropertyValue, error) {
	var pv notion.PropertyValue
	switch p.Type {
	case spec.TypeTitle:
		pv.Title = notion.Text(scalarString(v))
	case spec.TypeSelect:
		pv.Select = &notion.SelectValue{Name: scalarString(v)}
	case spec.TypeStatus:
		pv.Status = &notion.SelectValue{Name: scalarString(v)}
	case spec.TypeMultiSelect:
		names := listOf(v)
		pv.MultiSelect = make([]notion.SelectValue, 0, len(names))
		for _, n := range names {
			pv.MultiSelect = append(pv.MultiSelect, notion.SelectValue{Name: n})
		}
	case spec.TypeDate:
		pv.Date = &notion.DateValue{Start: dateString(v)}
	case spec.TypeCheckbox:
		b := truthy(v)
		pv.Checkbox = &b
	case spec.TypeNumber:
		f, err := toFloat(v)
		if err != nil {
			return pv, &errSkipValue{msg: fmt.Sprintf("property %q: %v", p.Name, err)}
		}
		pv.Number = &f
	case spec.TypeURL:
		s := scalarString(v)
		pv.URL = &s
	case spec.TypeEmail:
		s := scalarString(v)
		pv.Email = &s
	case spec.TypePhone:
		s := scalarString(v)
		pv.PhoneNumber = &s
	case spec.TypeFiles:
		urls := listOf(v)
		pv.Files = make([]notion.FileValue, 0, len(urls))
		for _, u := range urls {
			pv.Files = append(pv.Files, notion.FileValue{
				Name:     fileName(u),
				Type:     "external",
				External: &notion.File{URL: u},
			})
		}
	default:
		pv.RichText = notion.Text(scalarString(v))
	}
	return pv, nil
}

// blank reports whether v is absent in the sense of a YAML null or an empty
// list. Blank cells are left unset on the page.
func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

// scalarString formats a decoded YAML scalar.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return dateString(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// dateString formats v as a Notion date start. Midnight UTC times are
// written as a date only.
func dateString(v any) string {
	t, ok := v.(time.Time)
	if !ok {
		return scalarString(v)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// listOf returns v as a list of strings. A scalar becomes a one element list.
func listOf(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, scalarString(item))
		}
		return out
	case []string:
		return x
	default:
		return []string{scalarString(x)}
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}

// relationTitles returns the titles referenced by a relation value, in
// input order. Empty titles are dropped.
func relationTitles(v any) []string {
	var out []string
	for _, s := range listOf(v) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fileName(u string) string {
	u, _, _ = strings.Cut(u, "?")
	if i := strings.LastIndexByte(strings.TrimSuffix(u, "/"), '/'); i >= 0 {
		u = strings.TrimSuffix(u, "/")[i+1:]
	}
	if u == "" {
		return "file"
	}
	return u
}
