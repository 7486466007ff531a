// In-memory workspace and recording reporter for provision tests.

package provision

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/maruel/notionspec/internal/notion"
)

type fakeDatabase struct {
	id         string
	title      string
	properties map[string]notion.DBProperty
}

type fakePage struct {
	id         string
	database   string
	properties map[string]notion.PropertyValue
}

type call struct {
	method string
	id     string // database or page id, empty for creates
}

// fakeWorkspace is an in-memory Workspace. failCreateDB, failUpdateDB and
// failCreatePage name database titles or ids whose calls fail.
type fakeWorkspace struct {
	databases []*fakeDatabase
	pages     []*fakePage
	calls     []call
	updates   []map[string]notion.DBProperty

	failCreateDB   map[string]bool // by title
	failUpdateDB   map[string]bool // by id
	failCreatePage map[string]bool // by title property value
	failUpdatePage map[string]bool // by page id
}

var errInjected = errors.New("injected failure")

func (w *fakeWorkspace) CreateDatabase(ctx context.Context, req *notion.CreateDatabaseRequest) (*notion.Database, error) {
	title := ""
	if len(req.Title) > 0 && req.Title[0].Text != nil {
		title = req.Title[0].Text.Content
	}
	w.calls = append(w.calls, call{method: "CreateDatabase"})
	if w.failCreateDB[title] {
		return nil, errInjected
	}
	db := &fakeDatabase{id: fmt.Sprintf("db-%d", len(w.databases)+1), title: title, properties: maps.Clone(req.Properties)}
	w.databases = append(w.databases, db)
	return &notion.Database{ID: db.id}, nil
}

func (w *fakeWorkspace) UpdateDatabase(ctx context.Context, id string, req *notion.UpdateDatabaseRequest) (*notion.Database, error) {
	w.calls = append(w.calls, call{method: "UpdateDatabase", id: id})
	w.updates = append(w.updates, maps.Clone(req.Properties))
	if w.failUpdateDB[id] {
		return nil, errInjected
	}
	db := w.database(id)
	if db == nil {
		return nil, &notion.Error{Status: 404, Code: "object_not_found", Message: "no database " + id}
	}
	maps.Copy(db.properties, req.Properties)
	return &notion.Database{ID: id}, nil
}

func (w *fakeWorkspace) CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error) {
	w.calls = append(w.calls, call{method: "CreatePage"})
	for _, v := range req.Properties {
		if v.Title != nil && w.failCreatePage[v.PlainText()] {
			return nil, errInjected
		}
	}
	p := &fakePage{id: fmt.Sprintf("row-%d", len(w.pages)+1), database: req.Parent.DatabaseID, properties: maps.Clone(req.Properties)}
	w.pages = append(w.pages, p)
	return &notion.Page{ID: p.id}, nil
}

func (w *fakeWorkspace) UpdatePage(ctx context.Context, id string, req *notion.UpdatePageRequest) (*notion.Page, error) {
	w.calls = append(w.calls, call{method: "UpdatePage", id: id})
	if w.failUpdatePage[id] {
		return nil, errInjected
	}
	p := w.page(id)
	if p == nil {
		return nil, &notion.Error{Status: 404, Code: "object_not_found", Message: "no page " + id}
	}
	maps.Copy(p.properties, req.Properties)
	return &notion.Page{ID: id}, nil
}

func (w *fakeWorkspace) database(id string) *fakeDatabase {
	for _, db := range w.databases {
		if db.id == id {
			return db
		}
	}
	return nil
}

func (w *fakeWorkspace) page(id string) *fakePage {
	for _, p := range w.pages {
		if p.id == id {
			return p
		}
	}
	return nil
}

// pageTitled returns the page whose title property is title.
func (w *fakeWorkspace) pageTitled(title string) *fakePage {
	for _, p := range w.pages {
		for _, v := range p.properties {
			if v.Title != nil && v.PlainText() == title {
				return p
			}
		}
	}
	return nil
}

func (w *fakeWorkspace) count(method string) int {
	n := 0
	for _, c := range w.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

// recorder is a Reporter keeping warnings and errors.
type recorder struct {
	NullReporter
	warnings []string
	errors   []error
	complete *Stats
}

func (r *recorder) OnWarning(msg string) { r.warnings = append(r.warnings, msg) }

func (r *recorder) OnError(err error) { r.errors = append(r.errors, err) }

func (r *recorder) OnComplete(stats Stats) { r.complete = &stats }
