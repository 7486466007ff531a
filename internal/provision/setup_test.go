// Tests for schema synchronization and relation wiring.

package provision

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/maruel/notionspec/internal/idmap"
	"github.com/maruel/notionspec/internal/notion"
	"github.com/maruel/notionspec/internal/spec"
)

func mustParse(t *testing.T, src string) *spec.Document {
	t.Helper()
	doc, err := spec.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

const teamFirst = `
entities:
  Team:
    properties:
      Name: title
      Size: number
  Project:
    properties:
      Name: title
      Owner:
        type: relation
        target_entity: Team
`

const projectFirst = `
entities:
  Project:
    properties:
      Name: title
      Owner:
        type: relation
        target_entity: Team
      Stage:
        type: select
        options: [Idea, Done]
  Team:
    properties:
      Name: title
`

func TestSync(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		doc := mustParse(t, `
entities:
  Team:
    properties:
      Name: title
      Email: email
`)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		ids := idmap.New()
		for range 2 {
			if _, err := s.Sync(t.Context(), doc, ids); err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
		}
		if len(w.databases) != 1 {
			t.Fatalf("expected 1 database, got %d", len(w.databases))
		}
		if n := w.count("UpdateDatabase"); n != 1 {
			t.Errorf("expected 1 update, got %d", n)
		}
		if _, ok := w.updates[0]["Name"]; ok {
			t.Error("update must not include the title property")
		}
		if _, ok := w.updates[0]["Email"]; !ok {
			t.Error("update must include Email")
		}
		if id, _ := ids.Get("Team"); id != "db-1" {
			t.Errorf("expected Team -> db-1, got %q", id)
		}
	})

	t.Run("create includes title and parent", func(t *testing.T) {
		doc := mustParse(t, teamFirst)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		if _, err := s.Sync(t.Context(), doc, idmap.New()); err != nil {
			t.Fatal(err)
		}
		team := w.databases[0]
		if team.title != "Team" {
			t.Errorf("expected title Team, got %q", team.title)
		}
		if team.properties["Name"].Title == nil {
			t.Error("expected Name to be a title property")
		}
		if n := team.properties["Size"].Number; n == nil || n.Format != "number" {
			t.Errorf("expected default number format, got %+v", n)
		}
	})

	t.Run("backward reference attached immediately", func(t *testing.T) {
		doc := mustParse(t, teamFirst)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		res, err := s.Sync(t.Context(), doc, idmap.New())
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Deferred) != 0 {
			t.Errorf("expected no deferred links, got %v", res.Deferred)
		}
		want := []RelationLink{{Source: "Project", Property: "Owner", Target: "Team"}}
		if !slices.Equal(res.Attached, want) {
			t.Errorf("expected attached %v, got %v", want, res.Attached)
		}
		rel := w.databases[1].properties["Owner"].Relation
		if rel == nil || rel.DatabaseID != "db-1" {
			t.Errorf("expected Owner -> db-1, got %+v", rel)
		}
	})

	t.Run("forward reference deferred", func(t *testing.T) {
		doc := mustParse(t, projectFirst)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		ids := idmap.New()
		res, err := s.Sync(t.Context(), doc, ids)
		if err != nil {
			t.Fatal(err)
		}
		want := []RelationLink{{Source: "Project", Property: "Owner", Target: "Team"}}
		if !slices.Equal(res.Deferred, want) {
			t.Fatalf("expected deferred %v, got %v", want, res.Deferred)
		}
		if _, ok := w.databases[0].properties["Owner"]; ok {
			t.Error("Owner must not be created by the synchronizer")
		}

		if n := s.Wire(t.Context(), res.Deferred, ids); n != 1 {
			t.Errorf("expected 1 relation wired, got %d", n)
		}
		rel := w.databases[0].properties["Owner"].Relation
		if rel == nil || rel.DatabaseID != "db-2" {
			t.Errorf("expected Owner -> db-2, got %+v", rel)
		}
	})

	t.Run("prior mapping resolves forward reference", func(t *testing.T) {
		doc := mustParse(t, projectFirst)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		ids := idmap.New()
		if _, err := s.Sync(t.Context(), doc, ids); err != nil {
			t.Fatal(err)
		}
		res, err := s.Sync(t.Context(), doc, ids)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Deferred) != 0 || len(res.Attached) != 1 {
			t.Errorf("expected relation attached on second run, got %+v", res)
		}
	})

	t.Run("unknown type aborts before any call", func(t *testing.T) {
		doc := mustParse(t, `
entities:
  Team:
    properties:
      Name: title
  Project:
    properties:
      Name: title
      Mood: vibe
`)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		_, err := s.Sync(t.Context(), doc, idmap.New())
		var uerr *UnknownPropertyTypeError
		if !errors.As(err, &uerr) {
			t.Fatalf("expected UnknownPropertyTypeError, got %v", err)
		}
		if uerr.Entity != "Project" || uerr.Property != "Mood" || uerr.Type != "vibe" {
			t.Errorf("unexpected error fields %+v", uerr)
		}
		if len(w.calls) != 0 {
			t.Errorf("expected no remote calls, got %v", w.calls)
		}
	})

	t.Run("create failure is fatal", func(t *testing.T) {
		doc := mustParse(t, teamFirst)
		w := &fakeWorkspace{failCreateDB: map[string]bool{"Project": true}}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		ids := idmap.New()
		res, err := s.Sync(t.Context(), doc, ids)
		if !errors.Is(err, errInjected) {
			t.Fatalf("expected injected failure, got %v", err)
		}
		if !slices.Equal(res.Created, []string{"Team"}) {
			t.Errorf("expected Team created before the failure, got %v", res.Created)
		}
		if _, ok := ids.Get("Team"); !ok {
			t.Error("expected Team id in mapping")
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		doc := mustParse(t, teamFirst)
		w := &fakeWorkspace{}
		s := &Setup{Workspace: w}
		if _, err := s.Sync(t.Context(), doc, idmap.New()); err == nil {
			t.Fatal("expected error without parent page")
		}
		if len(w.calls) != 0 {
			t.Errorf("expected no remote calls, got %v", w.calls)
		}
	})
}

func TestWire(t *testing.T) {
	t.Run("missing target warns and skips", func(t *testing.T) {
		w := &fakeWorkspace{}
		rec := &recorder{}
		s := &Setup{Workspace: w, Reporter: rec}
		ids := idmap.New()
		ids.Set("Project", "db-1")
		links := []RelationLink{{Source: "Project", Property: "Owner", Target: "Nonexistent"}}
		if n := s.Wire(t.Context(), links, ids); n != 0 {
			t.Errorf("expected nothing wired, got %d", n)
		}
		if len(rec.warnings) != 1 {
			t.Errorf("expected 1 warning, got %v", rec.warnings)
		}
		if len(w.calls) != 0 {
			t.Errorf("expected no remote calls, got %v", w.calls)
		}
	})

	t.Run("one update per source", func(t *testing.T) {
		w := &fakeWorkspace{}
		for _, name := range []string{"Project", "Team", "Task"} {
			w.databases = append(w.databases, &fakeDatabase{id: "db-" + name, title: name, properties: map[string]notion.DBProperty{}})
		}
		ids := idmap.New()
		ids.Set("Project", "db-Project")
		ids.Set("Team", "db-Team")
		ids.Set("Task", "db-Task")
		links := []RelationLink{
			{Source: "Task", Property: "Project", Target: "Project"},
			{Source: "Project", Property: "Owner", Target: "Team"},
			{Source: "Task", Property: "Team", Target: "Team"},
		}
		s := &Setup{Workspace: w}
		if n := s.Wire(t.Context(), links, ids); n != 3 {
			t.Errorf("expected 3 relations wired, got %d", n)
		}
		want := []call{{method: "UpdateDatabase", id: "db-Task"}, {method: "UpdateDatabase", id: "db-Project"}}
		if !slices.Equal(w.calls, want) {
			t.Errorf("expected calls %v, got %v", want, w.calls)
		}
		if len(w.updates[0]) != 2 {
			t.Errorf("expected both Task relations in one update, got %v", w.updates[0])
		}
	})

	t.Run("update failure is counted and skipped", func(t *testing.T) {
		w := &fakeWorkspace{failUpdateDB: map[string]bool{"db-1": true}}
		w.databases = []*fakeDatabase{
			{id: "db-1", title: "A", properties: map[string]notion.DBProperty{}},
			{id: "db-2", title: "B", properties: map[string]notion.DBProperty{}},
		}
		ids := idmap.New()
		ids.Set("A", "db-1")
		ids.Set("B", "db-2")
		rec := &recorder{}
		s := &Setup{Workspace: w, Reporter: rec}
		links := []RelationLink{
			{Source: "A", Property: "ToB", Target: "B"},
			{Source: "B", Property: "ToA", Target: "A"},
		}
		if n := s.Wire(t.Context(), links, ids); n != 1 {
			t.Errorf("expected 1 relation wired, got %d", n)
		}
		if len(rec.errors) != 1 {
			t.Errorf("expected 1 error, got %v", rec.errors)
		}
	})
}

func TestSetupRun(t *testing.T) {
	t.Run("saves mapping and wires", func(t *testing.T) {
		doc := mustParse(t, projectFirst)
		w := &fakeWorkspace{}
		rec := &recorder{}
		s := &Setup{Workspace: w, ParentPageID: "parent", Reporter: rec}
		path := filepath.Join(t.TempDir(), "notion-ids.json")
		stats, err := s.Run(t.Context(), doc, idmap.New(), path)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if stats.Created != 2 || stats.Relations != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if rec.complete == nil {
			t.Error("expected OnComplete")
		}
		saved, err := idmap.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for name := range saved.All() {
			names = append(names, name)
		}
		if !slices.Equal(names, []string{"Project", "Team"}) {
			t.Errorf("expected saved order Project,Team, got %v", names)
		}
	})

	t.Run("saves mapping after fatal create failure", func(t *testing.T) {
		doc := mustParse(t, teamFirst)
		w := &fakeWorkspace{failCreateDB: map[string]bool{"Project": true}}
		s := &Setup{Workspace: w, ParentPageID: "parent"}
		path := filepath.Join(t.TempDir(), "notion-ids.json")
		if _, err := s.Run(t.Context(), doc, idmap.New(), path); err == nil {
			t.Fatal("expected error")
		}
		saved, err := idmap.Load(path)
		if err != nil {
			t.Fatalf("expected mapping to be saved: %v", err)
		}
		if id, _ := saved.Get("Team"); id != "db-1" {
			t.Errorf("expected Team -> db-1, got %q", id)
		}
	})

	t.Run("no mapping written when nothing created", func(t *testing.T) {
		doc := mustParse(t, `
entities:
  Team:
    properties:
      Name: nope
`)
		s := &Setup{Workspace: &fakeWorkspace{}, ParentPageID: "parent"}
		path := filepath.Join(t.TempDir(), "notion-ids.json")
		if _, err := s.Run(t.Context(), doc, idmap.New(), path); err == nil {
			t.Fatal("expected error")
		}
		if _, err := idmap.Load(path); !errors.Is(err, idmap.ErrNotFound) {
			t.Errorf("expected no mapping file, got %v", err)
		}
	})
}
