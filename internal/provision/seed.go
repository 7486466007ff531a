// Seeds sample rows in two passes: insert, then link relations by title.

package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/notionspec/internal/idmap"
	"github.com/maruel/notionspec/internal/journal"
	"github.com/maruel/notionspec/internal/notion"
	"github.com/maruel/notionspec/internal/spec"
)

// TitleIndex maps a relation's target entity name to that entity's rows,
// keyed by title. It is keyed by target entity rather than by relation
// property name so that two relations sharing a name but pointing at
// different entities resolve independently. When two rows share a title the
// last one added wins.
type TitleIndex map[string]map[string]string

// Add records that entity's row titled title has id rowID.
func (x TitleIndex) Add(entity, title, rowID string) {
	m := x[entity]
	if m == nil {
		m = make(map[string]string)
		x[entity] = m
	}
	m[title] = rowID
}

// Lookup returns the id of entity's row titled title.
func (x TitleIndex) Lookup(entity, title string) (string, bool) {
	id, ok := x[entity][title]
	return id, ok
}

// Seeder inserts the sample rows of a document.
//
// Rows have no dedup key: seeding twice creates every row twice. When Journal
// is set, every created row is recorded and re-seeding an entity is reported
// as a warning.
type Seeder struct {
	Workspace Workspace
	Reporter  Reporter
	Journal   *journal.Journal
	RunID     ksid.ID
}

// insertedRow is a row created by pass 1.
type insertedRow struct {
	entity *spec.Entity
	index  int
	id     string
	row    spec.Row
}

// Run seeds every entity with sample rows. ids must hold the database id of
// each entity. Per-row failures are reported and skipped; only context
// cancellation is returned as an error.
func (s *Seeder) Run(ctx context.Context, doc *spec.Document, ids *idmap.Mapping) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}
	r := s.reporter(stats)

	inserted, err := s.insert(ctx, r, doc, ids, stats)
	if err != nil {
		return stats, err
	}
	index := buildTitleIndex(doc, inserted)
	if err := s.link(ctx, r, inserted, index, stats); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)
	r.OnComplete(*stats)
	return stats, nil
}

// insert is pass 1: create every row with its non-relation values.
func (s *Seeder) insert(ctx context.Context, r Reporter, doc *spec.Document, ids *idmap.Mapping, stats *Stats) ([]insertedRow, error) {
	total := 0
	for _, e := range doc.Entities {
		total += len(e.SampleRows)
	}
	r.OnPhase("Inserting sample rows", total)

	var inserted []insertedRow
	for _, e := range doc.Entities {
		if len(e.SampleRows) == 0 {
			continue
		}
		dbID, ok := ids.Get(e.Name)
		if !ok {
			r.OnWarning(fmt.Sprintf("Skipping sample data for %q: database id not found", e.Name))
			continue
		}
		if s.Journal != nil {
			if n := s.Journal.Count(e.Name); n > 0 {
				r.OnWarning(fmt.Sprintf("%q was already seeded with %d rows; seeding again creates duplicates", e.Name, n))
			}
		}
		titleProp := e.TitleProperty()
		for i, row := range e.SampleRows {
			if err := ctx.Err(); err != nil {
				return inserted, err
			}
			r.OnProgress(fmt.Sprintf("%s[%d]", e.Name, i))
			props := s.rowProperties(r, e, i, row)
			page, err := s.Workspace.CreatePage(ctx, &notion.CreatePageRequest{
				Parent:     notion.DatabaseParent(dbID),
				Properties: props,
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return inserted, err
				}
				r.OnError(fmt.Errorf("failed to insert row %d into %q: %w", i, e.Name, err))
				continue
			}
			stats.Rows++
			inserted = append(inserted, insertedRow{entity: e, index: i, id: page.ID, row: row})
			if s.Journal != nil {
				title := ""
				if titleProp != "" {
					title = scalarString(row[titleProp])
				}
				entry := &journal.Entry{Run: s.RunID, Entity: e.Name, Title: title, RowID: page.ID, Created: time.Now().UTC()}
				if err := s.Journal.Record(entry); err != nil {
					r.OnError(fmt.Errorf("failed to record row %d of %q: %w", i, e.Name, err))
				}
			}
		}
	}
	return inserted, nil
}

// rowProperties builds the pass 1 property set of a row, in property order.
func (s *Seeder) rowProperties(r Reporter, e *spec.Entity, i int, row spec.Row) map[string]notion.PropertyValue {
	props := make(map[string]notion.PropertyValue, len(row))
	for j := range e.Properties {
		p := &e.Properties[j]
		v, ok := row[p.Name]
		if !ok || blank(v) || p.Type == spec.TypeRelation || p.Type.ReadOnly() {
			continue
		}
		if p.Type == spec.TypePeople {
			r.OnWarning(fmt.Sprintf("Skipping people property %q of %q row %d: user ids are not known", p.Name, e.Name, i))
			continue
		}
		pv, err := cellValue(p, v)
		if err != nil {
			r.OnWarning(fmt.Sprintf("Skipping %s of %q row %d", err, e.Name, i))
			continue
		}
		props[p.Name] = pv
	}
	return props
}

// buildTitleIndex indexes the inserted rows of every entity that some
// relation points at, in insertion order.
func buildTitleIndex(doc *spec.Document, inserted []insertedRow) TitleIndex {
	targets := make(map[string]bool)
	for _, e := range doc.Entities {
		for i := range e.Properties {
			if p := &e.Properties[i]; p.Type == spec.TypeRelation {
				targets[p.TargetEntity] = true
			}
		}
	}
	index := make(TitleIndex)
	for _, ir := range inserted {
		if !targets[ir.entity.Name] {
			continue
		}
		titleProp := ir.entity.TitleProperty()
		if titleProp == "" {
			continue
		}
		v, ok := ir.row[titleProp]
		if !ok {
			continue
		}
		index.Add(ir.entity.Name, scalarString(v), ir.id)
	}
	return index
}

// link is pass 2: set the relation values of inserted rows.
func (s *Seeder) link(ctx context.Context, r Reporter, inserted []insertedRow, index TitleIndex, stats *Stats) error {
	r.OnPhase("Linking relations", len(inserted))
	for _, ir := range inserted {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := ir.entity
		props := make(map[string]notion.PropertyValue)
		for j := range e.Properties {
			p := &e.Properties[j]
			if p.Type != spec.TypeRelation {
				continue
			}
			v, ok := ir.row[p.Name]
			if !ok {
				continue
			}
			var rel []notion.RelationValue
			for _, title := range relationTitles(v) {
				id, ok := index.Lookup(p.TargetEntity, title)
				if !ok {
					r.OnWarning(fmt.Sprintf("Could not resolve %q for relation %q of %q row %d: no %q row with that title", title, p.Name, e.Name, ir.index, p.TargetEntity))
					continue
				}
				rel = append(rel, notion.RelationValue{ID: id})
			}
			if len(rel) > 0 {
				props[p.Name] = notion.PropertyValue{Relation: rel}
			}
		}
		if len(props) == 0 {
			continue
		}
		r.OnProgress(fmt.Sprintf("%s[%d]", e.Name, ir.index))
		if _, err := s.Workspace.UpdatePage(ctx, ir.id, &notion.UpdatePageRequest{Properties: props}); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.OnError(fmt.Errorf("failed to link row %d of %q (%s): %w", ir.index, e.Name, ir.id, err))
			continue
		}
		stats.Linked++
	}
	return nil
}

func (s *Seeder) reporter(stats *Stats) Reporter {
	r := s.Reporter
	if r == nil {
		r = NullReporter{}
	}
	return &tally{Reporter: r, stats: stats}
}
