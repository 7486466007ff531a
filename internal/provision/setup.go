// Creates or updates databases and wires relations between them.

package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maruel/notionspec/internal/idmap"
	"github.com/maruel/notionspec/internal/notion"
	"github.com/maruel/notionspec/internal/spec"
)

// Setup synchronizes spec entities to Notion databases.
//
// It never deletes databases or properties; it only creates databases and
// adds or changes properties.
type Setup struct {
	Workspace    Workspace
	ParentPageID string
	Reporter     Reporter
}

// SyncResult is the outcome of Sync.
type SyncResult struct {
	Created  []string       // entities whose database was created
	Updated  []string       // entities whose database already existed
	Attached []RelationLink // relations set while syncing
	Deferred []RelationLink // relations left for Wire
}

// Run synchronizes the schema, saves the mapping to idsPath and then wires
// deferred relations.
//
// The mapping is saved even when synchronization fails part way, so that
// databases created before the failure are updated rather than duplicated on
// the next run.
func (s *Setup) Run(ctx context.Context, doc *spec.Document, ids *idmap.Mapping, idsPath string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}
	r := s.reporter(stats)

	res, err := s.sync(ctx, r, doc, ids)
	if res != nil {
		stats.Created = len(res.Created)
		stats.Updated = len(res.Updated)
		stats.Relations = len(res.Attached)
	}
	if err != nil {
		if res != nil && len(res.Created) > 0 {
			if serr := ids.Save(idsPath); serr != nil {
				err = errors.Join(err, serr)
			}
		}
		return stats, err
	}
	if err := ids.Save(idsPath); err != nil {
		return stats, err
	}

	stats.Relations += s.wire(ctx, r, res.Deferred, ids)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)
	r.OnComplete(*stats)
	return stats, nil
}

// Sync creates the database of each entity that is not in ids and updates
// the others, in document order. Created ids are added to ids.
//
// Any failure is fatal. The returned result describes the work done before
// the failure.
func (s *Setup) Sync(ctx context.Context, doc *spec.Document, ids *idmap.Mapping) (*SyncResult, error) {
	return s.sync(ctx, s.reporter(&Stats{}), doc, ids)
}

func (s *Setup) sync(ctx context.Context, r Reporter, doc *spec.Document, ids *idmap.Mapping) (*SyncResult, error) {
	if err := CheckTypes(doc); err != nil {
		return nil, err
	}
	res := &SyncResult{}
	r.OnPhase("Creating or updating databases", len(doc.Entities))
	for _, e := range doc.Entities {
		r.OnProgress(e.Name)
		schema, err := translateEntity(e, ids)
		if err != nil {
			return res, err
		}
		if id, ok := ids.Get(e.Name); ok {
			req := &notion.UpdateDatabaseRequest{Properties: schema.update}
			if _, err := s.Workspace.UpdateDatabase(ctx, id, req); err != nil {
				return res, fmt.Errorf("failed to update database %q (%s): %w", e.Name, id, err)
			}
			res.Updated = append(res.Updated, e.Name)
		} else {
			if s.ParentPageID == "" {
				return res, fmt.Errorf("cannot create database %q: no parent page", e.Name)
			}
			req := &notion.CreateDatabaseRequest{
				Parent:     notion.PageParent(s.ParentPageID),
				Title:      notion.Text(e.Name),
				Properties: schema.create,
			}
			db, err := s.Workspace.CreateDatabase(ctx, req)
			if err != nil {
				return res, fmt.Errorf("failed to create database %q: %w", e.Name, err)
			}
			ids.Set(e.Name, db.ID)
			res.Created = append(res.Created, e.Name)
		}
		res.Attached = append(res.Attached, schema.attached...)
		res.Deferred = append(res.Deferred, schema.deferred...)
	}
	return res, nil
}

// Wire attaches deferred relations, one update per source database. Links
// whose target has no database are skipped with a warning; failed updates
// are reported and skipped. It returns the number of relations attached.
func (s *Setup) Wire(ctx context.Context, links []RelationLink, ids *idmap.Mapping) int {
	return s.wire(ctx, s.reporter(&Stats{}), links, ids)
}

func (s *Setup) wire(ctx context.Context, r Reporter, links []RelationLink, ids *idmap.Mapping) int {
	var sources []string
	bySource := make(map[string][]RelationLink)
	for _, l := range links {
		if _, ok := bySource[l.Source]; !ok {
			sources = append(sources, l.Source)
		}
		bySource[l.Source] = append(bySource[l.Source], l)
	}

	r.OnPhase("Creating relations between databases", len(sources))
	wired := 0
	for _, source := range sources {
		if ctx.Err() != nil {
			return wired
		}
		r.OnProgress(source)
		props := make(map[string]notion.DBProperty)
		for _, l := range bySource[source] {
			targetID, ok := ids.Get(l.Target)
			if !ok {
				r.OnWarning(fmt.Sprintf("Could not create relation %q from %q to %q because the target database was not found", l.Property, source, l.Target))
				continue
			}
			props[l.Property] = notion.DBProperty{Relation: notion.SingleRelation(targetID)}
		}
		if len(props) == 0 {
			continue
		}
		sourceID, ok := ids.Get(source)
		if !ok {
			r.OnError(fmt.Errorf("no database for %q", source))
			continue
		}
		if _, err := s.Workspace.UpdateDatabase(ctx, sourceID, &notion.UpdateDatabaseRequest{Properties: props}); err != nil {
			r.OnError(fmt.Errorf("failed to update relations for %q: %w", source, err))
			continue
		}
		wired += len(props)
	}
	return wired
}

func (s *Setup) reporter(stats *Stats) Reporter {
	r := s.Reporter
	if r == nil {
		r = NullReporter{}
	}
	return &tally{Reporter: r, stats: stats}
}
