// Package provision creates Notion databases from a spec document and seeds
// their sample rows.
//
// Relations are linked in two phases at both levels:
//   - Schema: a relation whose target database does not exist yet is returned
//     as a RelationLink by the synchronizer and attached by the wirer once
//     every database exists.
//   - Rows: pass 1 inserts rows without relation values and indexes them by
//     title; pass 2 resolves relation titles through the TitleIndex and
//     updates the rows.
//
// Calls are sequential. Fatal failures are returned as errors; best-effort
// failures go to the Reporter and are counted in Stats.
package provision
