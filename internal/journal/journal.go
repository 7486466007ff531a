// Package journal records the rows created by seeding.
//
// Seeding has no dedup key, so running it twice creates every sample row
// twice. The journal keeps an append-only record of what each run created so
// a later run can tell that an entity was already seeded.
package journal

import (
	"time"

	"github.com/maruel/ksid"
)

// Entry is one row created by a seed run.
type Entry struct {
	Run     ksid.ID   `json:"run"`
	Entity  string    `json:"entity"`
	Title   string    `json:"title,omitempty"`
	RowID   string    `json:"row_id"`
	Created time.Time `json:"created"`
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// Journal is the seed journal file.
type Journal struct {
	table *Table[*Entry]
}

// Open loads the journal at path, creating it on first append.
func Open(path string) (*Journal, error) {
	t, err := NewTable[*Entry](path)
	if err != nil {
		return nil, err
	}
	return &Journal{table: t}, nil
}

// Record appends an entry.
func (j *Journal) Record(e *Entry) error {
	return j.table.Append(e)
}

// Count returns how many rows were recorded for entity across all runs.
func (j *Journal) Count(entity string) int {
	n := 0
	for e := range j.table.All() {
		if e.Entity == entity {
			n++
		}
	}
	return n
}

// Runs returns the distinct run ids in the journal, oldest first.
func (j *Journal) Runs() []ksid.ID {
	var runs []ksid.ID
	seen := make(map[ksid.ID]bool)
	for e := range j.table.All() {
		if !seen[e.Run] {
			seen[e.Run] = true
			runs = append(runs, e.Run)
		}
	}
	return runs
}
