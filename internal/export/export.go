// Package export writes the rows of provisioned databases to Markdown and
// CSV backup files.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/notionspec/internal/idmap"
	"github.com/maruel/notionspec/internal/notion"
)

// Querier lists the rows of a database. *notion.Client implements it.
type Querier interface {
	QueryDatabaseAll(ctx context.Context, databaseID string) ([]notion.Page, error)
}

var _ Querier = (*notion.Client)(nil)

// Exporter writes one <name>.md and one <name>.csv per database.
type Exporter struct {
	Querier Querier
	Dir     string
	Logger  *slog.Logger
}

// Result is the outcome of Run.
type Result struct {
	Exported []string // entity names, mapping order
	Files    []string // written files, relative to Dir
	Failed   int      // databases that could not be exported
}

// Run exports every database of ids in mapping order. A failed database is
// logged and counted; the others are still exported.
func (e *Exporter) Run(ctx context.Context, ids *idmap.Mapping) (*Result, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil { //nolint:gosec // G301: backup directory is meant to be shared
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	res := &Result{}
	for name, id := range ids.All() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pages, err := e.Querier.QueryDatabaseAll(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return res, err
			}
			log.Error("export failed", "entity", name, "database", id, "err", err)
			res.Failed++
			continue
		}
		base := fileBase(name)
		if err := writeFile(filepath.Join(e.Dir, base+".md"), Markdown(name, pages)); err != nil {
			return res, err
		}
		data, err := CSV(pages)
		if err != nil {
			return res, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if err := writeFile(filepath.Join(e.Dir, base+".csv"), data); err != nil {
			return res, err
		}
		res.Exported = append(res.Exported, name)
		res.Files = append(res.Files, base+".md", base+".csv")
		log.Info("exported", "entity", name, "rows", len(pages))
	}
	return res, nil
}

// Markdown renders pages as a heading per row followed by one bullet per
// property holding its raw JSON value.
func Markdown(name string, pages []notion.Page) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", name)
	for i := range pages {
		fmt.Fprintf(&b, "## Page: %s\n", pages[i].ID)
		if props := pages[i].Properties; props != nil {
			for pair := props.Oldest(); pair != nil; pair = pair.Next() {
				fmt.Fprintf(&b, "- **%s**: %s\n", pair.Key, compact(pair.Value))
			}
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

// CSV renders pages with one column per property of the first page. Later
// pages' properties missing from the first page are not written; a
// property absent from a page is written as "".
func CSV(pages []notion.Page) ([]byte, error) {
	var headers []string
	if len(pages) > 0 && pages[0].Properties != nil {
		for pair := pages[0].Properties.Oldest(); pair != nil; pair = pair.Next() {
			headers = append(headers, pair.Key)
		}
	}
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	record := make([]string, len(headers))
	for i := range pages {
		for j, h := range headers {
			record[j] = `""`
			if pages[i].Properties == nil {
				continue
			}
			if v, ok := pages[i].Properties.Get(h); ok {
				record[j] = compact(v)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return b.Bytes(), w.Error()
}

func compact(raw json.RawMessage) string {
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return string(raw)
	}
	return b.String()
}

// fileBase returns a file name for an entity name.
func fileBase(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: backups are not secret
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
