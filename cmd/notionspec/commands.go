// Implements the setup, seed, export and schema commands.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/notionspec/internal/config"
	"github.com/maruel/notionspec/internal/export"
	"github.com/maruel/notionspec/internal/idmap"
	"github.com/maruel/notionspec/internal/journal"
	"github.com/maruel/notionspec/internal/notion"
	"github.com/maruel/notionspec/internal/provision"
	"github.com/maruel/notionspec/internal/spec"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: notionspec %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}
	return nil
}

// runLogger returns the default logger tagged with a new run id.
func runLogger(cmd string) (*slog.Logger, ksid.ID) {
	id := ksid.NewID()
	return slog.Default().With("cmd", cmd, "run", id.String()), id
}

func runSetup(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("setup")
	specFile := fs.String("spec", cfg.SpecFile, "Spec document")
	idsFile := fs.String("ids", cfg.IDsFile, "Id mapping file")
	watch := fs.Bool("watch", false, "Run again whenever the spec file changes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	if err := cfg.RequireParent(); err != nil {
		return err
	}
	client := notion.NewClient(cfg.Token)
	once := func() error {
		return setupOnce(ctx, client, cfg.ParentPageID, *specFile, *idsFile)
	}
	if !*watch {
		return once()
	}
	if err := once(); err != nil {
		slog.ErrorContext(ctx, "setup failed", "err", err)
	}
	return watchFile(ctx, *specFile, func() {
		if err := once(); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "setup failed", "err", err)
		}
	})
}

func setupOnce(ctx context.Context, ws provision.Workspace, parent, specFile, idsFile string) error {
	doc, err := spec.Load(specFile)
	if err != nil {
		return err
	}
	ids, err := idmap.LoadOrEmpty(idsFile)
	if err != nil {
		return err
	}
	logger, _ := runLogger("setup")
	s := &provision.Setup{
		Workspace:    ws,
		ParentPageID: parent,
		Reporter:     provision.NewLogReporter(logger),
	}
	stats, err := s.Run(ctx, doc, ids, idsFile)
	if err != nil {
		return err
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%d relation updates failed", stats.Errors)
	}
	logger.InfoContext(ctx, "databases are ready", "ids", idsFile)
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("seed")
	specFile := fs.String("spec", cfg.SpecFile, "Spec document")
	idsFile := fs.String("ids", cfg.IDsFile, "Id mapping file")
	journalFile := fs.String("journal", cfg.JournalFile, "Seed journal; empty disables it")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	doc, err := spec.Load(*specFile)
	if err != nil {
		return err
	}
	ids, err := idmap.Load(*idsFile)
	if err != nil {
		if errors.Is(err, idmap.ErrNotFound) {
			return fmt.Errorf("%w; run setup first", err)
		}
		return err
	}
	logger, runID := runLogger("seed")
	s := &provision.Seeder{
		Workspace: notion.NewClient(cfg.Token),
		Reporter:  provision.NewLogReporter(logger),
		RunID:     runID,
	}
	if *journalFile != "" {
		if s.Journal, err = journal.Open(*journalFile); err != nil {
			return err
		}
	}
	stats, err := s.Run(ctx, doc, ids)
	if err != nil {
		return err
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%d row calls failed", stats.Errors)
	}
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("export")
	idsFile := fs.String("ids", cfg.IDsFile, "Id mapping file")
	out := fs.String("out", cfg.BackupDir, "Backup directory")
	commit := fs.Bool("commit", false, "Commit the backup directory to git")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	ids, err := idmap.Load(*idsFile)
	if err != nil {
		return err
	}
	logger, _ := runLogger("export")
	e := &export.Exporter{Querier: notion.NewClient(cfg.Token), Dir: *out, Logger: logger}
	res, err := e.Run(ctx, ids)
	if err != nil {
		return err
	}
	if *commit {
		repo, err := export.OpenRepo(*out, "notionspec", "notionspec@localhost")
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Export %d databases\n\nExported at %s.", len(res.Exported), time.Now().UTC().Format(time.RFC3339))
		done, err := repo.Commit(msg, res.Files)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "backup history", "committed", done)
	}
	logger.InfoContext(ctx, "export complete", "dir", *out, "databases", len(res.Exported))
	if res.Failed > 0 {
		return fmt.Errorf("%d databases could not be exported", res.Failed)
	}
	return nil
}

func runSchema(args []string) error {
	fs := newFlagSet("schema")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	data, err := spec.JSONSchema()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
