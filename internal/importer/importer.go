// Package importer bulk-loads workout logs from a directory tree into a
// journal.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/ingest/jsonlog"
	"github.com/claude/liftlog/internal/ingest/textlog"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/models"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	SessionsReceived int
	SetsReceived     int
	SessionsAdded    int
	SessionsReplaced int

	ErroredFiles []string
}

// Target receives decoded logs. *journal.Journal satisfies it.
type Target interface {
	ImportText(ctx context.Context, r io.Reader) (*ingest.Result, error)
	ImportJSON(ctx context.Context, r io.Reader, mode journal.Mode) (*ingest.Result, error)
	ImportAlpha(ctx context.Context, r io.Reader) (*ingest.Result, error)
}

var _ Target = (*journal.Journal)(nil)

// Importer walks a directory of .txt/.log text logs, .json session
// exports and .csv Alpha Progression exports, optionally compressed as
// .gz or .zst. Files are applied in
// lexical path order, JSON files in merge mode, so a later file wins
// for a date both contain.
type Importer struct {
	target Target
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. target may be nil in dry-run mode.
func New(target Target, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{target: target, log: log, dryRun: dryRun}
}

// Import processes every log file under root.
func (imp *Importer) Import(ctx context.Context, root string) (*Stats, error) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return imp.importFile(ctx, path)
	})
	if err != nil {
		return &imp.stats, fmt.Errorf("importing %s: %w", root, err)
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) error {
	var decode func(context.Context, io.Reader) (*ingest.Result, error)
	switch LogExt(path) {
	case ".txt", ".log":
		decode = imp.text
	case ".json":
		decode = imp.json
	case ".csv":
		decode = imp.alpha
	default:
		imp.stats.FilesSkipped++
		return nil
	}

	data, err := ReadLog(path)
	if err != nil {
		imp.fileFailed(path, err)
		return nil
	}

	result, err := decode(ctx, bytes.NewReader(data))
	if err != nil {
		if isInputError(err) {
			imp.fileFailed(path, err)
			return nil
		}
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	if result.SetsReceived == 0 {
		imp.log.Info("no sets in file", "file", path)
		imp.stats.FilesSkipped++
		return nil
	}

	imp.stats.FilesProcessed++
	imp.stats.SessionsReceived += result.SessionsReceived
	imp.stats.SetsReceived += result.SetsReceived
	imp.stats.SessionsAdded += result.SessionsAdded
	imp.stats.SessionsReplaced += result.SessionsReplaced
	imp.log.Debug("imported file", "file", path, "sessions", result.SessionsReceived, "sets", result.SetsReceived)
	return nil
}

func (imp *Importer) text(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	if !imp.dryRun {
		return imp.target.ImportText(ctx, r)
	}
	session, err := textlog.Parse(r)
	if err != nil {
		return nil, err
	}
	if len(session.Exercises) == 0 {
		return &ingest.Result{Source: ingest.SourceText}, nil
	}
	return ingest.Count([]models.Session{session}), nil
}

func (imp *Importer) json(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	if !imp.dryRun {
		return imp.target.ImportJSON(ctx, r, journal.ModeMerge)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sessions, err := jsonlog.Decode(data)
	if err != nil {
		return nil, err
	}
	return ingest.Count(sessions), nil
}

func (imp *Importer) alpha(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	if !imp.dryRun {
		return imp.target.ImportAlpha(ctx, r)
	}
	sessions, err := alpha.Parse(r)
	if err != nil {
		return nil, err
	}
	return ingest.Count(sessions), nil
}

func (imp *Importer) fileFailed(path string, err error) {
	imp.log.Warn("import failed", "file", path, "error", err)
	imp.stats.FilesErrored++
	imp.stats.ErroredFiles = append(imp.stats.ErroredFiles, path)
}

// isInputError reports whether err is a problem with one file rather than
// with the target.
func isInputError(err error) bool {
	return errors.Is(err, jsonlog.ErrInvalidInput) ||
		errors.Is(err, alpha.ErrMalformed) ||
		errors.Is(err, bufio.ErrTooLong)
}
