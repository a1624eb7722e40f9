// Package upload pushes workout logs from a local directory to a remote
// LiftLog server, remembering which files were already sent.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/liftlog/internal/importer"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/ingest/jsonlog"
	"github.com/claude/liftlog/internal/ingest/textlog"
	"github.com/claude/liftlog/internal/models"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsSent     int
	SetsSent         int
	SessionsReplaced int
}

// Uploader walks a log directory and POSTs every new or changed file to
// the server. Text logs and Alpha CSV exports go to their own endpoints,
// JSON exports are merged.
type Uploader struct {
	client *Client
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, root string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		root:   root,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the upload pipeline.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	if !u.dryRun {
		if err := u.client.CheckHealth(ctx); err != nil {
			return &u.stats, err
		}
	}

	err := filepath.WalkDir(u.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch importer.LogExt(path) {
		case ".txt", ".log", ".json", ".csv":
			return u.processFile(ctx, path)
		}
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("uploading %s: %w", u.root, err)
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	u.stats.FilesTotal++

	relPath, _ := filepath.Rel(u.root, path)
	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	uploaded, err := u.state.IsUploaded(relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	data, err := importer.ReadLog(path)
	if err != nil {
		u.log.Warn("read failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	if u.dryRun {
		result, err := parseLocal(path, data)
		if err != nil {
			u.log.Warn("parse failed", "file", path, "error", err)
			u.stats.FilesErrored++
			return nil
		}
		u.log.Info("dry-run: would send", "file", relPath, "sessions", result.SessionsReceived, "sets", result.SetsReceived)
		u.count(result)
		return nil
	}

	var result *ingest.Result
	switch importer.LogExt(path) {
	case ".json":
		result, err = u.client.SendJSON(ctx, data, "merge")
	case ".csv":
		result, err = u.client.SendAlpha(ctx, data)
	default:
		result, err = u.client.SendText(ctx, data)
	}
	if errors.Is(err, ErrRejected) {
		u.log.Warn("server rejected file", "file", path, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if err != nil {
		return fmt.Errorf("sending %s: %w", relPath, err)
	}

	u.count(result)
	if err := u.state.MarkUploaded(relPath, info.Size(), hash, result.SessionsReceived); err != nil {
		u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
	}
	u.log.Info("uploaded file",
		"file", relPath,
		"sessions", result.SessionsReceived,
		"sets", result.SetsReceived,
		"replaced", result.SessionsReplaced,
	)
	return nil
}

func (u *Uploader) count(r *ingest.Result) {
	u.stats.FilesUploaded++
	u.stats.SessionsSent += r.SessionsReceived
	u.stats.SetsSent += r.SetsReceived
	u.stats.SessionsReplaced += r.SessionsReplaced
}

// parseLocal decodes a file the way the server would, for dry runs.
func parseLocal(path string, data []byte) (*ingest.Result, error) {
	switch importer.LogExt(path) {
	case ".json":
		sessions, err := jsonlog.Decode(data)
		if err != nil {
			return nil, err
		}
		return ingest.Count(sessions), nil
	case ".csv":
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return ingest.Count(sessions), nil
	}
	session, err := textlog.ParseString(string(data))
	if err != nil {
		return nil, err
	}
	return ingest.Count([]models.Session{session}), nil
}
