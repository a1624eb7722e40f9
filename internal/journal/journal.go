// Package journal owns the active session collection of the process. It
// merges imports into it, persists it as a blob and serves the aggregate
// views over its normalized records.
package journal

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/collection"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/ingest/jsonlog"
	"github.com/claude/liftlog/internal/ingest/textlog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/normalize"
	"github.com/claude/liftlog/internal/storage"
)

//go:embed demo.json
var demoHistory []byte

// Mode selects how a JSON upload is applied to the collection.
type Mode string

const (
	// ModeReplace swaps the whole collection for the upload.
	ModeReplace Mode = "replace"
	// ModeMerge replaces sessions date by date and keeps the rest.
	ModeMerge Mode = "merge"
)

// ErrInvalidMode is returned for an unknown upload mode.
var ErrInvalidMode = errors.New("invalid import mode")

// ParseMode reads an upload mode; empty means replace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeMerge:
		return ModeMerge, nil
	}
	return "", fmt.Errorf("%w: %q (want replace or merge)", ErrInvalidMode, s)
}

// Options configures a Journal.
type Options struct {
	// Key is the storage key of the session blob.
	Key string
	// SeedDemo loads the bundled demo history when nothing is stored yet.
	SeedDemo bool
}

// Journal is safe for concurrent use. Mutations build a new collection,
// persist it and only then make it visible.
type Journal struct {
	store      storage.Store
	classifier *classify.Classifier
	normalizer *normalize.Normalizer
	text       *textlog.Provider
	alpha      *alpha.Provider
	json       *jsonlog.Provider
	opts       Options
	log        *slog.Logger

	mu      sync.RWMutex
	coll    collection.Collection
	records []models.Record
	report  normalize.Report
}

// New creates a journal. store may be nil for a memory-only journal.
func New(store storage.Store, c *classify.Classifier, opts Options, log *slog.Logger) *Journal {
	if opts.Key == "" {
		opts.Key = storage.DefaultKey
	}
	j := &Journal{
		store:      store,
		classifier: c,
		normalizer: normalize.New(c, log),
		text:       textlog.NewProvider(log),
		alpha:      alpha.NewProvider(log),
		json:       jsonlog.NewProvider(log),
		opts:       opts,
		log:        log,
	}
	j.swap(collection.Collection{})
	return j
}

// Load restores the collection from storage. When nothing is stored and
// SeedDemo is set, the demo history is loaded and saved.
func (j *Journal) Load(ctx context.Context) error {
	if j.store == nil {
		if j.opts.SeedDemo {
			return j.seed(ctx)
		}
		return nil
	}

	data, err := j.store.LoadSessions(ctx, j.opts.Key)
	if errors.Is(err, storage.ErrNotFound) {
		if j.opts.SeedDemo {
			return j.seed(ctx)
		}
		j.log.Info("no stored sessions, starting empty", "key", j.opts.Key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}

	sessions, err := jsonlog.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding stored sessions: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.swap(collection.New(sessions))
	j.log.Info("sessions loaded", "sessions", j.coll.Len(), "records", len(j.records))
	if err := j.report.Err(); err != nil {
		j.log.Warn("stored sessions have invalid dates", "error", err)
	}
	return nil
}

func (j *Journal) seed(ctx context.Context) error {
	sessions, err := jsonlog.Decode(demoHistory)
	if err != nil {
		return fmt.Errorf("decoding demo history: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.commit(ctx, collection.New(sessions)); err != nil {
		return err
	}
	j.log.Info("seeded demo history", "sessions", len(sessions))
	return nil
}

// ImportText parses a pasted text log and merges its session by date.
// A log with no exercises changes nothing.
func (j *Journal) ImportText(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	return j.importMerged(ctx, j.text, r)
}

// ImportAlpha parses an Alpha Progression CSV export and merges its
// sessions by date.
func (j *Journal) ImportAlpha(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	return j.importMerged(ctx, j.alpha, r)
}

// importMerged decodes r with p and merges the sessions that have
// exercises, replacing existing sessions on the same dates.
func (j *Journal) importMerged(ctx context.Context, p ingest.Provider, r io.Reader) (*ingest.Result, error) {
	started := time.Now()
	sessions, result, err := p.Decode(ctx, r)
	if err != nil {
		j.logImport(ctx, &ingest.Result{Source: p.Source(), Mode: string(ModeMerge)}, started, err)
		return nil, err
	}
	result.Mode = string(ModeMerge)

	var keep []models.Session
	for _, s := range sessions {
		if len(s.Exercises) > 0 {
			keep = append(keep, s)
		}
	}

	j.mu.Lock()
	if len(keep) > 0 {
		next, stats := j.coll.Merge(keep)
		if err = j.commit(ctx, next); err == nil {
			result.SessionsAdded = stats.Added
			result.SessionsReplaced = stats.Replaced
		}
	}
	result.SessionsTotal = j.coll.Len()
	j.mu.Unlock()

	j.logImport(ctx, result, started, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportJSON applies an uploaded session array. Invalid input is rejected
// whole and the collection is left unchanged.
func (j *Journal) ImportJSON(ctx context.Context, r io.Reader, mode Mode) (*ingest.Result, error) {
	started := time.Now()
	if mode == "" {
		mode = ModeReplace
	}
	sessions, result, err := j.json.Decode(ctx, r)
	if err != nil {
		j.logImport(ctx, &ingest.Result{Source: ingest.SourceJSON, Mode: string(mode)}, started, err)
		return nil, err
	}
	result.Mode = string(mode)

	j.mu.Lock()
	var next collection.Collection
	switch mode {
	case ModeReplace:
		next = collection.New(sessions)
		result.SessionsAdded = next.Len()
		result.SessionsReplaced = j.coll.Len()
	case ModeMerge:
		var stats collection.MergeStats
		next, stats = j.coll.Merge(sessions)
		result.SessionsAdded = stats.Added
		result.SessionsReplaced = stats.Replaced
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if err == nil {
		err = j.commit(ctx, next)
	}
	result.SessionsTotal = j.coll.Len()
	j.mu.Unlock()

	j.logImport(ctx, result, started, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear purges every session.
func (j *Journal) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.store != nil {
		if err := j.store.DeleteSessions(ctx, j.opts.Key); err != nil {
			return err
		}
	}
	j.swap(collection.Collection{})
	j.log.Info("sessions cleared")
	return nil
}

// Sessions returns a copy of the active sessions in date order.
func (j *Journal) Sessions(_ context.Context) ([]models.Session, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.coll.Sessions(), nil
}

// Export writes the active sessions in the JSON exchange format.
func (j *Journal) Export(ctx context.Context, w io.Writer) error {
	sessions, err := j.Sessions(ctx)
	if err != nil {
		return err
	}
	return jsonlog.Encode(w, sessions)
}

// Imports lists recent import log entries, newest first.
func (j *Journal) Imports(ctx context.Context, limit int) ([]storage.ImportLog, error) {
	if j.store == nil {
		return []storage.ImportLog{}, nil
	}
	return j.store.QueryImportLogs(ctx, limit)
}

// Classify explains how a name is categorized.
func (j *Journal) Classify(_ context.Context, name string) (classify.Match, error) {
	return j.classifier.Match(name), nil
}

// MuscleTable returns the classifier definition in use.
func (j *Journal) MuscleTable(_ context.Context) (classify.Table, error) {
	return j.classifier.Table(), nil
}

// commit persists next and makes it the active collection. Caller holds mu.
func (j *Journal) commit(ctx context.Context, next collection.Collection) error {
	if j.store != nil {
		var buf bytes.Buffer
		if err := jsonlog.Encode(&buf, next.Sessions()); err != nil {
			return err
		}
		if err := j.store.SaveSessions(ctx, j.opts.Key, buf.Bytes()); err != nil {
			return err
		}
	}
	j.swap(next)
	return nil
}

// swap installs c and its normalized records. Caller holds mu.
func (j *Journal) swap(c collection.Collection) {
	j.coll = c
	j.records, j.report = j.normalizer.Normalize(c.Sessions())
}

func (j *Journal) logImport(ctx context.Context, result *ingest.Result, started time.Time, importErr error) {
	duration := int(time.Since(started).Milliseconds())
	entry := storage.ImportLog{
		Source:            result.Source,
		Mode:              result.Mode,
		Status:            storage.StatusSuccess,
		SessionsReceived:  result.SessionsReceived,
		ExercisesReceived: result.ExercisesReceived,
		SetsReceived:      result.SetsReceived,
		SessionsAdded:     result.SessionsAdded,
		SessionsReplaced:  result.SessionsReplaced,
		DurationMs:        &duration,
	}
	if importErr != nil {
		entry.Status = storage.StatusError
		msg := importErr.Error()
		entry.ErrorMessage = &msg
		j.log.Warn("import failed", "source", result.Source, "error", importErr)
	} else {
		j.log.Info("import complete",
			"source", result.Source,
			"mode", result.Mode,
			"sessions_received", result.SessionsReceived,
			"sets_received", result.SetsReceived,
			"added", result.SessionsAdded,
			"replaced", result.SessionsReplaced,
			"duration_ms", duration,
		)
	}

	if j.store == nil {
		return
	}
	// The log entry outlives a cancelled request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	id, err := j.store.InsertImportLog(ctx, entry)
	if err != nil {
		j.log.Warn("failed to record import log", "error", err)
		return
	}
	result.ImportID = id.String()
}
