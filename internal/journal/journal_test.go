package journal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/ingest/jsonlog"
	"github.com/claude/liftlog/internal/storage"
)

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	logs    []storage.ImportLog
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) SaveSessions(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.blobs[key] = bytes.Clone(data)
	return nil
}

func (m *memStore) LoadSessions(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) DeleteSessions(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memStore) InsertImportLog(_ context.Context, l storage.ImportLog) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	m.logs = append([]storage.ImportLog{l}, m.logs...)
	return l.ID, nil
}

func (m *memStore) QueryImportLogs(_ context.Context, limit int) ([]storage.ImportLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.logs) {
		return m.logs[:limit], nil
	}
	return m.logs, nil
}

func (m *memStore) Close() error { return nil }

func newTestJournal(store storage.Store, opts Options) *Journal {
	return New(store, classify.Default(), opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const benchLog = "Date:2026-01-25\nBench Press(50Kg)\n1->10\n2->8"

func TestImportTextPersistsAndLogs(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{})

	result, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)
	assert.Equal(t, "text", result.Source)
	assert.Equal(t, "merge", result.Mode)
	assert.Equal(t, 1, result.SessionsAdded)
	assert.Equal(t, 1, result.SessionsTotal)
	assert.Equal(t, 2, result.SetsReceived)
	assert.NotEmpty(t, result.ImportID)

	// The stored blob decodes back to the active collection.
	stored, err := jsonlog.Decode(store.blobs[storage.DefaultKey])
	require.NoError(t, err)
	active, err := j.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, active, stored)

	logs, err := j.Imports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, storage.StatusSuccess, logs[0].Status)
	assert.Equal(t, 2, logs[0].SetsReceived)
}

// TestReimportReplacesSession verifies importing the same date twice keeps
// one session holding the second import's content.
func TestReimportReplacesSession(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(newMemStore(), Options{})

	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)
	result, err := j.ImportText(ctx, strings.NewReader("Date:2026-01-25\nSquat(80)\n1->5"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.SessionsAdded)
	assert.Equal(t, 1, result.SessionsReplaced)

	sessions, _ := j.Sessions(ctx)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Exercises, 1)
	assert.Equal(t, "Squat", sessions[0].Exercises[0].Name)

	total, err := j.Summary(ctx, Range{})
	require.NoError(t, err)
	assert.Equal(t, 400.0, total.Data.TotalVolume)
}

func TestImportTextWithoutExercises(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(newMemStore(), Options{})

	result, err := j.ImportText(ctx, strings.NewReader("Date:2026-01-25\n1->10"))
	require.NoError(t, err)
	assert.Equal(t, "no exercises found in log", result.Message)
	assert.Zero(t, result.SessionsTotal)
}

func TestImportAlphaMergesByDate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{})

	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	export := `"Push";"2026-01-25 7:30 h";"0:50 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 40 kg · 8 reps"
#;KG;REPS;RIR
1;60;6;1
2;60;6;0

"Pull";"2026-01-27 7:30 h";"0:45 hr"
"1. Barbell Row · Barbell · 8 reps"
#;KG;REPS;RIR
1;50;8;2
`
	result, err := j.ImportAlpha(ctx, strings.NewReader(export))
	require.NoError(t, err)
	assert.Equal(t, "alpha", result.Source)
	assert.Equal(t, 1, result.SessionsAdded)
	assert.Equal(t, 1, result.SessionsReplaced)
	assert.Equal(t, 2, result.SessionsTotal)

	total, err := j.Summary(ctx, Range{})
	require.NoError(t, err)
	assert.Equal(t, 60.0*12+50*8, total.Data.TotalVolume)

	require.Len(t, store.logs, 2)
	assert.Equal(t, "alpha", store.logs[0].Source)
}

func TestImportAlphaMalformedLogsFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{})

	_, err := j.ImportAlpha(ctx, strings.NewReader(`"1. Plank · Bodyweight · 60 reps"`))
	require.Error(t, err)
	require.Len(t, store.logs, 1)
	assert.Equal(t, storage.StatusError, store.logs[0].Status)
}

func TestImportJSONModes(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(newMemStore(), Options{})

	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	upload := `[{"date": "2026-01-26", "exercises": [{"name": "Plank", "sets": [{"set": 1, "reps": 60}], "weight": null}]}]`

	result, err := j.ImportJSON(ctx, strings.NewReader(upload), ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SessionsAdded)
	assert.Equal(t, 2, result.SessionsTotal)

	result, err = j.ImportJSON(ctx, strings.NewReader(upload), ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SessionsTotal)
	assert.Equal(t, 2, result.SessionsReplaced)

	sessions, _ := j.Sessions(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "2026-01-26", sessions[0].Date)
}

func TestImportJSONInvalidLeavesCollection(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{})
	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	_, err = j.ImportJSON(ctx, strings.NewReader(`[{"date": "2026-01-26", "exercises": "none"}]`), ModeReplace)
	require.ErrorIs(t, err, jsonlog.ErrInvalidInput)

	sessions, _ := j.Sessions(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "2026-01-25", sessions[0].Date)

	logs, _ := j.Imports(ctx, 1)
	require.Len(t, logs, 1)
	assert.Equal(t, storage.StatusError, logs[0].Status)
	require.NotNil(t, logs[0].ErrorMessage)
}

func TestSaveFailureKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{})
	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	_, err = j.ImportText(ctx, strings.NewReader("Date:2026-01-27\nSquat(80)\n1->5"))
	require.Error(t, err)

	sessions, _ := j.Sessions(ctx)
	assert.Len(t, sessions, 1)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	first := newTestJournal(store, Options{})
	_, err := first.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	second := newTestJournal(store, Options{})
	require.NoError(t, second.Load(ctx))
	sessions, _ := second.Sessions(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Bench Press", sessions[0].Exercises[0].Name)
}

func TestLoadSeedsDemoHistory(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{SeedDemo: true})
	require.NoError(t, j.Load(ctx))

	sessions, _ := j.Sessions(ctx)
	assert.Len(t, sessions, 6)
	assert.Contains(t, store.blobs, storage.DefaultKey)

	summary, err := j.Summary(ctx, Range{})
	require.NoError(t, err)
	assert.Empty(t, summary.Issues)
	assert.Equal(t, 6, summary.Data.Sessions)
	assert.Equal(t, "2025-12-15", summary.Data.FirstWorkout)
	assert.Equal(t, "2026-01-23", summary.Data.LastWorkout)

	consistency, err := j.Consistency(ctx, Range{})
	require.NoError(t, err)
	assert.Len(t, consistency.Data, 7)

	// Seeding never overwrites stored data.
	_, err = j.ImportJSON(ctx, strings.NewReader(`[]`), ModeReplace)
	require.NoError(t, err)
	again := newTestJournal(store, Options{SeedDemo: true})
	require.NoError(t, again.Load(ctx))
	sessions, _ = again.Sessions(ctx)
	assert.Empty(t, sessions)
}

func TestViewsReportInvalidDates(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(nil, Options{})
	upload := `[
	  {"date": "someday", "exercises": [{"name": "Plank", "sets": [{"set": 1, "reps": 60}]}]},
	  {"date": "2026-01-26", "exercises": [{"name": "Barbell Row", "weight": "40", "sets": [{"set": 1, "reps": 10}]}]}
	]`
	_, err := j.ImportJSON(ctx, strings.NewReader(upload), ModeReplace)
	require.NoError(t, err)

	daily, err := j.DailyVolume(ctx, Range{})
	require.NoError(t, err)
	require.Len(t, daily.Data, 1)
	assert.Equal(t, 400.0, daily.Data[0].Volume)
	require.Len(t, daily.Issues, 1)
	assert.Contains(t, daily.Issues[0], "someday")

	summary, err := j.Summary(ctx, Range{})
	require.NoError(t, err)
	assert.Len(t, summary.Data.Report.DateErrors, 1)
}

func TestUndatedJSONSessionIsReported(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(nil, Options{})
	upload := `[
	  {"exercises": [{"name": "Plank", "sets": [{"set": 1, "reps": 60}]}]},
	  {"date": "2026-01-26", "exercises": [{"name": "Barbell Row", "weight": "40", "sets": [{"set": 1, "reps": 10}]}]}
	]`
	_, err := j.ImportJSON(ctx, strings.NewReader(upload), ModeReplace)
	require.NoError(t, err)

	summary, err := j.Summary(ctx, Range{})
	require.NoError(t, err)
	assert.Equal(t, 400.0, summary.Data.TotalVolume)
	require.Len(t, summary.Issues, 1)
	assert.Contains(t, summary.Issues[0], "missing date")
}

// TestMergeSameDayDifferentFormat re-imports a day written as a
// timestamp; it must replace the plain-date entry, not sit beside it.
func TestMergeSameDayDifferentFormat(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(nil, Options{})
	day := `[{"date": "2026-01-25", "exercises": [{"name": "Barbell Bench Press", "weight": "30", "sets": [{"set": 1, "reps": 10}]}]}]`
	stamped := `[{"date": "2026-01-25T09:00:00Z", "exercises": [{"name": "Barbell Bench Press", "weight": "30", "sets": [{"set": 1, "reps": 10}]}]}]`

	_, err := j.ImportJSON(ctx, strings.NewReader(day), ModeReplace)
	require.NoError(t, err)
	result, err := j.ImportJSON(ctx, strings.NewReader(stamped), ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SessionsReplaced)
	assert.Equal(t, 1, result.SessionsTotal)

	byCategory, err := j.VolumeByCategory(ctx, Range{})
	require.NoError(t, err)
	require.Len(t, byCategory.Data, 1)
	assert.Equal(t, "Chest", byCategory.Data[0].Category)
	assert.Equal(t, 300.0, byCategory.Data[0].Volume)
}

func TestViewsRangeFilter(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(nil, Options{SeedDemo: true})
	require.NoError(t, j.Load(ctx))

	jan := Range{Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	exercises, err := j.Exercises(ctx, jan)
	require.NoError(t, err)
	assert.Contains(t, exercises.Data, "Barbell Thrusters")
	assert.NotContains(t, exercises.Data, "Cycling")

	progression, err := j.Progression(ctx, "Rotating Biceps Curl", Range{})
	require.NoError(t, err)
	require.Len(t, progression.Data, 3)
	assert.Equal(t, 9.5, progression.Data[0].MaxWeight)

	top, err := j.TopExercises(ctx, 1, Range{})
	require.NoError(t, err)
	require.Len(t, top.Data, 1)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	j := newTestJournal(store, Options{})
	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	require.NoError(t, j.Clear(ctx))
	sessions, _ := j.Sessions(ctx)
	assert.Empty(t, sessions)
	assert.NotContains(t, store.blobs, storage.DefaultKey)

	records, err := j.Records(ctx, Range{})
	require.NoError(t, err)
	assert.Empty(t, records.Data)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeReplace, "replace": ModeReplace, "merge": ModeMerge} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("append")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(nil, Options{})
	_, err := j.ImportText(ctx, strings.NewReader(benchLog))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, j.Export(ctx, &buf))
	sessions, err := jsonlog.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "50Kg", sessions[0].Exercises[0].Weight.String())
}
