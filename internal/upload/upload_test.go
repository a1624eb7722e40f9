package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/server"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newLiftLog starts a real API server over an in-memory journal.
func newLiftLog(t *testing.T) (*httptest.Server, *journal.Journal) {
	t.Helper()
	j := journal.New(nil, classify.Default(), journal.Options{}, discard)
	ts := httptest.NewServer(server.New(j, discard))
	t.Cleanup(ts.Close)
	return ts, j
}

func TestRunUploadsOnce(t *testing.T) {
	ts, j := newLiftLog(t)
	logs := t.TempDir()
	writeLog(t, logs, "monday.txt", "Date:2026-01-05\nBench Press(40)\n1->10\n2->10\n")
	writeLog(t, logs, "export.json", `[{"date": "2026-01-07", "exercises": [{"name": "Plank", "sets": [{"set": 1, "reps": 60}], "weight": null}]}]`)
	writeLog(t, logs, "broken.json", `{"oops": true}`)
	writeLog(t, logs, "readme.md", "ignored")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(NewClient(ts.URL), state, logs, false, discard).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesTotal != 3 || stats.FilesUploaded != 2 || stats.FilesErrored != 1 {
		t.Errorf("stats = %+v, want 3 total, 2 uploaded, 1 errored", stats)
	}
	if stats.SetsSent != 3 {
		t.Errorf("SetsSent = %d, want 3", stats.SetsSent)
	}

	sessions, _ := j.Sessions(context.Background())
	if len(sessions) != 2 {
		t.Fatalf("server has %d sessions, want 2", len(sessions))
	}

	// Second run skips what was sent and retries only the rejected file.
	stats, err = New(NewClient(ts.URL), state, logs, false, discard).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSkipped != 2 || stats.FilesUploaded != 0 || stats.FilesErrored != 1 {
		t.Errorf("second run stats = %+v", stats)
	}
}

func TestRunUploadsAlphaExport(t *testing.T) {
	ts, j := newLiftLog(t)
	logs := t.TempDir()
	writeLog(t, logs, "alpha.csv", "\"Pull\";\"2026-01-13 7:30 h\";\"0:45 hr\"\n\"1. Barbell Row · Barbell · 8 reps\"\n#;KG;REPS;RIR\n1;50;8;2\n2;50;8;1\n")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(NewClient(ts.URL), state, logs, false, discard).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesUploaded != 1 || stats.SetsSent != 2 {
		t.Errorf("stats = %+v, want 1 file and 2 sets", stats)
	}
	sessions, _ := j.Sessions(context.Background())
	if len(sessions) != 1 || sessions[0].Date != "2026-01-13" {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestRunDryRun(t *testing.T) {
	logs := t.TempDir()
	writeLog(t, logs, "monday.txt", "Date:2026-01-05\nBench Press(40)\n1->10\n2->10\n")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(nil, state, logs, true, discard).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesUploaded != 1 || stats.SetsSent != 2 {
		t.Errorf("dry-run stats = %+v", stats)
	}
	if n, _ := state.Count(); n != 0 {
		t.Errorf("dry run recorded %d files, want 0", n)
	}
}

func TestRunServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	if _, err := New(NewClient(ts.URL), state, t.TempDir(), false, discard).Run(context.Background()); err == nil {
		t.Error("expected health check error")
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"source":"text","sessions_received":1,"sets_received":2}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.backoff = time.Millisecond

	res, err := c.SendText(context.Background(), []byte("Date:2026-01-05\n"))
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if res.SetsReceived != 2 {
		t.Errorf("SetsReceived = %d, want 2", res.SetsReceived)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSendDoesNotRetryRejection(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("mode"); got != "merge" {
			t.Errorf("mode = %q, want merge", got)
		}
		http.Error(w, `{"error":"bad","kind":"invalid_json"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.backoff = time.Millisecond

	_, err := c.SendJSON(context.Background(), []byte(`{}`), "merge")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}
