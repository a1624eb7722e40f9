package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/liftlog/internal/aggregate"
	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/models"
)

func newTestServer(t *testing.T, seed bool) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	j := journal.New(nil, classify.Default(), journal.Options{SeedDemo: seed}, log)
	if err := j.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(j, log)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// TestImportTextThenSummary covers the main flow: paste a log, read the totals.
func TestImportTextThenSummary(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodPost, "/api/v1/import/text", "Date:2026-01-25\nBench Press(50Kg)\n1->10\n2->8")
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body)
	}
	result := decode[ingest.Result](t, rec)
	if result.SessionsAdded != 1 || result.SetsReceived != 2 {
		t.Errorf("result = %+v", result)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	summary := decode[journal.View[journal.Summary]](t, rec)
	if summary.Data.TotalVolume != 900 {
		t.Errorf("total volume = %v, want 900", summary.Data.TotalVolume)
	}
	if summary.Data.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", summary.Data.Sessions)
	}
}

func TestImportJSONRejectsInvalid(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodPost, "/api/v1/import/json", `{"not": "an array"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["kind"] != "invalid_json" || body["error"] == "" {
		t.Errorf("error body = %v", body)
	}

	// The demo history is still in place.
	rec = do(t, s, http.MethodGet, "/api/v1/sessions", "")
	sessions := decode[[]models.Session](t, rec)
	if len(sessions) != 6 {
		t.Errorf("sessions = %d, want 6", len(sessions))
	}
}

func TestImportJSONMode(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodPost, "/api/v1/import/json?mode=append", `[]`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["kind"] != "invalid_mode" {
		t.Errorf("kind = %q, want invalid_mode", body["kind"])
	}

	upload := `[{"date": "2026-02-01", "exercises": [{"name": "Plank", "sets": [{"set": 1, "reps": 60}], "weight": null}]}]`
	rec = do(t, s, http.MethodPost, "/api/v1/import/json?mode=merge", upload)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status = %d, body = %s", rec.Code, rec.Body)
	}
	if result := decode[ingest.Result](t, rec); result.SessionsTotal != 7 {
		t.Errorf("sessions total = %d, want 7", result.SessionsTotal)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/import/json", upload)
	if result := decode[ingest.Result](t, rec); result.SessionsTotal != 1 || result.Mode != "replace" {
		t.Errorf("replace result = %+v", result)
	}
}

func TestImportAlpha(t *testing.T) {
	s := newTestServer(t, false)

	export := "\"Pull\";\"2026-01-27 7:30 h\";\"0:45 hr\"\n\"1. Barbell Row · Barbell · 8 reps\"\n#;KG;REPS;RIR\n1;50;8;2\n"
	rec := do(t, s, http.MethodPost, "/api/v1/import/alpha", export)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if result := decode[ingest.Result](t, rec); result.Source != "alpha" || result.SessionsAdded != 1 {
		t.Errorf("result = %+v", result)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/import/alpha", "1;50;8;2")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["kind"] != "invalid_csv" {
		t.Errorf("kind = %q, want invalid_csv", body["kind"])
	}
}

func TestConsistencyHasSevenRows(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(t, s, http.MethodGet, "/api/v1/consistency", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	v := decode[journal.View[[]aggregate.WeekdayCount]](t, rec)
	if len(v.Data) != 7 || v.Data[0].Weekday != "Monday" {
		t.Errorf("consistency = %+v", v.Data)
	}
}

func TestViewsDateRange(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/api/v1/volume/daily?start=2026-01-01&end=2026-01-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	daily := decode[journal.View[[]aggregate.DayVolume]](t, rec)
	if len(daily.Data) != 2 || daily.Data[0].Date != "2026-01-22" {
		t.Errorf("daily = %+v, want the two January sessions", daily.Data)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/volume/categories?start=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad start status = %d, want 400", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["kind"] != "invalid_date" {
		t.Errorf("kind = %q, want invalid_date", body["kind"])
	}

	rec = do(t, s, http.MethodGet, "/api/v1/records?start=2026-02-01&end=2026-01-01", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range status = %d, want 400", rec.Code)
	}
}

func TestProgressionRequiresExercise(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/api/v1/progression", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/progression?exercise=Plank", "")
	v := decode[journal.View[[]aggregate.ProgressionPoint]](t, rec)
	if len(v.Data) != 2 {
		t.Errorf("plank points = %d, want 2", len(v.Data))
	}
}

func TestTopExercises(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/api/v1/exercises/top?n=3", "")
	v := decode[journal.View[[]aggregate.ExerciseCount]](t, rec)
	if len(v.Data) != 3 {
		t.Errorf("top = %d rows, want 3", len(v.Data))
	}

	rec = do(t, s, http.MethodGet, "/api/v1/exercises/top?n=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/api/v1/classify?name=Barbell+Bench+Press", "")
	m := decode[classify.Match](t, rec)
	if m.Category != "Chest" || m.Source != classify.SourceExact {
		t.Errorf("match = %+v", m)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/classify?name=Unknown+Movement+XYZ", "")
	if m := decode[classify.Match](t, rec); m.Category != "Other" {
		t.Errorf("category = %q, want Other", m.Category)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/classify", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", rec.Code)
	}
}

func TestClearSessions(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodDelete, "/api/v1/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/sessions", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("sessions after clear = %s, want []", rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/summary", "")
	summary := decode[journal.View[journal.Summary]](t, rec)
	if summary.Data.TotalVolume != 0 || summary.Data.Sessions != 0 {
		t.Errorf("summary after clear = %+v", summary.Data)
	}
}

func TestExportSessionsAsText(t *testing.T) {
	s := newTestServer(t, false)
	do(t, s, http.MethodPost, "/api/v1/import/text", "Date:2026-01-25\nRow(40)\n1->10\n")
	do(t, s, http.MethodPost, "/api/v1/import/text", "Date:2026-01-27\nPlank\n1->60\n")

	rec := do(t, s, http.MethodGet, "/api/v1/sessions?format=text", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := "Date:2026-01-25\nRow(40)\n1->10\n\nDate:2026-01-27\nPlank\n1->60\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("text export = %q, want %q", got, want)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/sessions?format=xml", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodOptions, "/api/v1/import/text", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Errorf("allowed methods = %q", got)
	}
}

func TestImportLogsWithoutStore(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodGet, "/api/v1/imports?limit=5", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("imports = %d %s", rec.Code, rec.Body)
	}
}

func TestRequestLoggingCapturesStatus(t *testing.T) {
	var buf strings.Builder
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if !strings.Contains(buf.String(), "status=418") {
		t.Errorf("log = %q, want status=418", buf.String())
	}
}
