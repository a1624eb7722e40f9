package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/claude/liftlog/internal/aggregate"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/ingest/jsonlog"
	"github.com/claude/liftlog/internal/ingest/textlog"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/normalize"
)

// Error kinds returned in the "kind" field of error bodies.
const (
	kindInvalidJSON   = "invalid_json"
	kindInvalidText   = "invalid_text"
	kindInvalidCSV    = "invalid_csv"
	kindInvalidFormat = "invalid_format"
	kindInvalidMode   = "invalid_mode"
	kindInvalidDate   = "invalid_date"
	kindInvalidParam  = "invalid_param"
	kindTooLarge      = "too_large"
	kindInternal      = "internal"
)

const defaultTopN = 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	result, err := s.journal.ImportText(r.Context(), body)
	if err != nil {
		s.writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportAlpha(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	result, err := s.journal.ImportAlpha(r.Context(), body)
	if err != nil {
		s.writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	mode, err := journal.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidMode, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	result, err := s.journal.ImportJSON(r.Context(), body, mode)
	if err != nil {
		s.writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeImportError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, kindTooLarge, err)
	case errors.Is(err, jsonlog.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, kindInvalidJSON, err)
	case errors.Is(err, alpha.ErrMalformed):
		writeError(w, http.StatusBadRequest, kindInvalidCSV, err)
	case errors.Is(err, bufio.ErrTooLong):
		writeError(w, http.StatusBadRequest, kindInvalidText, err)
	case errors.Is(err, journal.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, kindInvalidMode, err)
	default:
		s.log.Error("import error", "error", err)
		writeError(w, http.StatusInternalServerError, kindInternal, err)
	}
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.journal.Imports(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleExportSessions writes the collection as the JSON session array,
// or with ?format=text as text logs separated by blank lines.
func (s *Server) handleExportSessions(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		if err := s.journal.Export(r.Context(), w); err != nil {
			s.log.Error("export failed", "error", err)
		}
	case "text":
		sessions, err := s.journal.Sessions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, kindInternal, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for i, session := range sessions {
			if i > 0 {
				_, _ = io.WriteString(w, "\n")
			}
			_, _ = io.WriteString(w, textlog.Format(session))
		}
	default:
		writeError(w, http.StatusBadRequest, kindInvalidFormat, fmt.Errorf("unknown export format %q", r.URL.Query().Get("format")))
	}
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.journal.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, s.journal.Records)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, s.journal.Summary)
}

func (s *Server) handleVolumeByCategory(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, s.journal.VolumeByCategory)
}

func (s *Server) handleDailyVolume(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, s.journal.DailyVolume)
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, s.journal.Consistency)
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	serveView(w, r, s.journal.Exercises)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeError(w, http.StatusBadRequest, kindInvalidParam, errors.New("exercise parameter required"))
		return
	}
	serveView(w, r, func(ctx context.Context, rng journal.Range) (journal.View[[]aggregate.ProgressionPoint], error) {
		return s.journal.Progression(ctx, exercise, rng)
	})
}

func (s *Server) handleTopExercises(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, kindInvalidParam, fmt.Errorf("n must be a positive integer, got %q", v))
			return
		}
		n = parsed
	}
	serveView(w, r, func(ctx context.Context, rng journal.Range) (journal.View[[]aggregate.ExerciseCount], error) {
		return s.journal.TopExercises(ctx, n, rng)
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, kindInvalidParam, errors.New("name parameter required"))
		return
	}
	match, err := s.journal.Classify(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (s *Server) handleMuscleTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.journal.MuscleTable(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// serveView parses the optional date window and writes the view.
func serveView[T any](w http.ResponseWriter, r *http.Request, fn func(context.Context, journal.Range) (journal.View[T], error)) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidDate, err)
		return
	}
	v, err := fn(r.Context(), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}

// parseRange reads optional start/end (YYYY-MM-DD or RFC 3339). Both are
// truncated to the day and inclusive.
func parseRange(r *http.Request) (journal.Range, error) {
	var rng journal.Range
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := normalize.ParseDate(v)
		if err != nil {
			return rng, fmt.Errorf("start: %w: %q", err, v)
		}
		rng.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := normalize.ParseDate(v)
		if err != nil {
			return rng, fmt.Errorf("end: %w: %q", err, v)
		}
		rng.End = t
	}
	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
		return rng, fmt.Errorf("end %s is before start %s", rng.End.Format("2006-01-02"), rng.Start.Format("2006-01-02"))
	}
	return rng, nil
}
