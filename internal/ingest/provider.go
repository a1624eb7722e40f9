package ingest

import (
	"context"
	"io"

	"github.com/claude/liftlog/internal/models"
)

// Import sources, recorded in import logs.
const (
	SourceText  = "text"
	SourceJSON  = "json"
	SourceAlpha = "alpha"
)

// Provider decodes one kind of input into sessions without touching the
// active collection.
type Provider interface {
	Source() string
	Decode(ctx context.Context, r io.Reader) ([]models.Session, *Result, error)
}

// Result holds the outcome of an ingest operation.
type Result struct {
	ImportID string `json:"import_id,omitempty"`
	Source   string `json:"source"`
	Mode     string `json:"mode,omitempty"`

	SessionsReceived  int `json:"sessions_received"`
	ExercisesReceived int `json:"exercises_received"`
	SetsReceived      int `json:"sets_received"`
	RepsFailures      int `json:"reps_failures,omitempty"`

	SessionsAdded    int `json:"sessions_added"`
	SessionsReplaced int `json:"sessions_replaced"`
	SessionsTotal    int `json:"sessions_total"`

	Dates   []string `json:"dates,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Count fills the "received" counters of a fresh Result.
func Count(sessions []models.Session) *Result {
	r := &Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		r.ExercisesReceived += len(s.Exercises)
		r.SetsReceived += s.SetCount()
		r.Dates = append(r.Dates, s.Date)
	}
	return r
}
