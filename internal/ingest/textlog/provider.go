package textlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
)

// Provider ingests pasted plain-text workout logs.
type Provider struct {
	log *slog.Logger
}

// NewProvider creates a new text log ingest provider.
func NewProvider(log *slog.Logger) *Provider {
	return &Provider{log: log}
}

// Source implements ingest.Provider.
func (p *Provider) Source() string { return ingest.SourceText }

// Decode parses one text log into a single session.
func (p *Provider) Decode(ctx context.Context, r io.Reader) ([]models.Session, *ingest.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	session, err := Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing text log: %w", err)
	}

	result := ingest.Count([]models.Session{session})
	result.Source = p.Source()
	if len(session.Exercises) == 0 {
		result.Message = "no exercises found in log"
	}
	p.log.Debug("parsed text log",
		"date", session.Date,
		"exercises", result.ExercisesReceived,
		"sets", result.SetsReceived,
	)
	return []models.Session{session}, result, nil
}
