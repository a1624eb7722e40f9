package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
)

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(log *slog.Logger) *Provider {
	return &Provider{log: log}
}

// Source implements ingest.Provider.
func (p *Provider) Source() string { return ingest.SourceAlpha }

// Decode parses a CSV export into sessions.
func (p *Provider) Decode(ctx context.Context, r io.Reader) ([]models.Session, *ingest.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	sessions, err := Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := ingest.Count(sessions)
	result.Source = p.Source()
	if len(sessions) == 0 {
		result.Message = "no working sets found in export"
	}
	p.log.Debug("parsed alpha export",
		"sessions", result.SessionsReceived,
		"sets", result.SetsReceived,
	)
	return sessions, result, nil
}
