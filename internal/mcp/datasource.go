package mcp

import (
	"context"
	"io"

	"github.com/claude/liftlog/internal/aggregate"
	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/models"
)

// DataSource abstracts the journal for MCP tools. Both *journal.Journal
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Summary(ctx context.Context, r journal.Range) (journal.View[journal.Summary], error)
	VolumeByCategory(ctx context.Context, r journal.Range) (journal.View[[]aggregate.CategoryVolume], error)
	DailyVolume(ctx context.Context, r journal.Range) (journal.View[[]aggregate.DayVolume], error)
	Progression(ctx context.Context, exercise string, r journal.Range) (journal.View[[]aggregate.ProgressionPoint], error)
	Consistency(ctx context.Context, r journal.Range) (journal.View[[]aggregate.WeekdayCount], error)
	TopExercises(ctx context.Context, n int, r journal.Range) (journal.View[[]aggregate.ExerciseCount], error)
	Exercises(ctx context.Context, r journal.Range) (journal.View[[]string], error)
	ImportText(ctx context.Context, r io.Reader) (*ingest.Result, error)
	Sessions(ctx context.Context) ([]models.Session, error)
	Classify(ctx context.Context, name string) (classify.Match, error)
	MuscleTable(ctx context.Context) (classify.Table, error)
}

// Compile-time check: *journal.Journal satisfies DataSource.
var _ DataSource = (*journal.Journal)(nil)
