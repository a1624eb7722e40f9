package journal

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/aggregate"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/normalize"
)

// Range bounds a view by session date, inclusive. Zero bounds are open.
type Range struct {
	Start time.Time
	End   time.Time
}

// View wraps a computed table with the normalization issues of the data it
// was computed from, so "no data" and "bad data" can be told apart.
type View[T any] struct {
	Data   T        `json:"data"`
	Issues []string `json:"issues,omitempty"`
}

// Summary is the dashboard headline plus normalization counters.
type Summary struct {
	aggregate.Overview
	Report normalize.Report `json:"report"`
}

// snapshot returns the records within r and the current report.
func (j *Journal) snapshot(ctx context.Context, r Range) ([]models.Record, normalize.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, normalize.Report{}, err
	}
	j.mu.RLock()
	records, report := j.records, j.report
	j.mu.RUnlock()
	// records is immutable once swapped in.
	return aggregate.FilterRange(records, r.Start, r.End), report, nil
}

func view[T any](ctx context.Context, j *Journal, r Range, fn func([]models.Record) T) (View[T], error) {
	records, report, err := j.snapshot(ctx, r)
	if err != nil {
		return View[T]{}, err
	}
	return View[T]{Data: fn(records), Issues: report.Issues()}, nil
}

// Records returns the flat normalized records.
func (j *Journal) Records(ctx context.Context, r Range) (View[[]models.Record], error) {
	return view(ctx, j, r, func(recs []models.Record) []models.Record { return recs })
}

// Summary returns the headline overview.
func (j *Journal) Summary(ctx context.Context, r Range) (View[Summary], error) {
	records, report, err := j.snapshot(ctx, r)
	if err != nil {
		return View[Summary]{}, err
	}
	return View[Summary]{
		Data:   Summary{Overview: aggregate.Summarize(records), Report: report},
		Issues: report.Issues(),
	}, nil
}

// VolumeByCategory returns exploded volume per muscle group.
func (j *Journal) VolumeByCategory(ctx context.Context, r Range) (View[[]aggregate.CategoryVolume], error) {
	return view(ctx, j, r, aggregate.VolumeByCategory)
}

// DailyVolume returns distinct-set volume per day.
func (j *Journal) DailyVolume(ctx context.Context, r Range) (View[[]aggregate.DayVolume], error) {
	return view(ctx, j, r, aggregate.DailyVolume)
}

// Progression returns the per-day history of one exercise.
func (j *Journal) Progression(ctx context.Context, exercise string, r Range) (View[[]aggregate.ProgressionPoint], error) {
	return view(ctx, j, r, func(recs []models.Record) []aggregate.ProgressionPoint {
		return aggregate.Progression(recs, exercise)
	})
}

// Consistency returns training days per weekday.
func (j *Journal) Consistency(ctx context.Context, r Range) (View[[]aggregate.WeekdayCount], error) {
	return view(ctx, j, r, aggregate.ConsistencyByWeekday)
}

// TopExercises returns the n exercises with the most sets.
func (j *Journal) TopExercises(ctx context.Context, n int, r Range) (View[[]aggregate.ExerciseCount], error) {
	return view(ctx, j, r, func(recs []models.Record) []aggregate.ExerciseCount {
		return aggregate.TopExercises(recs, n)
	})
}

// Exercises returns the distinct exercise names.
func (j *Journal) Exercises(ctx context.Context, r Range) (View[[]string], error) {
	return view(ctx, j, r, aggregate.Exercises)
}
