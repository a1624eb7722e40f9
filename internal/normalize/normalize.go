// Package normalize flattens sessions into per-set records: dates parsed,
// weights sanitized, exercises classified and exploded per category.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/sanitize"
)

// ErrInvalidDate marks a session whose date could not be parsed.
var ErrInvalidDate = errors.New("invalid session date")

// DateError labels the offending session date.
type DateError struct {
	Date  string `json:"date"`
	Index int    `json:"index"`
}

func (e *DateError) Error() string {
	if e.Date == "" {
		return fmt.Sprintf("session %d: missing date", e.Index)
	}
	return fmt.Sprintf("session %d: %q: %s", e.Index, e.Date, ErrInvalidDate)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04",
}

// ParseDate accepts the canonical date form plus RFC 3339 and a minute
// timestamp. The result is truncated to the calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Report describes what happened during a normalization pass.
type Report struct {
	Sessions       int          `json:"sessions"`
	Exercises      int          `json:"exercises"`
	Records        int          `json:"records"`
	WeightFailures int          `json:"weight_failures"`
	DateErrors     []*DateError `json:"date_errors,omitempty"`
}

// Err joins the date errors, nil when every session had a usable date.
func (r Report) Err() error {
	if len(r.DateErrors) == 0 {
		return nil
	}
	errs := make([]error, len(r.DateErrors))
	for i, e := range r.DateErrors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Issues renders the date errors as strings for API responses.
func (r Report) Issues() []string {
	out := make([]string, 0, len(r.DateErrors))
	for _, e := range r.DateErrors {
		out = append(out, e.Error())
	}
	return out
}

// Normalizer turns sessions into flat records.
type Normalizer struct {
	classifier *classify.Classifier
	log        *slog.Logger
}

// New creates a normalizer using c for categories.
func New(c *classify.Classifier, log *slog.Logger) *Normalizer {
	return &Normalizer{classifier: c, log: log}
}

// Normalize flattens sessions. Each set yields one record per category
// token; records of a session with an unusable date are skipped and the
// date reported.
func (n *Normalizer) Normalize(sessions []models.Session) ([]models.Record, Report) {
	var (
		records []models.Record
		report  Report
	)

	for i, s := range sessions {
		report.Sessions++
		date, err := ParseDate(s.Date)
		if err != nil {
			report.DateErrors = append(report.DateErrors, &DateError{Date: s.Date, Index: i})
			n.log.Warn("skipping session with invalid date", "index", i, "date", s.Date)
			continue
		}

		seq := 0
		for _, ex := range s.Exercises {
			if len(ex.Sets) == 0 {
				continue
			}
			report.Exercises++

			weight, err := sanitize.ParseWeight(ex.Weight.String())
			if err != nil {
				report.WeightFailures++
				n.log.Debug("unparseable weight",
					"date", s.Date,
					"exercise", ex.Name,
					"weight", ex.Weight.String(),
				)
			}

			categories := classify.Split(n.classifier.Resolve(ex).Category)
			cardio := n.classifier.IsCardio(ex.Name, categories)

			for _, set := range ex.Sets {
				seq++
				reps := max(set.Reps, 0)
				volume := weight * float64(reps)
				if cardio {
					volume = float64(reps)
				}
				for _, cat := range categories {
					records = append(records, models.Record{
						Date:     date,
						Exercise: ex.Name,
						Category: cat,
						Weight:   weight,
						Reps:     reps,
						Volume:   volume,
						SetNum:   set.Set,
						Seq:      seq,
						Cardio:   cardio,
					})
				}
			}
		}
	}

	if records == nil {
		records = []models.Record{}
	}
	report.Records = len(records)
	return records, report
}
