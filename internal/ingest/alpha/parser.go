// Package alpha reads Alpha Progression CSV exports.
package alpha

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/sanitize"
)

// ErrMalformed is returned (wrapped) for exports whose structure cannot be
// followed, such as set rows before any exercise header.
var ErrMalformed = errors.New("malformed alpha progression export")

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setDataRe matches: 1;115;8;1
	setDataRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// columnHeaderRe matches: #;KG;REPS;RIR
	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// Parse reads an export and returns one session per training day, in
// export order. Only the numbered working-set rows become sets; warm-ups
// appear solely in the exercise header's trailing annotation, which is
// ignored. Because a session carries one weight
// per exercise, each run of working sets at the same load becomes its own
// exercise entry: 102,5 102,5 100 yields two "Bench Press" entries.
// Sessions logged on the same day are combined.
func Parse(r io.Reader) ([]models.Session, error) {
	scanner := bufio.NewScanner(r)

	byDate := map[string]*models.Session{}
	var order []string
	var session *models.Session
	var name string
	var haveExercise bool
	var line int

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())

		// Blank line = session boundary
		if text == "" {
			session, haveExercise = nil, false
			continue
		}

		if columnHeaderRe.MatchString(text) {
			continue
		}

		if m := sessionHeaderRe.FindStringSubmatch(text); m != nil {
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			key := date.Format(models.DateLayout)
			if byDate[key] == nil {
				byDate[key] = &models.Session{Date: key}
				order = append(order, key)
			}
			session, haveExercise = byDate[key], false
			continue
		}

		if m := exerciseHeaderRe.FindStringSubmatch(text); m != nil {
			if session == nil {
				return nil, fmt.Errorf("%w: line %d: exercise without session: %q", ErrMalformed, line, text)
			}
			name = strings.TrimSpace(m[2])
			haveExercise = true
			continue
		}

		if m := setDataRe.FindStringSubmatch(text); m != nil {
			if !haveExercise {
				return nil, fmt.Errorf("%w: line %d: set data without exercise: %q", ErrMalformed, line, text)
			}
			setNum, _ := strconv.Atoi(m[1])
			reps, _ := sanitize.ParseReps(m[3])
			addSet(session, name, strings.TrimSpace(m[2]), models.Set{Set: setNum, Reps: reps})
			continue
		}

		// Unknown line, skip silently (could be notes or other metadata)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	sessions := make([]models.Session, 0, len(order))
	for _, key := range order {
		if s := byDate[key]; len(s.Exercises) > 0 {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

// addSet appends set to the last exercise of s when it is the same
// movement at the same load, and starts a new entry otherwise.
func addSet(s *models.Session, name, weight string, set models.Set) {
	if n := len(s.Exercises); n > 0 {
		last := &s.Exercises[n-1]
		if last.Name == name && last.Weight.String() == weight {
			last.Sets = append(last.Sets, set)
			return
		}
	}
	s.Exercises = append(s.Exercises, models.Exercise{
		Name:   name,
		Weight: models.NewRawWeight(weight),
		Sets:   []models.Set{set},
	})
}

// parseSessionDate parses "2026-02-19 4:54" into a time.Time.
func parseSessionDate(s string) (time.Time, error) {
	// Try both formats: "2026-02-19 4:54" and "2026-02-19 16:54"
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}
