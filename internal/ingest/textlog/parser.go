package textlog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/sanitize"
)

const datePrefix = "Date:"

var (
	// setLineRe matches: 1->10, 2 -> 8
	setLineRe = regexp.MustCompile(`^(\d+)\s*->\s*(\d+)`)

	// headerRe matches: Bench Press(50Kg), Plank, Squat (80 kg)
	headerRe = regexp.MustCompile(`^(.*?)\s*(?:\(([^()]*)\))?\s*$`)
)

// Parse reads a pasted workout log and returns the session it describes.
// A log without a Date: line is dated today.
func Parse(r io.Reader) (models.Session, error) {
	return ParseAt(r, time.Now())
}

// ParseString is Parse over a string.
func ParseString(text string) (models.Session, error) {
	return Parse(strings.NewReader(text))
}

// ParseAt is Parse with an explicit "today" for the default date.
//
// Grammar, line by line:
//
//	Date:2026-01-25      first one sets the date, all are skipped
//	Bench Press(50Kg)    header: name plus optional raw weight
//	1->10                set number -> reps, attached to the last header
//
// Set lines before any header are dropped, as are headers with no sets.
// A header without a name, such as "(80kg)", still ends the previous
// exercise, so the set lines under it are dropped too.
func ParseAt(r io.Reader, now time.Time) (models.Session, error) {
	scanner := bufio.NewScanner(r)
	session := models.Session{}
	var dateSeen bool
	var current *models.Exercise

	flush := func() {
		if current != nil && len(current.Sets) > 0 {
			session.Exercises = append(session.Exercises, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, datePrefix) {
			if !dateSeen {
				session.Date = strings.TrimSpace(strings.TrimPrefix(line, datePrefix))
				dateSeen = true
			}
			continue
		}

		if m := setLineRe.FindStringSubmatch(line); m != nil {
			if current == nil {
				// No exercise to attach to.
				continue
			}
			setNum, _ := strconv.Atoi(m[1])
			reps, _ := sanitize.ParseReps(m[2])
			current.Sets = append(current.Sets, models.Set{Set: setNum, Reps: reps})
			continue
		}

		// Any other line closes the open exercise, even one that is
		// dropped for having no name.
		flush()
		m := headerRe.FindStringSubmatch(line)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			continue
		}
		current = &models.Exercise{
			Name:   strings.TrimSpace(m[1]),
			Weight: models.NewRawWeight(m[2]),
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return models.Session{}, fmt.Errorf("reading log: %w", err)
	}

	if !dateSeen || session.Date == "" {
		session.Date = now.Format(models.DateLayout)
	}
	return session, nil
}

// Format renders a session in the text grammar. Explicit muscle overrides
// have no place in the grammar and are not written. A name ending in ")"
// without a weight gets an empty "()" so the name parses back whole.
func Format(s models.Session) string {
	var b strings.Builder
	b.WriteString(datePrefix)
	b.WriteString(s.Date)
	b.WriteByte('\n')
	for _, ex := range s.Exercises {
		b.WriteString(ex.Name)
		if w := ex.Weight.String(); w != "" || strings.HasSuffix(ex.Name, ")") {
			b.WriteString("(" + w + ")")
		}
		b.WriteByte('\n')
		for _, set := range ex.Sets {
			fmt.Fprintf(&b, "%d->%d\n", set.Set, set.Reps)
		}
	}
	return b.String()
}
