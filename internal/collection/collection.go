// Package collection holds the active set of sessions as an immutable
// value. Every mutation returns a new Collection.
package collection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/normalize"
)

// Collection is an ordered set of sessions keyed by calendar day.
// "2026-01-25" and "2026-01-25T09:00:00Z" are the same key; a date that
// does not parse is keyed by its trimmed text.
type Collection struct {
	sessions []models.Session
}

// MergeStats reports how a merge changed the collection.
type MergeStats struct {
	Added    int
	Replaced int
}

// New builds a collection from sessions. When a date repeats, the later
// session wins.
func New(sessions []models.Session) Collection {
	c, _ := Collection{}.Merge(sessions)
	return c
}

// Merge returns a collection where each incoming session replaces any
// existing session with the same date. The result is sorted by date.
func (c Collection) Merge(incoming []models.Session) (Collection, MergeStats) {
	var stats MergeStats
	byDate := make(map[string]int, len(c.sessions)+len(incoming))
	out := make([]models.Session, 0, len(c.sessions)+len(incoming))
	for _, s := range c.sessions {
		byDate[key(s)] = len(out)
		out = append(out, s)
	}
	existing := len(out)

	for _, s := range incoming {
		k := key(s)
		if i, ok := byDate[k]; ok {
			if i < existing {
				stats.Replaced++
			}
			out[i] = s
			continue
		}
		byDate[k] = len(out)
		out = append(out, s)
		stats.Added++
	}

	slices.SortStableFunc(out, func(a, b models.Session) int {
		return cmp.Compare(key(a), key(b))
	})
	return Collection{sessions: out}, stats
}

// Sessions returns a copy of the sessions in date order.
func (c Collection) Sessions() []models.Session {
	return slices.Clone(c.sessions)
}

// Len is the number of sessions.
func (c Collection) Len() int {
	return len(c.sessions)
}

// Dates lists the session dates in order.
func (c Collection) Dates() []string {
	out := make([]string, len(c.sessions))
	for i, s := range c.sessions {
		out[i] = s.Date
	}
	return out
}

func key(s models.Session) string {
	if day, err := normalize.ParseDate(s.Date); err == nil {
		return day.Format(models.DateLayout)
	}
	return strings.TrimSpace(s.Date)
}
