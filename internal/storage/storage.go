// Package storage persists the session collection as a single JSON blob
// under a key, plus a log of import operations. SQLite is the default
// backend; PostgreSQL is available for shared deployments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no blob is stored under a key.
var ErrNotFound = errors.New("not found")

// DefaultKey is the blob key used when none is configured.
const DefaultKey = "sessions"

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Import statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Store is the persistence contract used by the journal.
type Store interface {
	SaveSessions(ctx context.Context, key string, data []byte) error
	LoadSessions(ctx context.Context, key string) ([]byte, error)
	DeleteSessions(ctx context.Context, key string) error

	InsertImportLog(ctx context.Context, log ImportLog) (uuid.UUID, error)
	QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error)

	Close() error
}

// ImportLog represents a single import operation's outcome.
type ImportLog struct {
	ID                uuid.UUID `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	Source            string    `json:"source"`
	Mode              string    `json:"mode,omitempty"`
	Status            string    `json:"status"`
	SessionsReceived  int       `json:"sessions_received"`
	ExercisesReceived int       `json:"exercises_received"`
	SetsReceived      int       `json:"sets_received"`
	SessionsAdded     int       `json:"sessions_added"`
	SessionsReplaced  int       `json:"sessions_replaced"`
	DurationMs        *int      `json:"duration_ms"`
	ErrorMessage      *string   `json:"error_message"`
}

const defaultLogLimit = 50

func logLimit(limit int) int {
	if limit <= 0 {
		return defaultLogLimit
	}
	return limit
}

// prepare fills the generated fields of a new log entry.
func prepare(log *ImportLog) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

// Open connects the configured backend. For postgres, pending migrations
// are applied first.
func Open(ctx context.Context, driver, sqlitePath, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(sqlitePath)
	case DriverPostgres:
		if err := RunMigrations(dsn); err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
