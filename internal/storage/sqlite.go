package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/schema.sql
var sqliteSchema string

// SQLite is a Store backed by a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer; the journal serializes mutations anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveSessions stores data under key, replacing any previous blob.
func (s *SQLite) SaveSessions(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_blobs (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving sessions %q: %w", key, err)
	}
	return nil
}

// LoadSessions returns the blob stored under key, ErrNotFound if none.
func (s *SQLite) LoadSessions(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM session_blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading sessions %q: %w", key, err)
	}
	return []byte(data), nil
}

// DeleteSessions removes the blob under key. Deleting a missing key is not an error.
func (s *SQLite) DeleteSessions(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting sessions %q: %w", key, err)
	}
	return nil
}

// InsertImportLog creates a new import log entry and returns its ID.
func (s *SQLite) InsertImportLog(ctx context.Context, log ImportLog) (uuid.UUID, error) {
	prepare(&log)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_logs (id, created_at, source, mode, status, sessions_received,
		 exercises_received, sets_received, sessions_added, sessions_replaced, duration_ms, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID.String(), log.CreatedAt.UnixMilli(), log.Source, log.Mode, log.Status,
		log.SessionsReceived, log.ExercisesReceived, log.SetsReceived,
		log.SessionsAdded, log.SessionsReplaced, log.DurationMs, log.ErrorMessage,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting import log: %w", err)
	}
	return log.ID, nil
}

// QueryImportLogs returns the most recent import logs, newest first.
func (s *SQLite) QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, mode, status, sessions_received, exercises_received,
		 sets_received, sessions_added, sessions_replaced, duration_ms, error_message
		 FROM import_logs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		logLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	result := []ImportLog{}
	for rows.Next() {
		var (
			l         ImportLog
			id        string
			createdMs int64
			duration  sql.NullInt64
			errMsg    sql.NullString
		)
		if err := rows.Scan(&id, &createdMs, &l.Source, &l.Mode, &l.Status,
			&l.SessionsReceived, &l.ExercisesReceived, &l.SetsReceived,
			&l.SessionsAdded, &l.SessionsReplaced, &duration, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		if l.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("import log id %q: %w", id, err)
		}
		l.CreatedAt = time.UnixMilli(createdMs).UTC()
		if duration.Valid {
			d := int(duration.Int64)
			l.DurationMs = &d
		}
		if errMsg.Valid {
			l.ErrorMessage = &errMsg.String
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
