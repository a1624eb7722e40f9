package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Postgres is a Store backed by a pgxpool.Pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// OpenPostgres creates a connection pool and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *Postgres) Close() error {
	db.Pool.Close()
	return nil
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(dsn string) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// SaveSessions stores data under key, replacing any previous blob.
func (db *Postgres) SaveSessions(ctx context.Context, key string, data []byte) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO session_blobs (key, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		key, data)
	if err != nil {
		return fmt.Errorf("saving sessions %q: %w", key, err)
	}
	return nil
}

// LoadSessions returns the blob stored under key, ErrNotFound if none.
func (db *Postgres) LoadSessions(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := db.Pool.QueryRow(ctx, `SELECT data FROM session_blobs WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading sessions %q: %w", key, err)
	}
	return data, nil
}

// DeleteSessions removes the blob under key.
func (db *Postgres) DeleteSessions(ctx context.Context, key string) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM session_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting sessions %q: %w", key, err)
	}
	return nil
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *Postgres) InsertImportLog(ctx context.Context, log ImportLog) (uuid.UUID, error) {
	prepare(&log)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO import_logs (id, created_at, source, mode, status, sessions_received,
		 exercises_received, sets_received, sessions_added, sessions_replaced, duration_ms, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		log.ID, log.CreatedAt, log.Source, log.Mode, log.Status, log.SessionsReceived,
		log.ExercisesReceived, log.SetsReceived, log.SessionsAdded, log.SessionsReplaced,
		log.DurationMs, log.ErrorMessage,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting import log: %w", err)
	}
	return log.ID, nil
}

// QueryImportLogs returns the most recent import logs, newest first.
func (db *Postgres) QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, source, mode, status, sessions_received, exercises_received,
		 sets_received, sessions_added, sessions_replaced, duration_ms, error_message
		 FROM import_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		logLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	result := []ImportLog{}
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Source, &l.Mode, &l.Status,
			&l.SessionsReceived, &l.ExercisesReceived, &l.SetsReceived,
			&l.SessionsAdded, &l.SessionsReplaced, &l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
