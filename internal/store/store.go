// Package store keeps the run ledger: one row per region pipeline run, in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout is fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Status is the outcome of a region run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped" // no reference files for the region
)

// Run is one ledger entry.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Region     string    `json:"region"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Records    int       `json:"records"`
	Positives  int       `json:"positives"`
	Synthetic  int       `json:"synthetic"`
	Clusters   int       `json:"clusters"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Duration is the wall time the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the ledger database at path and applies pending
// migrations.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db, logger: logger}, nil
}

func migrateUp(db *sql.DB, logger *slog.Logger) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{logger: logger}

	// m is not closed: closing it closes the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l *migrateLogger) Verbose() bool { return false }

// RecordRun inserts a run. A zero ID is replaced with a fresh UUID, which is
// returned.
func (l *Ledger) RecordRun(ctx context.Context, run Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, region, started_at, finished_at, records, positives, synthetic, clusters, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Region,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Records, run.Positives, run.Synthetic, run.Clusters,
		string(run.Status), run.Error,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}
	l.logger.Debug("run recorded", "id", run.ID, "region", run.Region, "status", run.Status)
	return run.ID, nil
}

// ListRuns returns up to limit runs, most recent first. A non-positive limit
// returns every run.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, region, started_at, finished_at, records, positives, synthetic, clusters, status, error
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run               Run
			id, started, done string
			status            string
		)
		if err := rows.Scan(&id, &run.Region, &started, &done,
			&run.Records, &run.Positives, &run.Synthetic, &run.Clusters,
			&status, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		if run.FinishedAt, err = time.Parse(timeLayout, done); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", done, err)
		}
		run.Status = Status(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Ping checks the database connection.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
