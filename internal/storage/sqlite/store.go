package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"relaypace/internal/metrics"
)

// Store wraps access to the SQLite database and is the persistence gateway
// for teams, their rosters and loops, and recorded finish times.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Manager
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open initializes a new SQLite store and runs the required migrations.
// m may be nil.
func Open(dbPath string, logger *slog.Logger, m *metrics.Manager) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger, metrics: m}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// observe reports one gateway call to metrics and logs failures.
func (s *Store) observe(ctx context.Context, op string, start time.Time, err error) {
	outcome := outcomeOf(err)
	took := time.Since(start)
	s.metrics.ObserveStoreOp(op, outcome, took)

	switch outcome {
	case metrics.OutcomeOK:
		s.logger.DebugContext(ctx, "store op", slog.String("op", op), slog.Duration("took", took))
	case metrics.OutcomeError:
		s.logger.ErrorContext(ctx, "store op failed", slog.String("op", op), slog.String("error", err.Error()))
	default:
		s.logger.WarnContext(ctx, "store op refused", slog.String("op", op), slog.String("outcome", outcome), slog.String("error", err.Error()))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrForeignID):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func teamIDByName(ctx context.Context, q querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM teams WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get team id: %w", err)
	}
	return id, nil
}
