// Package sqlite provides a SQLite-backed numbering storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mtlab/lims/internal/platform/timeouts"
	sqlitemigrate "github.com/mtlab/lims/internal/platform/storage/sqlitemigrate"
	"github.com/mtlab/lims/internal/services/numbering/domain"
	"github.com/mtlab/lims/internal/services/numbering/storage"
	"github.com/mtlab/lims/internal/services/numbering/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	// DefaultMaxAttempts bounds how often a busy transaction is retried.
	DefaultMaxAttempts = 8
	// DefaultBusyTimeout is how long one attempt waits on the database lock.
	DefaultBusyTimeout = time.Second
)

const (
	retryInitialInterval = 5 * time.Millisecond
	retryMaxInterval     = 250 * time.Millisecond
)

// Store persists counters and documents in SQLite.
type Store struct {
	sqlDB       *sql.DB
	maxAttempts int
	busyTimeout time.Duration
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts sets the retry budget for busy transactions.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBusyTimeout sets how long one attempt waits for the write lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithClock overrides the clock used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite numbering store and applies embedded migrations.
// Transactions begin IMMEDIATE so concurrent writers queue on the database
// lock instead of failing on upgrade.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	store := &Store{
		maxAttempts: DefaultMaxAttempts,
		busyTimeout: DefaultBusyTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	cleanPath := filepath.Clean(path)
	dsn := fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_txlock=immediate",
		cleanPath, store.busyTimeout.Milliseconds(),
	)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store.sqlDB = sqlDB
	return store, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// WithinTx runs fn in one SQLite transaction with counter access.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.CounterTx) error) error {
	if fn == nil {
		return fmt.Errorf("transaction func is required")
	}
	return s.withinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, counterTx{tx: tx, now: s.now})
	})
}

// withinTx commits when fn returns nil and rolls back otherwise. Busy or
// locked failures are retried with exponential backoff until either the
// attempt budget or timeouts.CounterTx is spent, then surface as
// *domain.TransactionConflictError.
func (s *Store) withinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	attempts := 0
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := s.runTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isSQLiteBusyError(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.maxAttempts)),
		backoff.WithMaxElapsedTime(timeouts.CounterTx),
	)
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if isSQLiteBusyError(err) {
		return &domain.TransactionConflictError{Attempts: attempts, Cause: err}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadSerial reads the committed serial for key outside any write
// transaction. WAL readers do not wait on the writer lock.
func (s *Store) ReadSerial(ctx context.Context, key domain.CounterKey) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, false, fmt.Errorf("storage is not configured")
	}
	var serial int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT serial FROM counters WHERE category = ? AND year = ?`,
		string(key.Category), key.Year,
	).Scan(&serial)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select counter: %w", err)
	}
	return serial, true, nil
}

type counterTx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (c counterTx) LoadSerial(ctx context.Context, key domain.CounterKey) (int64, bool, error) {
	var serial int64
	err := c.tx.QueryRowContext(ctx,
		`SELECT serial FROM counters WHERE category = ? AND year = ?`,
		string(key.Category), key.Year,
	).Scan(&serial)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select counter: %w", err)
	}
	return serial, true, nil
}

func (c counterTx) StoreSerial(ctx context.Context, key domain.CounterKey, serial int64) error {
	if serial < 0 {
		return fmt.Errorf("counter %s cannot be negative: %d", key, serial)
	}
	_, err := c.tx.ExecContext(ctx,
		`INSERT INTO counters (category, year, serial, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(category, year) DO UPDATE SET
		   serial = excluded.serial,
		   updated_at = excluded.updated_at`,
		string(key.Category), key.Year, serial, toMillis(c.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert counter: %w", err)
	}
	return nil
}

// SerialHeld reports whether a live document owns serial under key.
func (c counterTx) SerialHeld(ctx context.Context, key domain.CounterKey, serial int64) (bool, error) {
	var one int
	err := c.tx.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE category = ? AND year = ? AND serial = ?`,
		string(key.Category), key.Year, serial,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select document serial: %w", err)
	}
	return true, nil
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return true
	}
	return false
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
}

var (
	_ domain.HeldSerials   = counterTx{}
	_ domain.CounterReader = (*Store)(nil)
	_ storage.CounterStore = (*Store)(nil)
	_ storage.Store        = (*Store)(nil)
)
