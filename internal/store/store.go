// Package store persists collector state in SQLite: the auto-update
// settings row, raised alerts and the durable job queue.
package store

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
)

const memoryPath = ":memory:"

// Store implements settings, alert and job persistence on SQLite.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
	// mu serializes writers; SQLite allows one at a time.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for updatedAt and createdAt stamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, ErrDatabaseOpenFailed.WithContext("path", path).WithContext("cause", err.Error())
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := New(db, opts...)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle without touching the schema.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dsn(path string) string {
	if path == memoryPath || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		auto_update_enabled INTEGER NOT NULL DEFAULT 0,
		collection_interval INTEGER NOT NULL DEFAULT 30,
		source_type TEXT NOT NULL DEFAULT 'excel',
		source_path TEXT NOT NULL DEFAULT '',
		spreadsheet_id TEXT NOT NULL DEFAULT '',
		sheet_name TEXT NOT NULL DEFAULT '',
		last_collection_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT NOT NULL,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_acknowledged ON alerts(acknowledged);
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		seq INTEGER NOT NULL,
		finished_at INTEGER,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_seq ON jobs(seq);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return wrap(err, ErrInitializeSchemaFailed)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrap(err, ErrDatabaseOpenFailed)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

// wrap attaches cause to one of the package sentinels.
func wrap(cause error, sentinel *errors.ClassifiedError) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).Retryable().Build()
}
