package backupstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/databeam/databeam/pkg/sample"
	"github.com/databeam/databeam/pkg/tree"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements both Store and tree.BufferBackend using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction.
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// CommitTx commits a transaction.
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction.
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// Save implements tree.BufferBackend. It overwrites the persisted buffer
// for path with samples, encoded in the `{"t":...,"v":...}` wire format.
func (s *SQLiteStore) Save(path string, samples []tree.BufferedSample) error {
	wire := make([]WireSample, len(samples))
	for i, bs := range samples {
		wire[i] = WireSample{T: bs.Timestamp, V: wireValue(bs), Ty: wireType(bs.Type)}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("failed to marshal buffer for %s: %w", path, err)
	}

	query := `
		INSERT INTO observation_buffers (path, samples, sample_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			samples = excluded.samples,
			sample_count = excluded.sample_count,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(context.Background(), query,
		path, string(data), len(samples), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save buffer for %s: %w", path, err)
	}

	return nil
}

// Load implements tree.BufferBackend. It returns an empty slice, not an
// error, when path has never been backed up.
func (s *SQLiteStore) Load(path string) ([]tree.BufferedSample, error) {
	query := `SELECT samples FROM observation_buffers WHERE path = ?`

	var data string
	err := s.db.QueryRowContext(context.Background(), query, path).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer for %s: %w", path, err)
	}

	var wire []WireSample
	if err := json.Unmarshal([]byte(data), &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal buffer for %s: %w", path, err)
	}

	out := make([]tree.BufferedSample, len(wire))
	for i, w := range wire {
		out[i] = bufferedFromWire(w)
	}
	return out, nil
}

// wireValue converts a BufferedSample's typed payload into the JSON value
// carried by the wire format.
func wireValue(bs tree.BufferedSample) interface{} {
	switch bs.Type {
	case sample.Trigger:
		return nil
	case sample.Boolean:
		return bs.BoolVal
	case sample.Numeric:
		return bs.NumVal
	default:
		return bs.StrVal
	}
}

// wireType renders a sample.Type as the persisted type tag.
func wireType(t sample.Type) string {
	switch t {
	case sample.Trigger:
		return "trigger"
	case sample.Boolean:
		return "bool"
	case sample.Numeric:
		return "num"
	case sample.JSON:
		return "json"
	default:
		return "str"
	}
}

// bufferedFromWire reconstructs a BufferedSample from a decoded wire value,
// using the type tag to disambiguate String from JSON.
func bufferedFromWire(w WireSample) tree.BufferedSample {
	bs := tree.BufferedSample{Timestamp: w.T}
	switch w.Ty {
	case "trigger":
		bs.Type = sample.Trigger
	case "bool":
		bs.Type = sample.Boolean
		if v, ok := w.V.(bool); ok {
			bs.BoolVal = v
		}
	case "num":
		bs.Type = sample.Numeric
		if v, ok := w.V.(float64); ok {
			bs.NumVal = v
		}
	case "json":
		bs.Type = sample.JSON
		if v, ok := w.V.(string); ok {
			bs.StrVal = v
		}
	default:
		bs.Type = sample.String
		if v, ok := w.V.(string); ok {
			bs.StrVal = v
		}
	}
	return bs
}

// ListBufferedPaths lists observation paths with a persisted buffer.
func (s *SQLiteStore) ListBufferedPaths(ctx context.Context, limit, offset int) ([]*BufferRecord, error) {
	query := `
		SELECT path, sample_count, updated_at
		FROM observation_buffers
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list buffered paths: %w", err)
	}
	defer rows.Close()

	records := []*BufferRecord{}
	for rows.Next() {
		r := &BufferRecord{}
		if err := rows.Scan(&r.Path, &r.SampleCount, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan buffer record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buffer records: %w", err)
	}
	return records, nil
}

// DeleteBuffer removes the persisted buffer for path.
func (s *SQLiteStore) DeleteBuffer(ctx context.Context, path string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM observation_buffers WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete buffer for %s: %w", path, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no buffer found for path: %s", path)
	}
	return nil
}

// AppendWindowAudit appends an audit entry for an update window transition.
func (s *SQLiteStore) AppendWindowAudit(ctx context.Context, entry *WindowAuditEntry) error {
	query := `
		INSERT INTO update_window_audit (window_id, action, admin, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.WindowID, entry.Action, entry.Admin, entry.Details, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append window audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}
	entry.ID = id
	return nil
}

// ListWindowAudit lists audit entries, optionally filtered to one window.
func (s *SQLiteStore) ListWindowAudit(ctx context.Context, windowID *string, limit, offset int) ([]*WindowAuditEntry, error) {
	query := `
		SELECT id, window_id, action, admin, details, timestamp
		FROM update_window_audit
		WHERE (? IS NULL OR window_id = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, windowID, windowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list window audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*WindowAuditEntry{}
	for rows.Next() {
		e := &WindowAuditEntry{}
		if err := rows.Scan(&e.ID, &e.WindowID, &e.Action, &e.Admin, &e.Details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan window audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating window audit entries: %w", err)
	}
	return entries, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
