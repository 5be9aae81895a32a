// Package backupstore provides a SQLite-backed implementation of
// tree.BufferBackend: it persists an Observation's ring buffer across
// restarts, and keeps an append-only audit trail of administrative update
// windows.
package backupstore

import (
	"context"
	"database/sql"
	"time"
)

// WindowAction identifies a lifecycle transition of an administrative
// update window, as recorded in the audit trail.
type WindowAction string

const (
	WindowActionOpened WindowAction = "opened"
	WindowActionClosed WindowAction = "closed"
	WindowActionFailed WindowAction = "failed"
)

// WireSample is the persisted representation of one buffered sample. It
// carries a type tag alongside the `{"t":...,"v":...}` shape used for
// Observation buffer export, since String and JSON samples both decode to
// a bare JSON string and would otherwise be indistinguishable on restore.
type WireSample struct {
	T  float64     `json:"t"`
	V  interface{} `json:"v"`
	Ty string      `json:"ty,omitempty"`
}

// BufferRecord is a row of the observation_buffers table.
type BufferRecord struct {
	Path        string    `json:"path"`
	SampleCount int       `json:"sample_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WindowAuditEntry is a row of the update_window_audit table.
type WindowAuditEntry struct {
	ID        int64        `json:"id"`
	WindowID  string       `json:"window_id"`
	Action    WindowAction `json:"action"`
	Admin     string       `json:"admin"`
	Details   *string      `json:"details,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Store defines the persistence operations backupstore offers beyond the
// narrow tree.BufferBackend interface it also implements.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	ListBufferedPaths(ctx context.Context, limit, offset int) ([]*BufferRecord, error)
	DeleteBuffer(ctx context.Context, path string) error

	AppendWindowAudit(ctx context.Context, entry *WindowAuditEntry) error
	ListWindowAudit(ctx context.Context, windowID *string, limit, offset int) ([]*WindowAuditEntry, error)

	HealthCheck(ctx context.Context) error
}
