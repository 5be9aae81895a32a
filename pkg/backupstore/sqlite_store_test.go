package backupstore

import (
	"context"
	"testing"
	"time"

	"github.com/databeam/databeam/pkg/sample"
	"github.com/databeam/databeam/pkg/tree"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

// TestStoreLifecycle tests database initialization and closure.
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestHealthCheckBeforeInit verifies HealthCheck reports the uninitialized state.
func TestHealthCheckBeforeInit(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail before Init")
	}
}

// TestStoreMigrations tests that the expected tables exist after migration.
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tables := []string{"observation_buffers", "update_window_audit"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestMigrateIdempotent verifies running Migrate twice is a no-op, not an error.
func TestMigrateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate call failed: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	tests := []struct {
		name    string
		samples []tree.BufferedSample
	}{
		{
			name: "numeric",
			samples: []tree.BufferedSample{
				{Timestamp: 1000.0, Type: sample.Numeric, NumVal: 21.5},
				{Timestamp: 1001.5, Type: sample.Numeric, NumVal: 21.7},
			},
		},
		{
			name: "boolean",
			samples: []tree.BufferedSample{
				{Timestamp: 2000.0, Type: sample.Boolean, BoolVal: true},
				{Timestamp: 2001.0, Type: sample.Boolean, BoolVal: false},
			},
		},
		{
			name: "trigger",
			samples: []tree.BufferedSample{
				{Timestamp: 3000.0, Type: sample.Trigger},
			},
		},
		{
			name: "string",
			samples: []tree.BufferedSample{
				{Timestamp: 4000.0, Type: sample.String, StrVal: "hello"},
			},
		},
		{
			name: "json",
			samples: []tree.BufferedSample{
				{Timestamp: 5000.0, Type: sample.JSON, StrVal: `{"k":"v"}`},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/sensors/" + tt.name
			if err := store.Save(path, tt.samples); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := store.Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if len(loaded) != len(tt.samples) {
				t.Fatalf("expected %d samples, got %d", len(tt.samples), len(loaded))
			}

			for i, want := range tt.samples {
				got := loaded[i]
				if got.Type != want.Type {
					t.Errorf("sample %d: type = %v, want %v", i, got.Type, want.Type)
				}
				if got.Timestamp != want.Timestamp {
					t.Errorf("sample %d: timestamp = %v, want %v", i, got.Timestamp, want.Timestamp)
				}
				if got.NumVal != want.NumVal {
					t.Errorf("sample %d: numVal = %v, want %v", i, got.NumVal, want.NumVal)
				}
				if got.BoolVal != want.BoolVal {
					t.Errorf("sample %d: boolVal = %v, want %v", i, got.BoolVal, want.BoolVal)
				}
				if got.StrVal != want.StrVal {
					t.Errorf("sample %d: strVal = %q, want %q", i, got.StrVal, want.StrVal)
				}
			}
		})
	}
}

// TestSaveLoadDisambiguatesStringAndJSON is the key regression test for the
// type-tag addition: without it, String and JSON samples both decode from
// JSON as a bare Go string and become indistinguishable after a round trip.
func TestSaveLoadDisambiguatesStringAndJSON(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	strSample := tree.BufferedSample{Timestamp: 1.0, Type: sample.String, StrVal: `{"looks":"like json"}`}
	jsonSample := tree.BufferedSample{Timestamp: 2.0, Type: sample.JSON, StrVal: `{"looks":"like json"}`}

	if err := store.Save("/sensors/ambiguous", []tree.BufferedSample{strSample, jsonSample}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("/sensors/ambiguous")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(loaded))
	}
	if loaded[0].Type != sample.String {
		t.Errorf("sample 0: type = %v, want sample.String", loaded[0].Type)
	}
	if loaded[1].Type != sample.JSON {
		t.Errorf("sample 1: type = %v, want sample.JSON", loaded[1].Type)
	}
}

func TestLoadMissingPathReturnsEmptyNotError(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	loaded, err := store.Load("/sensors/never-saved")
	if err != nil {
		t.Fatalf("expected no error for missing path, got %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil slice for missing path, got %v", loaded)
	}
}

func TestSaveOverwritesExistingBuffer(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	path := "/sensors/overwrite"
	first := []tree.BufferedSample{{Timestamp: 1.0, Type: sample.Numeric, NumVal: 1.0}}
	second := []tree.BufferedSample{
		{Timestamp: 2.0, Type: sample.Numeric, NumVal: 2.0},
		{Timestamp: 3.0, Type: sample.Numeric, NumVal: 3.0},
	}

	if err := store.Save(path, first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(path, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected overwrite to replace buffer with 2 samples, got %d", len(loaded))
	}
}

func TestListBufferedPaths(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	paths := []string{"/sensors/a", "/sensors/b", "/sensors/c"}
	for _, p := range paths {
		if err := store.Save(p, []tree.BufferedSample{{Timestamp: 1.0, Type: sample.Trigger}}); err != nil {
			t.Fatalf("Save(%s) failed: %v", p, err)
		}
	}

	records, err := store.ListBufferedPaths(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListBufferedPaths failed: %v", err)
	}
	if len(records) != len(paths) {
		t.Fatalf("expected %d records, got %d", len(paths), len(records))
	}

	records, err = store.ListBufferedPaths(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListBufferedPaths with limit failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(records))
	}
}

func TestDeleteBuffer(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	path := "/sensors/to-delete"
	if err := store.Save(path, []tree.BufferedSample{{Timestamp: 1.0, Type: sample.Trigger}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.DeleteBuffer(ctx, path); err != nil {
		t.Fatalf("DeleteBuffer failed: %v", err)
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load after delete failed: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected buffer to be gone after delete, got %v", loaded)
	}
}

func TestDeleteBufferNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.DeleteBuffer(context.Background(), "/sensors/does-not-exist"); err == nil {
		t.Fatal("expected error deleting a nonexistent buffer")
	}
}

func TestAppendAndListWindowAudit(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	entries := []*WindowAuditEntry{
		{WindowID: "win-1", Action: WindowActionOpened, Admin: "alice", Timestamp: now},
		{WindowID: "win-1", Action: WindowActionClosed, Admin: "alice", Timestamp: now.Add(time.Second)},
		{WindowID: "win-2", Action: WindowActionFailed, Admin: "bob", Timestamp: now.Add(2 * time.Second)},
	}

	for _, e := range entries {
		if err := store.AppendWindowAudit(ctx, e); err != nil {
			t.Fatalf("AppendWindowAudit failed: %v", err)
		}
		if e.ID == 0 {
			t.Error("expected AppendWindowAudit to populate ID")
		}
	}

	all, err := store.ListWindowAudit(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("ListWindowAudit(nil) failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 audit entries total, got %d", len(all))
	}

	win1 := "win-1"
	filtered, err := store.ListWindowAudit(ctx, &win1, 10, 0)
	if err != nil {
		t.Fatalf("ListWindowAudit(win-1) failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 entries for win-1, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.WindowID != "win-1" {
			t.Errorf("filtered entry has WindowID = %s, want win-1", e.WindowID)
		}
	}
}

func TestBeginCommitRollbackTx(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO observation_buffers (path, samples, sample_count, updated_at) VALUES (?, ?, ?, ?)`,
		"/sensors/committed", `[]`, 0, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("insert within tx failed: %v", err)
	}
	if err := store.CommitTx(tx); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}

	records, err := store.ListBufferedPaths(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListBufferedPaths failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected committed row to be visible, got %d records", len(records))
	}

	tx2, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	_, err = tx2.ExecContext(ctx,
		`INSERT INTO observation_buffers (path, samples, sample_count, updated_at) VALUES (?, ?, ?, ?)`,
		"/sensors/rolled-back", `[]`, 0, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("insert within tx2 failed: %v", err)
	}
	if err := store.RollbackTx(tx2); err != nil {
		t.Fatalf("RollbackTx failed: %v", err)
	}

	records, err = store.ListBufferedPaths(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListBufferedPaths failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected rolled-back row to be absent, got %d records", len(records))
	}
}
