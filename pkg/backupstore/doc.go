// Package backupstore implements tree.BufferBackend on SQLite
// (modernc.org/sqlite, pure Go, no cgo), with schema migrations applied via
// golang-migrate/migrate. It also keeps an append-only audit trail of
// administrative update-window transitions.
//
//	store, err := backupstore.NewSQLiteStore(backupstore.Config{Path: "databeam.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := store.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := store.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	t.SetBufferBackend(store)
package backupstore
