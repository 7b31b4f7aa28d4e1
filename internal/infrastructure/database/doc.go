// Package database provides the SQLite connection used by the sqlite show
// store.
//
// The database holds a single show document row plus the schema_migrations
// bookkeeping table. Connections are limited to one writer; WAL mode lets the
// API read while the store writes.
//
// Migrations are plain SQL files embedded by the top-level migrations package
// and passed to Migrate as an fs.FS:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/lumen.db", WALMode: true})
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
