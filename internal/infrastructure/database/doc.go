// Package database opens the SQLite file that keeps the node's property
// history and applies its schema migrations.
//
// The connection uses go-sqlite3 with WAL mode and a busy timeout, limited
// to one pooled connection. Queries elsewhere must use ? placeholders.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// # Migrations
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql with an optional
// .down.sql. Migrations are additive: new columns are nullable or have a
// default.
package database
