// Package database opens the SQLite file behind the property catalog and
// state tables and runs the embedded schema migrations.
//
// The pool is pinned to one connection because SQLite allows a single
// writer; WAL mode keeps readers unblocked while state writes land. The
// database file is created with 0600 permissions since it holds live
// building data.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are *.up.sql / *.down.sql pairs embedded by the migrations
// package, applied in filename-version order, one transaction per step.
package database
