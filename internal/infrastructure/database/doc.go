// Package database opens the SQLite file that backs the control journal
// and applies its embedded schema migrations.
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are pairs of YYYYMMDD_HHMMSS_name.up.sql / .down.sql files
// registered through MigrationsFS by the migrations package.
package database
