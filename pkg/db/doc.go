// Package db holds the PostgreSQL plumbing shared by the domain registry and
// the job queue: pool setup with startup retries, a readiness check,
// transactions and goose migrations from an embedded filesystem.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if _, err := db.Migrate(ctx, pool, migrations.FS, ".", cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
//	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", ownerID)
//		return err
//	})
//
// Config carries env and yaml tags. An empty ConnectionString falls back to
// the libpq environment defaults; pool sizes and retry settings have
// defaults of their own.
package db
