// Package pg wires a pgx connection pool: connecting with retries, running
// goose migrations from an fs.FS, classifying PostgreSQL errors, and exposing
// a healthcheck closure.
//
//	pool, err := pg.Connect(ctx, cfg.Postgres)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg.Postgres, migrations.FS, log); err != nil {
//		return err
//	}
package pg
