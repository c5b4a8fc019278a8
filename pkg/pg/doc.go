// Package pg wires PostgreSQL into the application: a pgx connection pool
// opened with retries, goose migrations applied from an embedded file
// system, a health probe and helpers that classify driver errors.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, profile.Migrations, cfg, log); err != nil {
//	    return err
//	}
package pg
