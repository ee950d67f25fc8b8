// Package pg provides PostgreSQL connectivity for ledger-backed machines:
// environment-driven pool configuration, connect with retry, a health
// probe, and goose migrations shipping the default transitions table.
//
//	cfg, err := config.Load[pg.Config]()
//	pool, err := pg.Connect(ctx, cfg)
//	err = pg.Migrate(ctx, pool, pg.Migrations, cfg, slog.Default())
//
//	storage, err := ledger.NewPostgresStorage(pool, "transitions")
package pg
