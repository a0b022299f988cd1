// Package pg bootstraps PostgreSQL access on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (populated from PG_* environment
// variables) and retries until the database answers a ping. Migrate applies
// goose migrations, typically from an embed.FS shipped with the binary:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log); err != nil {
//		return err
//	}
//
// The error helpers classify driver errors without leaking pgconn types into
// repositories: IsNotFoundError, IsDuplicateKeyError (together with
// ConstraintName to tell unique indexes apart) and IsSerializationError.
// Healthcheck plugs the pool into readiness checks.
package pg
