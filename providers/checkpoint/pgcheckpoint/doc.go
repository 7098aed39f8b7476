// Package pgcheckpoint stores triage checkpoints in PostgreSQL using pgx v5.
//
// Each thread is one row holding the checkpoint as a JSONB document, replaced
// on every save. The store works with any [Querier], so a *pgxpool.Pool, a
// *pgx.Conn or a pgx.Tx can be passed:
//
//	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	store := pgcheckpoint.New(pool)
//	if err := store.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//	engine, err := graph.New(config, graph.WithCheckpointStore(store))
package pgcheckpoint
