// Package bunstore keeps stepflow checkpoints and idempotency marks in
// PostgreSQL through Bun models.
//
// The tables are the ones store/postgres creates, so a deployment can move
// between the two backends without migrating data. Migrate is idempotent and
// only ever creates missing tables and indexes.
//
// The *bun.DB belongs to the caller; Close leaves it open.
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	s := bunstore.New(bun.NewDB(sqldb, pgdialect.New()),
//	    bunstore.WithCodec(codec.MsgPack),
//	)
//	if err := s.Migrate(ctx); err != nil {
//	    return err
//	}
//	rt, err := stepflow.New(stepflow.WithCheckpointStore(s))
package bunstore
