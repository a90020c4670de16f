// Package redis implements store.Store on Redis for deployments that
// already run it for caching or queues. Each checkpoint is a hash, a
// sorted set indexes checkpoints by save time for listing, and
// idempotency marks are plain keys with a TTL.
//
// The caller owns the client lifecycle; Close never closes it:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client, redis.WithCodec(codec.MsgPack))
//	if err := s.Ping(ctx); err != nil { ... }
package redis
