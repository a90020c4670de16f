// Package mongo implements store.Store on the official MongoDB driver.
// Suitable for distributed deployments that already run MongoDB.
//
// The caller owns the client lifecycle -- mongo never closes it. Pass the
// database handle through the constructor:
//
//	import (
//	    mongod "go.mongodb.org/mongo-driver/v2/mongo"
//	    "github.com/xraph/stepflow/store/mongo"
//	)
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	store := mongo.New(client.Database("stepflow"))
//	store.Migrate(ctx)
//
// Idempotency marks carry a TTL index, so MongoDB removes expired marks on
// its own schedule; Seen ignores them as soon as they expire.
package mongo
