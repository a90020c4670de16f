//go:build integration

package mongo_test

import (
	"context"
	"testing"

	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/stepflow/id"
	"github.com/xraph/stepflow/store"
	"github.com/xraph/stepflow/store/codec"
	mongostore "github.com/xraph/stepflow/store/mongo"
	"github.com/xraph/stepflow/store/storetest"
)

// setupTestDB starts a MongoDB container and returns a database handle.
func setupTestDB(t *testing.T) *mongod.Database {
	t.Helper()

	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return client.Database("stepflow_test")
}

// isolated gives each test its own collections.
func isolated(db *mongod.Database, opts ...mongostore.Option) storetest.Factory {
	return func(t *testing.T) store.Store {
		t.Helper()
		prefix := id.NewCheckpointID().String() + "_"
		s := mongostore.New(db, append([]mongostore.Option{mongostore.WithCollectionPrefix(prefix)}, opts...)...)
		if err := s.Migrate(context.Background()); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	}
}

func TestConformance(t *testing.T) {
	db := setupTestDB(t)

	t.Run("json", func(t *testing.T) {
		storetest.Run(t, isolated(db))
	})
	t.Run("msgpack", func(t *testing.T) {
		storetest.Run(t, isolated(db, mongostore.WithCodec(codec.MsgPack)))
	})
}
