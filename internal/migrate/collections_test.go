package migrate_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/hivemindapp/hivemind/internal/migrate"
	"github.com/hivemindapp/hivemind/internal/migrate/migratetest"
)

func TestRecreateAsRegular(t *testing.T) {
	ctx := context.Background()

	t.Run("missing collection is a noop", func(t *testing.T) {
		db := migratetest.NewDB()
		require.NoError(t, migrate.RecreateAsRegular(ctx, db, "typing_indicators"))

		infos, err := db.Collections(ctx)
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run("regular collection keeps its documents", func(t *testing.T) {
		db := migratetest.NewDB()
		db.AddCollection("typing_indicators")
		coll := db.Collection("typing_indicators")
		require.NoError(t, coll.InsertOne(ctx, bson.M{"user_id": "u1"}))

		require.NoError(t, migrate.RecreateAsRegular(ctx, db, "typing_indicators"))

		n, err := coll.Count(ctx, bson.D{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("capped collection is dropped", func(t *testing.T) {
		db := migratetest.NewDB()
		db.AddCappedCollection("typing_indicators")
		coll := db.Collection("typing_indicators")
		for _, u := range []string{"u1", "u2", "u3"} {
			require.NoError(t, coll.InsertOne(ctx, bson.M{"user_id": u}))
		}

		// A TTL index is rejected while the collection is capped.
		err := migrate.EnsureTTLIndex(ctx, coll, "updated_at", 30)
		require.Error(t, err)

		require.NoError(t, migrate.RecreateAsRegular(ctx, db, "typing_indicators"))

		infos, err := db.Collections(ctx)
		require.NoError(t, err)
		for _, info := range infos {
			if info.Name == "typing_indicators" {
				assert.False(t, info.Capped)
			}
		}

		// After recreation the TTL index succeeds.
		require.NoError(t, migrate.EnsureTTLIndex(ctx, db.Collection("typing_indicators"), "updated_at", 30))
	})

	t.Run("unreadable metadata is treated as capped", func(t *testing.T) {
		db := migratetest.NewDB()
		coll := db.Collection("presence")
		require.NoError(t, coll.InsertOne(ctx, bson.M{"user_id": "u1"}))

		db.CollectionsErr = errors.New("transient metadata failure")
		require.NoError(t, migrate.RecreateAsRegular(ctx, db, "presence"))
		db.CollectionsErr = nil

		n, err := db.Collection("presence").Count(ctx, bson.D{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
