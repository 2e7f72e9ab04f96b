package migrations

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/hivemindapp/hivemind/internal/migrate"
	"github.com/hivemindapp/hivemind/internal/migrate/migratetest"
)

func TestAllIDsAreUniqueAndOrdered(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	seen := make(map[string]struct{}, len(all))
	ids := make([]string, 0, len(all))
	for _, m := range all {
		require.NotEmpty(t, m.ID)
		require.NotNil(t, m.Up, m.ID)
		_, dup := seen[m.ID]
		require.False(t, dup, "duplicate id %s", m.ID)
		seen[m.ID] = struct{}{}
		ids = append(ids, m.ID)
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids should be declared in apply order")
}

func TestAllAppliesCleanly(t *testing.T) {
	db := migratetest.NewDB()
	ctx := context.Background()

	runner := migrate.NewRunner(db)
	require.NoError(t, runner.RegisterMany(All()...))
	require.NoError(t, runner.Run(ctx))

	// Twice: every migration must tolerate re-running.
	require.NoError(t, runner.Run(ctx))

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.ID)
	}

	users := db.Collection(collUsers)
	indexes, err := users.Indexes(ctx)
	require.NoError(t, err)

	var hasUniqueEmail bool
	for _, info := range indexes {
		if info.Name == "email_1" {
			hasUniqueEmail = info.Unique
		}
	}
	assert.True(t, hasUniqueEmail)
}

func TestRealtimeRecreateDropsCappedCollections(t *testing.T) {
	db := migratetest.NewDB()
	ctx := context.Background()

	db.AddCappedCollection(collTyping)
	db.AddCappedCollection(collPresence)
	require.NoError(t, db.Collection(collTyping).InsertOne(ctx, bson.M{"user_id": "u1"}))

	runner := migrate.NewRunner(db)
	require.NoError(t, runner.RegisterMany(All()...))
	require.NoError(t, runner.Run(ctx))

	infos, err := db.Collections(ctx)
	require.NoError(t, err)
	for _, info := range infos {
		assert.False(t, info.Capped, info.Name)
	}

	typingIndexes, err := db.Collection(collTyping).Indexes(ctx)
	require.NoError(t, err)

	var ttl *int32
	for _, info := range typingIndexes {
		if info.Name == "updated_at_1" {
			ttl = info.ExpireAfterSeconds
		}
	}
	require.NotNil(t, ttl)
	assert.Equal(t, int32(typingExpirySeconds), *ttl)
}

func TestSeedSystemRecordsIsIdempotentAndReversible(t *testing.T) {
	db := migratetest.NewDB()
	ctx := context.Background()

	runner := migrate.NewRunner(db)
	require.NoError(t, runner.RegisterMany(All()...))
	require.NoError(t, runner.Run(ctx))
	require.NoError(t, runner.Run(ctx))

	users := db.Collection(collUsers)
	n, err := users.Count(ctx, bson.D{{Key: "username", Value: "system"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	groups := db.Collection(collGroups)
	n, err = groups.Count(ctx, bson.D{{Key: "slug", Value: "announcements"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, runner.Rollback(ctx, "012_seed_system_records"))

	n, err = users.Count(ctx, bson.D{{Key: "username", Value: "system"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUserIndexesRollback(t *testing.T) {
	db := migratetest.NewDB()
	ctx := context.Background()

	runner := migrate.NewRunner(db)
	require.NoError(t, runner.Register(userIndexes()))
	require.NoError(t, runner.Run(ctx))

	indexes, err := db.Collection(collUsers).Indexes(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, indexes)

	require.NoError(t, runner.Rollback(ctx, "001_user_indexes"))

	indexes, err = db.Collection(collUsers).Indexes(ctx)
	require.NoError(t, err)
	assert.Empty(t, indexes)
}
