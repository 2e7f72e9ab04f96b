package migrations

import (
	"context"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

// Seconds after the last update at which a realtime document stops being
// meaningful and may be reaped.
const (
	typingExpirySeconds   = 30
	presenceExpirySeconds = 300
)

func realtimeRecreate() migrate.Migration {
	return migrate.Migration{
		ID:          "011_realtime_recreate",
		Description: "typing indicators and presence move from capped collections to TTL expiry",
		Up: func(ctx context.Context, db migrate.Database) error {
			// Early deployments provisioned these as capped collections;
			// under load the byte budget evicted entries before their
			// expiry. Recreate as regular collections where each document
			// expires individually. Recreation must precede the index
			// work: capped collections reject TTL indexes.
			if err := migrate.RecreateAsRegular(ctx, db, collTyping); err != nil {
				return err
			}
			if err := migrate.RecreateAsRegular(ctx, db, collPresence); err != nil {
				return err
			}

			typing := db.Collection(collTyping)
			if err := migrate.EnsureUniqueIndex(ctx, typing,
				migrate.Asc("conversation_id"), migrate.Asc("user_id")); err != nil {
				return err
			}
			if err := migrate.EnsureTTLIndex(ctx, typing, "updated_at", typingExpirySeconds); err != nil {
				return err
			}

			presence := db.Collection(collPresence)
			if err := migrate.EnsureUniqueIndex(ctx, presence, migrate.Asc("user_id")); err != nil {
				return err
			}
			return migrate.EnsureTTLIndex(ctx, presence, "updated_at", presenceExpirySeconds)
		},
		// No inverse: the capped originals were dropped along with their
		// contents, so there is nothing to restore to.
	}
}
