package migrations

import (
	"context"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

func userIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "001_user_indexes",
		Description: "unique email and username, profile search and signup ordering on users",
		Up: func(ctx context.Context, db migrate.Database) error {
			users := db.Collection(collUsers)

			// Unique constraints first: declaring the non-unique search
			// indexes over overlapping keys before these would trip the
			// conflict path.
			if err := migrate.EnsureUniqueIndex(ctx, users, migrate.Asc("email")); err != nil {
				return err
			}
			if err := migrate.EnsureUniqueIndex(ctx, users, migrate.Asc("username")); err != nil {
				return err
			}

			return migrate.EnsureIndexes(ctx, users,
				migrate.IndexSpec{
					Name: "profile_search",
					Keys: []migrate.IndexKey{
						migrate.Text("display_name"),
						migrate.Text("bio"),
					},
				},
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Desc("created_at")}},
				migrate.IndexSpec{
					Keys:   []migrate.IndexKey{migrate.Asc("deactivated_at")},
					Sparse: true,
				},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collUsers),
				"email_1",
				"username_1",
				"profile_search",
				"created_at_-1",
				"deactivated_at_1",
			)
		},
	}
}
