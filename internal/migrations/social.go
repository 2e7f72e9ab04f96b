package migrations

import (
	"context"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

func likeIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "004_like_indexes",
		Description: "one like per user per post, like counts per post",
		Up: func(ctx context.Context, db migrate.Database) error {
			likes := db.Collection(collLikes)

			if err := migrate.EnsureUniqueIndex(ctx, likes,
				migrate.Asc("user_id"), migrate.Asc("post_id")); err != nil {
				return err
			}

			return migrate.EnsureIndexes(ctx, likes,
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Asc("post_id")}},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collLikes),
				"user_id_1_post_id_1",
				"post_id_1",
			)
		},
	}
}

func followIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "005_follow_indexes",
		Description: "one follow edge per pair, follower and followee fan-out",
		Up: func(ctx context.Context, db migrate.Database) error {
			follows := db.Collection(collFollows)

			if err := migrate.EnsureUniqueIndex(ctx, follows,
				migrate.Asc("follower_id"), migrate.Asc("followee_id")); err != nil {
				return err
			}

			return migrate.EnsureIndexes(ctx, follows,
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Asc("followee_id")}},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collFollows),
				"follower_id_1_followee_id_1",
				"followee_id_1",
			)
		},
	}
}

func groupIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "006_group_indexes",
		Description: "unique slug and search on groups, unique membership edges",
		Up: func(ctx context.Context, db migrate.Database) error {
			groups := db.Collection(collGroups)

			if err := migrate.EnsureUniqueIndex(ctx, groups, migrate.Asc("slug")); err != nil {
				return err
			}
			err := migrate.EnsureIndexes(ctx, groups,
				migrate.IndexSpec{
					Name: "group_search",
					Keys: []migrate.IndexKey{
						migrate.Text("name"),
						migrate.Text("description"),
					},
				},
			)
			if err != nil {
				return err
			}

			members := db.Collection(collGroupMembers)
			if err := migrate.EnsureUniqueIndex(ctx, members,
				migrate.Asc("group_id"), migrate.Asc("user_id")); err != nil {
				return err
			}
			return migrate.EnsureIndexes(ctx, members,
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Asc("user_id")}},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			if err := dropIndexes(ctx, db.Collection(collGroups),
				"slug_1", "group_search"); err != nil {
				return err
			}
			return dropIndexes(ctx, db.Collection(collGroupMembers),
				"group_id_1_user_id_1", "user_id_1")
		},
	}
}
