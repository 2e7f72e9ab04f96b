package migrations

import (
	"context"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

func storyTTL() migrate.Migration {
	return migrate.Migration{
		ID:          "008_story_ttl",
		Description: "author feeds on stories and expiry at the document's expires_at",
		Up: func(ctx context.Context, db migrate.Database) error {
			stories := db.Collection(collStories)

			err := migrate.EnsureIndexes(ctx, stories,
				migrate.IndexSpec{
					Keys: []migrate.IndexKey{
						migrate.Asc("author_id"),
						migrate.Desc("created_at"),
					},
				},
			)
			if err != nil {
				return err
			}

			// expires_at carries the full deadline (24h after posting, set
			// by the story service), so the index expiry itself is zero.
			return migrate.EnsureTTLIndex(ctx, stories, "expires_at", 0)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collStories),
				"author_id_1_created_at_-1",
				"expires_at_1",
			)
		},
	}
}

func reportIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "009_report_indexes",
		Description: "moderation queue ordering and one report per reporter per subject",
		Up: func(ctx context.Context, db migrate.Database) error {
			reports := db.Collection(collReports)

			if err := migrate.EnsureUniqueIndex(ctx, reports,
				migrate.Asc("reporter_id"),
				migrate.Asc("subject_type"),
				migrate.Asc("subject_id"),
			); err != nil {
				return err
			}

			return migrate.EnsureIndexes(ctx, reports,
				migrate.IndexSpec{
					Keys: []migrate.IndexKey{
						migrate.Asc("status"),
						migrate.Desc("created_at"),
					},
				},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collReports),
				"reporter_id_1_subject_type_1_subject_id_1",
				"status_1_created_at_-1",
			)
		},
	}
}

func mediaTTL() migrate.Migration {
	return migrate.Migration{
		ID:          "010_media_ttl",
		Description: "owner galleries on media, abandoned staging uploads expire after an hour",
		Up: func(ctx context.Context, db migrate.Database) error {
			media := db.Collection(collMedia)
			err := migrate.EnsureIndexes(ctx, media,
				migrate.IndexSpec{
					Keys: []migrate.IndexKey{
						migrate.Asc("owner_id"),
						migrate.Desc("created_at"),
					},
				},
			)
			if err != nil {
				return err
			}

			return migrate.EnsureTTLIndex(ctx, db.Collection(collMediaUploads), "created_at", 3600)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			if err := dropIndexes(ctx, db.Collection(collMedia),
				"owner_id_1_created_at_-1"); err != nil {
				return err
			}
			return dropIndexes(ctx, db.Collection(collMediaUploads), "created_at_1")
		},
	}
}
