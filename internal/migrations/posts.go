package migrations

import (
	"context"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

func postIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "002_post_indexes",
		Description: "author timelines, content search and geo queries on posts",
		Up: func(ctx context.Context, db migrate.Database) error {
			posts := db.Collection(collPosts)

			return migrate.EnsureIndexes(ctx, posts,
				migrate.IndexSpec{
					Keys: []migrate.IndexKey{
						migrate.Asc("author_id"),
						migrate.Desc("created_at"),
					},
				},
				migrate.IndexSpec{
					Name: "content_search",
					Keys: []migrate.IndexKey{
						migrate.Text("content"),
						migrate.Text("tags"),
					},
				},
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Geo("location")}},
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Desc("created_at")}},
				migrate.IndexSpec{
					Keys:   []migrate.IndexKey{migrate.Asc("group_id"), migrate.Desc("created_at")},
					Sparse: true,
				},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collPosts),
				"author_id_1_created_at_-1",
				"content_search",
				"location_2dsphere",
				"created_at_-1",
				"group_id_1_created_at_-1",
			)
		},
	}
}

func commentIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "003_comment_indexes",
		Description: "per-post threads and author lookups on comments",
		Up: func(ctx context.Context, db migrate.Database) error {
			comments := db.Collection(collComments)

			return migrate.EnsureIndexes(ctx, comments,
				migrate.IndexSpec{
					Keys: []migrate.IndexKey{
						migrate.Asc("post_id"),
						migrate.Desc("created_at"),
					},
				},
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Asc("author_id")}},
				migrate.IndexSpec{
					Keys:   []migrate.IndexKey{migrate.Asc("parent_id")},
					Sparse: true,
				},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			return dropIndexes(ctx, db.Collection(collComments),
				"post_id_1_created_at_-1",
				"author_id_1",
				"parent_id_1",
			)
		},
	}
}
