package migrations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

// Fixed ids so re-runs and rollbacks address the same documents.
var (
	systemUserID         = uuid.MustParse("7d0cbd6e-4073-4f5e-9fbd-5a6e3a2b9c01")
	announcementsGroupID = uuid.MustParse("9f3b1c44-11de-4c2f-8f02-b4a07a5d6e02")
)

func seedSystemRecords() migrate.Migration {
	return migrate.Migration{
		ID:          "012_seed_system_records",
		Description: "system user and announcements group",
		Up: func(ctx context.Context, db migrate.Database) error {
			now := time.Now().UTC()

			users := db.Collection(collUsers)
			n, err := users.Count(ctx, bson.D{{Key: "_id", Value: systemUserID.String()}})
			if err != nil {
				return err
			}
			if n == 0 {
				err = users.InsertOne(ctx, bson.M{
					"_id":          systemUserID.String(),
					"username":     "system",
					"email":        "system@hivemind.internal",
					"display_name": "Hivemind",
					"is_system":    true,
					"created_at":   now,
				})
				if err != nil {
					return err
				}
			}

			groups := db.Collection(collGroups)
			n, err = groups.Count(ctx, bson.D{{Key: "_id", Value: announcementsGroupID.String()}})
			if err != nil {
				return err
			}
			if n == 0 {
				err = groups.InsertOne(ctx, bson.M{
					"_id":         announcementsGroupID.String(),
					"slug":        "announcements",
					"name":        "Announcements",
					"description": "Platform-wide announcements from the hivemind team.",
					"owner_id":    systemUserID.String(),
					"created_at":  now,
				})
				if err != nil {
					return err
				}
			}

			return nil
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			if _, err := db.Collection(collGroups).DeleteOne(ctx,
				bson.D{{Key: "_id", Value: announcementsGroupID.String()}}); err != nil {
				return err
			}
			_, err := db.Collection(collUsers).DeleteOne(ctx,
				bson.D{{Key: "_id", Value: systemUserID.String()}})
			return err
		},
	}
}
