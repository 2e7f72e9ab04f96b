package migrate

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// MigrationsCollection is the bookkeeping collection name.
const MigrationsCollection = "schema_migrations"

// MigrationRecord is one row of bookkeeping. A record exists if and only if
// the migration's forward function completed successfully and no rollback has
// deleted it since; records are never updated in place.
type MigrationRecord struct {
	Version   string    `bson:"version"`
	Applied   bool      `bson:"applied"`
	AppliedAt time.Time `bson:"applied_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// MigrationStatus is the reporting view for one registered migration, derived
// by joining the registered list with the bookkeeping collection.
type MigrationStatus struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Applied     bool       `json:"applied"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// ensureBookkeeping creates the bookkeeping collection if needed and
// guarantees the unique index on version, the only guard against a
// migration being recorded twice.
func ensureBookkeeping(ctx context.Context, db Database) error {
	infos, err := db.Collections(ctx)
	if err != nil {
		return errors.Wrap(err, "listing collections")
	}

	found := false
	for _, info := range infos {
		if info.Name == MigrationsCollection {
			found = true
			break
		}
	}
	if !found {
		if err := db.CreateCollection(ctx, MigrationsCollection); err != nil {
			return errors.Wrapf(err, "creating %s", MigrationsCollection)
		}
	}

	return EnsureUniqueIndex(ctx, db.Collection(MigrationsCollection), Asc("version"))
}

func loadRecords(ctx context.Context, db Database) (map[string]MigrationRecord, error) {
	var rows []MigrationRecord
	err := db.Collection(MigrationsCollection).Find(ctx, bson.D{}, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "loading migration records")
	}

	records := make(map[string]MigrationRecord, len(rows))
	for _, row := range rows {
		if row.Applied {
			records[row.Version] = row
		}
	}
	return records, nil
}

func insertRecord(ctx context.Context, db Database, version string) error {
	now := time.Now().UTC()
	record := MigrationRecord{
		Version:   version,
		Applied:   true,
		AppliedAt: now,
		CreatedAt: now,
	}

	err := db.Collection(MigrationsCollection).InsertOne(ctx, record)
	return errors.Wrapf(err, "recording migration %s", version)
}

func deleteRecord(ctx context.Context, db Database, version string) error {
	_, err := db.Collection(MigrationsCollection).DeleteOne(ctx, bson.D{{Key: "version", Value: version}})
	return errors.Wrapf(err, "deleting record of migration %s", version)
}
