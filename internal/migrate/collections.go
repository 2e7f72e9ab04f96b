package migrate

import (
	"context"

	"github.com/pkg/errors"
)

// RecreateAsRegular normalizes a collection that may have been provisioned
// with a fixed-size (capped) storage policy back into a regular collection,
// so entries expire individually via a TTL index instead of being evicted by
// size pressure.
//
// A missing collection is a no-op: the store creates it as a regular
// collection on first write. A capped collection is dropped outright,
// discarding all documents irreversibly; the collections this targets are
// ephemeral realtime caches. If the storage metadata cannot be read, the
// collection is treated as capped and dropped anyway, favoring structural
// consistency over retention of short-lived data.
//
// Must run before any index declaration on the same collection within a
// migration; indexes created first would land on the stale capped collection,
// which rejects TTL indexes.
func RecreateAsRegular(ctx context.Context, db Database, name string) error {
	infos, err := db.Collections(ctx)
	if err != nil {
		loggerFrom(ctx).WithField("collection", name).
			WithError(err).Warn("cannot read collection metadata, assuming capped")

		if err := db.DropCollection(ctx, name); err != nil {
			return errors.Wrapf(err, "dropping collection %s", name)
		}
		return nil
	}

	var found *CollectionInfo
	for i := range infos {
		if infos[i].Name == name {
			found = &infos[i]
			break
		}
	}
	if found == nil {
		return nil
	}
	if !found.Capped {
		return nil
	}

	loggerFrom(ctx).WithField("collection", name).Warn("dropping capped collection, contents are discarded")

	if err := db.DropCollection(ctx, name); err != nil {
		return errors.Wrapf(err, "dropping capped collection %s", name)
	}
	return nil
}
