package migrate

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// The reconciler turns index declarations into "ensure this exact index
// exists". The server rejects an index whose key pattern matches an existing
// one with different options (uniqueness, TTL seconds, sparsity), which would
// otherwise make every startup after an index change fail outright.

// EnsureIndexes creates each spec in order. On a conflict with an existing
// index it drops the index under the spec's canonical name and retries the
// creation exactly once; a second failure propagates, so a persistent
// misconfiguration is surfaced instead of masked. Within one migration,
// unique declarations over an overlapping key set must run first (see
// EnsureUniqueIndex) or the non-unique creation itself trips the conflict
// path.
func EnsureIndexes(ctx context.Context, coll Collection, specs ...IndexSpec) error {
	for _, spec := range specs {
		if err := ensureIndex(ctx, coll, spec); err != nil {
			return err
		}
	}
	return nil
}

func ensureIndex(ctx context.Context, coll Collection, spec IndexSpec) error {
	err := coll.CreateIndex(ctx, spec)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrIndexConflict) {
		return errors.Wrapf(err, "creating index %s on %s", spec.CanonicalName(), coll.Name())
	}

	name := spec.CanonicalName()
	loggerFrom(ctx).WithFields(logrus.Fields{
		"collection": coll.Name(),
		"index":      name,
	}).Warn("index exists with conflicting options, dropping and recreating")

	if err := coll.DropIndex(ctx, name); err != nil && !errors.Is(err, ErrIndexNotFound) {
		return errors.Wrapf(err, "dropping conflicting index %s on %s", name, coll.Name())
	}
	// A concurrent writer could recreate the conflicting index between the
	// drop and this retry; the retry is not re-verified and the error then
	// propagates to the operator.
	if err := coll.CreateIndex(ctx, spec); err != nil {
		return errors.Wrapf(err, "recreating index %s on %s", name, coll.Name())
	}
	return nil
}

// EnsureUniqueIndex guarantees a unique index over keys: an existing unique
// index is left alone, an existing non-unique one under the same name is
// dropped and recreated unique, and a missing one is created.
func EnsureUniqueIndex(ctx context.Context, coll Collection, keys ...IndexKey) error {
	name := canonicalIndexName(keys)
	spec := IndexSpec{Keys: keys, Unique: true}

	existing, err := coll.Indexes(ctx)
	if err != nil {
		return errors.Wrapf(err, "listing indexes on %s", coll.Name())
	}

	for _, info := range existing {
		if info.Name != name {
			continue
		}
		if info.Unique {
			return nil
		}

		loggerFrom(ctx).WithFields(logrus.Fields{
			"collection": coll.Name(),
			"index":      name,
		}).Warn("index exists without uniqueness, dropping and recreating")

		if err := coll.DropIndex(ctx, name); err != nil && !errors.Is(err, ErrIndexNotFound) {
			return errors.Wrapf(err, "dropping non-unique index %s on %s", name, coll.Name())
		}
		break
	}

	if err := coll.CreateIndex(ctx, spec); err != nil {
		return errors.Wrapf(err, "creating unique index %s on %s", name, coll.Name())
	}
	return nil
}

// EnsureTTLIndex guarantees a TTL index on field with exactly
// expireAfterSeconds. Whatever index currently occupies the name "field_1" is
// dropped unconditionally, so the expiry value is always correct at the cost
// of a brief window without the index.
func EnsureTTLIndex(ctx context.Context, coll Collection, field string, expireAfterSeconds int32) error {
	keys := []IndexKey{Asc(field)}
	name := canonicalIndexName(keys)

	if err := coll.DropIndex(ctx, name); err != nil && !errors.Is(err, ErrIndexNotFound) {
		return errors.Wrapf(err, "dropping index %s on %s", name, coll.Name())
	}

	spec := IndexSpec{Keys: keys, ExpireAfterSeconds: &expireAfterSeconds}
	if err := coll.CreateIndex(ctx, spec); err != nil {
		return errors.Wrapf(err, "creating ttl index %s on %s", name, coll.Name())
	}
	return nil
}
