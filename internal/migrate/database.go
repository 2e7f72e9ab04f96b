package migrate

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// IndexKind is the type of a single index key.
type IndexKind string

const (
	Ascending   IndexKind = "1"
	Descending  IndexKind = "-1"
	TextIndex   IndexKind = "text"
	Geo2DSphere IndexKind = "2dsphere"
)

// IndexKey is one field of an index key pattern, in declaration order.
type IndexKey struct {
	Field string
	Kind  IndexKind
}

func Asc(field string) IndexKey  { return IndexKey{Field: field, Kind: Ascending} }
func Desc(field string) IndexKey { return IndexKey{Field: field, Kind: Descending} }
func Text(field string) IndexKey { return IndexKey{Field: field, Kind: TextIndex} }
func Geo(field string) IndexKey  { return IndexKey{Field: field, Kind: Geo2DSphere} }

// IndexSpec is a desired index declaration.
type IndexSpec struct {
	// Name overrides the canonical name when set.
	Name   string
	Keys   []IndexKey
	Unique bool
	Sparse bool
	// ExpireAfterSeconds turns the index into a TTL index when non-nil.
	ExpireAfterSeconds *int32
}

// CanonicalName returns the explicit name if one was given, otherwise the
// name the server would synthesize: field and direction pairs joined with
// underscores, e.g. "email_1" or "conversation_id_1_sent_at_-1".
func (s IndexSpec) CanonicalName() string {
	if s.Name != "" {
		return s.Name
	}
	return canonicalIndexName(s.Keys)
}

func canonicalIndexName(keys []IndexKey) string {
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, k.Field, string(k.Kind))
	}
	return strings.Join(parts, "_")
}

// IndexInfo describes an index that exists on a collection.
type IndexInfo struct {
	Name               string
	Keys               []IndexKey
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds *int32
}

// CollectionInfo describes an existing collection and its storage policy.
type CollectionInfo struct {
	Name string
	// Capped reports whether the collection was provisioned with a
	// fixed-size storage policy.
	Capped bool
}

// Collection is the per-collection surface migrations are written against.
type Collection interface {
	Name() string

	Indexes(ctx context.Context) ([]IndexInfo, error)
	// CreateIndex returns an error wrapping ErrIndexConflict when an index
	// with the same key pattern already exists with different options.
	CreateIndex(ctx context.Context, spec IndexSpec) error
	// DropIndex returns an error wrapping ErrIndexNotFound when no index
	// with the given name exists.
	DropIndex(ctx context.Context, name string) error

	InsertOne(ctx context.Context, doc interface{}) error
	Find(ctx context.Context, filter bson.D, results interface{}) error
	Count(ctx context.Context, filter bson.D) (int64, error)
	DeleteOne(ctx context.Context, filter bson.D) (int64, error)
}

// Database is the handle the migration engine runs against. Implementations
// wrap a real document database (see NewMongoDatabase) or an in-memory fake
// for tests.
type Database interface {
	// Collections lists existing collections with their storage metadata.
	Collections(ctx context.Context) ([]CollectionInfo, error)
	CreateCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error
	// Collection returns a handle regardless of whether the collection
	// exists yet; the underlying store creates it on first write.
	Collection(name string) Collection
}
