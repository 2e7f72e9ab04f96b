package migrate

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Server error codes classified by the adapter.
const (
	codeNamespaceNotFound     = 26
	codeIndexNotFound         = 27
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

type mongoDatabase struct {
	db *mongo.Database
}

// NewMongoDatabase wraps a mongo database handle as the engine's Database.
func NewMongoDatabase(db *mongo.Database) Database {
	return &mongoDatabase{db: db}
}

func (d *mongoDatabase) Collections(ctx context.Context) ([]CollectionInfo, error) {
	specs, err := d.db.ListCollectionSpecifications(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, "listing collection specifications")
	}

	infos := make([]CollectionInfo, 0, len(specs))
	for _, spec := range specs {
		info := CollectionInfo{Name: spec.Name}
		if len(spec.Options) > 0 {
			if v, lookupErr := spec.Options.LookupErr("capped"); lookupErr == nil {
				capped, _ := v.BooleanOK()
				info.Capped = capped
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (d *mongoDatabase) CreateCollection(ctx context.Context, name string) error {
	return d.db.CreateCollection(ctx, name)
}

func (d *mongoDatabase) DropCollection(ctx context.Context, name string) error {
	err := d.db.Collection(name).Drop(ctx)
	if hasServerErrorCode(err, codeNamespaceNotFound) {
		return nil
	}
	return err
}

func (d *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{coll: d.db.Collection(name)}
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

func (c *mongoCollection) Indexes(ctx context.Context) ([]IndexInfo, error) {
	specs, err := c.coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "listing indexes on %s", c.coll.Name())
	}

	infos := make([]IndexInfo, 0, len(specs))
	for _, spec := range specs {
		keys, err := parseKeysDocument(spec.KeysDocument)
		if err != nil {
			return nil, errors.Wrapf(err, "index %s on %s", spec.Name, c.coll.Name())
		}

		info := IndexInfo{
			Name:               spec.Name,
			Keys:               keys,
			ExpireAfterSeconds: spec.ExpireAfterSeconds,
		}
		if spec.Unique != nil {
			info.Unique = *spec.Unique
		}
		if spec.Sparse != nil {
			info.Sparse = *spec.Sparse
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (c *mongoCollection) CreateIndex(ctx context.Context, spec IndexSpec) error {
	keys := bson.D{}
	for _, k := range spec.Keys {
		keys = append(keys, bson.E{Key: k.Field, Value: kindToBSON(k.Kind)})
	}

	opts := options.Index()
	if spec.Name != "" {
		opts.SetName(spec.Name)
	}
	if spec.Unique {
		opts.SetUnique(true)
	}
	if spec.Sparse {
		opts.SetSparse(true)
	}
	if spec.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*spec.ExpireAfterSeconds)
	}

	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	return classifyCreateIndexError(err)
}

func (c *mongoCollection) DropIndex(ctx context.Context, name string) error {
	_, err := c.coll.Indexes().DropOne(ctx, name)
	return classifyDropIndexError(err, name)
}

func classifyCreateIndexError(err error) error {
	if hasServerErrorCode(err, codeIndexOptionsConflict) || hasServerErrorCode(err, codeIndexKeySpecsConflict) {
		return errors.Wrap(ErrIndexConflict, err.Error())
	}
	return err
}

// classifyDropIndexError maps both IndexNotFound and NamespaceNotFound to
// ErrIndexNotFound: the server answers dropIndexes with code 26 when the
// collection itself does not exist yet, and a missing collection has no
// index to drop.
func classifyDropIndexError(err error, name string) error {
	if hasServerErrorCode(err, codeIndexNotFound) || hasServerErrorCode(err, codeNamespaceNotFound) {
		return errors.Wrap(ErrIndexNotFound, name)
	}
	return err
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc interface{}) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.D, results interface{}) error {
	cursor, err := c.coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

func (c *mongoCollection) Count(ctx context.Context, filter bson.D) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter bson.D) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func hasServerErrorCode(err error, code int) bool {
	if err == nil {
		return false
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.HasErrorCode(code)
	}
	return false
}

func kindToBSON(kind IndexKind) interface{} {
	switch kind {
	case Ascending:
		return int32(1)
	case Descending:
		return int32(-1)
	default:
		return string(kind)
	}
}

func parseKeysDocument(raw bson.Raw) ([]IndexKey, error) {
	elements, err := raw.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "parsing key document")
	}

	keys := make([]IndexKey, 0, len(elements))
	for _, e := range elements {
		key := IndexKey{Field: e.Key()}

		v := e.Value()
		switch {
		case v.IsNumber():
			if n, ok := v.AsInt64OK(); ok && n < 0 {
				key.Kind = Descending
			} else {
				key.Kind = Ascending
			}
		default:
			s, ok := v.StringValueOK()
			if !ok {
				return nil, fmt.Errorf("unsupported key value %s for field %s", v.Type, e.Key())
			}
			key.Kind = IndexKind(s)
		}

		keys = append(keys, key)
	}
	return keys, nil
}
