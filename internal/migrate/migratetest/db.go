// Package migratetest provides an in-memory Database for exercising the
// migration engine without a running server. It mirrors the server behaviors
// the engine depends on: implicit collection creation on first write, hard
// errors on conflicting index declarations, unique-index enforcement on
// insert, and the capped-collection restrictions around TTL indexes.
package migratetest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

type collection struct {
	name    string
	capped  bool
	indexes []migrate.IndexInfo
	docs    []bson.M
}

// DB is an in-memory migrate.Database.
type DB struct {
	mu          sync.Mutex
	collections map[string]*collection

	// CollectionsErr, when set, is returned by Collections to simulate a
	// metadata read failure.
	CollectionsErr error
}

func NewDB() *DB {
	return &DB{collections: make(map[string]*collection)}
}

// AddCollection pre-creates a regular collection.
func (d *DB) AddCollection(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.get(name)
}

// AddCappedCollection pre-creates a collection with the fixed-size storage
// policy set.
func (d *DB) AddCappedCollection(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.get(name).capped = true
}

// SeedIndex installs an index as pre-existing state, bypassing the conflict
// checks migrations are subject to.
func (d *DB) SeedIndex(name string, info migrate.IndexInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.get(name)
	c.indexes = append(c.indexes, info)
}

// get returns the named collection, creating it as a regular collection if
// absent. Callers hold d.mu.
func (d *DB) get(name string) *collection {
	c, ok := d.collections[name]
	if !ok {
		c = &collection{name: name}
		d.collections[name] = c
	}
	return c
}

func (d *DB) Collections(ctx context.Context) ([]migrate.CollectionInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.CollectionsErr != nil {
		return nil, d.CollectionsErr
	}

	names := make([]string, 0, len(d.collections))
	for name := range d.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]migrate.CollectionInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, migrate.CollectionInfo{
			Name:   name,
			Capped: d.collections[name].capped,
		})
	}
	return infos, nil
}

func (d *DB) CreateCollection(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.get(name)
	return nil
}

func (d *DB) DropCollection(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.collections, name)
	return nil
}

func (d *DB) Collection(name string) migrate.Collection {
	return &collectionHandle{db: d, name: name}
}

type collectionHandle struct {
	db   *DB
	name string
}

func (h *collectionHandle) Name() string {
	return h.name
}

func (h *collectionHandle) Indexes(ctx context.Context) ([]migrate.IndexInfo, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	c, ok := h.db.collections[h.name]
	if !ok {
		return nil, nil
	}

	infos := make([]migrate.IndexInfo, len(c.indexes))
	copy(infos, c.indexes)
	return infos, nil
}

func (h *collectionHandle) CreateIndex(ctx context.Context, spec migrate.IndexSpec) error {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	c := h.db.get(h.name)

	if c.capped && spec.ExpireAfterSeconds != nil {
		return errors.Errorf("cannot create TTL index on capped collection %s", h.name)
	}

	desired := migrate.IndexInfo{
		Name:               spec.CanonicalName(),
		Keys:               spec.Keys,
		Unique:             spec.Unique,
		Sparse:             spec.Sparse,
		ExpireAfterSeconds: spec.ExpireAfterSeconds,
	}

	for _, existing := range c.indexes {
		sameName := existing.Name == desired.Name
		sameKeys := sameKeyPattern(existing.Keys, desired.Keys)

		if sameName && sameKeys && sameOptions(existing, desired) {
			// Exact match, the server treats repeat creation as a no-op.
			return nil
		}
		if sameName || sameKeys {
			return errors.Wrapf(migrate.ErrIndexConflict,
				"index %s on %s", existing.Name, h.name)
		}
	}

	c.indexes = append(c.indexes, desired)
	return nil
}

func (h *collectionHandle) DropIndex(ctx context.Context, name string) error {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	c, ok := h.db.collections[h.name]
	if !ok {
		return errors.Wrap(migrate.ErrIndexNotFound, name)
	}

	for i, existing := range c.indexes {
		if existing.Name == name {
			c.indexes = append(c.indexes[:i], c.indexes[i+1:]...)
			return nil
		}
	}
	return errors.Wrap(migrate.ErrIndexNotFound, name)
}

func (h *collectionHandle) InsertOne(ctx context.Context, doc interface{}) error {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	c := h.db.get(h.name)

	m, err := toDoc(doc)
	if err != nil {
		return err
	}

	for _, index := range c.indexes {
		if !index.Unique {
			continue
		}
		key, ok := uniqueKey(index, m)
		if !ok {
			continue
		}
		for _, existing := range c.docs {
			existingKey, ok := uniqueKey(index, existing)
			if ok && existingKey == key {
				return errors.Errorf("duplicate key error on %s: index %s key %s",
					h.name, index.Name, key)
			}
		}
	}

	c.docs = append(c.docs, m)
	return nil
}

func (h *collectionHandle) Find(ctx context.Context, filter bson.D, results interface{}) error {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	var matched []bson.M
	if c, ok := h.db.collections[h.name]; ok {
		for _, doc := range c.docs {
			if matches(doc, filter) {
				matched = append(matched, doc)
			}
		}
	}
	return decodeAll(matched, results)
}

func (h *collectionHandle) Count(ctx context.Context, filter bson.D) (int64, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	c, ok := h.db.collections[h.name]
	if !ok {
		return 0, nil
	}

	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (h *collectionHandle) DeleteOne(ctx context.Context, filter bson.D) (int64, error) {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()

	c, ok := h.db.collections[h.name]
	if !ok {
		return 0, nil
	}

	for i, doc := range c.docs {
		if matches(doc, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func sameKeyPattern(a, b []migrate.IndexKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameOptions(a, b migrate.IndexInfo) bool {
	if a.Unique != b.Unique || a.Sparse != b.Sparse {
		return false
	}
	if (a.ExpireAfterSeconds == nil) != (b.ExpireAfterSeconds == nil) {
		return false
	}
	if a.ExpireAfterSeconds != nil && *a.ExpireAfterSeconds != *b.ExpireAfterSeconds {
		return false
	}
	return true
}

func uniqueKey(index migrate.IndexInfo, doc bson.M) (string, bool) {
	key := ""
	for _, k := range index.Keys {
		v, ok := doc[k.Field]
		if !ok {
			if index.Sparse {
				return "", false
			}
			v = nil
		}
		key += fmt.Sprintf("%v\x00", v)
	}
	return key, true
}

func matches(doc bson.M, filter bson.D) bool {
	for _, f := range filter {
		if fmt.Sprintf("%v", doc[f.Key]) != fmt.Sprintf("%v", f.Value) {
			return false
		}
	}
	return true
}

func toDoc(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	return m, nil
}

func decodeAll(docs []bson.M, results interface{}) error {
	v := reflect.ValueOf(results)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return errors.New("results must be a pointer to a slice")
	}

	slice := v.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, len(docs)))
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, "encoding document")
		}
		elem := reflect.New(slice.Type().Elem())
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return errors.Wrap(err, "decoding document")
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}
