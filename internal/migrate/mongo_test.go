package migrate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassifyDropIndexError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "index not found",
			err:  mongo.CommandError{Code: 27, Message: "index not found with name [email_1]"},
			want: ErrIndexNotFound,
		},
		{
			// dropIndexes against a collection that does not exist yet
			// answers NamespaceNotFound, not IndexNotFound; a missing
			// collection has no index to drop.
			name: "namespace not found",
			err:  mongo.CommandError{Code: 26, Message: "ns not found"},
			want: ErrIndexNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDropIndexError(tt.err, "email_1")
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, classifyDropIndexError(nil, "email_1"))
	})

	t.Run("other server errors pass through unclassified", func(t *testing.T) {
		err := mongo.CommandError{Code: 13, Message: "unauthorized"}
		got := classifyDropIndexError(err, "email_1")
		require.Error(t, got)
		assert.NotErrorIs(t, got, ErrIndexNotFound)
	})
}

func TestClassifyCreateIndexError(t *testing.T) {
	t.Run("options conflict", func(t *testing.T) {
		err := mongo.CommandError{Code: 85, Message: "Index with name: email_1 already exists with different options"}
		assert.ErrorIs(t, classifyCreateIndexError(err), ErrIndexConflict)
	})

	t.Run("key specs conflict", func(t *testing.T) {
		err := mongo.CommandError{Code: 86, Message: "An existing index has the same name as the requested index"}
		assert.ErrorIs(t, classifyCreateIndexError(err), ErrIndexConflict)
	})

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, classifyCreateIndexError(nil))
	})

	t.Run("other errors pass through unclassified", func(t *testing.T) {
		err := errors.New("connection reset")
		got := classifyCreateIndexError(err)
		require.Error(t, got)
		assert.NotErrorIs(t, got, ErrIndexConflict)
	})
}

func TestParseKeysDocument(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "conversation_id", Value: int32(1)},
		{Key: "sent_at", Value: int32(-1)},
		{Key: "content", Value: "text"},
		{Key: "location", Value: "2dsphere"},
	})
	require.NoError(t, err)

	keys, err := parseKeysDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, []IndexKey{
		{Field: "conversation_id", Kind: Ascending},
		{Field: "sent_at", Kind: Descending},
		{Field: "content", Kind: TextIndex},
		{Field: "location", Kind: Geo2DSphere},
	}, keys)
}
