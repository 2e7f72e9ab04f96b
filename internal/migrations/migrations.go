// Package migrations holds the concrete schema and index migrations for the
// hivemind collections. The host composes the full set via All and hands it
// to a migrate.Runner; there is no package-level registry.
package migrations

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

// Collection names owned by the platform's entity services. Migrations are
// the single writer of their structure; the services only read and write
// documents.
const (
	collUsers         = "users"
	collPosts         = "posts"
	collComments      = "comments"
	collLikes         = "likes"
	collFollows       = "follows"
	collGroups        = "groups"
	collGroupMembers  = "group_members"
	collConversations = "conversations"
	collMessages      = "messages"
	collStories       = "stories"
	collReports       = "reports"
	collMedia         = "media"
	collMediaUploads  = "media_uploads"
	collTyping        = "typing_indicators"
	collPresence      = "presence"
)

// All returns every migration in registration order. The runner re-sorts by
// id, so the order here is documentation, not a contract.
func All() []migrate.Migration {
	return []migrate.Migration{
		userIndexes(),
		postIndexes(),
		commentIndexes(),
		likeIndexes(),
		followIndexes(),
		groupIndexes(),
		messageIndexes(),
		storyTTL(),
		reportIndexes(),
		mediaTTL(),
		realtimeRecreate(),
		seedSystemRecords(),
	}
}

// dropIndexes removes the named indexes from a collection, tolerating ones
// that were already dropped or never created.
func dropIndexes(ctx context.Context, coll migrate.Collection, names ...string) error {
	for _, name := range names {
		err := coll.DropIndex(ctx, name)
		if err != nil && !errors.Is(err, migrate.ErrIndexNotFound) {
			return err
		}
	}
	return nil
}
