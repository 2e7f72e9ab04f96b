package migrations

import (
	"context"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

func messageIndexes() migrate.Migration {
	return migrate.Migration{
		ID:          "007_message_indexes",
		Description: "conversation history ordering and client-side send dedup on messages",
		Up: func(ctx context.Context, db migrate.Database) error {
			conversations := db.Collection(collConversations)
			err := migrate.EnsureIndexes(ctx, conversations,
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Asc("participant_ids")}},
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Desc("last_message_at")}},
			)
			if err != nil {
				return err
			}

			messages := db.Collection(collMessages)

			// client_msg_id is only present on messages sent through the
			// realtime path, hence sparse.
			err = migrate.EnsureIndexes(ctx, messages,
				migrate.IndexSpec{
					Keys:   []migrate.IndexKey{migrate.Asc("conversation_id"), migrate.Asc("client_msg_id")},
					Unique: true,
					Sparse: true,
				},
			)
			if err != nil {
				return err
			}

			return migrate.EnsureIndexes(ctx, messages,
				migrate.IndexSpec{
					Keys: []migrate.IndexKey{
						migrate.Asc("conversation_id"),
						migrate.Desc("sent_at"),
					},
				},
				migrate.IndexSpec{Keys: []migrate.IndexKey{migrate.Asc("sender_id")}},
			)
		},
		Down: func(ctx context.Context, db migrate.Database) error {
			if err := dropIndexes(ctx, db.Collection(collConversations),
				"participant_ids_1", "last_message_at_-1"); err != nil {
				return err
			}
			return dropIndexes(ctx, db.Collection(collMessages),
				"conversation_id_1_client_msg_id_1",
				"conversation_id_1_sent_at_-1",
				"sender_id_1",
			)
		},
	}
}
