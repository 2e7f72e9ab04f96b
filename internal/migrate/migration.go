package migrate

import (
	"context"
)

// Migration is a single named, ordered unit of schema change. The ID doubles
// as the bookkeeping key and the sort key; the convention is a zero-padded
// ordinal prefix ("007_message_indexes") so that lexicographic order matches
// the intended apply order.
type Migration struct {
	ID          string
	Description string

	// Up applies the change. It must be idempotent: a failed run leaves no
	// bookkeeping record, so the runner will invoke it again on the next
	// attempt against whatever partial state the failure left behind.
	Up func(ctx context.Context, db Database) error

	// Down undoes the change. Optional; migrations without an inverse
	// cannot be rolled back.
	Down func(ctx context.Context, db Database) error
}
