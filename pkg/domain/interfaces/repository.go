package interfaces

import (
	"context"
	"time"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
)

// Repository aggregates persistence access for the memory graph
type Repository interface {
	Message() MessageRepository
	Entity() EntityRepository
}

// MessageRepository defines persistence for Message nodes and their edges.
// Store performs the User upsert, Message creation, SENT edge and
// FOLLOWED_BY chain link as a single atomic transaction.
type MessageRepository interface {
	// Store persists a new message. The message ID and timestamp are assigned
	// by the repository if unset; the stored message is returned.
	Store(ctx context.Context, msg *model.Message) (*model.Message, error)

	// FillEmbedding sets the embedding of an existing message by ID match.
	// Intended to be called once per message from a deferred execution context.
	FillEmbedding(ctx context.Context, id model.MessageID, embedding []float32) error

	// FetchSession returns all messages of a user/session pair in ascending
	// timestamp order. A missing session yields an empty slice, not an error.
	FetchSession(ctx context.Context, userID types.UserID, sessionID types.SessionID) ([]*model.Message, error)

	// SearchKeywords returns messages with role user/assistant that are newer
	// than since OR whose content contains any of the lowercase keywords
	// (case-insensitive), newest first, truncated to limit.
	SearchKeywords(ctx context.Context, userID types.UserID, keywords []string, since time.Time, limit int) ([]*model.Message, error)

	// ListEmbedded returns messages with role user/assistant newer than since
	// that carry an embedding, for similarity scoring by the caller.
	ListEmbedded(ctx context.Context, userID types.UserID, since time.Time) ([]*model.Message, error)

	// FetchWindow returns messages of a session whose timestamps fall within
	// the window around center, in ascending timestamp order.
	FetchWindow(ctx context.Context, userID types.UserID, sessionID types.SessionID, center time.Time, window time.Duration) ([]*model.Message, error)

	// ListMissingEmbeddings returns messages across all users that have no
	// embedding yet, oldest first, truncated to limit. Used by the backfill
	// worker to retry deferred embedding fills that failed.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*model.Message, error)
}

// EntityRepository defines persistence for Entity nodes and MENTIONS edges
type EntityRepository interface {
	// Link upserts an Entity node per trimmed name and merges a MENTIONS edge
	// from the message. Idempotent under re-invocation.
	Link(ctx context.Context, messageID model.MessageID, names []string) error

	// ListForMessage returns the entities a message mentions
	ListForMessage(ctx context.Context, messageID model.MessageID) ([]*model.Entity, error)
}
