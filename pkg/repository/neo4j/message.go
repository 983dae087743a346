package neo4j

import (
	"context"
	"strings"
	"time"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type messageRepository struct {
	graph interfaces.GraphStore
}

var _ interfaces.MessageRepository = &messageRepository{}

// storeQuery upserts the User, creates the Message and its SENT edge, and
// links the FOLLOWED_BY chain in one statement. The ON MATCH SET forces a
// write lock on the User node even when it already exists (a bare MERGE
// match does not lock), so concurrent stores for the same user serialize
// inside the store and the chain stays linear. The timestamp is bumped past
// the latest prior message of the session to keep ordering strict.
const storeQuery = `
MERGE (u:User {id: $user_id})
ON CREATE SET u.created_at = $now
ON MATCH SET u.last_active = $now
WITH u
OPTIONAL MATCH (u)-[:SENT]->(p:Message {session_id: $session_id})
WITH u, max(p.timestamp) AS prev_ts
CREATE (m:Message {
	id: $id,
	content: $content,
	role: $role,
	session_id: $session_id,
	metadata: $metadata,%EMBEDDING%
	timestamp: CASE WHEN prev_ts IS NULL OR prev_ts < $now THEN $now ELSE prev_ts + 1 END
})
CREATE (u)-[:SENT]->(m)
WITH u, m, prev_ts
OPTIONAL MATCH (u)-[:SENT]->(prev:Message {session_id: $session_id})
WHERE prev.timestamp = prev_ts AND prev.id <> m.id
WITH m, prev
ORDER BY prev.id
LIMIT 1
FOREACH (p IN CASE WHEN prev IS NULL THEN [] ELSE [prev] END |
	CREATE (p)-[:FOLLOWED_BY]->(m))
RETURN m.id AS id, m.timestamp AS timestamp
`

const messageColumns = `m.id AS id, m.content AS content, m.role AS role, ` +
	`m.session_id AS session_id, m.metadata AS metadata, m.timestamp AS timestamp`

func (r *messageRepository) Store(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if !msg.Role.IsValid() {
		return nil, goerr.New("unrecognized role",
			goerr.T(types.ErrTagValidation),
			goerr.V("role", string(msg.Role)),
		)
	}

	stored := msg.Clone()
	if stored.ID == "" {
		stored.ID = model.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	params := map[string]any{
		"user_id":    stored.UserID.String(),
		"session_id": stored.SessionID.String(),
		"id":         stored.ID.String(),
		"content":    stored.Content,
		"role":       stored.Role.String(),
		"metadata":   string(stored.Metadata),
		"now":        stored.CreatedAt.UnixMilli(),
	}

	query := strings.Replace(storeQuery, "%EMBEDDING%", "", 1)
	if len(stored.Embedding) > 0 {
		query = strings.Replace(storeQuery, "%EMBEDDING%", "\n\tembedding: $embedding,", 1)
		params["embedding"] = float32sTo64(stored.Embedding)
	}

	rows, err := r.graph.Run(ctx, false, query, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store message",
			goerr.V("userID", stored.UserID),
			goerr.V("sessionID", stored.SessionID),
		)
	}
	if len(rows) == 0 {
		return nil, goerr.New("store returned no rows",
			goerr.T(types.ErrTagStorage),
			goerr.V("messageID", stored.ID),
		)
	}

	stored.CreatedAt = time.UnixMilli(rowInt64(rows[0], "timestamp")).UTC()
	return stored, nil
}

// fillEmbeddingQuery matches on embedding absence so the fill is write-once:
// a second invocation for the same message updates nothing.
const fillEmbeddingQuery = `
MATCH (m:Message {id: $id})
WHERE m.embedding IS NULL
SET m.embedding = $embedding
RETURN count(m) AS updated
`

func (r *messageRepository) FillEmbedding(ctx context.Context, id model.MessageID, embedding []float32) error {
	if len(embedding) == 0 {
		return goerr.New("empty embedding",
			goerr.T(types.ErrTagValidation),
			goerr.V("messageID", id),
		)
	}

	rows, err := r.graph.Run(ctx, false, fillEmbeddingQuery, map[string]any{
		"id":        id.String(),
		"embedding": float32sTo64(embedding),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to fill embedding", goerr.V("messageID", id))
	}

	if len(rows) == 0 || rowInt64(rows[0], "updated") == 0 {
		return goerr.New("message not found or embedding already set",
			goerr.T(types.ErrTagStorage),
			goerr.V("messageID", id),
		)
	}
	return nil
}

const fetchSessionQuery = `
MATCH (u:User {id: $user_id})-[:SENT]->(m:Message {session_id: $session_id})
RETURN ` + messageColumns + `
ORDER BY m.timestamp ASC
`

func (r *messageRepository) FetchSession(ctx context.Context, userID types.UserID, sessionID types.SessionID) ([]*model.Message, error) {
	rows, err := r.graph.Run(ctx, true, fetchSessionQuery, map[string]any{
		"user_id":    userID.String(),
		"session_id": sessionID.String(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch session",
			goerr.V("userID", userID),
			goerr.V("sessionID", sessionID),
		)
	}

	return rowsToMessages(rows, userID), nil
}

// searchKeywordsQuery: a message matches when it is recent enough OR its
// content contains any keyword, case-insensitively. Keywords arrive already
// lowercased from the retrieval engine.
const searchKeywordsQuery = `
MATCH (u:User {id: $user_id})-[:SENT]->(m:Message)
WHERE m.role IN ['user', 'assistant']
  AND (m.timestamp >= $since OR any(kw IN $keywords WHERE toLower(m.content) CONTAINS kw))
RETURN ` + messageColumns + `
ORDER BY m.timestamp DESC
LIMIT $limit
`

func (r *messageRepository) SearchKeywords(ctx context.Context, userID types.UserID, keywords []string, since time.Time, limit int) ([]*model.Message, error) {
	rows, err := r.graph.Run(ctx, true, searchKeywordsQuery, map[string]any{
		"user_id":  userID.String(),
		"keywords": keywords,
		"since":    since.UnixMilli(),
		"limit":    limit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search messages by keywords",
			goerr.V("userID", userID),
			goerr.V("keywords", keywords),
		)
	}

	return rowsToMessages(rows, userID), nil
}

const listEmbeddedQuery = `
MATCH (u:User {id: $user_id})-[:SENT]->(m:Message)
WHERE m.role IN ['user', 'assistant']
  AND m.timestamp >= $since
  AND m.embedding IS NOT NULL
RETURN ` + messageColumns + `, m.embedding AS embedding
ORDER BY m.timestamp DESC
`

func (r *messageRepository) ListEmbedded(ctx context.Context, userID types.UserID, since time.Time) ([]*model.Message, error) {
	rows, err := r.graph.Run(ctx, true, listEmbeddedQuery, map[string]any{
		"user_id": userID.String(),
		"since":   since.UnixMilli(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list embedded messages",
			goerr.V("userID", userID),
		)
	}

	return rowsToMessages(rows, userID), nil
}

const listMissingEmbeddingsQuery = `
MATCH (u:User)-[:SENT]->(m:Message)
WHERE m.embedding IS NULL
RETURN u.id AS user_id, ` + messageColumns + `
ORDER BY m.timestamp ASC
LIMIT $limit
`

func (r *messageRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*model.Message, error) {
	rows, err := r.graph.Run(ctx, true, listMissingEmbeddingsQuery, map[string]any{
		"limit": limit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages missing embeddings")
	}

	messages := make([]*model.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, rowToMessage(row, types.UserID(rowString(row, "user_id"))))
	}
	return messages, nil
}

const fetchWindowQuery = `
MATCH (u:User {id: $user_id})-[:SENT]->(m:Message {session_id: $session_id})
WHERE m.timestamp >= $from AND m.timestamp <= $to
RETURN ` + messageColumns + `
ORDER BY m.timestamp ASC
`

func (r *messageRepository) FetchWindow(ctx context.Context, userID types.UserID, sessionID types.SessionID, center time.Time, window time.Duration) ([]*model.Message, error) {
	rows, err := r.graph.Run(ctx, true, fetchWindowQuery, map[string]any{
		"user_id":    userID.String(),
		"session_id": sessionID.String(),
		"from":       center.Add(-window).UnixMilli(),
		"to":         center.Add(window).UnixMilli(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch session window",
			goerr.V("userID", userID),
			goerr.V("sessionID", sessionID),
		)
	}

	return rowsToMessages(rows, userID), nil
}
