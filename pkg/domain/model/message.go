package model

import (
	"encoding/json"
	"time"

	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/google/uuid"
)

// EmbeddingDimension is the vector size requested from the model service
// (768 matches the Gemini text embedding models).
const EmbeddingDimension = 768

// MessageID is a UUID-based identifier for Message
type MessageID string

// NewMessageID generates a new UUID v4 MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// String returns the string representation of the message ID
func (id MessageID) String() string {
	return string(id)
}

// Message represents a single conversation turn persisted in the graph.
// Messages are append-only: once stored, only the Embedding field may be
// filled in afterwards, and exactly once.
type Message struct {
	ID        MessageID
	UserID    types.UserID
	SessionID types.SessionID
	Role      types.Role
	Content   string
	Metadata  json.RawMessage // opaque serialized blob, not interpreted at this layer
	Embedding []float32       // absent until embedding generation succeeds
	CreatedAt time.Time
}

// Clone returns a deep copy of the message
func (m *Message) Clone() *Message {
	copied := *m
	if m.Metadata != nil {
		copied.Metadata = make(json.RawMessage, len(m.Metadata))
		copy(copied.Metadata, m.Metadata)
	}
	if m.Embedding != nil {
		copied.Embedding = make([]float32, len(m.Embedding))
		copy(copied.Embedding, m.Embedding)
	}
	return &copied
}

// MemoryRecord is a retrieval result handed back to callers. Metadata is
// deserialized here; Similarity is populated only in embedding mode.
type MemoryRecord struct {
	Content    string
	Role       types.Role
	Timestamp  time.Time
	SessionID  types.SessionID
	Metadata   map[string]any
	Similarity float64
}

// NewMemoryRecord builds a MemoryRecord from a stored message
func NewMemoryRecord(m *Message) MemoryRecord {
	rec := MemoryRecord{
		Content:   m.Content,
		Role:      m.Role,
		Timestamp: m.CreatedAt,
		SessionID: m.SessionID,
	}
	if len(m.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(m.Metadata, &meta); err == nil {
			rec.Metadata = meta
		}
	}
	return rec
}

// ConversationMatch is an embedding-search hit together with its temporal
// neighborhood from the same session.
type ConversationMatch struct {
	Anchor     MemoryRecord
	Similarity float64
	Context    []MemoryRecord
}
