package memory

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
	store *store
}

var _ interfaces.MessageRepository = &messageRepository{}

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
	stored.CreatedAt = stored.CreatedAt.Truncate(time.Millisecond)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if tail := r.store.sessionTail(stored.UserID, stored.SessionID); tail != nil {
		if !stored.CreatedAt.After(tail.CreatedAt) {
			stored.CreatedAt = tail.CreatedAt.Add(time.Millisecond)
		}
		r.store.followers[tail.ID] = stored.ID
	}

	r.store.messages[stored.UserID] = append(r.store.messages[stored.UserID], stored)
	return stored.Clone(), nil
}

func (r *messageRepository) FillEmbedding(ctx context.Context, id model.MessageID, embedding []float32) error {
	if len(embedding) == 0 {
		return goerr.New("empty embedding",
			goerr.T(types.ErrTagValidation),
			goerr.V("messageID", id),
		)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	msg := r.store.find(id)
	if msg == nil || msg.Embedding != nil {
		return goerr.New("message not found or embedding already set",
			goerr.T(types.ErrTagStorage),
			goerr.V("messageID", id),
		)
	}

	msg.Embedding = make([]float32, len(embedding))
	copy(msg.Embedding, embedding)
	return nil
}

func (r *messageRepository) FetchSession(ctx context.Context, userID types.UserID, sessionID types.SessionID) ([]*model.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*model.Message
	for _, m := range r.store.messages[userID] {
		if m.SessionID == sessionID {
			result = append(result, m.Clone())
		}
	}
	sortByTimestampAsc(result)
	return result, nil
}

func (r *messageRepository) SearchKeywords(ctx context.Context, userID types.UserID, keywords []string, since time.Time, limit int) ([]*model.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*model.Message
	for _, m := range r.store.messages[userID] {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		if !m.CreatedAt.Before(since) || containsAny(m.Content, keywords) {
			result = append(result, m.Clone())
		}
	}

	sortByTimestampDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *messageRepository) ListEmbedded(ctx context.Context, userID types.UserID, since time.Time) ([]*model.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*model.Message
	for _, m := range r.store.messages[userID] {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		if m.Embedding == nil || m.CreatedAt.Before(since) {
			continue
		}
		result = append(result, m.Clone())
	}
	sortByTimestampDesc(result)
	return result, nil
}

func (r *messageRepository) FetchWindow(ctx context.Context, userID types.UserID, sessionID types.SessionID, center time.Time, window time.Duration) ([]*model.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	from := center.Add(-window)
	to := center.Add(window)

	var result []*model.Message
	for _, m := range r.store.messages[userID] {
		if m.SessionID != sessionID {
			continue
		}
		if m.CreatedAt.Before(from) || m.CreatedAt.After(to) {
			continue
		}
		result = append(result, m.Clone())
	}
	sortByTimestampAsc(result)
	return result, nil
}

func (r *messageRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*model.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*model.Message
	for _, msgs := range r.store.messages {
		for _, m := range msgs {
			if m.Embedding == nil {
				result = append(result, m.Clone())
			}
		}
	}

	sortByTimestampAsc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func containsAny(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
