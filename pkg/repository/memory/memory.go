// Package memory provides an in-memory implementation of the repository
// interfaces for testing and local development. It mirrors the graph
// semantics of the Neo4j implementation, including the per-session
// FOLLOWED_BY chain and monotonic timestamps.
package memory

import (
	"sort"
	"sync"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
)

type store struct {
	mu        sync.Mutex
	messages  map[types.UserID][]*model.Message
	followers map[model.MessageID]model.MessageID
	mentions  map[model.MessageID][]string
	entities  map[string]int
}

// Repository implements interfaces.Repository entirely in memory
type Repository struct {
	store   *store
	message *messageRepository
	entity  *entityRepository
}

var _ interfaces.Repository = &Repository{}

// New creates an empty in-memory repository
func New() *Repository {
	s := &store{
		messages:  make(map[types.UserID][]*model.Message),
		followers: make(map[model.MessageID]model.MessageID),
		mentions:  make(map[model.MessageID][]string),
		entities:  make(map[string]int),
	}
	return &Repository{
		store:   s,
		message: &messageRepository{store: s},
		entity:  &entityRepository{store: s},
	}
}

func (r *Repository) Message() interfaces.MessageRepository {
	return r.message
}

func (r *Repository) Entity() interfaces.EntityRepository {
	return r.entity
}

// Chain reconstructs the FOLLOWED_BY chain of a session in order. Used by
// tests to assert the chain stays linear.
func (r *Repository) Chain(userID types.UserID, sessionID types.SessionID) []model.MessageID {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	inSession := make(map[model.MessageID]bool)
	hasPrev := make(map[model.MessageID]bool)
	for _, m := range r.store.messages[userID] {
		if m.SessionID == sessionID {
			inSession[m.ID] = true
		}
	}
	for prev, next := range r.store.followers {
		if inSession[prev] && inSession[next] {
			hasPrev[next] = true
		}
	}

	var head model.MessageID
	for id := range inSession {
		if !hasPrev[id] {
			if head != "" {
				return nil // more than one head, chain is broken
			}
			head = id
		}
	}
	if head == "" {
		return nil
	}

	chain := []model.MessageID{head}
	for {
		next, ok := r.store.followers[chain[len(chain)-1]]
		if !ok || !inSession[next] {
			break
		}
		chain = append(chain, next)
	}
	return chain
}

// EntityCount returns the number of distinct entities
func (r *Repository) EntityCount() int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.entities)
}

// MentionCount returns how many MENTIONS edges point at the named entity
func (r *Repository) MentionCount(name string) int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.entities[model.NormalizeEntityName(name)]
}

// sessionTail returns the message with the greatest timestamp in the
// session, or nil. Caller must hold the lock.
func (s *store) sessionTail(userID types.UserID, sessionID types.SessionID) *model.Message {
	var tail *model.Message
	for _, m := range s.messages[userID] {
		if m.SessionID != sessionID {
			continue
		}
		if tail == nil || m.CreatedAt.After(tail.CreatedAt) {
			tail = m
		}
	}
	return tail
}

func (s *store) find(id model.MessageID) *model.Message {
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}

func sortByTimestampDesc(msgs []*model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
}

func sortByTimestampAsc(msgs []*model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
