package memory

import (
	"context"
	"sort"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type entityRepository struct {
	store *store
}

var _ interfaces.EntityRepository = &entityRepository{}

func (r *entityRepository) Link(ctx context.Context, messageID model.MessageID, names []string) error {
	trimmed := make([]string, 0, len(names))
	for _, name := range names {
		if n := model.NormalizeEntityName(name); n != "" {
			trimmed = append(trimmed, n)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.find(messageID) == nil {
		return goerr.New("message not found", goerr.V("messageID", messageID))
	}

	existing := make(map[string]bool, len(r.store.mentions[messageID]))
	for _, name := range r.store.mentions[messageID] {
		existing[name] = true
	}

	for _, name := range trimmed {
		if existing[name] {
			continue
		}
		existing[name] = true
		r.store.mentions[messageID] = append(r.store.mentions[messageID], name)
		r.store.entities[name]++
	}
	return nil
}

func (r *entityRepository) ListForMessage(ctx context.Context, messageID model.MessageID) ([]*model.Entity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	names := append([]string{}, r.store.mentions[messageID]...)
	sort.Strings(names)

	entities := make([]*model.Entity, 0, len(names))
	for _, name := range names {
		entities = append(entities, &model.Entity{Name: name})
	}
	return entities, nil
}
