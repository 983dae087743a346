// Package neo4j persists the conversation memory graph in Neo4j. All graph
// mutations go through single-statement Cypher writes so that each public
// operation commits atomically.
package neo4j

import (
	"github.com/engram-lab/engram/pkg/domain/interfaces"
)

// Repository implements interfaces.Repository on top of a GraphStore
type Repository struct {
	message *messageRepository
	entity  *entityRepository
}

var _ interfaces.Repository = &Repository{}

// New creates a repository issuing queries through the given graph store
func New(graph interfaces.GraphStore) *Repository {
	return &Repository{
		message: &messageRepository{graph: graph},
		entity:  &entityRepository{graph: graph},
	}
}

func (r *Repository) Message() interfaces.MessageRepository {
	return r.message
}

func (r *Repository) Entity() interfaces.EntityRepository {
	return r.entity
}
