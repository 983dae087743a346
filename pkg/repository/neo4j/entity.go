package neo4j

import (
	"context"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type entityRepository struct {
	graph interfaces.GraphStore
}

var _ interfaces.EntityRepository = &entityRepository{}

// linkQuery merges Entity nodes by name and MENTIONS edges from the message,
// so repeated invocations never duplicate either.
const linkQuery = `
MATCH (m:Message {id: $message_id})
UNWIND $names AS name
MERGE (e:Entity {name: name})
MERGE (m)-[:MENTIONS]->(e)
RETURN count(e) AS linked
`

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

	if _, err := r.graph.Run(ctx, false, linkQuery, map[string]any{
		"message_id": messageID.String(),
		"names":      trimmed,
	}); err != nil {
		return goerr.Wrap(err, "failed to link entities",
			goerr.V("messageID", messageID),
			goerr.V("names", trimmed),
		)
	}
	return nil
}

const listForMessageQuery = `
MATCH (m:Message {id: $message_id})-[:MENTIONS]->(e:Entity)
RETURN e.name AS name
ORDER BY name ASC
`

func (r *entityRepository) ListForMessage(ctx context.Context, messageID model.MessageID) ([]*model.Entity, error) {
	rows, err := r.graph.Run(ctx, true, listForMessageQuery, map[string]any{
		"message_id": messageID.String(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities for message",
			goerr.V("messageID", messageID),
		)
	}

	entities := make([]*model.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, &model.Entity{Name: rowString(row, "name")})
	}
	return entities, nil
}
