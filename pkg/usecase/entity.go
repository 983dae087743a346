package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

const entityExtractionPrompt = `Extract the named entities from the following message: people, places, topics and organizations.
Respond with a JSON array of strings containing only the entity names. Respond with [] when there are none.

Message:
%s`

// extractEntities asks the model service for the entities mentioned in a
// message. A malformed response carries the parse tag so callers can degrade
// to an empty entity set.
func (uc *UseCases) extractEntities(ctx context.Context, content string) ([]string, error) {
	session, err := uc.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session for entity extraction",
			goerr.T(types.ErrTagModelService))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(fmt.Sprintf(entityExtractionPrompt, content)))
	if err != nil {
		return nil, goerr.Wrap(err, "entity extraction call failed",
			goerr.T(types.ErrTagModelService))
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("entity extraction returned empty response",
			goerr.T(types.ErrTagParse))
	}

	names, err := parseEntityNames(resp.Texts[0])
	if err != nil {
		return nil, err
	}

	trimmed := make([]string, 0, len(names))
	for _, name := range names {
		if n := model.NormalizeEntityName(name); n != "" {
			trimmed = append(trimmed, n)
		}
	}
	return trimmed, nil
}

// parseEntityNames accepts either a bare JSON array or an object with an
// "entities" key, which some models produce despite the instruction.
func parseEntityNames(raw string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err == nil {
		return names, nil
	}

	var wrapped struct {
		Entities []string `json:"entities"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Entities != nil {
		return wrapped.Entities, nil
	}

	return nil, goerr.New("entity extraction returned malformed JSON",
		goerr.T(types.ErrTagParse),
		goerr.V("response", raw),
	)
}

// ExtractAndLink extracts entity names from a message's content and links
// them to the message in the graph, returning the linked names. Malformed
// model output degrades to an empty result rather than an error; the message
// itself is already stored either way.
func (uc *UseCases) ExtractAndLink(ctx context.Context, messageID model.MessageID, content string) ([]string, error) {
	names, err := uc.extractEntities(ctx, content)
	if err != nil {
		if goerr.HasTag(err, types.ErrTagParse) {
			logging.From(ctx).Warn("entity extraction returned malformed output",
				"messageID", messageID)
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to extract entities", goerr.V("messageID", messageID))
	}
	if len(names) == 0 {
		return nil, nil
	}

	if err := uc.repo.Entity().Link(ctx, messageID, names); err != nil {
		return nil, goerr.Wrap(err, "failed to link entities", goerr.V("messageID", messageID))
	}
	return names, nil
}

// ListEntities returns the entities linked to a stored message
func (uc *UseCases) ListEntities(ctx context.Context, messageID model.MessageID) ([]*model.Entity, error) {
	entities, err := uc.repo.Entity().ListForMessage(ctx, messageID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities",
			goerr.V("messageID", messageID))
	}
	return entities, nil
}
