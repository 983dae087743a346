package usecase

import (
	"context"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// StoreMessage persists a conversation turn and schedules the post-store
// pipeline (embedding fill, entity extraction). The write itself is
// synchronous; a storage failure surfaces to the caller. Pipeline failures
// are isolated and only logged, the stored message stays retrievable by
// keyword search either way.
func (uc *UseCases) StoreMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.UserID == "" {
		return nil, goerr.New("user ID is required", goerr.T(types.ErrTagValidation))
	}
	if msg.SessionID == "" {
		return nil, goerr.New("session ID is required", goerr.T(types.ErrTagValidation))
	}
	if msg.Content == "" {
		return nil, goerr.New("content is required", goerr.T(types.ErrTagValidation))
	}

	key := msg.UserID.String() + "/" + msg.SessionID.String()
	uc.sessionLocks.Lock(key)
	defer uc.sessionLocks.Unlock(key)

	stored, err := uc.repo.Message().Store(ctx, msg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store message",
			goerr.V("userID", msg.UserID),
			goerr.V("sessionID", msg.SessionID),
		)
	}

	uc.schedulePipeline(ctx, stored)
	return stored, nil
}

// schedulePipeline defers embedding generation and entity extraction for a
// freshly stored message. Each stage runs independently so one failing does
// not starve the other.
func (uc *UseCases) schedulePipeline(ctx context.Context, stored *model.Message) {
	id := stored.ID
	content := stored.Content

	uc.dispatch(ctx, func(ctx context.Context) error {
		embedding, err := uc.generateEmbedding(ctx, content)
		if err != nil {
			return goerr.Wrap(err, "failed to generate embedding for stored message",
				goerr.V("messageID", id),
			)
		}
		if err := uc.repo.Message().FillEmbedding(ctx, id, embedding); err != nil {
			return goerr.Wrap(err, "failed to fill embedding", goerr.V("messageID", id))
		}
		return nil
	})

	uc.dispatch(ctx, func(ctx context.Context) error {
		_, err := uc.ExtractAndLink(ctx, id, content)
		return err
	})
}

// generateEmbedding embeds a single text and converts it to float32
func (uc *UseCases) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := uc.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "embedding generation failed", goerr.T(types.ErrTagModelService))
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("embedding generation returned empty result",
			goerr.T(types.ErrTagModelService))
	}

	embedding64 := embeddings[0]
	embedding32 := make([]float32, len(embedding64))
	for i, v := range embedding64 {
		embedding32[i] = float32(v)
	}
	return embedding32, nil
}
