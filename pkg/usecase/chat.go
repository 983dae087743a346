package usecase

import (
	"context"
	"strings"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// ChatInput is one conversational turn from a user
type ChatInput struct {
	UserID    types.UserID
	SessionID types.SessionID // empty starts a new session
	Message   string
	Mode      types.RetrievalMode
}

// ChatOutput carries the assistant reply and the session it belongs to
type ChatOutput struct {
	SessionID types.SessionID
	Reply     string
	Memories  []model.MemoryRecord
}

// Chat runs one full conversational turn: retrieve relevant memory, assemble
// the prompt, call the model, and persist both sides of the exchange.
// Retrieval runs before the user turn is stored so the turn does not match
// itself.
func (uc *UseCases) Chat(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
	if input.UserID == "" {
		return nil, goerr.New("user ID is required", goerr.T(types.ErrTagValidation))
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, goerr.New("message is required", goerr.T(types.ErrTagValidation))
	}

	sessionID := input.SessionID
	if sessionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate session ID")
		}
		sessionID = types.SessionID(id.String())
	}

	memories, err := uc.Retrieve(ctx, input.UserID, input.Message, input.Mode)
	if err != nil {
		// chat continues without memory rather than failing the turn
		logging.From(ctx).Warn("memory retrieval failed for chat turn",
			"userID", input.UserID, "error", err)
		memories = nil
	}

	prompt := uc.BuildPrompt(memories, "")
	reply, err := uc.complete(ctx, prompt, input.Message)
	if err != nil {
		return nil, goerr.Wrap(err, "chat completion failed",
			goerr.V("userID", input.UserID),
			goerr.V("sessionID", sessionID),
		)
	}

	if _, err := uc.StoreMessage(ctx, &model.Message{
		UserID:    input.UserID,
		SessionID: sessionID,
		Role:      types.RoleUser,
		Content:   input.Message,
	}); err != nil {
		return nil, err
	}
	if _, err := uc.StoreMessage(ctx, &model.Message{
		UserID:    input.UserID,
		SessionID: sessionID,
		Role:      types.RoleAssistant,
		Content:   reply,
	}); err != nil {
		return nil, err
	}

	return &ChatOutput{
		SessionID: sessionID,
		Reply:     reply,
		Memories:  memories,
	}, nil
}

// complete sends the assembled prompt and the user turn to the model service
func (uc *UseCases) complete(ctx context.Context, prompt []model.PromptMessage, userMessage string) (string, error) {
	session, err := uc.llmClient.NewSession(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create completion session",
			goerr.T(types.ErrTagModelService))
	}

	var sb strings.Builder
	for _, p := range prompt {
		sb.WriteString(p.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString(userMessage)

	resp, err := session.GenerateContent(ctx, gollem.Text(sb.String()))
	if err != nil {
		return "", goerr.Wrap(err, "completion call failed", goerr.T(types.ErrTagModelService))
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("completion returned empty response",
			goerr.T(types.ErrTagModelService))
	}

	return resp.Texts[0], nil
}
