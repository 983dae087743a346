package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

const (
	// summaryEmptySession is returned verbatim when the session has no messages
	summaryEmptySession = "No conversation found for this session."

	// summaryGenerationFailed is returned verbatim when the model service fails
	summaryGenerationFailed = "Error generating summary."
)

const summaryPromptFormat = `Summarize the following conversation in at most %d words.
Focus on the topics discussed, decisions made and any facts worth remembering.

Conversation:
%s`

// SummarizeSession produces a natural-language summary of one session. Both
// failure modes (empty session, unusable model service) degrade to fixed
// texts so the caller always gets something presentable.
func (uc *UseCases) SummarizeSession(ctx context.Context, userID types.UserID, sessionID types.SessionID) (string, error) {
	if userID == "" || sessionID == "" {
		return "", goerr.New("user ID and session ID are required",
			goerr.T(types.ErrTagValidation))
	}

	msgs, err := uc.repo.Message().FetchSession(ctx, userID, sessionID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to fetch session for summary",
			goerr.V("userID", userID),
			goerr.V("sessionID", sessionID),
		)
	}
	if len(msgs) == 0 {
		return summaryEmptySession, nil
	}

	var transcript strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	session, err := uc.llmClient.NewSession(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to create summary session",
			"sessionID", sessionID, "error", err)
		return summaryGenerationFailed, nil
	}

	prompt := fmt.Sprintf(summaryPromptFormat, uc.config.SummaryMaxWords, transcript.String())
	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil || len(resp.Texts) == 0 {
		logging.From(ctx).Warn("summary generation failed",
			"sessionID", sessionID, "error", err)
		return summaryGenerationFailed, nil
	}

	return strings.TrimSpace(resp.Texts[0]), nil
}

// FetchSessionHistory returns the full ordered transcript of a session
func (uc *UseCases) FetchSessionHistory(ctx context.Context, userID types.UserID, sessionID types.SessionID) ([]*model.Message, error) {
	msgs, err := uc.repo.Message().FetchSession(ctx, userID, sessionID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch session history",
			goerr.V("userID", userID),
			goerr.V("sessionID", sessionID),
		)
	}
	return msgs, nil
}
