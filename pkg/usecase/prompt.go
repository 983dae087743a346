package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
)

// defaultSystemPrompt is used when neither the caller nor the engine config
// provides one.
const defaultSystemPrompt = "You are a helpful assistant. Use the conversation history provided to answer with continuity and context."

const historyHeader = "Relevant conversation history:"

// BuildPrompt assembles the model prompt: a system instruction, then the
// retrieved history as a second system entry when any records exist. Records
// are rendered oldest first so the model reads them in conversation order.
func (uc *UseCases) BuildPrompt(records []model.MemoryRecord, systemPrompt string) []model.PromptMessage {
	instruction := systemPrompt
	if instruction == "" {
		instruction = uc.config.SystemPrompt
	}
	if instruction == "" {
		instruction = defaultSystemPrompt
	}

	prompt := []model.PromptMessage{
		{Role: types.RoleSystem, Content: instruction},
	}

	if len(records) == 0 {
		return prompt
	}

	ordered := make([]model.MemoryRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var sb strings.Builder
	sb.WriteString(historyHeader)
	for _, rec := range ordered {
		sb.WriteString(fmt.Sprintf("\n%s: %s", rec.Role, rec.Content))
	}

	return append(prompt, model.PromptMessage{
		Role:    types.RoleSystem,
		Content: sb.String(),
	})
}
