package usecase_test

import (
	"strings"
	"testing"
	"time"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/model/config"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/repository/memory"
	"github.com/engram-lab/engram/pkg/usecase"
	"github.com/engram-lab/engram/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

func TestBuildPromptNoRecords(t *testing.T) {
	uc := usecase.New(memory.New(), &mockLLMClient{}, usecase.WithDispatcher(async.Sync))

	prompt := uc.BuildPrompt(nil, "")
	gt.Array(t, prompt).Length(1)
	gt.Value(t, prompt[0].Role).Equal(types.RoleSystem)
	gt.B(t, strings.Contains(prompt[0].Content, "helpful assistant")).True()
}

func TestBuildPromptCallerOverride(t *testing.T) {
	uc := usecase.New(memory.New(), &mockLLMClient{}, usecase.WithDispatcher(async.Sync))

	prompt := uc.BuildPrompt(nil, "You are a pirate.")
	gt.Array(t, prompt).Length(1)
	gt.Value(t, prompt[0].Content).Equal("You are a pirate.")
}

func TestBuildPromptConfigOverride(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.SystemPrompt = "You are a lawyer."
	uc := usecase.New(memory.New(), &mockLLMClient{},
		usecase.WithDispatcher(async.Sync),
		usecase.WithEngineConfig(cfg),
	)

	// caller prompt wins over config
	prompt := uc.BuildPrompt(nil, "You are a pirate.")
	gt.Value(t, prompt[0].Content).Equal("You are a pirate.")

	prompt = uc.BuildPrompt(nil, "")
	gt.Value(t, prompt[0].Content).Equal("You are a lawyer.")
}

func TestBuildPromptHistoryOrderedOldestFirst(t *testing.T) {
	uc := usecase.New(memory.New(), &mockLLMClient{}, usecase.WithDispatcher(async.Sync))

	now := time.Now().UTC()
	records := []model.MemoryRecord{
		{Role: types.RoleAssistant, Content: "newest", Timestamp: now},
		{Role: types.RoleUser, Content: "oldest", Timestamp: now.Add(-2 * time.Hour)},
		{Role: types.RoleUser, Content: "middle", Timestamp: now.Add(-time.Hour)},
	}

	prompt := uc.BuildPrompt(records, "")
	gt.Array(t, prompt).Length(2)
	gt.Value(t, prompt[1].Role).Equal(types.RoleSystem)

	history := prompt[1].Content
	gt.B(t, strings.HasPrefix(history, "Relevant conversation history:")).True()
	gt.B(t, strings.Contains(history, "user: oldest")).True()
	gt.B(t, strings.Contains(history, "assistant: newest")).True()
	gt.B(t, strings.Index(history, "oldest") < strings.Index(history, "middle")).True()
	gt.B(t, strings.Index(history, "middle") < strings.Index(history, "newest")).True()
}
