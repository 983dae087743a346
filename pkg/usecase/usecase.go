package usecase

import (
	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model/config"
	"github.com/engram-lab/engram/pkg/utils/async"
	"github.com/engram-lab/engram/pkg/utils/lock"
	"github.com/m-mizutani/gollem"
)

// UseCases bundles the memory engine operations: storing conversation turns,
// retrieving memory, assembling prompts, summarizing sessions and chatting.
type UseCases struct {
	repo      interfaces.Repository
	llmClient gollem.LLMClient
	dispatch  async.Dispatcher
	config    *config.EngineConfig

	// sessionLocks serializes stores per (user, session) in this process so
	// the causal chain never forks under concurrent callers.
	sessionLocks *lock.Keyed
}

type Option func(*UseCases)

// WithEngineConfig overrides the stock retrieval tuning
func WithEngineConfig(cfg *config.EngineConfig) Option {
	return func(uc *UseCases) {
		uc.config = cfg
	}
}

// WithDispatcher replaces the deferred-work scheduler. Tests use async.Sync
// to run the post-store pipeline inline.
func WithDispatcher(d async.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatch = d
	}
}

func New(repo interfaces.Repository, llmClient gollem.LLMClient, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:         repo,
		llmClient:    llmClient,
		dispatch:     async.Dispatch,
		config:       config.DefaultEngineConfig(),
		sessionLocks: lock.NewKeyed(),
	}

	for _, opt := range opts {
		opt(uc)
	}
	uc.config.FillDefaults()

	return uc
}
