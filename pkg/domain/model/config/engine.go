package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// EngineConfig holds retrieval and assembly tuning for the memory engine.
// Zero values are filled in by Default; Validate rejects out-of-range knobs.
type EngineConfig struct {
	// SimilarityThreshold is the exclusive lower bound for embedding hits.
	// Candidates scoring at or below the threshold are discarded.
	SimilarityThreshold float64 `toml:"similarity_threshold"`

	// DaysBack bounds how far recency-based retrieval reaches.
	DaysBack int `toml:"days_back"`

	// RetrievalLimit caps how many memory records a single retrieval returns.
	RetrievalLimit int `toml:"retrieval_limit"`

	// ContextWindowSeconds is the half-width of the temporal neighborhood
	// collected around a similar-conversation anchor.
	ContextWindowSeconds int `toml:"context_window_seconds"`

	// SystemPrompt overrides the default assistant instruction when set.
	SystemPrompt string `toml:"system_prompt"`

	// SummaryMaxWords is the word budget requested from the summarizer.
	SummaryMaxWords int `toml:"summary_max_words"`
}

// DefaultEngineConfig returns the stock tuning
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		SimilarityThreshold:  0.7,
		DaysBack:             30,
		RetrievalLimit:       10,
		ContextWindowSeconds: 300,
		SummaryMaxWords:      150,
	}
}

// FillDefaults replaces unset fields with the stock values
func (c *EngineConfig) FillDefaults() {
	def := DefaultEngineConfig()
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.DaysBack == 0 {
		c.DaysBack = def.DaysBack
	}
	if c.RetrievalLimit == 0 {
		c.RetrievalLimit = def.RetrievalLimit
	}
	if c.ContextWindowSeconds == 0 {
		c.ContextWindowSeconds = def.ContextWindowSeconds
	}
	if c.SummaryMaxWords == 0 {
		c.SummaryMaxWords = def.SummaryMaxWords
	}
}

// Validate checks that every knob is in range
func (c *EngineConfig) Validate() error {
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return goerr.New("similarity_threshold must be within [-1, 1]",
			goerr.V("value", c.SimilarityThreshold))
	}
	if c.DaysBack < 0 {
		return goerr.New("days_back must not be negative", goerr.V("value", c.DaysBack))
	}
	if c.RetrievalLimit < 1 {
		return goerr.New("retrieval_limit must be positive", goerr.V("value", c.RetrievalLimit))
	}
	if c.ContextWindowSeconds < 0 {
		return goerr.New("context_window_seconds must not be negative",
			goerr.V("value", c.ContextWindowSeconds))
	}
	if c.SummaryMaxWords < 1 {
		return goerr.New("summary_max_words must be positive",
			goerr.V("value", c.SummaryMaxWords))
	}
	return nil
}

// ContextWindow returns the anchor neighborhood half-width
func (c *EngineConfig) ContextWindow() time.Duration {
	return time.Duration(c.ContextWindowSeconds) * time.Second
}
