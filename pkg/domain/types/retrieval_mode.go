package types

import "fmt"

// RetrievalMode selects the memory lookup strategy
type RetrievalMode string

const (
	// RetrievalModeKeyword matches messages by lexical token overlap
	RetrievalModeKeyword RetrievalMode = "keyword"

	// RetrievalModeEmbedding ranks messages by cosine similarity of embeddings.
	// Falls back to keyword matching when the query embedding cannot be produced.
	RetrievalModeEmbedding RetrievalMode = "embedding"
)

// IsValid checks if the retrieval mode is valid
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalModeKeyword, RetrievalModeEmbedding:
		return true
	default:
		return false
	}
}

// String returns the string representation of the retrieval mode
func (m RetrievalMode) String() string {
	return string(m)
}

// Normalize returns the mode, treating empty as RetrievalModeEmbedding
func (m RetrievalMode) Normalize() RetrievalMode {
	if m == "" {
		return RetrievalModeEmbedding
	}
	return m
}

// ParseRetrievalMode parses a string into a RetrievalMode
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	mode := RetrievalMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid retrieval mode: %s", s)
	}
	return mode, nil
}
