package model

import "github.com/engram-lab/engram/pkg/domain/types"

// PromptMessage is one entry of an assembled prompt sequence for the model
// service.
type PromptMessage struct {
	Role    types.Role
	Content string
}
