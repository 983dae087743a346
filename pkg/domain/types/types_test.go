package types_test

import (
	"testing"

	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestRole(t *testing.T) {
	t.Run("valid roles parse", func(t *testing.T) {
		for _, s := range []string{"user", "assistant", "system"} {
			role, err := types.ParseRole(s)
			gt.NoError(t, err)
			gt.Value(t, role.String()).Equal(s)
		}
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := types.ParseRole("moderator")
		gt.Error(t, err)
	})

	t.Run("empty role is rejected", func(t *testing.T) {
		_, err := types.ParseRole("")
		gt.Error(t, err)
	})

	t.Run("AllRoles are valid", func(t *testing.T) {
		for _, r := range types.AllRoles() {
			gt.Value(t, r.IsValid()).Equal(true)
		}
	})
}

func TestRetrievalMode(t *testing.T) {
	t.Run("valid modes parse", func(t *testing.T) {
		for _, s := range []string{"keyword", "embedding"} {
			mode, err := types.ParseRetrievalMode(s)
			gt.NoError(t, err)
			gt.Value(t, mode.String()).Equal(s)
		}
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		_, err := types.ParseRetrievalMode("hybrid")
		gt.Error(t, err)
	})

	t.Run("empty mode normalizes to embedding", func(t *testing.T) {
		gt.Value(t, types.RetrievalMode("").Normalize()).Equal(types.RetrievalModeEmbedding)
	})
}
