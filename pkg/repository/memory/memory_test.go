package memory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/repository/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestStoreAndFetchSession(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	stored, err := repo.Message().Store(ctx, &model.Message{
		UserID:    "alice",
		SessionID: "s1",
		Role:      types.RoleUser,
		Content:   "hello there",
		Metadata:  json.RawMessage(`{"channel":"web"}`),
	})
	gt.NoError(t, err).Required()
	gt.Value(t, stored.ID).NotEqual("")
	gt.B(t, stored.CreatedAt.IsZero()).False()

	msgs, err := repo.Message().FetchSession(ctx, "alice", "s1")
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(1)
	gt.Value(t, msgs[0].Content).Equal("hello there")
	gt.Value(t, msgs[0].Role).Equal(types.RoleUser)
	gt.Value(t, string(msgs[0].Metadata)).Equal(`{"channel":"web"}`)
}

func TestStoreRejectsInvalidRole(t *testing.T) {
	repo := memory.New()

	_, err := repo.Message().Store(context.Background(), &model.Message{
		UserID:    "alice",
		SessionID: "s1",
		Role:      "robot",
		Content:   "beep",
	})
	gt.Error(t, err)
	gt.B(t, goerr.HasTag(err, types.ErrTagValidation)).True()
}

func TestChainStaysLinear(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		_, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
		})
		gt.NoError(t, err).Required()
	}

	chain := repo.Chain("alice", "s1")
	gt.Array(t, chain).Length(n)

	msgs, err := repo.Message().FetchSession(ctx, "alice", "s1")
	gt.NoError(t, err).Required()
	for i, m := range msgs {
		gt.Value(t, m.ID).Equal(chain[i])
	}
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	now := time.Now().UTC()
	var prev time.Time
	for i := 0; i < 5; i++ {
		// same wall clock on every store, ordering must still hold
		stored, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      types.RoleUser,
			Content:   "same instant",
			CreatedAt: now,
		})
		gt.NoError(t, err).Required()
		if i > 0 {
			gt.B(t, stored.CreatedAt.After(prev)).True()
		}
		prev = stored.CreatedAt
	}
}

func TestSessionsDoNotChainTogether(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	for _, sid := range []types.SessionID{"s1", "s2", "s1"} {
		_, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: sid,
			Role:      types.RoleUser,
			Content:   "hi",
		})
		gt.NoError(t, err).Required()
	}

	gt.Array(t, repo.Chain("alice", "s1")).Length(2)
	gt.Array(t, repo.Chain("alice", "s2")).Length(1)
}

func TestFillEmbeddingWriteOnce(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	stored, err := repo.Message().Store(ctx, &model.Message{
		UserID:    "alice",
		SessionID: "s1",
		Role:      types.RoleUser,
		Content:   "embed me",
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.Message().FillEmbedding(ctx, stored.ID, []float32{0.1, 0.2}))
	gt.Error(t, repo.Message().FillEmbedding(ctx, stored.ID, []float32{0.3, 0.4}))

	msgs, err := repo.Message().ListEmbedded(ctx, "alice", time.Time{})
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(1)
	gt.Value(t, msgs[0].Embedding[0]).Equal(float32(0.1))
}

func TestSearchKeywords(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	old := time.Now().UTC().Add(-90 * 24 * time.Hour)
	for _, tc := range []struct {
		content string
		role    types.Role
		at      time.Time
	}{
		{"I love Pizza with extra cheese", types.RoleUser, old},
		{"noted, pizza it is", types.RoleAssistant, old.Add(time.Minute)},
		{"weather is nice today", types.RoleUser, time.Now().UTC()},
		{"internal directive", types.RoleSystem, time.Now().UTC()},
	} {
		_, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      tc.role,
			Content:   tc.content,
			CreatedAt: tc.at,
		})
		gt.NoError(t, err).Required()
	}

	since := time.Now().UTC().Add(-30 * 24 * time.Hour)

	// old messages surface only via keyword match
	msgs, err := repo.Message().SearchKeywords(ctx, "alice", []string{"pizza"}, since, 10)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(3)

	// without keywords only recent user/assistant messages remain
	msgs, err = repo.Message().SearchKeywords(ctx, "alice", nil, since, 10)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(1)
	gt.Value(t, msgs[0].Content).Equal("weather is nice today")

	// system messages never surface
	for _, m := range msgs {
		gt.Value(t, m.Role).NotEqual(types.RoleSystem)
	}
}

func TestSearchKeywordsLimit(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      types.RoleUser,
			Content:   fmt.Sprintf("note %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		gt.NoError(t, err).Required()
	}

	msgs, err := repo.Message().SearchKeywords(ctx, "alice", nil, base.Add(-time.Hour), 2)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2)
	// newest first
	gt.Value(t, msgs[0].Content).Equal("note 4")
	gt.Value(t, msgs[1].Content).Equal("note 3")
}

func TestFetchWindow(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	base := time.Now().UTC()
	for _, offset := range []time.Duration{-10 * time.Minute, -2 * time.Minute, 0, 3 * time.Minute, 20 * time.Minute} {
		_, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      types.RoleUser,
			Content:   offset.String(),
			CreatedAt: base.Add(offset),
		})
		gt.NoError(t, err).Required()
	}

	msgs, err := repo.Message().FetchWindow(ctx, "alice", "s1", base, 5*time.Minute)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(3)
	gt.B(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt)).True()
	gt.B(t, msgs[1].CreatedAt.Before(msgs[2].CreatedAt)).True()
}

func TestEntityDedup(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m1, err := repo.Message().Store(ctx, &model.Message{
		UserID: "alice", SessionID: "s1", Role: types.RoleUser, Content: "I met Dana in Paris",
	})
	gt.NoError(t, err).Required()
	m2, err := repo.Message().Store(ctx, &model.Message{
		UserID: "alice", SessionID: "s1", Role: types.RoleUser, Content: "Dana works at Acme",
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.Entity().Link(ctx, m1.ID, []string{"Dana", "Paris"}))
	gt.NoError(t, repo.Entity().Link(ctx, m2.ID, []string{" Dana ", "Acme"}))

	// one Entity node per name, mentions counted per message
	gt.Number(t, repo.EntityCount()).Equal(3)
	gt.Number(t, repo.MentionCount("Dana")).Equal(2)
	gt.Number(t, repo.MentionCount("Paris")).Equal(1)

	entities, err := repo.Entity().ListForMessage(ctx, m2.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, entities).Length(2)
	gt.Value(t, entities[0].Name).Equal("Acme")
	gt.Value(t, entities[1].Name).Equal("Dana")
}

func TestLinkIgnoresEmptyNames(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m, err := repo.Message().Store(ctx, &model.Message{
		UserID: "alice", SessionID: "s1", Role: types.RoleUser, Content: "nothing here",
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.Entity().Link(ctx, m.ID, []string{"", "  ", "\t"}))
	gt.Number(t, repo.EntityCount()).Equal(0)
}

func TestLinkSameNameTwiceOnOneMessage(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m, err := repo.Message().Store(ctx, &model.Message{
		UserID: "alice", SessionID: "s1", Role: types.RoleUser, Content: "Paris Paris",
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.Entity().Link(ctx, m.ID, []string{"Paris", "Paris"}))
	gt.NoError(t, repo.Entity().Link(ctx, m.ID, []string{"Paris"}))
	gt.Number(t, repo.MentionCount("Paris")).Equal(1)
}

func TestUserIsolation(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	_, err := repo.Message().Store(ctx, &model.Message{
		UserID: "alice", SessionID: "s1", Role: types.RoleUser, Content: "alice secret",
	})
	gt.NoError(t, err).Required()

	msgs, err := repo.Message().FetchSession(ctx, "bob", "s1")
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(0)

	found, err := repo.Message().SearchKeywords(ctx, "bob", []string{"secret"}, time.Time{}, 10)
	gt.NoError(t, err).Required()
	gt.Array(t, found).Length(0)
}
