package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/repository/memory"
	"github.com/engram-lab/engram/pkg/service/worker"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

type mockLLMClient struct {
	embeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, goerr.New("not used in backfill")
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return c.embeddingFn(ctx, dimension, input)
}

func TestBackfillFillsMissingEmbeddings(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	var ids []model.MessageID
	for _, content := range []string{"first", "second", "third"} {
		stored, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      types.RoleUser,
			Content:   content,
		})
		gt.NoError(t, err).Required()
		ids = append(ids, stored.ID)
	}

	// one message already has its embedding
	gt.NoError(t, repo.Message().FillEmbedding(ctx, ids[0], []float32{1, 0})).Required()

	llm := &mockLLMClient{
		embeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			out := make([][]float64, len(input))
			for i := range input {
				out[i] = []float64{0, 1}
			}
			return out, nil
		},
	}

	w := worker.NewEmbeddingBackfillWorker(repo, llm, time.Minute, 10)
	gt.NoError(t, w.Backfill(ctx)).Required()

	embedded, err := repo.Message().ListEmbedded(ctx, "alice", time.Time{})
	gt.NoError(t, err).Required()
	gt.Array(t, embedded).Length(3)

	missing, err := repo.Message().ListMissingEmbeddings(ctx, 10)
	gt.NoError(t, err).Required()
	gt.Array(t, missing).Length(0)
}

func TestBackfillRespectsBatchSize(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Message().Store(ctx, &model.Message{
			UserID:    "alice",
			SessionID: "s1",
			Role:      types.RoleUser,
			Content:   "needs embedding",
		})
		gt.NoError(t, err).Required()
	}

	llm := &mockLLMClient{
		embeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			gt.Number(t, len(input)).LessOrEqual(2)
			out := make([][]float64, len(input))
			for i := range input {
				out[i] = []float64{1}
			}
			return out, nil
		},
	}

	w := worker.NewEmbeddingBackfillWorker(repo, llm, time.Minute, 2)
	gt.NoError(t, w.Backfill(ctx)).Required()

	missing, err := repo.Message().ListMissingEmbeddings(ctx, 10)
	gt.NoError(t, err).Required()
	gt.Array(t, missing).Length(3)
}

func TestBackfillModelFailureLeavesMessagesIntact(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	_, err := repo.Message().Store(ctx, &model.Message{
		UserID:    "alice",
		SessionID: "s1",
		Role:      types.RoleUser,
		Content:   "still here",
	})
	gt.NoError(t, err).Required()

	llm := &mockLLMClient{
		embeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			return nil, goerr.New("embedding backend down")
		},
	}

	w := worker.NewEmbeddingBackfillWorker(repo, llm, time.Minute, 10)
	gt.Error(t, w.Backfill(ctx))

	missing, err := repo.Message().ListMissingEmbeddings(ctx, 10)
	gt.NoError(t, err).Required()
	gt.Array(t, missing).Length(1)
}

func TestBackfillNoMissingIsNoop(t *testing.T) {
	repo := memory.New()
	called := false
	llm := &mockLLMClient{
		embeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			called = true
			return nil, nil
		},
	}

	w := worker.NewEmbeddingBackfillWorker(repo, llm, time.Minute, 10)
	gt.NoError(t, w.Backfill(context.Background())).Required()
	gt.B(t, called).False()
}

func TestWorkerStartStop(t *testing.T) {
	repo := memory.New()
	llm := &mockLLMClient{
		embeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			return nil, nil
		},
	}

	w := worker.NewEmbeddingBackfillWorker(repo, llm, time.Hour, 10)
	gt.NoError(t, w.Start(context.Background())).Required()
	w.Stop()
}
