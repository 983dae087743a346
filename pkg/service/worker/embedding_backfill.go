package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/errgroup"
)

// fillConcurrency bounds parallel FillEmbedding writes per batch
const fillConcurrency = 8

// EmbeddingBackfillWorker periodically retries embedding generation for
// messages whose deferred fill failed. Without it a model-service outage
// would leave messages permanently invisible to similarity search.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type EmbeddingBackfillWorker struct {
	repo      interfaces.Repository
	llmClient gollem.LLMClient
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewEmbeddingBackfillWorker creates a worker that fills missing embeddings
func NewEmbeddingBackfillWorker(repo interfaces.Repository, llmClient gollem.LLMClient, interval time.Duration, batchSize int) *EmbeddingBackfillWorker {
	return &EmbeddingBackfillWorker{
		repo:      repo,
		llmClient: llmClient,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background backfill loop. Does not block server startup.
func (w *EmbeddingBackfillWorker) Start(ctx context.Context) error {
	logging.Default().Info("Embedding backfill worker starting",
		"interval", w.interval.String(),
		"batch_size", w.batchSize)

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *EmbeddingBackfillWorker) Stop() {
	logging.Default().Info("Embedding backfill worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Embedding backfill worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *EmbeddingBackfillWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Backfill(ctx); err != nil {
				// Log error but continue worker
				logging.Default().Error("Embedding backfill failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("Embedding backfill worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Embedding backfill worker context cancelled")
			return
		}
	}
}

// Backfill performs a single backfill cycle over one batch. Per-message fill
// failures are skipped so a single stuck message cannot stall the batch.
func (w *EmbeddingBackfillWorker) Backfill(ctx context.Context) error {
	startTime := time.Now()

	missing, err := w.repo.Message().ListMissingEmbeddings(ctx, w.batchSize)
	if err != nil {
		return goerr.Wrap(err, "failed to list messages missing embeddings")
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i, m := range missing {
		texts[i] = m.Content
	}

	embeddings, err := w.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, texts)
	if err != nil {
		return goerr.Wrap(err, "failed to generate embeddings for backfill",
			goerr.V("count", len(texts)))
	}
	if len(embeddings) != len(missing) {
		return goerr.New("embedding count mismatch",
			goerr.V("expected", len(missing)),
			goerr.V("got", len(embeddings)))
	}

	var filled atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fillConcurrency)
	for i, m := range missing {
		g.Go(func() error {
			embedding := make([]float32, len(embeddings[i]))
			for j, v := range embeddings[i] {
				embedding[j] = float32(v)
			}

			if err := w.repo.Message().FillEmbedding(ctx, m.ID, embedding); err != nil {
				logging.Default().Warn("failed to fill embedding during backfill",
					"messageID", m.ID.String(),
					"error", err.Error())
				return nil
			}
			filled.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return goerr.Wrap(err, "embedding backfill batch failed")
	}

	logging.Default().Info("Embedding backfill completed",
		"missing", len(missing),
		"filled", filled.Load(),
		"duration", time.Since(startTime).String())

	return nil
}
