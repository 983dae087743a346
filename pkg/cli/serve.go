package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/engram-lab/engram/pkg/cli/config"
	httpctrl "github.com/engram-lab/engram/pkg/controller/http"
	"github.com/engram-lab/engram/pkg/service/worker"
	"github.com/engram-lab/engram/pkg/usecase"
	"github.com/engram-lab/engram/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var backfillInterval time.Duration
	var backfillBatchSize int
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var engineCfg config.Engine

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ENGRAM_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "backfill-interval",
			Usage:       "Interval for the embedding backfill worker (0 disables it)",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("ENGRAM_BACKFILL_INTERVAL"),
			Destination: &backfillInterval,
		},
		&cli.IntFlag{
			Name:        "backfill-batch-size",
			Usage:       "Messages per embedding backfill cycle",
			Value:       50,
			Sources:     cli.EnvVars("ENGRAM_BACKFILL_BATCH_SIZE"),
			Destination: &backfillBatchSize,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, closeRepo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := closeRepo(context.Background()); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure model service")
			}

			engine, err := engineCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load engine config")
			}

			uc := usecase.New(repo, llmClient, usecase.WithEngineConfig(engine))

			var backfillWorker *worker.EmbeddingBackfillWorker
			if backfillInterval > 0 {
				backfillWorker = worker.NewEmbeddingBackfillWorker(repo, llmClient, backfillInterval, backfillBatchSize)
				if err := backfillWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start embedding backfill worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if backfillWorker != nil {
					backfillWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
