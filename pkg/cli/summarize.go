package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/engram-lab/engram/pkg/cli/config"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/usecase"
	"github.com/engram-lab/engram/pkg/utils/logging"
)

func cmdSummarize() *cli.Command {
	var userID string
	var sessionID string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var engineCfg config.Engine

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Usage:       "User whose session to summarize",
			Required:    true,
			Sources:     cli.EnvVars("ENGRAM_USER_ID"),
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "session-id",
			Usage:       "Session to summarize",
			Required:    true,
			Destination: &sessionID,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:  "summarize",
		Usage: "Print a summary of one conversation session",
		Flags: flags,
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

			summary, err := uc.SummarizeSession(ctx, types.UserID(userID), types.SessionID(sessionID))
			if err != nil {
				return goerr.Wrap(err, "failed to summarize session",
					goerr.V("userID", userID),
					goerr.V("sessionID", sessionID),
				)
			}

			fmt.Fprintln(os.Stdout, summary)
			return nil
		},
	}
}
