package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/engram-lab/engram/pkg/cli/config"
	"github.com/engram-lab/engram/pkg/utils/logging"
)

// migrationStatements are idempotent: every statement uses IF NOT EXISTS so
// the command can run on every deploy.
var migrationStatements = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT message_id_unique IF NOT EXISTS FOR (m:Message) REQUIRE m.id IS UNIQUE`,
	`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
	`CREATE INDEX message_session_id IF NOT EXISTS FOR (m:Message) ON (m.session_id)`,
	`CREATE INDEX message_timestamp IF NOT EXISTS FOR (m:Message) ON (m.timestamp)`,
}

func cmdMigrate() *cli.Command {
	var neo4jCfg config.Neo4j
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview statements without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, neo4jCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create Neo4j constraints and indexes",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if dryRun {
				logger.Info("Dry run mode - previewing statements")
				for _, stmt := range migrationStatements {
					logger.Info("Migration statement", "cypher", stmt)
				}
				return nil
			}

			client, err := neo4jCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to connect to neo4j")
			}
			defer func() {
				if err := client.Close(ctx); err != nil {
					logger.Error("failed to close neo4j client", "error", err.Error())
				}
			}()

			logger.Info("Applying migrations")
			for _, stmt := range migrationStatements {
				if _, err := client.Run(ctx, false, stmt, nil); err != nil {
					return goerr.Wrap(err, "failed to apply migration", goerr.V("cypher", stmt))
				}
				logger.Info("Applied", "cypher", stmt)
			}
			logger.Info("Migrations applied successfully")

			return nil
		},
	}
}
