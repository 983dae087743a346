package config

import (
	"context"
	"log/slog"

	neo4jrepo "github.com/engram-lab/engram/pkg/repository/neo4j"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Neo4j holds CLI flags for the graph store connection
type Neo4j struct {
	uri      string
	user     string
	password string
	database string
}

// Flags returns CLI flags for Neo4j configuration
func (n *Neo4j) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "neo4j-uri",
			Usage:       "Neo4j connection URI (e.g. neo4j://localhost:7687)",
			Sources:     cli.EnvVars("ENGRAM_NEO4J_URI"),
			Destination: &n.uri,
		},
		&cli.StringFlag{
			Name:        "neo4j-user",
			Usage:       "Neo4j user name",
			Value:       "neo4j",
			Sources:     cli.EnvVars("ENGRAM_NEO4J_USER"),
			Destination: &n.user,
		},
		&cli.StringFlag{
			Name:        "neo4j-password",
			Usage:       "Neo4j password",
			Sources:     cli.EnvVars("ENGRAM_NEO4J_PASSWORD"),
			Destination: &n.password,
		},
		&cli.StringFlag{
			Name:        "neo4j-database",
			Usage:       "Neo4j database name (empty uses the server default)",
			Sources:     cli.EnvVars("ENGRAM_NEO4J_DATABASE"),
			Destination: &n.database,
		},
	}
}

// LogAttrs returns log attributes for the Neo4j configuration
func (n *Neo4j) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("uri", n.uri),
		slog.String("user", n.user),
		slog.String("database", n.database),
		slog.Bool("password_set", n.password != ""),
	}
}

// Configure connects to the configured Neo4j server
func (n *Neo4j) Configure(ctx context.Context) (*neo4jrepo.Client, error) {
	if n.uri == "" {
		return nil, goerr.New("neo4j-uri is required")
	}

	var opts []neo4jrepo.Option
	if n.database != "" {
		opts = append(opts, neo4jrepo.WithDatabase(n.database))
	}

	client, err := neo4jrepo.NewClient(ctx, n.uri, n.user, n.password, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to neo4j", goerr.V("uri", n.uri))
	}
	return client, nil
}
