package config

import (
	"context"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/repository/memory"
	neo4jrepo "github.com/engram-lab/engram/pkg/repository/neo4j"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend string
	neo4j   Neo4j
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (neo4j or memory)",
			Value:       "neo4j",
			Sources:     cli.EnvVars("ENGRAM_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
	}
	return append(flags, r.neo4j.Flags()...)
}

// Configure initializes a repository based on the configured backend. The
// returned closer releases the backend connection; it is a no-op for the
// in-memory backend.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, func(context.Context) error, error) {
	switch r.backend {
	case "neo4j":
		client, err := r.neo4j.Configure(ctx)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize neo4j repository")
		}
		attrs := r.neo4j.LogAttrs()
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		logging.Default().Info("Using Neo4j repository", args...)
		return neo4jrepo.New(client), client.Close, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		noop := func(context.Context) error { return nil }
		return memory.New(), noop, nil

	default:
		return nil, nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
