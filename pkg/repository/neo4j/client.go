package neo4j

import (
	"context"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps a Neo4j driver behind the GraphStore contract. It is
// constructed explicitly and injected; no package-level driver exists.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ interfaces.GraphStore = &Client{}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithDatabase selects a non-default database
func WithDatabase(name string) Option {
	return func(c *Client) {
		c.database = name
	}
}

// NewClient connects to a Neo4j server and verifies connectivity
func NewClient(ctx context.Context, uri, user, password string, opts ...Option) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create neo4j driver",
			goerr.T(types.ErrTagStorage),
			goerr.V("uri", uri),
		)
	}

	c := &Client{driver: driver}
	for _, opt := range opts {
		opt(c)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to verify neo4j connectivity",
			goerr.T(types.ErrTagStorage),
			goerr.V("uri", uri),
		)
	}

	return c, nil
}

// Close shuts down the underlying driver
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return goerr.Wrap(err, "failed to close neo4j driver", goerr.T(types.ErrTagStorage))
	}
	return nil
}

// Run executes a single Cypher statement inside a managed transaction and
// returns the result rows. The managed transaction retries on transient
// failures per the driver's policy; a returned error means the transaction
// did not commit.
func (c *Client) Run(ctx context.Context, readOnly bool, query string, params map[string]any) ([]interfaces.Row, error) {
	mode := neo4j.AccessModeWrite
	if readOnly {
		mode = neo4j.AccessModeRead
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.database,
	})
	defer func() {
		_ = session.Close(ctx)
	}()

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]interfaces.Row, 0, len(records))
		for _, record := range records {
			row := make(interfaces.Row, len(record.Keys))
			for i, key := range record.Keys {
				row[key] = record.Values[i]
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	var raw any
	var err error
	if readOnly {
		raw, err = session.ExecuteRead(ctx, work)
	} else {
		raw, err = session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run graph transaction",
			goerr.T(types.ErrTagStorage),
			goerr.V("readOnly", readOnly),
		)
	}

	rows, ok := raw.([]interfaces.Row)
	if !ok {
		return nil, goerr.New("unexpected transaction result type", goerr.T(types.ErrTagStorage))
	}
	return rows, nil
}
