// Package bigquery queries BigQuery and loads datasets into BigQuery tables
// with credentials taken from a service account secret.
package bigquery

import (
	"context"
	"errors"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"go.nownabe.dev/sqlloader"
	"go.nownabe.dev/sqlloader/secrets"
)

// ErrUnknownInstance is returned when an instance does not map to a secret.
var ErrUnknownInstance = errors.New("instance does not map to a service account secret")

// Client is a BigQuery client of one project.
type Client struct {
	bq        *bigquery.Client
	projectID string
}

// New resolves the service account secret of instance and builds a Client
// in the secret's project.
func New(ctx context.Context, store secrets.Store, instance string, instances map[string]string, opts ...option.ClientOption) (*Client, error) {
	name, ok := instances[instance]
	if !ok || name == "" {
		return nil, xerrors.Errorf("instance %q: %w", instance, ErrUnknownInstance)
	}

	sa, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	projectID, err := sa.String("project_id")
	if err != nil {
		return nil, &secrets.ResolutionError{Name: name, Err: err}
	}

	saJSON, err := sa.JSON()
	if err != nil {
		return nil, &secrets.ResolutionError{Name: name, Err: err}
	}

	opts = append([]option.ClientOption{option.WithCredentialsJSON(saJSON)}, opts...)
	return NewWithOptions(ctx, projectID, opts...)
}

// NewWithOptions builds a Client from explicit client options.
func NewWithOptions(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	bq, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create BigQuery client for %s: %w", projectID, err)
	}

	return &Client{bq: bq, projectID: projectID}, nil
}

// Close releases the client.
func (c *Client) Close() error {
	return c.bq.Close()
}

// Execute runs a standard SQL statement, including DML, and waits for it.
func (c *Client) Execute(ctx context.Context, sql string) (*bigquery.Job, error) {
	l := log.Ctx(ctx)

	q := c.bq.Query(sql)
	job, err := q.Run(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to run query")
		return nil, xerrors.Errorf("failed to run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to wait query job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		l.Error().Interface("errors", status.Errors).Msg("query failed")
		return nil, xerrors.Errorf("query job %s failed: %w", job.ID(), err)
	}

	return job, nil
}

// QueryDataset runs a query and reads all of its rows.
func (c *Client) QueryDataset(ctx context.Context, sql string) (*sqlloader.Dataset, error) {
	job, err := c.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to read query results: %w", err)
	}

	var rows [][]any
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("failed to iterate query results: %w", err)
		}

		values := make([]any, len(row))
		for i, v := range row {
			values[i] = normalize(v)
		}
		rows = append(rows, values)
	}

	names := make([]string, len(it.Schema))
	for i, f := range it.Schema {
		names[i] = f.Name
	}

	return sqlloader.DatasetFromRows(names, rows)
}

func normalize(v bigquery.Value) any {
	switch x := v.(type) {
	case *big.Rat:
		if x == nil {
			return nil
		}
		d, err := decimal.NewFromString(x.FloatString(bigquery.BigNumericScaleDigits))
		if err != nil {
			return x.FloatString(bigquery.BigNumericScaleDigits)
		}
		return d
	default:
		return v
	}
}
