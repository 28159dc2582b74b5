// Package mysql runs queries against MySQL clusters whose credentials are
// kept in a secret store.
package mysql

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/go-mysql-org/go-mysql/client"
	gomysql "github.com/go-mysql-org/go-mysql/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sqlloader"
	"go.nownabe.dev/sqlloader/secrets"
)

// ErrUnknownCluster is returned when a cluster does not map to a secret.
var ErrUnknownCluster = errors.New("cluster does not map to a secret")

// DefaultDialTimeout bounds connection establishment.
const DefaultDialTimeout = time.Minute

// Clusters maps cluster names to secret names.
type Clusters struct {
	// DefaultSecret holds the credentials of the default cluster.
	DefaultSecret string `yaml:"default_secret"`

	// Secrets holds the credentials of named clusters.
	Secrets map[string]string `yaml:"secrets"`

	Keys secrets.CredentialKeys `yaml:"keys"`
}

// Selector chooses a cluster.
type Selector struct {
	DefaultCluster bool
	Cluster        string
}

// SecretName returns the secret of the selected cluster.
func (c *Clusters) SecretName(sel Selector) (string, error) {
	if sel.DefaultCluster {
		if c.DefaultSecret == "" {
			return "", xerrors.Errorf("default cluster: %w", ErrUnknownCluster)
		}
		return c.DefaultSecret, nil
	}

	if sel.Cluster != "" {
		if name, ok := c.Secrets[sel.Cluster]; ok && name != "" {
			return name, nil
		}
		return "", xerrors.Errorf("cluster %q: %w", sel.Cluster, ErrUnknownCluster)
	}

	return "", xerrors.Errorf("no cluster selected: %w", ErrUnknownCluster)
}

// Client runs queries against one MySQL cluster.
type Client struct {
	creds       *secrets.DatabaseCredentials
	dialTimeout time.Duration
}

// New resolves the secret of the selected cluster and builds a Client.
func New(ctx context.Context, store secrets.Store, clusters *Clusters, sel Selector) (*Client, error) {
	name, err := clusters.SecretName(sel)
	if err != nil {
		return nil, err
	}

	creds, err := secrets.ResolveDatabase(ctx, store, name, clusters.Keys)
	if err != nil {
		return nil, err
	}

	return NewWithCredentials(creds), nil
}

// NewWithCredentials builds a Client from inline credentials.
func NewWithCredentials(creds *secrets.DatabaseCredentials) *Client {
	return &Client{creds: creds, dialTimeout: DefaultDialTimeout}
}

func (c *Client) addr() string {
	return net.JoinHostPort(c.creds.Host, strconv.Itoa(c.creds.Port))
}

// Query executes a statement and returns its columns and rows.
// The connection is closed before returning.
func (c *Client) Query(ctx context.Context, sql string) (*sqlloader.ResultSet, error) {
	l := log.Ctx(ctx)

	conn, err := client.ConnectWithDialer(ctx, "", c.addr(), c.creds.User, c.creds.Password, c.creds.Database,
		(&net.Dialer{Timeout: c.dialTimeout}).DialContext)
	if err != nil {
		return nil, xerrors.Errorf("failed to connect to %s: %w", c.addr(), err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			l.Warn().Err(err).Msg("failed to close connection")
		}
	}()

	r, err := conn.Execute(sql)
	if err != nil {
		return nil, xerrors.Errorf("failed to execute query: %w", err)
	}

	return resultSet(r), nil
}

// QueryDataset is like Query but returns a Dataset.
func (c *Client) QueryDataset(ctx context.Context, sql string) (*sqlloader.Dataset, error) {
	rs, err := c.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return rs.Dataset()
}

func resultSet(r *gomysql.Result) *sqlloader.ResultSet {
	rs := &sqlloader.ResultSet{}
	if r == nil || r.Resultset == nil {
		return rs
	}

	for _, f := range r.Fields {
		rs.Columns = append(rs.Columns, string(f.Name))
	}

	for _, row := range r.Values {
		values := make([]any, len(row))
		for i, fv := range row {
			values[i] = fieldValue(fv)
		}
		rs.Rows = append(rs.Rows, values)
	}

	return rs
}

func fieldValue(fv gomysql.FieldValue) any {
	switch fv.Type {
	case gomysql.FieldValueTypeNull:
		return nil
	case gomysql.FieldValueTypeUnsigned:
		return fv.AsUint64()
	case gomysql.FieldValueTypeSigned:
		return fv.AsInt64()
	case gomysql.FieldValueTypeFloat:
		return fv.AsFloat64()
	default:
		return string(fv.AsString())
	}
}
