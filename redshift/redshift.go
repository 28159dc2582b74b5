// Package redshift connects the table loader to Amazon Redshift and other
// PostgreSQL-compatible stores.
package redshift

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sqlloader"
	"go.nownabe.dev/sqlloader/secrets"
)

// DefaultConnectTimeout bounds connection establishment.
const DefaultConnectTimeout = 30 * time.Second

// Client talks to one Redshift database whose credentials come from a secret.
type Client struct {
	creds          *secrets.DatabaseCredentials
	connectTimeout time.Duration
	sslMode        string
}

// Option configures Client.
type Option func(*Client)

// WithConnectTimeout overrides DefaultConnectTimeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// WithSSLMode sets the libpq sslmode, e.g. "require" or "disable". Defaults to "prefer".
func WithSSLMode(mode string) Option {
	return func(c *Client) { c.sslMode = mode }
}

// New resolves the credentials secret and builds a Client.
func New(ctx context.Context, store secrets.Store, secretName string, keys secrets.CredentialKeys, opts ...Option) (*Client, error) {
	creds, err := secrets.ResolveDatabase(ctx, store, secretName, keys)
	if err != nil {
		return nil, err
	}
	return NewWithCredentials(creds, opts...), nil
}

// NewWithCredentials builds a Client from inline credentials.
func NewWithCredentials(creds *secrets.DatabaseCredentials, opts ...Option) *Client {
	c := &Client{
		creds:          creds,
		connectTimeout: DefaultConnectTimeout,
		sslMode:        "prefer",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connector returns a sqlloader.Connector for the table loader.
func (c *Client) Connector() sqlloader.Connector {
	return &connector{client: c}
}

// Query executes a statement and returns its columns and rows.
// The connection is closed before returning.
func (c *Client) Query(ctx context.Context, sql string) (*sqlloader.ResultSet, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to close connection")
		}
	}()

	rs, err := query(ctx, conn, sql)
	if err != nil {
		return nil, xerrors.Errorf("failed to execute query: %w", err)
	}
	return rs, nil
}

// QueryDataset is like Query but returns a Dataset.
func (c *Client) QueryDataset(ctx context.Context, sql string) (*sqlloader.Dataset, error) {
	rs, err := c.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return rs.Dataset()
}

// LoadReplace fully replaces table with ds.
func (c *Client) LoadReplace(ctx context.Context, ds *sqlloader.Dataset, table string, opts ...sqlloader.Option) error {
	l, err := sqlloader.New(c.Connector(), opts...)
	if err != nil {
		return err
	}
	return l.LoadReplace(ctx, ds, table)
}

func (c *Client) connString() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.creds.User, c.creds.Password),
		Host:   net.JoinHostPort(c.creds.Host, strconv.Itoa(c.creds.Port)),
		Path:   "/" + c.creds.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) connect(ctx context.Context) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(c.connString())
	if err != nil {
		return nil, xerrors.Errorf("failed to parse connection config: %w", err)
	}
	cfg.ConnectTimeout = c.connectTimeout

	// Redshift does not support the extended protocol's statement cache.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, xerrors.Errorf("failed to connect to %s:%d/%s: %w", c.creds.Host, c.creds.Port, c.creds.Database, err)
	}
	log.Ctx(ctx).Debug().Str("host", c.creds.Host).Str("database", c.creds.Database).Msg("connected")

	return conn, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func query(ctx context.Context, q querier, sql string, args ...any) (*sqlloader.ResultSet, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs := &sqlloader.ResultSet{}
	for _, fd := range rows.FieldDescriptions() {
		rs.Columns = append(rs.Columns, fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rs, nil
}
