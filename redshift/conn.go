package redshift

import (
	"context"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sqlloader"
)

type connector struct {
	client *Client
}

// Connect opens a connection and begins the transaction that wraps a load.
func (c *connector) Connect(ctx context.Context) (sqlloader.Conn, error) {
	pc, err := c.client.connect(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := pc.Begin(ctx)
	if err != nil {
		_ = pc.Close(ctx)
		return nil, xerrors.Errorf("failed to begin transaction: %w", err)
	}

	return &conn{conn: pc, tx: tx}, nil
}

type conn struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

func (c *conn) TableExists(ctx context.Context, table string) (bool, error) {
	schema, name := splitTableName(table)

	var (
		sql  string
		args []any
	)
	if schema == "" {
		sql = "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)"
		args = []any{name}
	} else {
		sql = "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)"
		args = []any{schema, name}
	}

	var exists bool
	if err := c.tx.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, xerrors.Errorf("failed to check existence of %s: %w", table, err)
	}
	return exists, nil
}

func (c *conn) Exec(ctx context.Context, stmt string) (*sqlloader.ResultSet, error) {
	return query(ctx, c.tx, stmt)
}

func (c *conn) Commit(ctx context.Context) error {
	return c.tx.Commit(ctx)
}

func (c *conn) Rollback(ctx context.Context) error {
	return c.tx.Rollback(ctx)
}

func (c *conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// splitTableName splits "schema.table" and folds unquoted identifiers to lower case.
func splitTableName(table string) (schema, name string) {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return foldIdentifier(table[:i]), foldIdentifier(table[i+1:])
	}
	return "", foldIdentifier(table)
}

func foldIdentifier(id string) string {
	if len(id) >= 2 && id[0] == '"' && id[len(id)-1] == '"' {
		return strings.ReplaceAll(id[1:len(id)-1], `""`, `"`)
	}
	return strings.ToLower(id)
}

// normalize converts driver values the Dataset model has no kind for.
func normalize(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if x.NaN {
			return math.NaN()
		}
		if x.InfinityModifier != pgtype.Finite {
			f, err := x.Float64Value()
			if err != nil {
				return nil
			}
			return f.Float64
		}
		return decimal.NewFromBigInt(x.Int, x.Exp)
	default:
		return v
	}
}
