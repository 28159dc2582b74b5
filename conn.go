package sqlloader

import (
	"context"
)

// Connector opens connections to a SQL store.
type Connector interface {
	Connect(context.Context) (Conn, error)
}

// Conn is a single transactional connection.
// Statements executed through Exec belong to one transaction until Commit or Rollback.
type Conn interface {
	// TableExists queries the store's metadata for table.
	TableExists(ctx context.Context, table string) (bool, error)

	// Exec executes a statement and returns its result set, which is empty for DDL and DML.
	Exec(ctx context.Context, stmt string) (*ResultSet, error)

	Commit(context.Context) error
	Rollback(context.Context) error
	Close(context.Context) error
}

// ResultSet is the outcome of a statement.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Dataset converts rs into a Dataset.
func (rs *ResultSet) Dataset() (*Dataset, error) {
	return DatasetFromRows(rs.Columns, rs.Rows)
}
