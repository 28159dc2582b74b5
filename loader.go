package sqlloader

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

var (
	// ErrNilDataset is returned when LoadReplace is called without a dataset.
	ErrNilDataset = errors.New("dataset is nil")

	// ErrNoTable is returned when LoadReplace is called without a destination table.
	ErrNoTable = errors.New("destination table is empty")

	// ErrNoColumns is returned for a dataset without columns.
	ErrNoColumns = errors.New("dataset has no columns")
)

// Loader replaces destination tables with datasets.
// A Loader keeps no state between calls and may be reused.
type Loader struct {
	connector Connector
	notifier  Notifier
	logger    zerolog.Logger

	logLevel      zerolog.Level
	prettyLogging bool
	logWriter     io.Writer
}

// New builds a Loader which obtains its connections from connector.
func New(connector Connector, opts ...Option) (*Loader, error) {
	if connector == nil {
		return nil, xerrors.New("connector is nil")
	}

	l := &Loader{
		connector: connector,
		logLevel:  zerolog.InfoLevel,
		logWriter: os.Stderr,
	}

	for _, o := range opts {
		if err := o.apply(l); err != nil {
			return nil, xerrors.Errorf("failed to apply option: %w", err)
		}
	}

	w := l.logWriter
	if l.prettyLogging {
		w = zerolog.ConsoleWriter{Out: w}
	}
	l.logger = zerolog.New(w).Level(l.logLevel).With().Timestamp().Logger()

	return l, nil
}

// MustNew is like New but panics on error.
func MustNew(connector Connector, opts ...Option) *Loader {
	l, err := New(connector, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// LoadReplace drops table if it exists, recreates it with a schema inferred from ds
// and inserts every row of ds, all in one transaction.
// The connection is closed on every path. On failure the transaction is rolled back
// and the returned error is a *StageError naming the failed stage.
func (l *Loader) LoadReplace(ctx context.Context, ds *Dataset, table string) (err error) {
	ctx = withLoad(ctx)
	id, _ := LoadIDFrom(ctx)
	ctx = l.logger.With().Str("load_id", id).Str("table", table).Logger().WithContext(ctx)

	var schema TableSchema
	defer func() { l.notify(ctx, ds, table, schema, err) }()

	schema, err = l.loadReplace(ctx, ds, table)
	return err
}

func (l *Loader) loadReplace(ctx context.Context, ds *Dataset, table string) (schema TableSchema, err error) {
	lg := log.Ctx(ctx)

	if ds == nil {
		return nil, ErrNilDataset
	}
	if table == "" {
		return nil, ErrNoTable
	}
	if ds.NumColumns() == 0 {
		return nil, ErrNoColumns
	}

	lg.Debug().Msg("connecting")
	conn, err := l.connector.Connect(ctx)
	if err != nil {
		lg.Error().Err(err).Msg("failed to connect")
		return nil, &StageError{Stage: StageConnect, Table: table, Err: err}
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			lg.Warn().Err(cerr).Msg("failed to close connection")
			return
		}
		lg.Debug().Msg("disconnected")
	}()
	defer func() {
		if err == nil {
			return
		}
		if rerr := conn.Rollback(ctx); rerr != nil {
			lg.Error().Err(rerr).Msg("failed to roll back")
			return
		}
		lg.Info().Msg("rolled back")
	}()

	exists, err := conn.TableExists(ctx, table)
	if err != nil {
		return nil, &StageError{Stage: StageCheck, Table: table, Err: err}
	}

	if exists {
		stmt := BuildDropTable(table)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return nil, &StageError{Stage: StageDrop, Table: table, Statement: stmt, Err: err}
		}
		lg.Info().Msg("table dropped")
	}

	schema, fallbacks := inferSchema(ds)
	for _, c := range schema {
		if fb, ok := fallbacks[c.Name]; ok {
			lg.Info().Str("column", c.Name).Str("type", c.Type.String()).Str("reason", string(fb)).Msg("column type not narrowed")
		}
	}

	stmt := BuildCreateTable(table, schema)
	lg.Debug().Str("statement", stmt).Msg("creating table")
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return nil, &StageError{Stage: StageCreate, Table: table, Statement: stmt, Err: err}
	}
	lg.Info().Msg("table created")

	if ds.NumRows() > 0 {
		stmt = BuildBulkInsert(table, ds)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return nil, &StageError{Stage: StageInsert, Table: table, Statement: stmt, Err: err}
		}
	}

	if err := conn.Commit(ctx); err != nil {
		return nil, &StageError{Stage: StageCommit, Table: table, Err: err}
	}
	lg.Info().Int("rows", ds.NumRows()).Msg("dataset loaded")

	return schema, nil
}

func (l *Loader) notify(ctx context.Context, ds *Dataset, table string, schema TableSchema, err error) {
	if l.notifier == nil {
		return
	}

	r := &Result{
		Table:      table,
		Schema:     schema,
		Err:        err,
		FinishedAt: time.Now(),
	}
	if ds != nil {
		r.Rows = ds.NumRows()
	}
	if t, ok := startedTimeFrom(ctx); ok {
		r.StartedAt = t
	}
	if id, ok := LoadIDFrom(ctx); ok {
		r.LoadID = id
	}

	if nerr := l.notifier.Notify(ctx, r); nerr != nil {
		log.Ctx(ctx).Error().Err(nerr).Msg("failed to notify")
	}
}
