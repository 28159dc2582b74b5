package redshift

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"go.nownabe.dev/sqlloader"
	"go.nownabe.dev/sqlloader/secrets"
)

var (
	containerOnce sync.Once
	container     *postgres.PostgresContainer
	containerConn string
	containerErr  error
)

func TestMain(m *testing.M) {
	code := m.Run()

	if container != nil {
		if err := testcontainers.TerminateContainer(container); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate postgres container: %v\n", err)
		}
	}

	os.Exit(code)
}

func startPostgres() (connStr string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sqlloader"),
		postgres.WithUsername("sqlloader"),
		postgres.WithPassword("sqlloader"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", err
	}
	container = ctr

	return ctr.ConnectionString(ctx, "sslmode=disable")
}

// testClient returns a Client for SQLLOADER_TEST_POSTGRES or a disposable container.
func testClient(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	connStr := os.Getenv("SQLLOADER_TEST_POSTGRES")
	if connStr == "" {
		containerOnce.Do(func() {
			containerConn, containerErr = startPostgres()
		})
		if containerErr != nil {
			t.Skipf("SQLLOADER_TEST_POSTGRES not set and container unavailable: %v", containerErr)
		}
		connStr = containerConn
	}

	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("invalid connection string: %v", err)
	}

	return NewWithCredentials(&secrets.DatabaseCredentials{
		Host:     cfg.Host,
		Port:     int(cfg.Port),
		Database: cfg.Database,
		User:     cfg.User,
		Password: cfg.Password,
	}, WithSSLMode("disable"))
}

func peopleDataset(t *testing.T) *sqlloader.Dataset {
	t.Helper()

	ds, err := sqlloader.NewDataset(
		sqlloader.Column{Name: "id", Values: []sqlloader.Value{sqlloader.Int(1), sqlloader.Int(2), sqlloader.Null()}},
		sqlloader.Column{Name: "name", Values: []sqlloader.Value{sqlloader.String("Ann"), sqlloader.String("O'Brien"), sqlloader.String("Cy")}},
		sqlloader.Column{Name: "active", Values: []sqlloader.Value{sqlloader.Bool(true), sqlloader.Bool(false), sqlloader.Null()}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func testOptions() []sqlloader.Option {
	return []sqlloader.Option{sqlloader.WithLogLevel("debug"), sqlloader.WithLogWriter(&bytes.Buffer{})}
}

func TestClient_LoadReplace_roundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	ds := peopleDataset(t)
	if err := c.LoadReplace(ctx, ds, "people_round_trip", testOptions()...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	types, err := c.Query(ctx, `SELECT column_name::text, data_type::text, character_maximum_length::int
		FROM information_schema.columns WHERE table_name = 'people_round_trip' ORDER BY ordinal_position`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantTypes := []string{"integer", "character varying", "boolean"}
	if len(types.Rows) != len(wantTypes) {
		t.Fatalf("table should have %d columns, but %d", len(wantTypes), len(types.Rows))
	}
	for i, w := range wantTypes {
		if types.Rows[i][1] != w {
			t.Errorf("column %v should be %s, but %v", types.Rows[i][0], w, types.Rows[i][1])
		}
	}
	if sqlloader.ValueOf(types.Rows[1][2]).AsInt() != 8 {
		t.Errorf("name should be VARCHAR(8), but length %v", types.Rows[1][2])
	}

	got, err := c.QueryDataset(ctx, "SELECT id, name, active FROM people_round_trip ORDER BY name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NumRows() != 3 {
		t.Fatalf("table should have 3 rows, but %d", got.NumRows())
	}

	want := [][]sqlloader.Value{
		{sqlloader.Int(1), sqlloader.String("Ann"), sqlloader.Bool(true)},
		{sqlloader.Null(), sqlloader.String("Cy"), sqlloader.Null()},
		{sqlloader.Int(2), sqlloader.String("O'Brien"), sqlloader.Bool(false)},
	}
	for i, row := range want {
		for j, v := range row {
			if g := got.Row(i)[j]; !g.Equal(v) {
				t.Errorf("row %d column %d should be %v, but %v", i, j, v, g)
			}
		}
	}
}

func TestClient_LoadReplace_idempotent(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	ds := peopleDataset(t)
	for i := 0; i < 2; i++ {
		if err := c.LoadReplace(ctx, ds, "public.people_twice", testOptions()...); err != nil {
			t.Fatalf("load %d: unexpected error: %v", i, err)
		}
	}

	rs, err := c.Query(ctx, "SELECT count(*) FROM people_twice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := sqlloader.ValueOf(rs.Rows[0][0]).AsInt(); n != 3 {
		t.Errorf("table should have 3 rows after two loads, but %d", n)
	}
}

func TestClient_LoadReplace_insertFailure(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	// 2^40 overflows INTEGER.
	ds, err := sqlloader.NewDataset(
		sqlloader.Column{Name: "n", Values: []sqlloader.Value{sqlloader.Int(1), sqlloader.Int(1 << 40)}},
	)
	if err != nil {
		t.Fatal(err)
	}

	err = c.LoadReplace(ctx, ds, "overflowing", testOptions()...)

	var serr *sqlloader.StageError
	if !errors.As(err, &serr) {
		t.Fatalf("error should be *StageError, but %v", err)
	}
	if serr.Stage != sqlloader.StageInsert {
		t.Errorf("stage should be %q, but %q", sqlloader.StageInsert, serr.Stage)
	}

	rs, err := c.Query(ctx, "SELECT to_regclass('overflowing') IS NOT NULL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Rows[0][0] != false {
		t.Error("table should not exist after a failed load")
	}
}
