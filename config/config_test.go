package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.nownabe.dev/sqlloader/mysql"
	"go.nownabe.dev/sqlloader/secrets"
)

const testConfig = `
secrets:
  store: inline
  inline:
    redshift:
      host: ${TEST_RS_HOST}
      port: 5439
      dbname: dev
      username: loader
      password: secret
    slack:
      bot_token: xoxb-test
redshift:
  secret: redshift
  connect_timeout: 10s
  sslmode: require
mysql:
  default_secret: mysql/main
  secrets:
    reporting: mysql/reporting
bigquery:
  default: main
  instances:
    main: bigquery/main
sheets:
  secret: sheets
  spreadsheet_id: abc
slack:
  secret: slack
  token_key: bot_token
  channel: "#etl"
  script: nightly
  timezone: Asia/Tokyo
logging:
  level: debug
  pretty: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", p, err)
	}
	return p
}

func TestLoad(t *testing.T) {
	env := writeFile(t, ".env", "TEST_RS_HOST=rs.example.com\n")
	path := writeFile(t, "sqlloader.yaml", testConfig)
	t.Cleanup(func() { os.Unsetenv("TEST_RS_HOST") })

	cfg, err := Load(path, env)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	wantMySQL := mysql.Clusters{
		DefaultSecret: "mysql/main",
		Secrets:       map[string]string{"reporting": "mysql/reporting"},
	}
	if diff := cmp.Diff(wantMySQL, cfg.MySQL); diff != "" {
		t.Errorf("MySQL mismatch (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	store, err := cfg.SecretStore(ctx)
	if err != nil {
		t.Fatalf("SecretStore() returned error: %v", err)
	}

	creds, err := secrets.ResolveDatabase(ctx, store, cfg.Redshift.Secret, cfg.Redshift.Keys)
	if err != nil {
		t.Fatalf("ResolveDatabase() returned error: %v", err)
	}
	want := &secrets.DatabaseCredentials{Host: "rs.example.com", Port: 5439, Database: "dev", User: "loader", Password: "secret"}
	if diff := cmp.Diff(want, creds); diff != "" {
		t.Errorf("credentials mismatch (-want +got):\n%s", diff)
	}

	if got := len(cfg.RedshiftOptions()); got != 2 {
		t.Errorf("RedshiftOptions() returned %d options, want 2", got)
	}

	n, err := cfg.SlackNotifier(ctx, store)
	if err != nil {
		t.Fatalf("SlackNotifier() returned error: %v", err)
	}
	if n.Token != "xoxb-test" || n.Channel != "#etl" || n.Script != "nightly" {
		t.Errorf("SlackNotifier() = %+v", n)
	}
	if n.Location == nil || n.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %v, want Asia/Tokyo", n.Location)
	}

	if got := len(cfg.LoaderOptions(n)); got != 3 {
		t.Errorf("LoaderOptions() returned %d options, want 3", got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "unknown: 1\n",
		"unknown store":  "secrets:\n  store: vault\n",
		"bad timeout":    "redshift:\n  connect_timeout: soon\n",
		"bad timezone":   "slack:\n  timezone: Mars/Olympus\n",
		"malformed yaml": "secrets: [\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Errorf("Parse() should return error")
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	if n, err := cfg.SlackNotifier(context.Background(), secrets.InlineStore{}); err != nil || n != nil {
		t.Errorf("SlackNotifier() = %v, %v; want nil, nil", n, err)
	}
	if got := len(cfg.LoaderOptions(nil)); got != 0 {
		t.Errorf("LoaderOptions() returned %d options, want 0", got)
	}
}

func TestConfig_SlackNotifier_MissingToken(t *testing.T) {
	cfg := &Config{Slack: SlackConfig{Secret: "slack", Channel: "#etl"}}
	store := secrets.InlineStore{"slack": secrets.Secret{"other": "x"}}

	_, err := cfg.SlackNotifier(context.Background(), store)

	var re *secrets.ResolutionError
	if !errors.As(err, &re) || !errors.Is(err, secrets.ErrMissingKey) {
		t.Errorf("SlackNotifier() error = %v, want ResolutionError wrapping ErrMissingKey", err)
	}
}
