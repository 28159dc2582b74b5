// Package config loads the YAML configuration of loader jobs.
//
// Values may reference environment variables as $NAME or ${NAME}. Env files
// passed to Load are read into the environment first.
package config

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"go.nownabe.dev/sqlloader"
	"go.nownabe.dev/sqlloader/mysql"
	"go.nownabe.dev/sqlloader/redshift"
	"go.nownabe.dev/sqlloader/secrets"
)

// ErrConfigNotFound is returned when the config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Secret store kinds.
const (
	StoreAWS    = "aws"
	StoreInline = "inline"
)

// Config is the root of a configuration file.
type Config struct {
	Secrets  SecretsConfig  `yaml:"secrets"`
	Redshift RedshiftConfig `yaml:"redshift"`
	MySQL    mysql.Clusters `yaml:"mysql"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Slack    SlackConfig    `yaml:"slack"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SecretsConfig selects where credentials are resolved.
type SecretsConfig struct {
	// Store is "aws" (default) or "inline".
	Store  string `yaml:"store"`
	Region string `yaml:"region"`

	// Inline secrets are used when Store is "inline", e.g. for local runs.
	Inline map[string]secrets.Secret `yaml:"inline"`
}

type RedshiftConfig struct {
	Secret         string                 `yaml:"secret"`
	Keys           secrets.CredentialKeys `yaml:"keys"`
	ConnectTimeout string                 `yaml:"connect_timeout"`
	SSLMode        string                 `yaml:"sslmode"`
}

type BigQueryConfig struct {
	// Instances maps instance names to secrets of service account keys.
	Instances map[string]string `yaml:"instances"`
	Default   string            `yaml:"default"`
}

type SheetsConfig struct {
	Secret        string `yaml:"secret"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
}

type SlackConfig struct {
	// Secret holds the bot token under TokenKey.
	Secret   string `yaml:"secret"`
	TokenKey string `yaml:"token_key"`

	Channel  string `yaml:"channel"`
	Script   string `yaml:"script"`
	TimeZone string `yaml:"timezone"`
	Test     bool   `yaml:"test"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultSlackTokenKey is the key of the bot token in the Slack secret.
const DefaultSlackTokenKey = "token"

// Load reads the config file at path after loading envFiles into the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, xerrors.Errorf("failed to load env files: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, xerrors.Errorf("failed to read %s: %w", path, err)
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, xerrors.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Secrets.Store {
	case "", StoreAWS, StoreInline:
	default:
		return xerrors.Errorf("unknown secret store %q", c.Secrets.Store)
	}

	if c.Redshift.ConnectTimeout != "" {
		if _, err := time.ParseDuration(c.Redshift.ConnectTimeout); err != nil {
			return xerrors.Errorf("invalid redshift.connect_timeout: %w", err)
		}
	}

	if c.Slack.TimeZone != "" {
		if _, err := time.LoadLocation(c.Slack.TimeZone); err != nil {
			return xerrors.Errorf("invalid slack.timezone: %w", err)
		}
	}

	return nil
}

// SecretStore builds the configured secret store.
func (c *Config) SecretStore(ctx context.Context) (secrets.Store, error) {
	if c.Secrets.Store == StoreInline {
		return secrets.InlineStore(c.Secrets.Inline), nil
	}

	var opts []secrets.AWSOption
	if c.Secrets.Region != "" {
		opts = append(opts, secrets.WithRegion(c.Secrets.Region))
	}

	return secrets.NewAWSStore(ctx, opts...)
}

// LoaderOptions maps the logging and Slack settings to loader options.
// A nil notifier is not added.
func (c *Config) LoaderOptions(notifier sqlloader.Notifier) []sqlloader.Option {
	var opts []sqlloader.Option

	if c.Logging.Level != "" {
		opts = append(opts, sqlloader.WithLogLevel(c.Logging.Level))
	}
	if c.Logging.Pretty {
		opts = append(opts, sqlloader.WithPrettyLogging())
	}
	if notifier != nil {
		opts = append(opts, sqlloader.WithNotifier(notifier))
	}

	return opts
}

// RedshiftOptions maps the Redshift settings to client options.
func (c *Config) RedshiftOptions() []redshift.Option {
	var opts []redshift.Option

	if d, err := time.ParseDuration(c.Redshift.ConnectTimeout); err == nil {
		opts = append(opts, redshift.WithConnectTimeout(d))
	}
	if c.Redshift.SSLMode != "" {
		opts = append(opts, redshift.WithSSLMode(c.Redshift.SSLMode))
	}

	return opts
}

// SlackNotifier resolves the bot token and builds a notifier.
// It returns nil when no channel is configured.
func (c *Config) SlackNotifier(ctx context.Context, store secrets.Store) (*sqlloader.SlackNotifier, error) {
	if c.Slack.Channel == "" {
		return nil, nil
	}

	s, err := store.Get(ctx, c.Slack.Secret)
	if err != nil {
		return nil, err
	}

	key := c.Slack.TokenKey
	if key == "" {
		key = DefaultSlackTokenKey
	}
	token, err := s.String(key)
	if err != nil {
		return nil, &secrets.ResolutionError{Name: c.Slack.Secret, Err: err}
	}

	n := &sqlloader.SlackNotifier{
		Token:   token,
		Channel: c.Slack.Channel,
		Script:  c.Slack.Script,
		Test:    c.Slack.Test,
	}
	if c.Slack.TimeZone != "" {
		loc, err := time.LoadLocation(c.Slack.TimeZone)
		if err != nil {
			return nil, xerrors.Errorf("invalid slack.timezone: %w", err)
		}
		n.Location = loc
	}

	return n, nil
}
