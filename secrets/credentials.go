package secrets

import (
	"context"

	"golang.org/x/xerrors"
)

// CredentialKeys names the keys of a database secret.
type CredentialKeys struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DefaultCredentialKeys are the key names used by RDS-style secrets.
var DefaultCredentialKeys = CredentialKeys{
	Host:     "host",
	Port:     "port",
	Database: "dbname",
	User:     "username",
	Password: "password",
}

func (k CredentialKeys) withDefaults() CredentialKeys {
	d := DefaultCredentialKeys
	if k.Host != "" {
		d.Host = k.Host
	}
	if k.Port != "" {
		d.Port = k.Port
	}
	if k.Database != "" {
		d.Database = k.Database
	}
	if k.User != "" {
		d.User = k.User
	}
	if k.Password != "" {
		d.Password = k.Password
	}
	return d
}

// DatabaseCredentials are connection parameters of a database.
type DatabaseCredentials struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Database extracts connection parameters from a secret. Empty keys fall back to DefaultCredentialKeys.
func (s Secret) Database(keys CredentialKeys) (*DatabaseCredentials, error) {
	keys = keys.withDefaults()

	host, err := s.String(keys.Host)
	if err != nil {
		return nil, err
	}
	port, err := s.Int(keys.Port)
	if err != nil {
		return nil, err
	}
	db, err := s.String(keys.Database)
	if err != nil {
		return nil, err
	}
	user, err := s.String(keys.User)
	if err != nil {
		return nil, err
	}
	password, err := s.String(keys.Password)
	if err != nil {
		return nil, err
	}

	return &DatabaseCredentials{Host: host, Port: port, Database: db, User: user, Password: password}, nil
}

// ResolveDatabase fetches a secret and extracts database credentials from it.
func ResolveDatabase(ctx context.Context, store Store, name string, keys CredentialKeys) (*DatabaseCredentials, error) {
	s, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	creds, err := s.Database(keys)
	if err != nil {
		return nil, &ResolutionError{Name: name, Err: xerrors.Errorf("invalid database secret: %w", err)}
	}
	return creds, nil
}
