// Package secrets resolves named credentials from a secret store.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/xerrors"
)

var (
	// ErrNotFound is returned when a secret does not exist.
	ErrNotFound = errors.New("secret not found")

	// ErrAccessDenied is returned when the caller may not read a secret.
	ErrAccessDenied = errors.New("access to secret denied")

	// ErrMissingKey is returned when a secret lacks a requested key.
	ErrMissingKey = errors.New("secret has no such key")
)

// Store looks up secrets by name.
type Store interface {
	Get(ctx context.Context, name string) (Secret, error)
}

// ResolutionError is returned when a secret cannot be resolved.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve secret %s: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Secret is a decoded secret: a JSON object of credentials.
type Secret map[string]any

// String returns the value of key as a string.
// Numbers are formatted without exponent.
func (s Secret) String(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", xerrors.Errorf("%s: %w", key, ErrMissingKey)
	}

	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", xerrors.Errorf("%s is %T, not a string", key, v)
	}
}

// Int returns the value of key as an int. String values are parsed.
func (s Secret) Int(key string) (int, error) {
	v, ok := s[key]
	if !ok {
		return 0, xerrors.Errorf("%s: %w", key, ErrMissingKey)
	}

	switch x := v.(type) {
	case float64:
		return int(x), nil
	case int:
		return x, nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, xerrors.Errorf("failed to parse %s: %w", key, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(x)
		if err != nil {
			return 0, xerrors.Errorf("failed to parse %s: %w", key, err)
		}
		return i, nil
	default:
		return 0, xerrors.Errorf("%s is %T, not a number", key, v)
	}
}

// JSON encodes the secret back into JSON, e.g. for service account credentials.
func (s Secret) JSON() ([]byte, error) {
	b, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal secret: %w", err)
	}
	return b, nil
}

// Decode parses a JSON object into a Secret.
func Decode(raw []byte) (Secret, error) {
	var s Secret
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, xerrors.Errorf("failed to decode secret: %w", err)
	}
	if s == nil {
		return nil, xerrors.New("secret is not a JSON object")
	}
	return s, nil
}
