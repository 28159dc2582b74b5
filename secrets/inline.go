package secrets

import (
	"context"
)

// InlineStore serves secrets supplied directly by configuration.
type InlineStore map[string]Secret

// Get returns a copy of the named secret.
func (s InlineStore) Get(_ context.Context, name string) (Secret, error) {
	secret, ok := s[name]
	if !ok {
		return nil, &ResolutionError{Name: name, Err: ErrNotFound}
	}

	c := make(Secret, len(secret))
	for k, v := range secret {
		c[k] = v
	}
	return c, nil
}
