package credstore

import (
	"context"
	"fmt"
	"os"
)

// EnvKey provides read-only access to a static API key stored in an
// environment variable. Suitable for API-key authentication only; OAuth
// flows require a writable Store.
type EnvKey struct {
	envKey string
}

// NewEnvKey creates an EnvKey for the given environment variable.
// Returns an error if the variable name is empty or not set in the
// environment.
func NewEnvKey(envKey string) (*EnvKey, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	if _, exists := os.LookupEnv(envKey); !exists {
		return nil, fmt.Errorf("environment variable %s not set", envKey)
	}

	return &EnvKey{
		envKey: envKey,
	}, nil
}

// Read returns the API key from the environment variable. Returns an error if
// it is empty.
func (e *EnvKey) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := os.Getenv(e.envKey)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is empty", e.envKey)
	}
	return key, nil
}
