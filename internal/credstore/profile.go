package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Profile holds the cached account profile fetched from the provider's
// userinfo endpoint. Cached only to avoid refetching on every run; it carries
// no secrets.
type Profile struct {
	Email string `json:"email,omitempty"`
}

// ProfileCache persists the account profile as a JSON file next to the
// credential cache.
type ProfileCache struct {
	filePath string
}

// NewProfileCache creates a ProfileCache for the given path.
func NewProfileCache(filePath string) (*ProfileCache, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	return &ProfileCache{
		filePath: filePath,
	}, nil
}

// Load returns the cached profile. Missing or corrupt cache files are
// reported as absence.
func (p *ProfileCache) Load(ctx context.Context) (*Profile, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, false
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, false
	}

	return &profile, true
}

// Save overwrites the cached profile, creating the parent directory if
// needed.
func (p *ProfileCache) Save(ctx context.Context, profile *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.filePath), 0700); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	if err := os.WriteFile(p.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing profile cache: %w", err)
	}

	return nil
}

// Clear deletes the cached profile. Absence is not an error.
func (p *ProfileCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(p.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing profile cache: %w", err)
	}

	return nil
}
