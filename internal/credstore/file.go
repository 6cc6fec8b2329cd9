package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FileStore persists the token bundle as a pretty-printed JSON file.
// The file is overwritten wholesale on every save; concurrent writers from
// independent processes are last-writer-wins.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path. Parent directories are
// created lazily on the first save, so constructing a store never touches the
// filesystem.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// Load reads and parses the cached bundle. Any I/O or parse failure is
// reported as absence.
func (f *FileStore) Load(ctx context.Context) (*oauth2.Token, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, false
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		slog.DebugContext(ctx, "ignoring unparseable credential cache", "path", f.filePath, "error", err)
		return nil, false
	}

	return &tok, true
}

// Save serializes the bundle and overwrites the cache file, creating the
// parent directory with 0700 permissions if it does not exist. The file
// itself is written with 0600 permissions.
func (f *FileStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.filePath), 0700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	if err := os.WriteFile(f.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing credential cache: %w", err)
	}

	return nil
}

// Clear deletes the cache file. A file that is already absent is not an error.
func (f *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(f.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential cache: %w", err)
	}

	return nil
}
