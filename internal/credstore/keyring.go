package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// KeyringStore persists the token bundle in OS-native credential storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Load returns the bundle stored in the system keyring. A missing entry or an
// unparseable payload is reported as absence.
func (k *KeyringStore) Load(ctx context.Context) (*oauth2.Token, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	data, err := keyring.Get(k.service, k.user)
	if err != nil {
		return nil, false
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		slog.DebugContext(ctx, "ignoring unparseable keyring credentials", "service", k.service, "error", err)
		return nil, false
	}

	return &tok, true
}

// Save serializes the bundle and writes it to the system keyring, overwriting
// any existing entry.
func (k *KeyringStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("serializing credentials: %w", err)
	}

	return keyring.Set(k.service, k.user, string(data))
}

// Clear removes the keyring entry. An entry that is already absent is not an
// error.
func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("removing keyring credentials: %w", err)
	}

	return nil
}
