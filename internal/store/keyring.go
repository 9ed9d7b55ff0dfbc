package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "taskboard"

// KeyringBackend implements Backend on top of the OS keyring, falling
// back to an encrypted file store where no native keyring exists.
type KeyringBackend struct {
	ring keyring.Keyring
}

// OpenKeyring returns a configured keyring rooted at fileDir for the
// file fallback.
func OpenKeyring(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("taskboard-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// NewKeyringBackend wraps an already opened keyring. Tests pass a
// keyring.NewArrayKeyring.
func NewKeyringBackend(ring keyring.Keyring) *KeyringBackend {
	return &KeyringBackend{ring: ring}
}

// Get retrieves a record from the keyring.
func (k *KeyringBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting %q: %w", key, ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %q: %w", key, err)
	}
	return item.Data, nil
}

// Set stores a record in the keyring.
func (k *KeyringBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := k.ring.Set(keyring.Item{
		Key:   key,
		Data:  value,
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// Remove deletes a record from the keyring.
func (k *KeyringBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := k.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

// Keys lists every record key in the keyring.
func (k *KeyringBackend) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := k.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keyring keys: %w", err)
	}
	return keys, nil
}

// Ping checks the keyring can be enumerated.
func (k *KeyringBackend) Ping(ctx context.Context) error {
	_, err := k.Keys(ctx)
	return err
}

// Close is a no-op; keyrings hold no open handles.
func (k *KeyringBackend) Close() error { return nil }
