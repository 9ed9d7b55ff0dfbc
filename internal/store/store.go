package store

import (
	"context"
	"fmt"

	"github.com/nhle/taskboard/internal/model"
)

// Record keys under which the board persists its state.
const (
	TasksKey      = "todoApp_tasks"
	UsersKey      = "todoApp_users"
	SettingsKey   = "todoApp_settings"
	ActiveUserKey = "todoApp_activeUser"
)

// RecordKeys lists every key the board owns, in export order.
var RecordKeys = []string{TasksKey, UsersKey, ActiveUserKey, SettingsKey}

var (
	// ErrKeyNotFound is returned by a Backend when no record exists for a key.
	ErrKeyNotFound = fmt.Errorf("key not found: %w", model.ErrStorage)

	// ErrQuotaExceeded is returned when a write would push total usage
	// past the configured quota.
	ErrQuotaExceeded = fmt.Errorf("storage quota exceeded: %w", model.ErrStorage)
)

// Backend is a flat key/value store holding serialized records.
// Implementations must be safe for use by a single goroutine at a time;
// the Gateway serializes access.
type Backend interface {
	// Get returns the stored bytes, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set creates or replaces the record for key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the record for key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)

	// Ping reports whether the backend is reachable and writable.
	Ping(ctx context.Context) error

	Close() error
}
