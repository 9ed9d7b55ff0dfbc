package testutil

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/nhle/taskboard/internal/store"
)

// NewTestBackend creates an in-memory SQLiteBackend with all migrations
// applied. It automatically closes the backend when the test completes.
func NewTestBackend(t *testing.T) *store.SQLiteBackend {
	t.Helper()

	b, err := store.NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("creating test backend: %v", err)
	}

	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("closing test backend: %v", err)
		}
	})

	return b
}

// NewTestGateway returns a Gateway over a fresh in-memory backend.
func NewTestGateway(t *testing.T, opts ...store.Option) *store.Gateway {
	t.Helper()
	opts = append([]store.Option{store.WithLogger(zerolog.Nop())}, opts...)
	return store.NewGateway(NewTestBackend(t), opts...)
}
