package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/nhle/taskboard/internal/store"
)

// ErrBackendDown is returned by a FlakyBackend while it is failing.
var ErrBackendDown = errors.New("backend down")

// FlakyBackend wraps a Backend and fails every call while Fail is set.
// Writes counts successful Set calls.
type FlakyBackend struct {
	store.Backend
	Fail   atomic.Bool
	Writes atomic.Int64
}

// NewFlakyBackend wraps inner.
func NewFlakyBackend(inner store.Backend) *FlakyBackend {
	return &FlakyBackend{Backend: inner}
}

func (f *FlakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.Fail.Load() {
		return nil, ErrBackendDown
	}
	return f.Backend.Get(ctx, key)
}

func (f *FlakyBackend) Set(ctx context.Context, key string, value []byte) error {
	if f.Fail.Load() {
		return ErrBackendDown
	}
	if err := f.Backend.Set(ctx, key, value); err != nil {
		return err
	}
	f.Writes.Add(1)
	return nil
}

func (f *FlakyBackend) Remove(ctx context.Context, key string) error {
	if f.Fail.Load() {
		return ErrBackendDown
	}
	return f.Backend.Remove(ctx, key)
}

func (f *FlakyBackend) Keys(ctx context.Context) ([]string, error) {
	if f.Fail.Load() {
		return nil, ErrBackendDown
	}
	return f.Backend.Keys(ctx)
}

func (f *FlakyBackend) Ping(ctx context.Context) error {
	if f.Fail.Load() {
		return ErrBackendDown
	}
	return f.Backend.Ping(ctx)
}
