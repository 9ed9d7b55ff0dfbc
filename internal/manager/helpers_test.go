package manager_test

import (
	"sync"
	"testing"
	"time"

	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/tests/testutil"
)

// fixture bundles managers over an in-memory backend that can be made
// to fail.
type fixture struct {
	backend *testutil.FlakyBackend
	gw      *store.Gateway
	tasks   *manager.TaskManager
	users   *manager.UserManager
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testutil.NewFlakyBackend(testutil.NewTestBackend(t))
	gw := store.NewGateway(backend)
	clock := manager.WithClock(tickingClock())
	tasks := manager.NewTaskManager(gw, clock)
	users := manager.NewUserManager(gw, tasks, clock)
	t.Cleanup(users.Close)
	return &fixture{backend: backend, gw: gw, tasks: tasks, users: users}
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []manager.Event
}

func (r *recorder) observe(e manager.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []manager.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]manager.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) last() manager.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
