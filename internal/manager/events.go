package manager

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/taskboard/internal/model"
)

// EventKind names a state change published by a manager.
type EventKind string

// Task manager events.
const (
	EventTasksLoaded       EventKind = "tasksLoaded"
	EventTasksSaved        EventKind = "tasksSaved"
	EventTaskAdded         EventKind = "taskAdded"
	EventTaskDeleted       EventKind = "taskDeleted"
	EventTaskUpdated       EventKind = "taskUpdated"
	EventTaskStatusToggled EventKind = "taskStatusToggled"
	EventFiltersChanged    EventKind = "filtersChanged"
	EventFiltersCleared    EventKind = "filtersCleared"
	EventSortChanged       EventKind = "sortChanged"
	EventTaskMoved         EventKind = "taskMoved"
	EventUserTasksDeleted  EventKind = "userTasksDeleted"
	EventTasksImported     EventKind = "tasksImported"
	EventAllTasksCleared   EventKind = "allTasksCleared"
)

// User manager events.
const (
	EventUsersLoaded       EventKind = "usersLoaded"
	EventUsersSaved        EventKind = "usersSaved"
	EventUserAdded         EventKind = "userAdded"
	EventUserDeleted       EventKind = "userDeleted"
	EventUserUpdated       EventKind = "userUpdated"
	EventActiveUserChanged EventKind = "activeUserChanged"
	EventActiveUserCleared EventKind = "activeUserCleared"
	EventUsersImported     EventKind = "usersImported"
	EventAllUsersCleared   EventKind = "allUsersCleared"
)

// Event is a single notification. Payload types by kind:
//
//	taskAdded, taskDeleted, taskUpdated, taskStatusToggled  model.Task
//	taskMoved                                               TaskMoved
//	filtersChanged                                          model.FilterSet
//	sortChanged                                             model.SortKey
//	userTasksDeleted                                        UserTasksDeleted
//	tasksLoaded, tasksImported, usersLoaded, usersImported  int (count)
//	allUsersCleared                                         int (count)
//	userAdded, userDeleted, userUpdated, activeUserChanged  model.User
//	everything else                                         nil
type Event struct {
	Kind    EventKind
	Payload any
}

func (e Event) String() string {
	return string(e.Kind)
}

// TaskMoved describes a manual reorder. ToIndex is the clamped index.
type TaskMoved struct {
	Task      model.Task
	FromIndex int
	ToIndex   int
}

// UserTasksDeleted reports a cascade removal of one user's tasks.
type UserTasksDeleted struct {
	UserID string
	Count  int
}

// Observer receives events. A returned error or a panic is logged and
// does not stop delivery to other observers.
type Observer func(Event) error

type subscription struct {
	id uint64
	fn Observer
}

// Bus delivers events to observers synchronously and in publish order.
// A Publish made while a delivery is in progress is queued and drained
// by the delivering goroutine once the current event has reached every
// observer, so observers may call back into the managers.
type Bus struct {
	log zerolog.Logger

	mu         sync.Mutex
	subs       []subscription
	nextID     uint64
	queue      []Event
	delivering bool
}

// NewBus returns an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every observer.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.queue = append(b.queue, e)
	if b.delivering {
		b.mu.Unlock()
		return
	}
	b.delivering = true

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		subs := make([]subscription, len(b.subs))
		copy(subs, b.subs)
		b.mu.Unlock()

		for _, s := range subs {
			b.deliver(s.fn, next)
		}

		b.mu.Lock()
	}

	b.queue = nil
	b.delivering = false
	b.mu.Unlock()
}

func (b *Bus) deliver(fn Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event", string(e.Kind)).
				Err(fmt.Errorf("observer panic: %v", r)).
				Msg("observer failed")
		}
	}()
	if err := fn(e); err != nil {
		b.log.Error().Str("event", string(e.Kind)).Err(err).Msg("observer failed")
	}
}
