package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/model"
)

// boardEventMsg carries a manager event into the Bubble Tea loop.
type boardEventMsg struct {
	manager.Event
}

// eventBridge forwards manager events to the UI. Observers run on
// whichever goroutine mutated the board, so they only enqueue.
type eventBridge struct {
	ch    chan manager.Event
	unsub []func()
}

func newEventBridge(sources ...interface {
	Subscribe(manager.Observer) func()
}) *eventBridge {
	br := &eventBridge{ch: make(chan manager.Event, 64)}
	for _, s := range sources {
		br.unsub = append(br.unsub, s.Subscribe(br.observe))
	}
	return br
}

// observe never blocks. A dropped event is harmless since every
// delivered one triggers a full refresh.
func (br *eventBridge) observe(e manager.Event) error {
	select {
	case br.ch <- e:
	default:
	}
	return nil
}

func (br *eventBridge) wait() tea.Cmd {
	return func() tea.Msg {
		return boardEventMsg{<-br.ch}
	}
}

func (br *eventBridge) close() {
	for _, u := range br.unsub {
		u()
	}
	br.unsub = nil
}

// describe returns the status-bar notice for e, or "" for events that
// need no announcement.
func describe(e manager.Event) string {
	switch e.Kind {
	case manager.EventTaskAdded:
		return "Task added"
	case manager.EventTaskUpdated:
		return "Task updated"
	case manager.EventTaskDeleted:
		return "Task deleted"
	case manager.EventTaskStatusToggled:
		if t, ok := e.Payload.(model.Task); ok && t.IsCompleted() {
			return "Task completed"
		}
		return "Task reopened"
	case manager.EventUserTasksDeleted:
		if p, ok := e.Payload.(manager.UserTasksDeleted); ok {
			return fmt.Sprintf("Deleted %d task(s)", p.Count)
		}
	case manager.EventTasksImported:
		return fmt.Sprintf("Imported %v task(s)", e.Payload)
	case manager.EventUsersImported:
		return fmt.Sprintf("Imported %v user(s)", e.Payload)
	case manager.EventAllTasksCleared:
		return "All tasks cleared"
	case manager.EventAllUsersCleared:
		return "All users cleared"
	case manager.EventUserAdded:
		if u, ok := e.Payload.(model.User); ok {
			return "Added " + u.Name
		}
	case manager.EventActiveUserChanged:
		if u, ok := e.Payload.(model.User); ok {
			return "Active user: " + u.Name
		}
	case manager.EventActiveUserCleared:
		return "No active user"
	case manager.EventSortChanged:
		return fmt.Sprintf("Sorted by %v", e.Payload)
	}
	return ""
}
