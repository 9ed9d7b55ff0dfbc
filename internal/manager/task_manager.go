// Package manager holds the authoritative in-memory task and user
// collections, the filter/sort pipeline over tasks, and the event bus
// the presentation layer observes.
package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// TaskStats summarizes a set of tasks.
type TaskStats struct {
	Total      int                    `json:"total"`
	Completed  int                    `json:"completed"`
	Pending    int                    `json:"pending"`
	ByStatus   map[model.Status]int   `json:"byStatus"`
	ByPriority map[model.Priority]int `json:"byPriority"`
	ByCategory map[model.Category]int `json:"byCategory"`
}

func newTaskStats() TaskStats {
	s := TaskStats{
		ByStatus:   map[model.Status]int{model.StatusPending: 0, model.StatusDone: 0},
		ByPriority: make(map[model.Priority]int, len(model.Priorities)),
		ByCategory: make(map[model.Category]int, len(model.Categories)),
	}
	for _, p := range model.Priorities {
		s.ByPriority[p] = 0
	}
	for _, c := range model.Categories {
		s.ByCategory[c] = 0
	}
	return s
}

// TaskManager owns the task collection and its filtered, sorted view.
// All methods are safe for concurrent use. Events are published after
// the internal lock is released.
type TaskManager struct {
	gw   *store.Gateway
	bus  *Bus
	log  zerolog.Logger
	opts options

	mu       sync.RWMutex
	tasks    []*model.Task
	filtered []*model.Task
	filters  model.FilterSet
	sortBy   model.SortKey
	collator *collate.Collator // guarded by mu (write lock)
}

// NewTaskManager loads the persisted tasks and returns a manager
// sorted by position with no filters set.
func NewTaskManager(gw *store.Gateway, opts ...Option) *TaskManager {
	o := buildOptions(opts)
	log := o.log.With().Str("component", "tasks").Logger()
	m := &TaskManager{
		gw:       gw,
		bus:      NewBus(log),
		log:      log,
		opts:     o,
		sortBy:   model.SortPosition,
		collator: o.collator(),
	}
	m.Reload()
	return m
}

// Subscribe registers an observer for task events.
func (m *TaskManager) Subscribe(o Observer) (unsubscribe func()) {
	return m.bus.Subscribe(o)
}

// Reload replaces the collection with the persisted tasks.
func (m *TaskManager) Reload() {
	tasks := m.gw.LoadTasks()

	m.mu.Lock()
	m.tasks = make([]*model.Task, 0, len(tasks))
	ordered := true
	for i := range tasks {
		if i > 0 && tasks[i].Position <= tasks[i-1].Position {
			ordered = false
		}
		m.tasks = append(m.tasks, &tasks[i])
	}
	// The position view must follow collection order.
	if !ordered {
		for i, t := range m.tasks {
			t.Position = i
		}
	}
	m.refresh()
	n := len(m.tasks)
	m.mu.Unlock()

	m.log.Info().Int("count", n).Msg("loaded tasks")
	m.bus.Publish(Event{Kind: EventTasksLoaded, Payload: n})
}

// Save persists the collection and reports whether the write succeeded.
func (m *TaskManager) Save() bool {
	m.mu.RLock()
	ok := m.persist()
	m.mu.RUnlock()

	if ok {
		m.bus.Publish(Event{Kind: EventTasksSaved})
	}
	return ok
}

// persist writes the collection. Callers hold mu.
func (m *TaskManager) persist() bool {
	ok := m.gw.SaveTasks(cloneTasks(m.tasks))
	if !ok {
		m.log.Warn().Msg("tasks not persisted; keeping in-memory state")
	}
	return ok
}

// AddTask appends a new pending task owned by userID. Invalid priority
// or category values fall back to medium and personal.
func (m *TaskManager) AddTask(
	content, userID string,
	priority model.Priority,
	category model.Category,
) (*model.Task, error) {
	t, err := model.NewTaskAt(content, userID, priority, category, m.opts.now())
	if err != nil {
		m.log.Warn().Err(err).Msg("adding task")
		return nil, fmt.Errorf("adding task: %w", err)
	}

	m.mu.Lock()
	t.Position = len(m.tasks)
	m.tasks = append(m.tasks, t)
	m.refresh()
	m.persist()
	snap := t.Clone()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventTaskAdded, Payload: snap})
	out := snap.Clone()
	return &out, nil
}

// DeleteTask removes the task with the given id.
func (m *TaskManager) DeleteTask(id string) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("deleting task", id)
	}
	deleted := m.tasks[i].Clone()
	m.tasks = slices.Delete(m.tasks, i, i+1)
	m.refresh()
	m.persist()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventTaskDeleted, Payload: deleted})
	return nil
}

// UpdateTask applies every provided field of u to the task.
func (m *TaskManager) UpdateTask(id string, u model.TaskUpdate) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("updating task", id)
	}
	t := m.tasks[i]
	u.Apply(t)
	m.refresh()
	m.persist()
	snap := t.Clone()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventTaskUpdated, Payload: snap})
	return nil
}

// ToggleTaskStatus flips the task between pending and done.
func (m *TaskManager) ToggleTaskStatus(id string) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("toggling task", id)
	}
	t := m.tasks[i]
	t.ToggleStatus()
	m.refresh()
	m.persist()
	snap := t.Clone()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventTaskStatusToggled, Payload: snap})
	return nil
}

// MoveTask removes the task from its index and re-inserts it at
// newIndex, clamped to the collection bounds. Every task's Position is
// then set to its index.
func (m *TaskManager) MoveTask(id string, newIndex int) error {
	m.mu.Lock()
	from := m.indexOf(id)
	if from < 0 {
		m.mu.Unlock()
		return m.notFound("moving task", id)
	}
	t := m.tasks[from]
	rest := slices.Delete(slices.Clone(m.tasks), from, from+1)
	to := min(max(newIndex, 0), len(rest))
	m.tasks = slices.Insert(rest, to, t)
	for i, task := range m.tasks {
		task.Position = i
	}
	m.refresh()
	m.persist()
	moved := TaskMoved{Task: t.Clone(), FromIndex: from, ToIndex: to}
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventTaskMoved, Payload: moved})
	return nil
}

// SetFilters merges u into the current filter set.
func (m *TaskManager) SetFilters(u model.FilterUpdate) {
	m.mu.Lock()
	m.filters = m.filters.Merge(u)
	m.refresh()
	filters := m.filters
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventFiltersChanged, Payload: filters})
}

// ClearFilters removes every filter predicate.
func (m *TaskManager) ClearFilters() {
	m.mu.Lock()
	m.filters = model.FilterSet{}
	m.refresh()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventFiltersCleared})
}

// SearchTasks sets the free-text filter.
func (m *TaskManager) SearchTasks(text string) {
	m.SetFilters(model.FilterUpdate{SearchText: &text})
}

// Filters returns the current filter set.
func (m *TaskManager) Filters() model.FilterSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filters
}

// SetSortBy changes the comparator of the filtered view.
func (m *TaskManager) SetSortBy(key model.SortKey) error {
	if !key.Valid() {
		err := fmt.Errorf("sorting by %q: %w", key, model.ErrValidation)
		m.log.Warn().Err(err).Msg("rejected sort key")
		return err
	}

	m.mu.Lock()
	m.sortBy = key
	m.refresh()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventSortChanged, Payload: key})
	return nil
}

// SortBy returns the current sort key.
func (m *TaskManager) SortBy() model.SortKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortBy
}

// DeleteAllUserTasks removes every task owned by userID and returns how
// many were removed. Nothing is persisted or published when the user
// owns no tasks.
func (m *TaskManager) DeleteAllUserTasks(userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("deleting user tasks: user id is required: %w", model.ErrValidation)
	}

	m.mu.Lock()
	before := len(m.tasks)
	m.tasks = slices.DeleteFunc(m.tasks, func(t *model.Task) bool {
		return t.UserID == userID
	})
	n := before - len(m.tasks)
	if n == 0 {
		m.mu.Unlock()
		return 0, nil
	}
	m.refresh()
	m.persist()
	m.mu.Unlock()

	m.log.Info().Str("user", userID).Int("count", n).Msg("deleted user tasks")
	m.bus.Publish(Event{Kind: EventUserTasksDeleted, Payload: UserTasksDeleted{UserID: userID, Count: n}})
	return n, nil
}

// ClearAllTasks removes every task.
func (m *TaskManager) ClearAllTasks() {
	m.mu.Lock()
	m.tasks = nil
	m.refresh()
	m.persist()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventAllTasksCleared})
}

// ExportTasks encodes the tasks of userID, or all tasks when userID is
// empty, as indented JSON.
func (m *TaskManager) ExportTasks(userID string) ([]byte, error) {
	var tasks []model.Task
	if userID == "" {
		tasks = m.AllTasks()
	} else {
		tasks = m.TasksByUser(userID)
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting tasks: %w", err)
	}
	return data, nil
}

// ImportTasks appends the tasks encoded in data, skipping ids that
// already exist and records without content or owner. Imported tasks
// are placed after the existing ones in document order. It returns how
// many tasks were added.
func (m *TaskManager) ImportTasks(data []byte) (int, error) {
	var incoming []model.Task
	if err := json.Unmarshal(data, &incoming); err != nil {
		err = fmt.Errorf("importing tasks: %w", errors.Join(model.ErrValidation, err))
		m.log.Warn().Err(err).Msg("rejected task import")
		return 0, err
	}

	m.mu.Lock()
	seen := make(map[string]struct{}, len(m.tasks)+len(incoming))
	for _, t := range m.tasks {
		seen[t.ID] = struct{}{}
	}
	added := 0
	for i := range incoming {
		t := &incoming[i]
		t.Content = strings.TrimSpace(t.Content)
		if t.ID == "" || t.Content == "" || t.UserID == "" {
			m.log.Debug().Str("id", t.ID).Msg("skipping incomplete task")
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		t.Position = len(m.tasks)
		m.tasks = append(m.tasks, t)
		added++
	}
	m.refresh()
	m.persist()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventTasksImported, Payload: added})
	return added, nil
}

// FilteredTasks returns a copy of the current filtered and sorted view.
func (m *TaskManager) FilteredTasks() []model.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTasks(m.filtered)
}

// FilteredCount returns the size of the filtered view.
func (m *TaskManager) FilteredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filtered)
}

// AllTasks returns a copy of the collection in storage order.
func (m *TaskManager) AllTasks() []model.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTasks(m.tasks)
}

// TaskByID returns a copy of the task with the given id.
func (m *TaskManager) TaskByID(id string) (model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return m.tasks[i].Clone(), nil
}

// TasksByUser returns the tasks owned by userID.
func (m *TaskManager) TasksByUser(userID string) []model.Task {
	return m.where(func(t *model.Task) bool { return t.UserID == userID })
}

// TasksByStatus returns the tasks with the given status.
func (m *TaskManager) TasksByStatus(s model.Status) []model.Task {
	return m.where(func(t *model.Task) bool { return t.Status == s })
}

// TasksByCategory returns the tasks in the given category.
func (m *TaskManager) TasksByCategory(c model.Category) []model.Task {
	return m.where(func(t *model.Task) bool { return t.Category == c })
}

// TasksByPriority returns the tasks with the given priority.
func (m *TaskManager) TasksByPriority(p model.Priority) []model.Task {
	return m.where(func(t *model.Task) bool { return t.Priority == p })
}

// TaskStats counts the tasks of userID, or of everyone when userID is empty.
func (m *TaskManager) TaskStats(userID string) TaskStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := newTaskStats()
	for _, t := range m.tasks {
		if userID != "" && t.UserID != userID {
			continue
		}
		s.Total++
		if t.IsCompleted() {
			s.Completed++
		}
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
		s.ByCategory[t.Category]++
	}
	s.Pending = s.Total - s.Completed
	return s
}

func (m *TaskManager) where(keep func(*model.Task) bool) []model.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Task{}
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// indexOf returns the collection index of id, or -1. Callers hold mu.
func (m *TaskManager) indexOf(id string) int {
	return slices.IndexFunc(m.tasks, func(t *model.Task) bool { return t.ID == id })
}

func (m *TaskManager) notFound(op, id string) error {
	err := fmt.Errorf("%s %s: %w", op, id, model.ErrNotFound)
	m.log.Warn().Err(err).Msg(op)
	return err
}

// refresh recomputes the filtered view. Callers hold the write lock.
func (m *TaskManager) refresh() {
	view := make([]*model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.MatchesFilters(m.filters) {
			view = append(view, t)
		}
	}
	slices.SortStableFunc(view, m.compare)
	m.filtered = view
}

// compare orders two tasks by the current sort key. Ties keep
// collection order because the sort is stable.
func (m *TaskManager) compare(a, b *model.Task) int {
	switch m.sortBy {
	case model.SortCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case model.SortPriority:
		if d := b.PriorityValue() - a.PriorityValue(); d != 0 {
			return d
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	case model.SortAlphabetical:
		return m.collator.CompareString(a.Content, b.Content)
	default:
		return a.Position - b.Position
	}
}

func cloneTasks(tasks []*model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
