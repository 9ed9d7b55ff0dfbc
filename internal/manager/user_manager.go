package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// TaskSource is the part of the task manager the user manager depends on.
type TaskSource interface {
	TaskStats(userID string) TaskStats
	DeleteAllUserTasks(userID string) (int, error)
	ClearAllTasks()
	Subscribe(Observer) (unsubscribe func())
}

// UsersStats aggregates the user collection.
type UsersStats struct {
	TotalUsers            int    `json:"totalUsers"`
	ActiveUser            string `json:"activeUser"`
	UsersWithTasks        int    `json:"usersWithTasks"`
	UsersWithoutTasks     int    `json:"usersWithoutTasks"`
	MostProductiveUser    string `json:"mostProductiveUser"`
	LeastProductiveUser   string `json:"leastProductiveUser"`
	AverageTasksPerUser   int    `json:"averageTasksPerUser"`
	AverageCompletionRate int    `json:"averageCompletionRate"`
}

// UsersExport is the document produced by ExportUsers.
type UsersExport struct {
	Users      []model.User `json:"users"`
	ActiveUser *string      `json:"activeUser"`
	ExportDate time.Time    `json:"exportDate"`
	TotalUsers int          `json:"totalUsers"`
}

// UserManager owns the user collection and the active-user reference.
// It keeps each user's task counters in step with a TaskSource.
type UserManager struct {
	gw    *store.Gateway
	tasks TaskSource
	bus   *Bus
	log   zerolog.Logger
	opts  options

	mu       sync.RWMutex
	users    []*model.User
	activeID string
	collator *collate.Collator // guarded by mu (write lock)

	unsubscribe func()
}

// NewUserManager loads the persisted users, restores the active user
// when it still exists, and subscribes to task events.
func NewUserManager(gw *store.Gateway, tasks TaskSource, opts ...Option) *UserManager {
	o := buildOptions(opts)
	log := o.log.With().Str("component", "users").Logger()
	m := &UserManager{
		gw:       gw,
		tasks:    tasks,
		bus:      NewBus(log),
		log:      log,
		opts:     o,
		collator: o.collator(),
	}
	m.Reload()
	m.unsubscribe = tasks.Subscribe(m.handleTaskEvent)
	return m
}

// Close stops listening to task events.
func (m *UserManager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Subscribe registers an observer for user events.
func (m *UserManager) Subscribe(o Observer) (unsubscribe func()) {
	return m.bus.Subscribe(o)
}

// handleTaskEvent refreshes the counters after task mutations.
func (m *UserManager) handleTaskEvent(e Event) error {
	switch e.Kind {
	case EventTaskAdded, EventTaskDeleted, EventTaskStatusToggled, EventTaskUpdated,
		EventUserTasksDeleted, EventTasksImported, EventTasksLoaded, EventAllTasksCleared:
	default:
		return nil
	}

	m.mu.Lock()
	m.refreshStats()
	ok := m.persistUsers()
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("saving users after %s: %w", e.Kind, model.ErrStorage)
	}
	m.bus.Publish(Event{Kind: EventUsersSaved})
	return nil
}

// Reload replaces the collection with the persisted users.
func (m *UserManager) Reload() {
	users := m.gw.LoadUsers()
	activeID := m.gw.LoadActiveUser()

	m.mu.Lock()
	m.users = make([]*model.User, 0, len(users))
	for i := range users {
		m.users = append(m.users, &users[i])
	}
	if m.indexOf(activeID) < 0 {
		activeID = ""
	}
	m.activeID = activeID
	for _, u := range m.users {
		u.IsActive = u.ID == activeID
	}
	m.refreshStats()
	n := len(m.users)
	m.mu.Unlock()

	m.log.Info().Int("count", n).Str("active", activeID).Msg("loaded users")
	m.bus.Publish(Event{Kind: EventUsersLoaded, Payload: n})
}

// Save persists the users and the active pointer.
func (m *UserManager) Save() bool {
	m.mu.RLock()
	ok := m.persistUsers()
	ok = m.persistActive() && ok
	m.mu.RUnlock()

	if ok {
		m.bus.Publish(Event{Kind: EventUsersSaved})
	}
	return ok
}

// persistUsers writes the collection. Callers hold mu.
func (m *UserManager) persistUsers() bool {
	ok := m.gw.SaveUsers(cloneUsers(m.users))
	if !ok {
		m.log.Warn().Msg("users not persisted; keeping in-memory state")
	}
	return ok
}

// persistActive writes the active pointer. Callers hold mu.
func (m *UserManager) persistActive() bool {
	ok := m.gw.SaveActiveUser(m.activeID)
	if !ok {
		m.log.Warn().Msg("active user not persisted")
	}
	return ok
}

// UpdateUserStats recomputes every user's task counters.
func (m *UserManager) UpdateUserStats() {
	m.mu.Lock()
	m.refreshStats()
	m.mu.Unlock()
}

// refreshStats queries the task source. Callers hold the write lock.
func (m *UserManager) refreshStats() {
	for _, u := range m.users {
		s := m.tasks.TaskStats(u.ID)
		u.UpdateTaskCounts(s.Total, s.Completed)
	}
}

// AddUser creates a user with a unique, valid name.
func (m *UserManager) AddUser(name string) (*model.User, error) {
	u, err := model.NewUserAt(name, m.opts.now())
	if err != nil {
		m.log.Warn().Err(err).Msg("adding user")
		return nil, fmt.Errorf("adding user: %w", err)
	}

	m.mu.Lock()
	if m.byName(u.Name) != nil {
		m.mu.Unlock()
		err := fmt.Errorf("adding user %q: name already taken: %w", u.Name, model.ErrConflict)
		m.log.Warn().Err(err).Msg("adding user")
		return nil, err
	}
	m.users = append(m.users, u)
	m.refreshStats()
	m.persistUsers()
	snap := *u
	m.mu.Unlock()

	m.log.Info().Str("user", snap.Name).Msg("added user")
	m.bus.Publish(Event{Kind: EventUserAdded, Payload: snap})
	out := snap
	return &out, nil
}

// DeleteUser removes a user. A user owning tasks is only removed when
// cascade is set, in which case the tasks are deleted first. Deleting
// the active user clears the active reference.
func (m *UserManager) DeleteUser(id string, cascade bool) error {
	m.mu.RLock()
	i := m.indexOf(id)
	m.mu.RUnlock()
	if i < 0 {
		return m.notFound("deleting user", id)
	}

	owned := m.tasks.TaskStats(id).Total
	if owned > 0 && !cascade {
		err := fmt.Errorf("deleting user %s: owns %d tasks: %w", id, owned, model.ErrConflict)
		m.log.Warn().Err(err).Msg("deleting user")
		return err
	}
	if owned > 0 {
		if _, err := m.tasks.DeleteAllUserTasks(id); err != nil {
			return fmt.Errorf("deleting user %s: %w", id, err)
		}
	}

	m.mu.Lock()
	i = m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("deleting user", id)
	}
	deleted := *m.users[i]
	m.users = slices.Delete(m.users, i, i+1)
	wasActive := m.activeID == id
	if wasActive {
		m.activeID = ""
		m.persistActive()
	}
	m.refreshStats()
	m.persistUsers()
	m.mu.Unlock()

	m.log.Info().Str("user", deleted.Name).Bool("cascade", cascade).Msg("deleted user")
	if wasActive {
		m.bus.Publish(Event{Kind: EventActiveUserCleared})
	}
	m.bus.Publish(Event{Kind: EventUserDeleted, Payload: deleted})
	return nil
}

// UpdateUser applies u to the user with the given id.
func (m *UserManager) UpdateUser(id string, u model.UserUpdate) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("updating user", id)
	}
	user := m.users[i]

	if u.Name != nil {
		if !model.IsValidName(*u.Name) {
			m.mu.Unlock()
			err := fmt.Errorf("updating user %s: invalid name: %w", id, model.ErrValidation)
			m.log.Warn().Err(err).Msg("updating user")
			return err
		}
		if other := m.byName(*u.Name); other != nil && other.ID != id {
			m.mu.Unlock()
			err := fmt.Errorf("updating user %s: name already taken: %w", id, model.ErrConflict)
			m.log.Warn().Err(err).Msg("updating user")
			return err
		}
		user.UpdateName(*u.Name)
	}
	m.persistUsers()
	snap := *user
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventUserUpdated, Payload: snap})
	return nil
}

// SetActiveUser makes id the only active user.
func (m *UserManager) SetActiveUser(id string) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("activating user", id)
	}
	for _, u := range m.users {
		u.SetInactive()
	}
	m.users[i].SetActive()
	m.activeID = id
	m.persistActive()
	m.persistUsers()
	snap := *m.users[i]
	m.mu.Unlock()

	m.log.Info().Str("user", snap.Name).Msg("active user changed")
	m.bus.Publish(Event{Kind: EventActiveUserChanged, Payload: snap})
	return nil
}

// ClearActiveUser deactivates the active user, if any.
func (m *UserManager) ClearActiveUser() {
	m.mu.Lock()
	if m.activeID == "" {
		m.mu.Unlock()
		return
	}
	for _, u := range m.users {
		u.SetInactive()
	}
	m.activeID = ""
	m.persistActive()
	m.persistUsers()
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventActiveUserCleared})
}

// ActiveUser returns the active user, if any.
func (m *UserManager) ActiveUser() (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(m.activeID)
	if m.activeID == "" || i < 0 {
		return model.User{}, false
	}
	return *m.users[i], true
}

// UserByID returns the user with the given id.
func (m *UserManager) UserByID(id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return model.User{}, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return *m.users[i], nil
}

// UserByName finds a user by trimmed, case-insensitive name.
func (m *UserManager) UserByName(name string) (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u := m.byName(name)
	if u == nil {
		return model.User{}, false
	}
	return *u, true
}

// AllUsers returns a copy of the collection in insertion order.
func (m *UserManager) AllUsers() []model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUsers(m.users)
}

// SortedUsers returns the users ordered by key.
func (m *UserManager) SortedUsers(key model.UserSortKey) []model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := cloneUsers(m.users)
	slices.SortStableFunc(users, func(a, b model.User) int {
		return a.Compare(b, key, m.collator.CompareString)
	})
	return users
}

// UsersStats aggregates counters across every user. Ties for most and
// least productive go to the earliest user.
func (m *UserManager) UsersStats() UsersStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := UsersStats{TotalUsers: len(m.users)}
	if i := m.indexOf(m.activeID); m.activeID != "" && i >= 0 {
		s.ActiveUser = m.users[i].Name
	}
	if len(m.users) == 0 {
		return s
	}

	var totalTasks, totalRates int
	most, least := m.users[0], m.users[0]
	for _, u := range m.users {
		pct := u.CompletionPercentage()
		totalTasks += u.TaskCount
		totalRates += pct
		if u.TaskCount > 0 {
			s.UsersWithTasks++
		} else {
			s.UsersWithoutTasks++
		}
		if pct > most.CompletionPercentage() {
			most = u
		}
		if pct < least.CompletionPercentage() {
			least = u
		}
	}

	n := float64(len(m.users))
	s.AverageTasksPerUser = int(math.Round(float64(totalTasks) / n))
	s.AverageCompletionRate = int(math.Round(float64(totalRates) / n))
	s.MostProductiveUser = most.Name
	s.LeastProductiveUser = least.Name
	return s
}

// ExportUsers encodes the users and the active pointer as indented JSON.
func (m *UserManager) ExportUsers() ([]byte, error) {
	m.mu.RLock()
	doc := UsersExport{
		Users:      cloneUsers(m.users),
		ExportDate: model.Now(),
		TotalUsers: len(m.users),
	}
	if m.activeID != "" {
		doc.ActiveUser = model.Ptr(m.activeID)
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting users: %w", err)
	}
	return data, nil
}

// ImportUsers appends the users of an ExportUsers document. The import
// is rejected as a whole when any name or id repeats, either within the
// document or against an existing user.
func (m *UserManager) ImportUsers(data []byte) (int, error) {
	var doc struct {
		Users []model.User `json:"users"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("importing users: %w", errors.Join(model.ErrValidation, err))
	}
	if doc.Users == nil {
		return 0, fmt.Errorf("importing users: missing users list: %w", model.ErrValidation)
	}

	m.mu.Lock()
	seen := make(map[string]struct{}, len(doc.Users))
	seenIDs := make(map[string]struct{}, len(doc.Users))
	for _, u := range doc.Users {
		folded := model.FoldName(u.Name)
		_, dup := seen[folded]
		_, dupID := seenIDs[u.ID]
		if !model.IsValidName(u.Name) || u.ID == "" {
			m.mu.Unlock()
			return 0, fmt.Errorf("importing users: invalid user %q: %w", u.Name, model.ErrValidation)
		}
		if dup || m.byName(u.Name) != nil {
			m.mu.Unlock()
			return 0, fmt.Errorf("importing users: %q already exists: %w", u.Name, model.ErrConflict)
		}
		if dupID || m.indexOf(u.ID) >= 0 {
			m.mu.Unlock()
			return 0, fmt.Errorf("importing users: id %q already exists: %w", u.ID, model.ErrConflict)
		}
		seen[folded] = struct{}{}
		seenIDs[u.ID] = struct{}{}
	}
	for i := range doc.Users {
		u := doc.Users[i]
		u.IsActive = false
		m.users = append(m.users, &u)
	}
	m.refreshStats()
	m.persistUsers()
	n := len(doc.Users)
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventUsersImported, Payload: n})
	return n, nil
}

// ClearAllUsers removes every task and every user.
func (m *UserManager) ClearAllUsers() {
	m.tasks.ClearAllTasks()

	m.mu.Lock()
	n := len(m.users)
	m.users = nil
	m.activeID = ""
	m.persistUsers()
	m.persistActive()
	m.mu.Unlock()

	m.log.Info().Int("count", n).Msg("cleared all users")
	m.bus.Publish(Event{Kind: EventAllUsersCleared, Payload: n})
}

// byName returns the user whose folded name matches. Callers hold mu.
func (m *UserManager) byName(name string) *model.User {
	folded := model.FoldName(name)
	for _, u := range m.users {
		if model.FoldName(u.Name) == folded {
			return u
		}
	}
	return nil
}

// indexOf returns the collection index of id, or -1. Callers hold mu.
func (m *UserManager) indexOf(id string) int {
	return slices.IndexFunc(m.users, func(u *model.User) bool { return u.ID == id })
}

func (m *UserManager) notFound(op, id string) error {
	err := fmt.Errorf("%s %s: %w", op, id, model.ErrNotFound)
	m.log.Warn().Err(err).Msg(op)
	return err
}

func cloneUsers(users []*model.User) []model.User {
	out := make([]model.User, len(users))
	for i, u := range users {
		out[i] = *u
	}
	return out
}
