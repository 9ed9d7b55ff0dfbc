// Package board wires the storage gateway, the task and user managers,
// and the persisted settings into one application context.
package board

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// Board is the application context shared by the UI and the autosaver.
type Board struct {
	cfg   *model.AppConfig
	gw    *store.Gateway
	tasks *manager.TaskManager
	users *manager.UserManager
	log   zerolog.Logger

	mu       sync.RWMutex
	settings model.Settings
}

// OpenGateway opens the backend selected by cfg and wraps it in a
// Gateway with the configured quota.
func OpenGateway(cfg model.StorageConfig, log zerolog.Logger) (*store.Gateway, error) {
	var backend store.Backend

	switch cfg.Backend {
	case model.BackendSQLite, "":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		b, err := store.NewSQLiteBackend(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		backend = b
	case model.BackendKeyring:
		ring, err := store.OpenKeyring(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening keyring storage: %w", err)
		}
		backend = store.NewKeyringBackend(ring)
	default:
		return nil, fmt.Errorf("unknown storage backend %q: %w", cfg.Backend, model.ErrValidation)
	}

	return store.NewGateway(backend,
		store.WithLogger(log),
		store.WithQuota(cfg.QuotaBytes),
	), nil
}

// New builds the managers over gw, restores settings and, when the
// configuration asks for it, seeds sample data into an empty store.
func New(gw *store.Gateway, cfg *model.AppConfig, log zerolog.Logger, opts ...manager.Option) *Board {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		log.Warn().Err(err).Str("locale", cfg.Locale).Msg("unknown locale, using English")
		tag = language.English
	}
	opts = append([]manager.Option{manager.WithLogger(log), manager.WithLocale(tag)}, opts...)

	tasks := manager.NewTaskManager(gw, opts...)
	b := &Board{
		cfg:   cfg,
		gw:    gw,
		tasks: tasks,
		users: manager.NewUserManager(gw, tasks, opts...),
		log:   log.With().Str("component", "board").Logger(),
	}
	b.loadSettings()

	if cfg.SampleData {
		if _, err := b.SeedIfEmpty(); err != nil {
			b.log.Error().Err(err).Msg("creating sample data")
		}
	}
	return b
}

// Tasks returns the task manager.
func (b *Board) Tasks() *manager.TaskManager { return b.tasks }

// Users returns the user manager.
func (b *Board) Users() *manager.UserManager { return b.users }

// Config returns the configuration the board was built with.
func (b *Board) Config() *model.AppConfig { return b.cfg }

// Close detaches the managers and closes the storage backend.
func (b *Board) Close() error {
	b.users.Close()
	return b.gw.Close()
}

func (b *Board) loadSettings() {
	s := b.gw.LoadSettings()
	b.mu.Lock()
	b.settings = s
	b.mu.Unlock()
	b.applySettings(s)
}

func (b *Board) applySettings(s model.Settings) {
	if s.SortBy == b.tasks.SortBy() {
		return
	}
	if err := b.tasks.SetSortBy(s.SortBy); err != nil {
		b.log.Warn().Err(err).Msg("applying sort setting")
	}
}

// Settings returns the current preferences.
func (b *Board) Settings() model.Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// UpdateSettings normalizes, persists and applies s.
func (b *Board) UpdateSettings(s model.Settings) error {
	s = s.Normalize()
	if !b.gw.SaveSettings(s) {
		return fmt.Errorf("saving settings: %w", model.ErrStorage)
	}
	b.mu.Lock()
	b.settings = s
	b.mu.Unlock()
	b.applySettings(s)
	return nil
}

// AutosaveEnabled reports whether the background save loop should run.
// Both the config flag and the stored autoSave setting must be on.
func (b *Board) AutosaveEnabled() bool {
	return b.cfg.Autosave.Enabled && b.Settings().AutoSave
}

// SaveAll writes tasks, users and the active user.
func (b *Board) SaveAll() error {
	var errs []error
	if !b.tasks.Save() {
		errs = append(errs, errors.New("tasks"))
	}
	if !b.users.Save() {
		errs = append(errs, errors.New("users"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("saving %w: %w", errors.Join(errs...), model.ErrStorage)
	}
	b.log.Debug().Msg("saved all data")
	return nil
}

// Reload rereads every record from storage. Users go first so the
// task reload recomputes their counters against fresh state.
func (b *Board) Reload() {
	b.users.Reload()
	b.tasks.Reload()
	b.loadSettings()
	b.log.Info().Msg("reloaded board")
}

// ClearAll removes every stored record and empties the managers.
func (b *Board) ClearAll() error {
	if !b.gw.ClearAll() {
		return fmt.Errorf("clearing storage: %w", model.ErrStorage)
	}
	b.Reload()
	return nil
}

// StorageInfo reports storage usage.
func (b *Board) StorageInfo() store.Info {
	return b.gw.Info()
}

// AppStats is the summary shown by the stats command.
type AppStats struct {
	Users             manager.UsersStats
	Tasks             manager.TaskStats
	CompletedPercent  int
	PendingPercent    int
	StorageAvailable  bool
	StorageTotalBytes int64
}

// Stats summarizes users, tasks and storage.
func (b *Board) Stats() AppStats {
	tasks := b.tasks.TaskStats("")
	info := b.gw.Info()
	return AppStats{
		Users:             b.users.UsersStats(),
		Tasks:             tasks,
		CompletedPercent:  percent(tasks.Completed, tasks.Total),
		PendingPercent:    percent(tasks.Pending, tasks.Total),
		StorageAvailable:  info.Available,
		StorageTotalBytes: info.TotalBytes,
	}
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
