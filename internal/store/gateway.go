package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/nhle/taskboard/internal/model"
)

// DefaultTimeout bounds every backend call made by the Gateway.
const DefaultTimeout = 5 * time.Second

// Gateway serializes records to JSON and writes them through a Backend.
// Failures never propagate as panics: writes report false and reads
// fall back to the caller's default, with the cause logged.
type Gateway struct {
	backend Backend
	log     zerolog.Logger
	timeout time.Duration
	quota   int64

	mu sync.Mutex
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l.With().Str("component", "store").Logger() }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithQuota caps total stored bytes (keys plus values). Zero disables it.
func WithQuota(bytes int64) Option {
	return func(g *Gateway) { g.quota = bytes }
}

// NewGateway wraps backend.
func NewGateway(backend Backend, opts ...Option) *Gateway {
	g := &Gateway{
		backend: backend,
		log:     zerolog.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.timeout)
}

// Close releases the backend.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.backend.Close()
}

// Available reports whether the backend answers a ping.
func (g *Gateway) Available() bool {
	ctx, cancel := g.ctx()
	defer cancel()
	if err := g.backend.Ping(ctx); err != nil {
		g.log.Warn().Err(err).Msg("storage unavailable")
		return false
	}
	return true
}

// Save encodes value as JSON and stores it under key.
func (g *Gateway) Save(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("encoding record")
		return false
	}
	if err := g.write(key, data); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("saving record")
		return false
	}
	return true
}

// write stores raw bytes, enforcing the quota.
func (g *Gateway) write(key string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := g.ctx()
	defer cancel()

	if err := g.backend.Ping(ctx); err != nil {
		return fmt.Errorf("backend unavailable: %w", errors.Join(model.ErrStorage, err))
	}

	if g.quota > 0 {
		used, err := g.usage(ctx, key)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(data)) > g.quota {
			return fmt.Errorf("writing %s (%s): %w",
				key, humanize.IBytes(uint64(len(data))), ErrQuotaExceeded)
		}
	}

	if err := g.backend.Set(ctx, key, data); err != nil {
		return errors.Join(model.ErrStorage, err)
	}
	return nil
}

// usage sums key and value lengths over every record except skip.
func (g *Gateway) usage(ctx context.Context, skip string) (int64, error) {
	keys, err := g.backend.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("measuring usage: %w", errors.Join(model.ErrStorage, err))
	}
	var total int64
	for _, k := range keys {
		if k == skip {
			continue
		}
		v, err := g.backend.Get(ctx, k)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return 0, fmt.Errorf("measuring usage: %w", errors.Join(model.ErrStorage, err))
		}
		total += int64(len(k) + len(v))
	}
	return total, nil
}

// read returns the raw bytes for key.
func (g *Gateway) read(key string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := g.ctx()
	defer cancel()
	return g.backend.Get(ctx, key)
}

// Load decodes the record under key into a T. It returns def when the
// record is missing, the backend fails or the stored JSON is invalid.
func Load[T any](g *Gateway, key string, def T) T {
	data, err := g.read(key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			g.log.Error().Err(err).Str("key", key).Msg("loading record")
		}
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("decoding record")
		return def
	}
	return v
}

// Remove deletes the record under key.
func (g *Gateway) Remove(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := g.ctx()
	defer cancel()
	if err := g.backend.Remove(ctx, key); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("removing record")
		return false
	}
	return true
}

// SaveTasks persists the full task collection.
func (g *Gateway) SaveTasks(tasks []model.Task) bool {
	if tasks == nil {
		tasks = []model.Task{}
	}
	ok := g.Save(TasksKey, tasks)
	if ok {
		g.log.Debug().Int("count", len(tasks)).Msg("saved tasks")
	}
	return ok
}

// LoadTasks returns the stored tasks, or an empty slice.
func (g *Gateway) LoadTasks() []model.Task {
	tasks := Load(g, TasksKey, []model.Task{})
	g.log.Debug().Int("count", len(tasks)).Msg("loaded tasks")
	return tasks
}

// SaveUsers persists the full user collection.
func (g *Gateway) SaveUsers(users []model.User) bool {
	if users == nil {
		users = []model.User{}
	}
	ok := g.Save(UsersKey, users)
	if ok {
		g.log.Debug().Int("count", len(users)).Msg("saved users")
	}
	return ok
}

// LoadUsers returns the stored users, or an empty slice.
func (g *Gateway) LoadUsers() []model.User {
	users := Load(g, UsersKey, []model.User{})
	g.log.Debug().Int("count", len(users)).Msg("loaded users")
	return users
}

// SaveActiveUser persists the active user id. An empty id is stored as null.
func (g *Gateway) SaveActiveUser(id string) bool {
	if id == "" {
		return g.Save(ActiveUserKey, nil)
	}
	return g.Save(ActiveUserKey, id)
}

// LoadActiveUser returns the stored active user id, or "".
func (g *Gateway) LoadActiveUser() string {
	id := Load[*string](g, ActiveUserKey, nil)
	if id == nil {
		return ""
	}
	return *id
}

// SaveSettings persists the application settings.
func (g *Gateway) SaveSettings(s model.Settings) bool {
	return g.Save(SettingsKey, s)
}

// LoadSettings returns the stored settings merged over the defaults.
func (g *Gateway) LoadSettings() model.Settings {
	s := model.DefaultSettings()
	raw := Load[json.RawMessage](g, SettingsKey, nil)
	if raw == nil {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		g.log.Error().Err(err).Msg("decoding settings")
		return model.DefaultSettings()
	}
	return s.Normalize()
}

// SnapshotVersion is the format version written by ExportAll.
const SnapshotVersion = "1.0"

// Snapshot is the full exported state. Records are kept as raw JSON so
// an import writes exactly what was exported.
type Snapshot struct {
	Tasks      json.RawMessage `json:"tasks"`
	Users      json.RawMessage `json:"users"`
	ActiveUser json.RawMessage `json:"activeUser"`
	Settings   json.RawMessage `json:"settings"`
	ExportDate time.Time       `json:"exportDate"`
	Version    string          `json:"version"`
}

// present reports whether a raw record carries a non-null value.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Validate checks that the snapshot carries the records a restore needs
// and that each one decodes into its stored type.
func (s Snapshot) Validate() error {
	var missing []string
	if !present(s.Tasks) {
		missing = append(missing, "tasks")
	}
	if !present(s.Users) {
		missing = append(missing, "users")
	}
	if !present(s.Settings) {
		missing = append(missing, "settings")
	}
	if s.Version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid backup, missing %v: %w", missing, model.ErrValidation)
	}

	var (
		tasks    []model.Task
		users    []model.User
		active   *string
		settings model.Settings
	)
	records := []struct {
		name string
		raw  json.RawMessage
		dst  any
	}{
		{"tasks", s.Tasks, &tasks},
		{"users", s.Users, &users},
		{"activeUser", s.ActiveUser, &active},
		{"settings", s.Settings, &settings},
	}
	for _, r := range records {
		if !present(r.raw) {
			continue
		}
		if err := json.Unmarshal(r.raw, r.dst); err != nil {
			return fmt.Errorf("invalid backup, malformed %s: %w: %w", r.name, model.ErrValidation, err)
		}
	}
	return nil
}

// ExportAll captures every record. Missing records export as their
// empty defaults.
func (g *Gateway) ExportAll() Snapshot {
	raw := func(key string, def string) json.RawMessage {
		data, err := g.read(key)
		if err != nil || !json.Valid(data) {
			return json.RawMessage(def)
		}
		return json.RawMessage(data)
	}

	settings, err := json.Marshal(g.LoadSettings())
	if err != nil {
		settings = []byte("{}")
	}

	return Snapshot{
		Tasks:      raw(TasksKey, "[]"),
		Users:      raw(UsersKey, "[]"),
		ActiveUser: raw(ActiveUserKey, "null"),
		Settings:   settings,
		ExportDate: model.Now(),
		Version:    SnapshotVersion,
	}
}

// ImportAll writes every present record of s. Absent or null records
// leave the stored value untouched.
func (g *Gateway) ImportAll(s Snapshot) bool {
	records := []struct {
		key string
		raw json.RawMessage
	}{
		{TasksKey, s.Tasks},
		{UsersKey, s.Users},
		{ActiveUserKey, s.ActiveUser},
		{SettingsKey, s.Settings},
	}

	for _, r := range records {
		if !present(r.raw) {
			continue
		}
		if !json.Valid(r.raw) {
			g.log.Error().Str("key", r.key).Msg("import record is not valid JSON")
			return false
		}
		if err := g.write(r.key, r.raw); err != nil {
			g.log.Error().Err(err).Str("key", r.key).Msg("importing record")
			return false
		}
	}
	g.log.Info().Msg("imported data")
	return true
}

// ClearAll removes every board record.
func (g *Gateway) ClearAll() bool {
	ok := true
	for _, key := range RecordKeys {
		if !g.Remove(key) {
			ok = false
		}
	}
	if ok {
		g.log.Info().Msg("cleared all data")
	}
	return ok
}

// Info describes current storage usage.
type Info struct {
	Available     bool
	TotalBytes    int64
	TasksBytes    int64
	UsersBytes    int64
	SettingsBytes int64
	ItemsCount    int
	QuotaBytes    int64
}

// TotalSize returns the humanized total, or "N/A" when unavailable.
func (i Info) TotalSize() string { return i.size(i.TotalBytes) }

// TasksSize returns the humanized size of the tasks record.
func (i Info) TasksSize() string { return i.size(i.TasksBytes) }

// UsersSize returns the humanized size of the users record.
func (i Info) UsersSize() string { return i.size(i.UsersBytes) }

// SettingsSize returns the humanized size of the settings record.
func (i Info) SettingsSize() string { return i.size(i.SettingsBytes) }

func (i Info) size(n int64) string {
	if !i.Available {
		return "N/A"
	}
	return humanize.IBytes(uint64(n))
}

// Info reports per-record sizes and the number of stored items.
func (g *Gateway) Info() Info {
	if !g.Available() {
		return Info{QuotaBytes: g.quota}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := g.ctx()
	defer cancel()

	info := Info{Available: true, QuotaBytes: g.quota}
	keys, err := g.backend.Keys(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("listing keys")
		return Info{QuotaBytes: g.quota}
	}
	for _, k := range keys {
		v, err := g.backend.Get(ctx, k)
		if err != nil {
			continue
		}
		n := int64(len(v))
		info.ItemsCount++
		info.TotalBytes += int64(len(k)) + n
		switch k {
		case TasksKey:
			info.TasksBytes = n
		case UsersKey:
			info.UsersBytes = n
		case SettingsKey:
			info.SettingsBytes = n
		}
	}
	return info
}
