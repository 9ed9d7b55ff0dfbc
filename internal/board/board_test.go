package board_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/tests/testutil"
)

func newBoard(t *testing.T, gw *store.Gateway, sample bool) *board.Board {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.SampleData = sample
	b := board.New(gw, cfg, zerolog.Nop())
	t.Cleanup(b.Users().Close)
	return b
}

func TestSampleDataOnFirstRun(t *testing.T) {
	gw := testutil.NewTestGateway(t)
	b := newBoard(t, gw, true)

	users := b.Users().AllUsers()
	require.Len(t, users, 2)
	tasks := b.Tasks().AllTasks()
	require.Len(t, tasks, 5)
	assert.Equal(t, model.StatusDone, tasks[2].Status)
	assert.Len(t, b.Tasks().TasksByStatus(model.StatusDone), 1)

	active, ok := b.Users().ActiveUser()
	require.True(t, ok)
	assert.Equal(t, "Jan Kowalski", active.Name)

	anna, ok := b.Users().UserByName("anna nowak")
	require.True(t, ok)
	assert.Equal(t, 2, anna.TaskCount)
	assert.Equal(t, 1, anna.CompletedTaskCount)

	created, err := b.SeedIfEmpty()
	require.NoError(t, err)
	assert.False(t, created)

	// A second board over the same storage loads rather than reseeds.
	again := newBoard(t, gw, true)
	assert.Len(t, again.Tasks().AllTasks(), 5)
	assert.Len(t, again.Users().AllUsers(), 2)
}

func TestNoSampleDataWhenDisabled(t *testing.T) {
	b := newBoard(t, testutil.NewTestGateway(t), false)
	assert.Empty(t, b.Users().AllUsers())
	assert.Empty(t, b.Tasks().AllTasks())
}

func TestCreateDemoData(t *testing.T) {
	b := newBoard(t, testutil.NewTestGateway(t), true)
	require.NoError(t, b.CreateDemoData())

	users := b.Users().AllUsers()
	require.Len(t, users, 4)
	assert.Len(t, b.Tasks().AllTasks(), 10)
	assert.Len(t, b.Tasks().TasksByStatus(model.StatusDone), 4)
	_, ok := b.Users().UserByName("Jan Kowalski")
	assert.False(t, ok, "demo data replaces existing users")

	active, ok := b.Users().ActiveUser()
	require.True(t, ok)
	assert.Equal(t, "Maria Kowalska", active.Name)

	want := map[string][2]int{
		"Maria Kowalska":  {3, 1},
		"Piotr Nowak":     {3, 1},
		"Anna Wiśniewska": {2, 1},
		"Tomasz Wójcik":   {2, 1},
	}
	for _, u := range users {
		assert.Equal(t, want[u.Name], [2]int{u.TaskCount, u.CompletedTaskCount}, u.Name)
	}
}

func TestExportImportIntoEmptyStore(t *testing.T) {
	src := newBoard(t, testutil.NewTestGateway(t), true)
	require.NoError(t, src.Tasks().MoveTask(src.Tasks().AllTasks()[4].ID, 0))

	var buf bytes.Buffer
	require.NoError(t, src.Export(&buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)

	dst := newBoard(t, testutil.NewTestGateway(t), false)
	require.NoError(t, dst.Import(&buf))

	assert.Equal(t, src.Tasks().AllTasks(), dst.Tasks().AllTasks())
	assert.Equal(t, src.Users().AllUsers(), dst.Users().AllUsers())
	assert.Equal(t, src.Settings(), dst.Settings())

	srcActive, _ := src.Users().ActiveUser()
	dstActive, ok := dst.Users().ActiveUser()
	require.True(t, ok)
	assert.Equal(t, srcActive.ID, dstActive.ID)
}

func TestImportRejectsInvalidBackup(t *testing.T) {
	gw := testutil.NewTestGateway(t)
	b := newBoard(t, gw, true)
	before := b.Tasks().AllTasks()
	storedUsers := gw.LoadUsers()

	cases := map[string]string{
		"NotJSON":        "this is not json",
		"MissingUsers":   `{"tasks":[],"settings":{},"version":"1.0"}`,
		"MissingVersion": `{"tasks":[],"users":[],"settings":{}}`,
		"NullSettings":   `{"tasks":[],"users":[],"settings":null,"version":"1.0"}`,
		"MalformedTasks": `{"tasks":{},"users":[],"settings":{},"version":"1.0"}`,
		"MalformedUsers": `{"tasks":[],"users":{"id":"u1"},"settings":{},"version":"1.0"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := b.Import(strings.NewReader(raw))
			require.ErrorIs(t, err, model.ErrValidation)
			assert.Equal(t, before, b.Tasks().AllTasks())
			assert.Equal(t, before, gw.LoadTasks())
			assert.Equal(t, storedUsers, gw.LoadUsers())
		})
	}
}

func TestImportWithoutActiveUserKeepsStoredOne(t *testing.T) {
	b := newBoard(t, testutil.NewTestGateway(t), true)
	active, ok := b.Users().ActiveUser()
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, b.Export(&buf))
	raw := strings.Replace(buf.String(), `"activeUser": "`+active.ID+`"`, `"activeUser": null`, 1)
	require.NotEqual(t, buf.String(), raw)

	require.NoError(t, b.Import(strings.NewReader(raw)))
	still, ok := b.Users().ActiveUser()
	require.True(t, ok)
	assert.Equal(t, active.ID, still.ID)
}

func TestExportImportFile(t *testing.T) {
	src := newBoard(t, testutil.NewTestGateway(t), true)
	path := filepath.Join(t.TempDir(), board.BackupFileName(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, strings.HasSuffix(path, "taskboard_backup_2024-06-01.json"))

	require.NoError(t, src.ExportFile(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	dst := newBoard(t, testutil.NewTestGateway(t), false)
	require.NoError(t, dst.ImportFile(path))
	assert.Len(t, dst.Tasks().AllTasks(), 5)

	require.Error(t, dst.ImportFile(filepath.Join(t.TempDir(), "missing.json")))
}

func TestUpdateSettingsAppliesAndPersists(t *testing.T) {
	gw := testutil.NewTestGateway(t)
	b := newBoard(t, gw, false)
	assert.Equal(t, model.SortPosition, b.Tasks().SortBy())

	s := b.Settings()
	s.SortBy = model.SortPriority
	s.DefaultCategory = "garden"
	require.NoError(t, b.UpdateSettings(s))

	assert.Equal(t, model.SortPriority, b.Tasks().SortBy())
	assert.Equal(t, model.CategoryPersonal, b.Settings().DefaultCategory)

	reopened := newBoard(t, gw, false)
	assert.Equal(t, model.SortPriority, reopened.Tasks().SortBy())
	assert.Equal(t, b.Settings(), reopened.Settings())
}

func TestAutosaveEnabledNeedsConfigAndSetting(t *testing.T) {
	b := newBoard(t, testutil.NewTestGateway(t), false)
	assert.True(t, b.AutosaveEnabled())

	s := b.Settings()
	s.AutoSave = false
	require.NoError(t, b.UpdateSettings(s))
	assert.False(t, b.AutosaveEnabled())

	s.AutoSave = true
	require.NoError(t, b.UpdateSettings(s))
	b.Config().Autosave.Enabled = false
	assert.False(t, b.AutosaveEnabled())
}

func TestClearAll(t *testing.T) {
	b := newBoard(t, testutil.NewTestGateway(t), true)
	require.NoError(t, b.ClearAll())

	assert.Empty(t, b.Tasks().AllTasks())
	assert.Empty(t, b.Users().AllUsers())
	_, ok := b.Users().ActiveUser()
	assert.False(t, ok)
	assert.Equal(t, model.DefaultSettings(), b.Settings())

	stats := b.Stats()
	assert.Zero(t, stats.Tasks.Total)
	assert.Zero(t, stats.Users.TotalUsers)
	assert.Zero(t, stats.CompletedPercent)
}

func TestStats(t *testing.T) {
	b := newBoard(t, testutil.NewTestGateway(t), true)
	stats := b.Stats()

	assert.Equal(t, 5, stats.Tasks.Total)
	assert.Equal(t, 20, stats.CompletedPercent)
	assert.Equal(t, 80, stats.PendingPercent)
	assert.Equal(t, 2, stats.Tasks.ByPriority[model.PriorityHigh])
	assert.Equal(t, 2, stats.Tasks.ByCategory[model.CategoryWork])
	assert.Equal(t, 2, stats.Users.TotalUsers)
	assert.Equal(t, "Jan Kowalski", stats.Users.ActiveUser)
	assert.Equal(t, "Anna Nowak", stats.Users.MostProductiveUser)
	assert.True(t, stats.StorageAvailable)
	assert.Positive(t, stats.StorageTotalBytes)

	info := b.StorageInfo()
	assert.Positive(t, info.TasksBytes)
	assert.NotEqual(t, "N/A", info.TasksSize())
}

func TestSaveAllReportsStorageFailure(t *testing.T) {
	backend := testutil.NewFlakyBackend(testutil.NewTestBackend(t))
	b := newBoard(t, store.NewGateway(backend), true)
	require.NoError(t, b.SaveAll())

	backend.Fail.Store(true)
	require.ErrorIs(t, b.SaveAll(), model.ErrStorage)
	assert.Len(t, b.Tasks().AllTasks(), 5, "in-memory state survives a failed save")
}

func TestOpenGateway(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "taskboard.db")
		gw, err := board.OpenGateway(model.StorageConfig{Backend: model.BackendSQLite, Path: path}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = gw.Close() })

		assert.True(t, gw.Available())
		assert.True(t, gw.SaveActiveUser("user_1"))
		assert.FileExists(t, path)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		_, err := board.OpenGateway(model.StorageConfig{Backend: "floppy"}, zerolog.Nop())
		require.ErrorIs(t, err, model.ErrValidation)
	})
}
