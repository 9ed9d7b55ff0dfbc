package manager_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/model"
)

func addTask(t *testing.T, m *manager.TaskManager, content, userID string, p model.Priority, c model.Category) model.Task {
	t.Helper()
	task, err := m.AddTask(content, userID, p, c)
	require.NoError(t, err)
	return *task
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func contents(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Content
	}
	return out
}

func TestAddTask(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)

	seen := map[string]bool{}
	for i, content := range []string{"one", "  two  ", "three"} {
		task := addTask(t, f.tasks, content, "user_1", model.PriorityLow, model.CategoryWork)
		assert.Equal(t, model.StatusPending, task.Status)
		assert.Nil(t, task.CompletedAt)
		assert.Equal(t, i, task.Position)
		assert.False(t, seen[task.ID], "ids must be unique")
		seen[task.ID] = true
	}

	assert.Equal(t, "two", f.tasks.AllTasks()[1].Content)
	assert.Equal(t, []manager.EventKind{
		manager.EventTaskAdded, manager.EventTaskAdded, manager.EventTaskAdded,
	}, rec.kinds())
	payload, ok := rec.last().Payload.(model.Task)
	require.True(t, ok)
	assert.Equal(t, "three", payload.Content)
}

func TestAddTaskDefaults(t *testing.T) {
	f := newFixture(t)
	task := addTask(t, f.tasks, "Defaults", "user_1", "", "")
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.CategoryPersonal, task.Category)
}

func TestAddTaskValidation(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)

	_, err := f.tasks.AddTask("   ", "user_1", model.PriorityHigh, model.CategoryWork)
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = f.tasks.AddTask("content", "", model.PriorityHigh, model.CategoryWork)
	require.ErrorIs(t, err, model.ErrValidation)

	assert.Empty(t, f.tasks.AllTasks())
	assert.Empty(t, rec.kinds())
}

func TestToggleTaskStatusIsItsOwnInverse(t *testing.T) {
	f := newFixture(t)
	task := addTask(t, f.tasks, "Toggle me", "user_1", model.PriorityHigh, model.CategoryWork)

	require.NoError(t, f.tasks.ToggleTaskStatus(task.ID))
	done, err := f.tasks.TaskByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)

	require.NoError(t, f.tasks.ToggleTaskStatus(task.ID))
	back, err := f.tasks.TaskByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Status, back.Status)
	assert.Equal(t, task.CompletedAt, back.CompletedAt)

	require.ErrorIs(t, f.tasks.ToggleTaskStatus("task_missing"), model.ErrNotFound)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)
	task := addTask(t, f.tasks, "Draft", "user_1", model.PriorityLow, model.CategoryWork)

	err := f.tasks.UpdateTask(task.ID, model.TaskUpdate{
		Content:  model.Ptr("Final"),
		Priority: model.Ptr(model.Priority("urgent")),
		Status:   model.Ptr(model.StatusDone),
	})
	require.NoError(t, err)

	got, err := f.tasks.TaskByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Content)
	assert.Equal(t, model.PriorityLow, got.Priority, "invalid priority is ignored")
	assert.Equal(t, model.CategoryWork, got.Category, "absent field is kept")
	assert.Equal(t, model.StatusDone, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, manager.EventTaskUpdated, rec.last().Kind)

	require.ErrorIs(t, f.tasks.UpdateTask("task_missing", model.TaskUpdate{}), model.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)
	a := addTask(t, f.tasks, "A", "user_1", model.PriorityLow, model.CategoryWork)
	b := addTask(t, f.tasks, "B", "user_1", model.PriorityLow, model.CategoryWork)

	require.NoError(t, f.tasks.DeleteTask(a.ID))
	assert.Equal(t, []string{b.ID}, ids(f.tasks.AllTasks()))
	assert.Equal(t, manager.EventTaskDeleted, rec.last().Kind)
	assert.Equal(t, a.ID, rec.last().Payload.(model.Task).ID)

	err := f.tasks.DeleteTask(a.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func seedMixed(t *testing.T, m *manager.TaskManager) {
	t.Helper()
	addTask(t, m, "Buy milk", "u1", model.PriorityHigh, model.CategoryPersonal)
	addTask(t, m, "write report", "u1", model.PriorityMedium, model.CategoryWork)
	addTask(t, m, "Read book", "u2", model.PriorityLow, model.CategoryHobby)
	addTask(t, m, "Study Go", "u2", model.PriorityHigh, model.CategoryStudy)
	addTask(t, m, "milk the cow", "u2", model.PriorityMedium, model.CategoryWork)
	addTask(t, m, "apple pie", "u1", model.PriorityHigh, model.CategoryHobby)
}

func TestFilteredTasksAreSubsetMatchingFilters(t *testing.T) {
	f := newFixture(t)
	seedMixed(t, f.tasks)
	all := f.tasks.AllTasks()
	require.NoError(t, f.tasks.ToggleTaskStatus(all[1].ID))

	cases := []model.FilterSet{
		{},
		{UserID: "u1"},
		{Status: model.StatusDone},
		{Category: model.CategoryWork},
		{Priority: model.PriorityHigh},
		{SearchText: "MILK"},
		{UserID: "u2", Priority: model.PriorityMedium, SearchText: "cow"},
		{UserID: "nobody"},
	}

	allIDs := map[string]bool{}
	for _, task := range f.tasks.AllTasks() {
		allIDs[task.ID] = true
	}

	for _, fs := range cases {
		f.tasks.ClearFilters()
		f.tasks.SetFilters(model.FilterUpdate{
			UserID:     &fs.UserID,
			Status:     &fs.Status,
			Category:   &fs.Category,
			Priority:   &fs.Priority,
			SearchText: &fs.SearchText,
		})
		assert.Equal(t, fs, f.tasks.Filters())

		view := f.tasks.FilteredTasks()
		assert.Equal(t, len(view), f.tasks.FilteredCount())
		for _, task := range view {
			assert.True(t, allIDs[task.ID])
			assert.True(t, task.MatchesFilters(fs), "%v should match %+v", task.Content, fs)
		}
	}

	f.tasks.ClearFilters()
	f.tasks.SearchTasks("milk")
	assert.ElementsMatch(t, []string{"Buy milk", "milk the cow"}, contents(f.tasks.FilteredTasks()))
}

func TestSetFiltersMergesAndClears(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)

	f.tasks.SetFilters(model.FilterUpdate{UserID: model.Ptr("u1")})
	f.tasks.SetFilters(model.FilterUpdate{Priority: model.Ptr(model.PriorityHigh)})
	assert.Equal(t, model.FilterSet{UserID: "u1", Priority: model.PriorityHigh}, f.tasks.Filters())
	assert.Equal(t, f.tasks.Filters(), rec.last().Payload)

	f.tasks.SetFilters(model.FilterUpdate{UserID: model.Ptr("")})
	assert.Equal(t, model.FilterSet{Priority: model.PriorityHigh}, f.tasks.Filters())

	f.tasks.ClearFilters()
	assert.True(t, f.tasks.Filters().IsEmpty())
	assert.Equal(t, manager.EventFiltersCleared, rec.last().Kind)
}

func TestSortIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedMixed(t, f.tasks)

	for _, key := range model.SortKeys {
		require.NoError(t, f.tasks.SetSortBy(key))
		first := ids(f.tasks.FilteredTasks())
		require.NoError(t, f.tasks.SetSortBy(key))
		assert.Equal(t, first, ids(f.tasks.FilteredTasks()), "sort %s", key)
	}
}

func TestSortOrders(t *testing.T) {
	f := newFixture(t)
	seedMixed(t, f.tasks)

	assert.Equal(t, model.SortPosition, f.tasks.SortBy())
	assert.Equal(t, contents(f.tasks.AllTasks()), contents(f.tasks.FilteredTasks()))

	require.NoError(t, f.tasks.SetSortBy(model.SortPriority))
	assert.Equal(t, []string{
		"Buy milk", "Study Go", "apple pie",
		"write report", "milk the cow",
		"Read book",
	}, contents(f.tasks.FilteredTasks()))

	require.NoError(t, f.tasks.SetSortBy(model.SortAlphabetical))
	assert.Equal(t, []string{
		"apple pie", "Buy milk", "milk the cow", "Read book", "Study Go", "write report",
	}, contents(f.tasks.FilteredTasks()))

	require.NoError(t, f.tasks.SetSortBy(model.SortCreated))
	assert.Equal(t, contents(f.tasks.AllTasks()), contents(f.tasks.FilteredTasks()))
}

func TestAlphabeticalSortIsLocaleAware(t *testing.T) {
	backendFixture := newFixture(t)
	m := manager.NewTaskManager(backendFixture.gw, manager.WithLocale(language.Polish))
	for _, c := range []string{"zebra", "łódź", "lis", "Ćma", "cebula"} {
		addTask(t, m, c, "u1", "", "")
	}
	require.NoError(t, m.SetSortBy(model.SortAlphabetical))
	assert.Equal(t, []string{"cebula", "Ćma", "lis", "łódź", "zebra"}, contents(m.FilteredTasks()))
}

func TestSetSortByRejectsUnknownKey(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)
	require.NoError(t, f.tasks.SetSortBy(model.SortPriority))

	err := f.tasks.SetSortBy("color")
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.SortPriority, f.tasks.SortBy())
	assert.Equal(t, []manager.EventKind{manager.EventSortChanged}, rec.kinds())
}

func TestMoveTaskScenario(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	a := addTask(t, f.tasks, "A", "u1", "", "")
	b := addTask(t, f.tasks, "B", "u1", "", "")
	c := addTask(t, f.tasks, "C", "u1", "", "")
	f.tasks.Subscribe(rec.observe)

	require.NoError(t, f.tasks.MoveTask(c.ID, 0))

	all := f.tasks.AllTasks()
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, ids(all))
	for i, task := range all {
		assert.Equal(t, i, task.Position)
	}
	assert.Equal(t, []string{"C", "A", "B"}, contents(f.tasks.FilteredTasks()))

	moved, ok := rec.last().Payload.(manager.TaskMoved)
	require.True(t, ok)
	assert.Equal(t, c.ID, moved.Task.ID)
	assert.Equal(t, 2, moved.FromIndex)
	assert.Equal(t, 0, moved.ToIndex)
}

func TestMoveTaskClampsAndPreservesCount(t *testing.T) {
	f := newFixture(t)
	seedMixed(t, f.tasks)
	first := f.tasks.AllTasks()[0]

	for _, idx := range []int{-5, 99, 3, 0, 5} {
		require.NoError(t, f.tasks.MoveTask(first.ID, idx))
		all := f.tasks.AllTasks()
		require.Len(t, all, 6)
		for i, task := range all {
			assert.Equal(t, i, task.Position)
		}
	}

	require.NoError(t, f.tasks.MoveTask(first.ID, 99))
	all := f.tasks.AllTasks()
	assert.Equal(t, first.ID, all[len(all)-1].ID)

	require.ErrorIs(t, f.tasks.MoveTask("task_missing", 0), model.ErrNotFound)
}

func TestTaskStatsScenario(t *testing.T) {
	f := newFixture(t)
	u, err := f.users.AddUser("Anna")
	require.NoError(t, err)
	addTask(t, f.tasks, "Buy milk", u.ID, model.PriorityHigh, model.CategoryPersonal)
	addTask(t, f.tasks, "Other", "someone_else", model.PriorityLow, model.CategoryWork)

	s := f.tasks.TaskStats(u.ID)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 0, s.Completed)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, map[model.Priority]int{
		model.PriorityHigh: 1, model.PriorityMedium: 0, model.PriorityLow: 0,
	}, s.ByPriority)
	assert.Equal(t, 1, s.ByCategory[model.CategoryPersonal])
	assert.Equal(t, 1, s.ByStatus[model.StatusPending])

	assert.Equal(t, 2, f.tasks.TaskStats("").Total)
}

func TestQueriesReturnCopies(t *testing.T) {
	f := newFixture(t)
	task := addTask(t, f.tasks, "Original", "u1", model.PriorityHigh, model.CategoryWork)

	all := f.tasks.AllTasks()
	all[0].Content = "mutated"
	view := f.tasks.FilteredTasks()
	view[0].Priority = model.PriorityLow

	got, err := f.tasks.TaskByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Content)
	assert.Equal(t, model.PriorityHigh, got.Priority)

	assert.Len(t, f.tasks.TasksByUser("u1"), 1)
	assert.Len(t, f.tasks.TasksByStatus(model.StatusPending), 1)
	assert.Len(t, f.tasks.TasksByCategory(model.CategoryWork), 1)
	assert.Len(t, f.tasks.TasksByPriority(model.PriorityLow), 0)
}

func TestTasksPersistAcrossManagers(t *testing.T) {
	f := newFixture(t)
	seedMixed(t, f.tasks)
	first := f.tasks.AllTasks()[0]
	require.NoError(t, f.tasks.ToggleTaskStatus(first.ID))
	require.NoError(t, f.tasks.MoveTask(first.ID, 3))

	reloaded := manager.NewTaskManager(f.gw)
	assert.Equal(t, f.tasks.AllTasks(), reloaded.AllTasks())
}

func TestStorageFailureKeepsMemoryAuthoritative(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail.Store(true)

	task, err := f.tasks.AddTask("offline", "u1", "", "")
	require.NoError(t, err)
	assert.Len(t, f.tasks.AllTasks(), 1)
	assert.False(t, f.tasks.Save())

	f.backend.Fail.Store(false)
	assert.True(t, f.tasks.Save())
	assert.Equal(t, task.ID, f.gw.LoadTasks()[0].ID)
}

func TestObserversAreIsolated(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(func(manager.Event) error { panic("boom") })
	f.tasks.Subscribe(func(manager.Event) error { return errors.New("observer failed") })
	f.tasks.Subscribe(rec.observe)

	_, err := f.tasks.AddTask("still delivered", "u1", "", "")
	require.NoError(t, err)
	assert.Equal(t, []manager.EventKind{manager.EventTaskAdded}, rec.kinds())
}

func TestReentrantPublishIsQueued(t *testing.T) {
	f := newFixture(t)
	var order []string
	f.tasks.Subscribe(func(e manager.Event) error {
		if e.Kind != manager.EventTaskAdded {
			return nil
		}
		task := e.Payload.(model.Task)
		order = append(order, "first:"+task.Content)
		if task.Content == "outer" {
			_, err := f.tasks.AddTask("inner", task.UserID, "", "")
			return err
		}
		return nil
	})
	f.tasks.Subscribe(func(e manager.Event) error {
		if e.Kind == manager.EventTaskAdded {
			order = append(order, "second:"+e.Payload.(model.Task).Content)
		}
		return nil
	})

	_, err := f.tasks.AddTask("outer", "u1", "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"first:outer", "second:outer",
		"first:inner", "second:inner",
	}, order)
	assert.Len(t, f.tasks.AllTasks(), 2)
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	unsubscribe := f.tasks.Subscribe(rec.observe)
	addTask(t, f.tasks, "seen", "u1", "", "")
	unsubscribe()
	unsubscribe()
	addTask(t, f.tasks, "unseen", "u1", "", "")
	assert.Len(t, rec.kinds(), 1)
}

func TestDeleteAllUserTasks(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)
	seedMixed(t, f.tasks)

	n, err := f.tasks.DeleteAllUserTasks("u2")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, f.tasks.TasksByUser("u2"))
	assert.Len(t, f.tasks.AllTasks(), 3)
	assert.Equal(t, manager.UserTasksDeleted{UserID: "u2", Count: 3}, rec.last().Payload)

	n, err = f.tasks.DeleteAllUserTasks("u2")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.tasks.DeleteAllUserTasks("")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestExportImportTasks(t *testing.T) {
	src := newFixture(t)
	seedMixed(t, src.tasks)
	data, err := src.tasks.ExportTasks("u1")
	require.NoError(t, err)

	dst := newFixture(t)
	n, err := dst.tasks.ImportTasks(data)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, ids(src.tasks.TasksByUser("u1")), ids(dst.tasks.AllTasks()))
	for i, task := range dst.tasks.AllTasks() {
		assert.Equal(t, i, task.Position)
	}

	n, err = dst.tasks.ImportTasks(data)
	require.NoError(t, err)
	assert.Zero(t, n, "duplicate ids are skipped")

	_, err = dst.tasks.ImportTasks([]byte("not json"))
	require.ErrorIs(t, err, model.ErrValidation)

	reloaded := manager.NewTaskManager(dst.gw)
	assert.Len(t, reloaded.AllTasks(), 3)
}

func TestImportTasksAppendsAfterExisting(t *testing.T) {
	f := newFixture(t)
	a := addTask(t, f.tasks, "A", "u1", model.PriorityLow, model.CategoryWork)
	b := addTask(t, f.tasks, "B", "u1", model.PriorityLow, model.CategoryWork)

	data := []byte(`[
		{"id":"task_x","content":"  X  ","userId":"u1","position":0},
		{"id":"task_blank","content":"   ","userId":"u1","position":1}
	]`)
	n, err := f.tasks.ImportTasks(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "whitespace-only content is skipped")

	all := f.tasks.AllTasks()
	assert.Equal(t, []string{a.ID, b.ID, "task_x"}, ids(all))
	assert.Equal(t, "X", all[2].Content)
	assert.Equal(t, 2, all[2].Position)
	assert.Equal(t, ids(all), ids(f.tasks.FilteredTasks()))

	require.NoError(t, f.tasks.MoveTask("task_x", 0))
	assert.Equal(t, []string{"task_x", a.ID, b.ID}, ids(f.tasks.FilteredTasks()))
}

func TestReloadRenumbersCollidingPositions(t *testing.T) {
	f := newFixture(t)
	stored := []model.Task{
		{ID: "task_a", Content: "A", UserID: "u1", Position: 3},
		{ID: "task_b", Content: "B", UserID: "u1", Position: 0},
		{ID: "task_c", Content: "C", UserID: "u1", Position: 0},
	}
	require.True(t, f.gw.SaveTasks(stored))

	f.tasks.Reload()
	all := f.tasks.AllTasks()
	assert.Equal(t, []string{"task_a", "task_b", "task_c"}, ids(all))
	for i, task := range all {
		assert.Equal(t, i, task.Position)
	}
	assert.Equal(t, ids(all), ids(f.tasks.FilteredTasks()))
}

func TestClearAllTasksAndReload(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.tasks.Subscribe(rec.observe)
	seedMixed(t, f.tasks)

	f.tasks.ClearAllTasks()
	assert.Empty(t, f.tasks.AllTasks())
	assert.Empty(t, f.tasks.FilteredTasks())
	assert.Equal(t, manager.EventAllTasksCleared, rec.last().Kind)

	require.True(t, f.gw.SaveTasks([]model.Task{}))
	f.tasks.Reload()
	assert.Equal(t, manager.EventTasksLoaded, rec.last().Kind)
	assert.Equal(t, 0, rec.last().Payload)
	assert.Empty(t, f.gw.LoadTasks())
}
