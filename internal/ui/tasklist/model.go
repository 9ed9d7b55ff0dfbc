package tasklist

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// UserDirectory resolves task owners for display and the "mine" filter.
type UserDirectory interface {
	UserByID(id string) (model.User, error)
	ActiveUser() (model.User, bool)
}

// NewTaskMsg asks the parent to open the create form.
type NewTaskMsg struct{}

// EditTaskMsg asks the parent to open the edit form for Task.
type EditTaskMsg struct {
	Task model.Task
}

// SortRequestMsg asks the parent to switch the sort key. The parent
// persists it as a setting.
type SortRequestMsg struct {
	Key model.SortKey
}

// ShowCompletedMsg asks the parent to persist the completed-task
// visibility preference.
type ShowCompletedMsg struct {
	Show bool
}

// ResultMsg reports the outcome of a list action.
type ResultMsg struct {
	Notice string
	Err    error
}

type confirmBinding struct {
	ok bool
}

// Model is the main task list view.
type Model struct {
	list        list.Model
	tasks       *manager.TaskManager
	users       UserDirectory
	keys        *keys.KeyMap
	searchMode  bool
	searchInput textinput.Model
	confirm     *huh.Form
	cb          *confirmBinding
	deleteID    string
	hideDone    bool
	width       int
	height      int
}

// New creates a task list over tm.
func New(tm *manager.TaskManager, users UserDirectory, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search tasks..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		tasks:       tm,
		users:       users,
		keys:        k,
		searchInput: si,
		cb:          &confirmBinding{},
		width:       width,
		height:      height,
	}
}

// Init loads the current view.
func (m Model) Init() tea.Cmd {
	return m.Refresh()
}

// Refresh rebuilds the items from the manager's filtered view.
func (m *Model) Refresh() tea.Cmd {
	tasks := m.tasks.FilteredTasks()
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		if m.hideDone && t.IsCompleted() {
			continue
		}
		items = append(items, TaskItem{Task: t, Owner: m.ownerName(t.UserID)})
	}
	m.list.Title = m.title(len(items))
	return m.list.SetItems(items)
}

func (m Model) ownerName(id string) string {
	u, err := m.users.UserByID(id)
	if err != nil {
		return ""
	}
	return u.Name
}

func (m Model) title(shown int) string {
	t := fmt.Sprintf("Tasks (%d) sorted by %s", shown, m.tasks.SortBy())
	if m.hideDone {
		t += ", done hidden"
	}
	return t
}

// SetShowCompleted shows or hides completed tasks.
func (m *Model) SetShowCompleted(show bool) tea.Cmd {
	m.hideDone = !show
	return m.Refresh()
}

// Selected returns the focused task.
func (m Model) Selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Capturing reports whether the list is consuming keys itself (search
// input or delete confirmation), so global shortcuts must not fire.
func (m Model) Capturing() bool {
	return m.searchMode || m.confirm != nil
}

// Update handles messages for the task list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirm != nil {
		return m.updateConfirm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.tasks.SearchTasks(strings.TrimSpace(m.searchInput.Value()))
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.tasks.SearchTasks("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.tasks.Filters().SearchText)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.NewTask):
		return m, func() tea.Msg { return NewTaskMsg{} }

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.Selected(); ok {
			return m, func() tea.Msg { return EditTaskMsg{Task: t} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.Selected(); ok {
			return m, m.toggle(t.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.deleteID = t.ID
		m.cb.ok = false
		m.confirm = m.buildConfirm(t)
		return m, m.confirm.Init()

	case key.Matches(msg, m.keys.MoveUp):
		cmd := m.move(-1)
		return m, cmd

	case key.Matches(msg, m.keys.MoveDown):
		cmd := m.move(1)
		return m, cmd

	case key.Matches(msg, m.keys.FilterStatus):
		next := cycle([]model.Status{"", model.StatusPending, model.StatusDone}, m.tasks.Filters().Status)
		m.tasks.SetFilters(model.FilterUpdate{Status: &next})
		return m, nil

	case key.Matches(msg, m.keys.FilterPriority):
		next := cycle(append([]model.Priority{""}, model.Priorities...), m.tasks.Filters().Priority)
		m.tasks.SetFilters(model.FilterUpdate{Priority: &next})
		return m, nil

	case key.Matches(msg, m.keys.FilterCategory):
		next := cycle(append([]model.Category{""}, model.Categories...), m.tasks.Filters().Category)
		m.tasks.SetFilters(model.FilterUpdate{Category: &next})
		return m, nil

	case key.Matches(msg, m.keys.FilterMine):
		return m, m.toggleMine()

	case key.Matches(msg, m.keys.ClearFilters):
		m.searchInput.Reset()
		m.tasks.ClearFilters()
		return m, nil

	case key.Matches(msg, m.keys.HideCompleted):
		show := m.hideDone
		return m, func() tea.Msg { return ShowCompletedMsg{Show: show} }

	case key.Matches(msg, m.keys.CycleSort):
		next := cycle(model.SortKeys, m.tasks.SortBy())
		return m, func() tea.Msg { return SortRequestMsg{Key: next} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// cycle returns the value after cur in values, wrapping around.
func cycle[T comparable](values []T, cur T) T {
	i := slices.Index(values, cur)
	return values[(i+1)%len(values)]
}

func (m Model) toggleMine() tea.Cmd {
	if m.tasks.Filters().UserID != "" {
		empty := ""
		m.tasks.SetFilters(model.FilterUpdate{UserID: &empty})
		return nil
	}
	u, ok := m.users.ActiveUser()
	if !ok {
		return result("Select an active user first", nil)
	}
	m.tasks.SetFilters(model.FilterUpdate{UserID: &u.ID})
	return nil
}

func (m Model) toggle(id string) tea.Cmd {
	tm := m.tasks
	return func() tea.Msg {
		if err := tm.ToggleTaskStatus(id); err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{}
	}
}

// move swaps the focused task with its visible neighbour. Reordering
// only makes sense in manual (position) order.
func (m *Model) move(delta int) tea.Cmd {
	if m.tasks.SortBy() != model.SortPosition {
		return result("Switch to position sort (tab) to reorder", nil)
	}
	items := m.list.Items()
	from := m.list.Index()
	to := from + delta
	if from < 0 || to < 0 || to >= len(items) {
		return nil
	}
	moving := items[from].(TaskItem).Task
	neighbour := items[to].(TaskItem).Task

	target := slices.IndexFunc(m.tasks.AllTasks(), func(t model.Task) bool { return t.ID == neighbour.ID })
	if err := m.tasks.MoveTask(moving.ID, target); err != nil {
		return result("", err)
	}
	m.list.Select(to)
	return nil
}

func (m Model) buildConfirm(t model.Task) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete task %q?", t.Content)).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.cb.ok),
		),
	).WithWidth(min(max(m.width-4, 40), 100))
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		m.confirm = nil
		if !m.cb.ok {
			return m, nil
		}
		id, tm := m.deleteID, m.tasks
		return m, func() tea.Msg {
			if err := tm.DeleteTask(id); err != nil {
				return ResultMsg{Err: err}
			}
			return ResultMsg{Notice: "Task deleted"}
		}
	case huh.StateAborted:
		m.confirm = nil
		return m, nil
	}
	return m, cmd
}

func result(notice string, err error) tea.Cmd {
	return func() tea.Msg { return ResultMsg{Notice: notice, Err: err} }
}

// View renders the task list.
func (m Model) View() string {
	if m.confirm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirm.View())
	}

	var top string
	if m.searchMode {
		top = lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
	} else if summary := m.FilterSummary(); summary != "" {
		top = theme.HintStyle.Padding(0, 1).Render(summary)
	}

	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	}
	if top == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, body)
}

// FilterSummary describes the active filters, or "" when none are set.
func (m Model) FilterSummary() string {
	f := m.tasks.Filters()
	if f.IsEmpty() {
		return ""
	}
	var parts []string
	if f.UserID != "" {
		parts = append(parts, "user: "+m.ownerName(f.UserID))
	}
	if f.Status != "" {
		parts = append(parts, "status: "+string(f.Status))
	}
	if f.Priority != "" {
		parts = append(parts, "priority: "+string(f.Priority))
	}
	if f.Category != "" {
		parts = append(parts, "category: "+string(f.Category))
	}
	if f.SearchText != "" {
		parts = append(parts, fmt.Sprintf("search: %q", f.SearchText))
	}
	return "filters: " + strings.Join(parts, ", ")
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if !m.tasks.Filters().IsEmpty() {
		return style.Render("No matching tasks.\nPress 0 to clear filters.")
	}
	return style.Render("No tasks yet.\n\nPress n to add one, or u to manage users.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
