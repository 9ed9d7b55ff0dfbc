package userlist

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// CloseMsg signals the parent to close the user view.
type CloseMsg struct{}

// ResultMsg reports the outcome of a user action.
type ResultMsg struct {
	Notice string
	Err    error
}

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

var sortKeys = []model.UserSortKey{
	model.UserSortName,
	model.UserSortCreated,
	model.UserSortProductivity,
	model.UserSortTaskCount,
}

type formBindings struct {
	name    string
	confirm bool
	cascade bool
}

// Model lists users and edits them.
type Model struct {
	mode        mode
	users       *manager.UserManager
	keys        *keys.KeyMap
	list        []model.User
	sortBy      model.UserSortKey
	selectedIdx int
	editingID   string
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	width       int
	height      int
}

// New creates a user view over um.
func New(um *manager.UserManager, k *keys.KeyMap, width, height int) Model {
	m := Model{
		mode:   modeList,
		users:  um,
		keys:   k,
		sortBy: model.UserSortName,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
	m.Refresh()
	return m
}

// Refresh reloads the user list from the manager.
func (m *Model) Refresh() {
	m.list = m.users.SortedUsers(m.sortBy)
	if m.selectedIdx >= len(m.list) {
		m.selectedIdx = max(len(m.list)-1, 0)
	}
}

// Capturing reports whether a form has focus.
func (m Model) Capturing() bool {
	return m.mode != modeList
}

// StartCreate opens the new-user form directly.
func (m *Model) StartCreate() tea.Cmd {
	m.editingID = ""
	m.fb.name = ""
	m.form = m.buildForm("New user")
	m.mode = modeForm
	return m.form.Init()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleListKey(msg)
	}
	return m, nil
}

func (m Model) selected() (model.User, bool) {
	if len(m.list) == 0 {
		return model.User{}, false
	}
	return m.list[m.selectedIdx], true
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.list) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.list)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.list) > 0 {
			m.selectedIdx = (m.selectedIdx - 1 + len(m.list)) % len(m.list)
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleSort):
		i := slices.Index(sortKeys, m.sortBy)
		m.sortBy = sortKeys[(i+1)%len(sortKeys)]
		m.Refresh()
		return m, nil

	case key.Matches(msg, m.keys.NewTask), key.Matches(msg, m.keys.NewUser):
		cmd := m.StartCreate()
		return m, cmd

	case key.Matches(msg, m.keys.Edit):
		u, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editingID = u.ID
		m.fb.name = u.Name
		m.form = m.buildForm("Rename user")
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		u, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.fb.cascade = false
		m.confirmForm = m.buildConfirmForm(u)
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()

	case key.Matches(msg, m.keys.Select):
		u, ok := m.selected()
		if !ok {
			return m, nil
		}
		um := m.users
		return m, func() tea.Msg {
			if err := um.SetActiveUser(u.ID); err != nil {
				return ResultMsg{Err: err}
			}
			return ResultMsg{Notice: "Active user: " + u.Name}
		}

	case key.Matches(msg, m.keys.ClearActive):
		m.users.ClearActiveUser()
		return m, func() tea.Msg { return ResultMsg{Notice: "No active user"} }
	}
	return m, nil
}

func (m Model) buildForm(title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Placeholder("2-50 letters, digits or spaces").
				Value(&m.fb.name).
				Validate(validateName),
		),
	).WithWidth(m.formWidth())
}

func validateName(s string) error {
	if !model.IsValidName(strings.TrimSpace(s)) {
		return fmt.Errorf("use 2-50 letters, digits or spaces")
	}
	return nil
}

func (m Model) buildConfirmForm(u model.User) *huh.Form {
	fields := []huh.Field{
		huh.NewConfirm().
			Title(fmt.Sprintf("Delete user %q?", u.Name)).
			Affirmative("Yes, delete").
			Negative("Cancel").
			Value(&m.fb.confirm),
	}
	if u.TaskCount > 0 {
		fields = append(fields, huh.NewConfirm().
			Title(fmt.Sprintf("Also delete their %d task(s)?", u.TaskCount)).
			Description("Otherwise the tasks stay without an owner.").
			Affirmative("Delete tasks").
			Negative("Keep tasks").
			Value(&m.fb.cascade))
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		m.mode = modeList
		return m, m.saveUser()
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.mode = modeList
		u, ok := m.selected()
		if !m.fb.confirm || !ok {
			return m, nil
		}
		um, cascade := m.users, m.fb.cascade
		return m, func() tea.Msg {
			if err := um.DeleteUser(u.ID, cascade); err != nil {
				return ResultMsg{Err: err}
			}
			return ResultMsg{Notice: "User deleted"}
		}
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) saveUser() tea.Cmd {
	um := m.users
	name := m.fb.name
	editID := m.editingID
	return func() tea.Msg {
		if editID == "" {
			if _, err := um.AddUser(name); err != nil {
				return ResultMsg{Err: err}
			}
			return ResultMsg{Notice: "User added"}
		}
		if err := um.UpdateUser(editID, model.UserUpdate{Name: &name}); err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{Notice: "User renamed"}
	}
}

// View renders the user view.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
	case modeConfirmDelete:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("Users (%d) sorted by %s", len(m.list), m.sortBy)))
	b.WriteString("\n\n")

	if len(m.list) == 0 {
		b.WriteString(theme.HintStyle.Render("No users yet. Press 'n' to add one."))
	}
	for i, u := range m.list {
		line := renderUser(u)
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HintStyle.Render(
		"n new | e rename | d delete | enter set active | c clear active | tab sort | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Render(b.String())
}

func renderUser(u model.User) string {
	initials := lipgloss.NewStyle().Bold(true).Width(3).Render(u.Initials())
	name := u.Name
	if u.IsActive {
		name = theme.ActiveUserStyle.Render(name + " *")
	}
	prod := theme.ProductivityStyle(u.Productivity()).
		Render(fmt.Sprintf("%d/%d done (%d%%, %s)",
			u.CompletedTaskCount, u.TaskCount, u.CompletionPercentage(), u.Productivity()))
	return fmt.Sprintf("%s %s  %s", initials, name, prod)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}
