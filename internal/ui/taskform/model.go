package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// TaskCreatedMsg is dispatched when the create form is submitted.
type TaskCreatedMsg struct {
	Content  string
	UserID   string
	Priority model.Priority
	Category model.Category
}

// TaskUpdatedMsg is dispatched when the edit form is submitted. Update
// only carries the fields that changed.
type TaskUpdatedMsg struct {
	ID     string
	Update model.TaskUpdate
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings lives on the heap so huh's Value() pointers survive
// Bubble Tea model copies.
type formBindings struct {
	content  string
	priority model.Priority
	category model.Category
	userID   string
	status   model.Status
}

// Model is the create/edit form for a single task.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	original model.Task
	editMode bool
	users    []model.User
	width    int
	height   int
}

// New creates an empty task form.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// SetUsers sets the owners offered by the create form.
func (m *Model) SetUsers(users []model.User) {
	m.users = users
}

// StartCreate opens the form for a new task. The owner defaults to
// activeID; priority and category default to the given values.
func (m *Model) StartCreate(activeID string, priority model.Priority, category model.Category) tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	m.fb.content = ""
	m.fb.priority = priority
	m.fb.category = category
	m.fb.userID = activeID
	if m.fb.userID == "" && len(m.users) > 0 {
		m.fb.userID = m.users[0].ID
	}
	m.fb.status = model.StatusPending

	fields := append(m.coreFields(), m.ownerField())
	m.form = m.build(fields)
	return m.form.Init()
}

// StartEdit opens the form pre-filled with t.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editMode = true
	m.original = t
	m.fb.content = t.Content
	m.fb.priority = t.Priority
	m.fb.category = t.Category
	m.fb.userID = t.UserID
	m.fb.status = t.Status

	fields := append(m.coreFields(),
		huh.NewSelect[model.Status]().
			Title("Status").
			Options(
				huh.NewOption("Pending", model.StatusPending),
				huh.NewOption("Done", model.StatusDone),
			).
			Value(&m.fb.status),
	)
	m.form = m.build(fields)
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.submit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := "New Task"
	if m.editMode {
		title = "Edit Task"
	}
	content := theme.TitleStyle.Render(title) + "\n" + m.form.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build(fields []huh.Field) *huh.Form {
	return huh.NewForm(huh.NewGroup(fields...)).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

func (m *Model) coreFields() []huh.Field {
	priorities := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		priorities[i] = huh.NewOption(model.Task{Priority: p}.PriorityLabel(), p)
	}
	categories := make([]huh.Option[model.Category], len(model.Categories))
	for i, c := range model.Categories {
		categories[i] = huh.NewOption(model.Task{Category: c}.CategoryLabel(), c)
	}

	return []huh.Field{
		huh.NewInput().
			Title("Task").
			Placeholder("What needs to be done?").
			Value(&m.fb.content).
			Validate(validateRequired("Task")),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(priorities...).
			Value(&m.fb.priority),
		huh.NewSelect[model.Category]().
			Title("Category").
			Options(categories...).
			Value(&m.fb.category),
	}
}

func (m *Model) ownerField() huh.Field {
	opts := make([]huh.Option[string], len(m.users))
	for i, u := range m.users {
		opts[i] = huh.NewOption(u.Name, u.ID)
	}
	return huh.NewSelect[string]().
		Title("Owner").
		Options(opts...).
		Value(&m.fb.userID).
		Validate(func(id string) error {
			if id == "" {
				return fmt.Errorf("add a user first")
			}
			return nil
		})
}

func (m Model) submit() tea.Cmd {
	fb := *m.fb
	if !m.editMode {
		return func() tea.Msg {
			return TaskCreatedMsg{
				Content:  fb.content,
				UserID:   fb.userID,
				Priority: fb.priority,
				Category: fb.category,
			}
		}
	}

	orig := m.original
	var u model.TaskUpdate
	if strings.TrimSpace(fb.content) != orig.Content {
		u.Content = model.Ptr(fb.content)
	}
	if fb.priority != orig.Priority {
		u.Priority = model.Ptr(fb.priority)
	}
	if fb.category != orig.Category {
		u.Category = model.Ptr(fb.category)
	}
	// Re-applying done would restamp completedAt.
	if fb.status != orig.Status {
		u.Status = model.Ptr(fb.status)
	}
	return func() tea.Msg { return TaskUpdatedMsg{ID: orig.ID, Update: u} }
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
