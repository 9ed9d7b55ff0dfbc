// Package app is the root Bubble Tea model. It routes between views
// and turns manager events into screen refreshes.
package app

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/nhle/taskboard/internal/autosave"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui"
	"github.com/nhle/taskboard/internal/ui/command"
	helpview "github.com/nhle/taskboard/internal/ui/help"
	"github.com/nhle/taskboard/internal/ui/stats"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/ui/tasklist"
	"github.com/nhle/taskboard/internal/ui/userlist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewUsers
	ViewHelp
	ViewCommand
	ViewStats
	ViewTaskCreate
	ViewTaskEdit
)

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	board        *board.Board
	saver        *autosave.Saver
	events       *eventBridge
	log          zerolog.Logger
	keys         *keys.KeyMap
	taskList     tasklist.Model
	taskForm     taskform.Model
	userList     userlist.Model
	helpView     helpview.Model
	commandView  command.Model
	statsView    stats.Model
	ready        bool
	notice       string
	noticeErr    bool
}

// New creates the root model over b. saver may be nil when autosave is
// disabled.
func New(b *board.Board, saver *autosave.Saver, log zerolog.Logger) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewList,
		board:       b,
		saver:       saver,
		events:      newEventBridge(b.Tasks(), b.Users()),
		log:         log.With().Str("component", "app").Logger(),
		keys:        k,
		taskList:    tasklist.New(b.Tasks(), b.Users(), k, 80, 24),
		taskForm:    taskform.New(80, 24),
		userList:    userlist.New(b.Users(), k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		statsView:   stats.New(80, 24),
	}
}

// Close detaches the model from the board's event buses.
func (m Model) Close() {
	m.events.close()
}

// Init loads the list, starts listening for board events and starts
// the autosave loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.taskList.Init(), m.events.wait()}
	if !m.board.Settings().ShowCompletedTasks {
		cmds = append(cmds, func() tea.Msg { return tasklist.ShowCompletedMsg{Show: false} })
	}
	if m.saver != nil {
		cmds = append(cmds, m.saver.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.userList.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.statsView.SetSize(w, h)
		// Forward so huh forms can lay themselves out.
		return m.updateActiveView(msg)

	case boardEventMsg:
		if n := describe(msg.Event); n != "" {
			m.setNotice(n, nil)
		}
		m.userList.Refresh()
		cmd := m.taskList.Refresh()
		return m, tea.Batch(cmd, m.events.wait())

	case autosave.ResultMsg:
		if msg.Error != nil {
			m.setNotice("", fmt.Errorf("autosave: %w", msg.Error))
		} else if msg.Reason == autosave.ReasonManual {
			m.setNotice("Saved", nil)
		}
		return m, m.saver.WaitForNextResult()

	case tasklist.NewTaskMsg:
		cmd := m.openCreateForm()
		return m, cmd

	case tasklist.EditTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewTaskEdit
		cmd := m.taskForm.StartEdit(msg.Task)
		return m, cmd

	case tasklist.SortRequestMsg:
		return m, m.setSort(msg.Key)

	case tasklist.ShowCompletedMsg:
		cmd := m.taskList.SetShowCompleted(msg.Show)
		return m, tea.Batch(cmd, m.setShowCompleted(msg.Show))

	case tasklist.ResultMsg:
		m.setNotice(msg.Notice, msg.Err)
		return m, nil

	case userlist.ResultMsg:
		m.setNotice(msg.Notice, msg.Err)
		return m, nil

	case userlist.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case taskform.TaskCreatedMsg:
		m.currentView = ViewList
		return m, m.createTask(msg)

	case taskform.TaskUpdatedMsg:
		m.currentView = ViewList
		return m, m.updateTask(msg)

	case taskform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(command.Command(msg))
		return m, cmd

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case actionResultMsg:
		m.setNotice(msg.notice, msg.err)
		if msg.then != nil {
			return m, msg.then
		}
		return m, nil

	case tea.KeyMsg:
		if mdl, cmd, handled := m.handleGlobalKey(msg); handled {
			return mdl, cmd
		}
	}

	return m.updateActiveView(msg)
}

// capturing reports whether the active view owns the keyboard.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewList:
		return m.taskList.Capturing()
	case ViewUsers:
		return m.userList.Capturing()
	case ViewCommand, ViewTaskCreate, ViewTaskEdit:
		return true
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}
	if m.capturing() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			return m, tea.Quit, true
		}

	case key.Matches(msg, m.keys.Save):
		return m, m.saveNow(), true

	case key.Matches(msg, m.keys.Help):
		m.toggleOverlay(ViewHelp)
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		if m.toggleOverlay(ViewCommand) {
			cmd := m.commandView.Focus()
			return m, cmd, true
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp || m.currentView == ViewStats {
			m.currentView = m.previousView
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Users):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewUsers
			m.userList.Refresh()
			return m, nil, true
		}

	case key.Matches(msg, m.keys.NewUser):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewUsers
			cmd := m.userList.StartCreate()
			return m, cmd, true
		}
	}
	return m, nil, false
}

// toggleOverlay opens v over the current view, or closes it when it is
// already showing. It reports whether v is now open.
func (m *Model) toggleOverlay(v ViewState) bool {
	if m.currentView == v {
		m.currentView = m.previousView
		return false
	}
	m.previousView = m.currentView
	m.currentView = v
	return true
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewUsers:
		m.userList, cmd = m.userList.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	}

	return m, cmd
}

func (m *Model) setNotice(notice string, err error) {
	if err != nil {
		m.log.Warn().Err(err).Msg("action failed")
		m.notice = userMessage(err)
		m.noticeErr = true
		return
	}
	if notice != "" {
		m.notice = notice
		m.noticeErr = false
	}
}

// userMessage shortens wrapped errors for the status bar.
func userMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "Invalid input: " + err.Error()
	case errors.Is(err, model.ErrConflict):
		return "Conflict: " + err.Error()
	case errors.Is(err, model.ErrNotFound):
		return "Not found: " + err.Error()
	case errors.Is(err, model.ErrStorage):
		return "Storage error: " + err.Error()
	}
	return "Error: " + err.Error()
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Taskboard", m.headerRight())
	notice := ""
	if m.notice != "" {
		style := theme.NoticeStyle
		if m.noticeErr {
			style = theme.ErrorStyle
		}
		notice = style.Render(m.notice)
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), notice)

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewUsers:
		return m.userList.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewStats:
		return m.statsView.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.taskForm.View()
	default:
		return ""
	}
}

// headerRight shows the active user and the save state.
func (m Model) headerRight() string {
	user := "no active user"
	if u, ok := m.board.Users().ActiveUser(); ok {
		user = u.Name
	}
	return user + " | " + m.saveStatus()
}

func (m Model) saveStatus() string {
	if m.saver == nil {
		return "autosave off"
	}
	st := m.saver.Status()
	switch st.State {
	case autosave.StateSaving:
		return "saving..."
	case autosave.StateFailed:
		return "save failed"
	}
	if st.LastSave.IsZero() {
		return "not saved yet"
	}
	return "saved " + humanize.Time(st.LastSave)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewStats:
		return "esc back"
	case ViewCommand:
		return "enter execute | esc cancel"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter submit | esc cancel"
	case ViewUsers:
		return "esc back"
	default:
		return "q quit | ? help | n new | x done | / search | 1-4 filter | tab sort | u users | : command"
	}
}
