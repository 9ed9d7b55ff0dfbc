package app

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui/command"
	"github.com/nhle/taskboard/internal/ui/taskform"
)

// actionResultMsg reports the outcome of a board operation run off the
// update loop. then, if set, runs afterwards.
type actionResultMsg struct {
	notice string
	err    error
	then   tea.Cmd
}

func done(notice string, err error) tea.Msg {
	return actionResultMsg{notice: notice, err: err}
}

func (m *Model) openCreateForm() tea.Cmd {
	users := m.board.Users().AllUsers()
	if len(users) == 0 {
		m.setNotice("Add a user first (N)", nil)
		return nil
	}
	active := ""
	if u, ok := m.board.Users().ActiveUser(); ok {
		active = u.ID
	}
	s := m.board.Settings()

	m.previousView = m.currentView
	m.currentView = ViewTaskCreate
	m.taskForm.SetUsers(users)
	return m.taskForm.StartCreate(active, s.DefaultPriority, s.DefaultCategory)
}

func (m Model) createTask(msg taskform.TaskCreatedMsg) tea.Cmd {
	tm := m.board.Tasks()
	return func() tea.Msg {
		_, err := tm.AddTask(msg.Content, msg.UserID, msg.Priority, msg.Category)
		return done("", err)
	}
}

func (m Model) updateTask(msg taskform.TaskUpdatedMsg) tea.Cmd {
	if msg.Update == (model.TaskUpdate{}) {
		return nil
	}
	tm := m.board.Tasks()
	return func() tea.Msg {
		return done("", tm.UpdateTask(msg.ID, msg.Update))
	}
}

// setSort persists key as the preferred order and applies it.
func (m Model) setSort(key model.SortKey) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		s := b.Settings()
		s.SortBy = key
		return done("", b.UpdateSettings(s))
	}
}

func (m Model) setShowCompleted(show bool) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		s := b.Settings()
		if s.ShowCompletedTasks == show {
			return nil
		}
		s.ShowCompletedTasks = show
		return done("", b.UpdateSettings(s))
	}
}

func (m Model) saveNow() tea.Cmd {
	if m.saver != nil {
		m.saver.SaveNow()
		return nil
	}
	b := m.board
	return func() tea.Msg {
		if err := b.SaveAll(); err != nil {
			return done("", err)
		}
		return done("Saved", nil)
	}
}

// executeCommand runs a palette command.
func (m *Model) executeCommand(c command.Command) tea.Cmd {
	b := m.board

	switch c.Name {
	case "quit", "q":
		return tea.Quit

	case "save", "w":
		return m.saveNow()

	case "export":
		path := c.Arg(0)
		if path == "" {
			path = board.BackupFileName(time.Now())
		}
		return func() tea.Msg {
			if err := b.ExportFile(path); err != nil {
				return done("", err)
			}
			return done("Exported to "+path, nil)
		}

	case "import":
		path := c.Arg(0)
		if path == "" {
			m.setNotice("usage: import <file>", nil)
			return nil
		}
		if _, err := os.Stat(path); err != nil {
			m.setNotice("", err)
			return nil
		}
		return func() tea.Msg {
			if err := b.ImportFile(path); err != nil {
				return done("", err)
			}
			return done("Imported "+path, nil)
		}

	case "sort":
		key := model.SortKey(c.Arg(0))
		if !key.Valid() {
			m.setNotice(fmt.Sprintf("unknown sort %q", c.Arg(0)), nil)
			return nil
		}
		return m.setSort(key)

	case "theme":
		name := c.Arg(0)
		if name != "light" && name != "dark" {
			m.setNotice("usage: theme light|dark", nil)
			return nil
		}
		theme.Apply(name)
		return func() tea.Msg {
			s := b.Settings()
			s.Theme = name
			return done("Theme: "+name, b.UpdateSettings(s))
		}

	case "autosave":
		var on bool
		switch c.Arg(0) {
		case "on":
			on = true
		case "off":
		default:
			m.setNotice("usage: autosave on|off", nil)
			return nil
		}
		return func() tea.Msg {
			s := b.Settings()
			s.AutoSave = on
			return done("Autosave "+c.Arg(0)+" (applies on next start)", b.UpdateSettings(s))
		}

	case "stats":
		m.statsView.SetData(b.Stats(), b.StorageInfo())
		m.previousView = m.currentView
		m.currentView = ViewStats
		return nil

	case "demo":
		return func() tea.Msg {
			if err := b.CreateDemoData(); err != nil {
				return done("", err)
			}
			return done("Demo data loaded", nil)
		}

	case "clear":
		return func() tea.Msg {
			if err := b.ClearAll(); err != nil {
				return done("", err)
			}
			return done("All data cleared", nil)
		}

	case "users":
		m.previousView = m.currentView
		m.currentView = ViewUsers
		m.userList.Refresh()
		return nil
	}

	m.setNotice(fmt.Sprintf("unknown command %q", c.Name), nil)
	return nil
}
