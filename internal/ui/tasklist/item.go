package tasklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// TaskItem wraps a model.Task and its owner's name for a bubbles/list.
type TaskItem struct {
	Task  model.Task
	Owner string
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Content }

// Title returns the task content.
func (i TaskItem) Title() string { return i.Task.Content }

// Description returns a short summary line.
func (i TaskItem) Description() string {
	parts := []string{
		i.Task.PriorityLabel(),
		i.Task.CategoryLabel(),
		i.Task.StatusLabel(),
	}
	if i.Owner != "" {
		parts = append(parts, i.Owner)
	}
	parts = append(parts, humanize.Time(i.Task.CreatedAt))
	return strings.Join(parts, " | ")
}

// ItemDelegate renders one task per line.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderLine(ti, index == m.Index()))
}

func renderLine(ti TaskItem, selected bool) string {
	t := ti.Task

	prefix := "○"
	if t.IsCompleted() {
		prefix = "✓"
	}

	pri := theme.PriorityStyle(t.Priority).Render(priorityBadge(t.Priority))
	cat := theme.CategoryStyle(t.Category).Render(t.CategoryLabel())

	owner := ""
	if ti.Owner != "" {
		owner = lipgloss.NewStyle().Foreground(theme.ColorMagenta).Render(" @" + ti.Owner)
	}

	when := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(humanize.Time(t.CreatedAt))

	content := t.Content
	if t.IsCompleted() {
		content = theme.DimmedStyle.Render(content)
	}

	line := fmt.Sprintf("%s %s %s%s%s  %s", prefix, pri, content, cat, owner, when)

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// priorityBadge returns a fixed-width marker for p.
func priorityBadge(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "!!!"
	case model.PriorityMedium:
		return "!! "
	default:
		return "!  "
	}
}
