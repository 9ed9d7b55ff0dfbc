package stats

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/internal/theme"
)

// Model shows a snapshot of the board statistics.
type Model struct {
	stats  board.AppStats
	info   store.Info
	width  int
	height int
}

// New creates an empty stats view.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// SetData replaces the rendered snapshot.
func (m *Model) SetData(s board.AppStats, info store.Info) {
	m.stats = s
	m.info = info
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the stats panel.
func (m Model) View() string {
	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(Render(m.stats, m.info))
}

// Render formats the statistics as plain rows.
func Render(s board.AppStats, info store.Info) string {
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(22)
	row := func(b *strings.Builder, k, v string) {
		b.WriteString(label.Render(k))
		b.WriteString(v)
		b.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Tasks"))
	b.WriteString("\n")
	row(&b, "Total", humanize.Comma(int64(s.Tasks.Total)))
	row(&b, "Completed", fmt.Sprintf("%s (%d%%)", humanize.Comma(int64(s.Tasks.Completed)), s.CompletedPercent))
	row(&b, "Pending", fmt.Sprintf("%s (%d%%)", humanize.Comma(int64(s.Tasks.Pending)), s.PendingPercent))
	for _, p := range model.Priorities {
		row(&b, "  "+model.Task{Priority: p}.PriorityLabel(), humanize.Comma(int64(s.Tasks.ByPriority[p])))
	}
	for _, c := range model.Categories {
		row(&b, "  "+model.Task{Category: c}.CategoryLabel(), humanize.Comma(int64(s.Tasks.ByCategory[c])))
	}

	b.WriteString("\n")
	b.WriteString(theme.TitleStyle.Render("Users"))
	b.WriteString("\n")
	row(&b, "Total", humanize.Comma(int64(s.Users.TotalUsers)))
	row(&b, "Active", orDash(s.Users.ActiveUser))
	row(&b, "With tasks", fmt.Sprintf("%d", s.Users.UsersWithTasks))
	row(&b, "Without tasks", fmt.Sprintf("%d", s.Users.UsersWithoutTasks))
	row(&b, "Most productive", orDash(s.Users.MostProductiveUser))
	row(&b, "Least productive", orDash(s.Users.LeastProductiveUser))
	row(&b, "Avg tasks per user", fmt.Sprintf("%d", s.Users.AverageTasksPerUser))
	row(&b, "Avg completion", fmt.Sprintf("%d%%", s.Users.AverageCompletionRate))

	b.WriteString("\n")
	b.WriteString(theme.TitleStyle.Render("Storage"))
	b.WriteString("\n")
	if !info.Available {
		row(&b, "Status", theme.ErrorStyle.Render("unavailable"))
		return b.String()
	}
	row(&b, "Items", fmt.Sprintf("%d", info.ItemsCount))
	row(&b, "Total", info.TotalSize())
	row(&b, "  Tasks", info.TasksSize())
	row(&b, "  Users", info.UsersSize())
	row(&b, "  Settings", info.SettingsSize())
	if info.QuotaBytes > 0 {
		row(&b, "Quota", humanize.IBytes(uint64(info.QuotaBytes)))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
