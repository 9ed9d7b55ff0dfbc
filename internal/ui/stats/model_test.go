package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/manager"
	"github.com/nhle/taskboard/internal/store"
)

func TestRenderAvailable(t *testing.T) {
	s := board.AppStats{
		Tasks:            manager.TaskStats{Total: 1200, Completed: 300, Pending: 900},
		Users:            manager.UsersStats{TotalUsers: 2, MostProductiveUser: "Anna Nowak"},
		CompletedPercent: 25,
		PendingPercent:   75,
	}
	info := store.Info{Available: true, TotalBytes: 2048, ItemsCount: 3, QuotaBytes: 5 << 20}

	out := Render(s, info)
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "300 (25%)")
	assert.Contains(t, out, "Anna Nowak")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "5.0 MiB")
}

func TestRenderUnavailable(t *testing.T) {
	out := Render(board.AppStats{}, store.Info{})
	assert.Contains(t, out, "unavailable")
	assert.NotContains(t, out, "Quota")
}
