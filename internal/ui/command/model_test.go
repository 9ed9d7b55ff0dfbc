package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
		ok   bool
	}{
		{line: "", ok: false},
		{line: "   ", ok: false},
		{line: "save", want: Command{Name: "save", Args: []string{}}, ok: true},
		{line: "  Export  /tmp/a.json ", want: Command{Name: "export", Args: []string{"/tmp/a.json"}}, ok: true},
		{line: "sort priority extra", want: Command{Name: "sort", Args: []string{"priority", "extra"}}, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Parse(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCommandArg(t *testing.T) {
	c := Command{Name: "import", Args: []string{"a.json"}}
	assert.Equal(t, "a.json", c.Arg(0))
	assert.Equal(t, "", c.Arg(1))
}

func TestUpdateEmitsCommand(t *testing.T) {
	m := New(80, 24)
	m.Focus()
	for _, r := range "sort created" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(CommandMsg)
	require.True(t, ok)
	assert.Equal(t, "sort", msg.Name)
	assert.Equal(t, []string{"created"}, msg.Args)
}

func TestUpdateBlankCancels(t *testing.T) {
	m := New(80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, CancelMsg{}, cmd())
}
