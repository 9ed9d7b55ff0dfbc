package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/app"
	"github.com/nhle/taskboard/internal/autosave"
	"github.com/nhle/taskboard/internal/theme"
)

func runTUI(_ *cobra.Command, _ []string) error {
	e, err := open()
	if err != nil {
		return err
	}
	defer e.close()

	// An explicit light/dark in the config file beats the stored setting.
	name := e.cfg.Display.Theme
	if name != "light" && name != "dark" {
		name = e.board.Settings().Theme
	}
	theme.Apply(name)

	var saver *autosave.Saver
	if e.board.AutosaveEnabled() {
		saver = autosave.New(e.board, e.cfg.Autosave.Interval(), e.log.Logger)
	}

	m := app.New(e.board, saver, e.log.Logger)
	final, runErr := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(app.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}

	if saver != nil {
		err = saver.Stop()
	} else {
		err = e.board.SaveAll()
	}
	if err != nil {
		e.log.Error().Err(err).Msg("final save")
	}

	if runErr != nil {
		return runErr
	}
	return err
}
