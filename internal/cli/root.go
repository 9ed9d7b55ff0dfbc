// Package cli defines the taskboard command line. The root command
// runs the terminal UI; subcommands cover scripted backup and seeding.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/logging"
	"github.com/nhle/taskboard/internal/model"
)

var (
	configPath string
	verbose    bool
)

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Multi-user task board for the terminal",
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(exportCmd, importCmd, demoCmd, statsCmd, configCmd)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// env is an opened board together with what must be closed after it.
type env struct {
	cfg   *model.AppConfig
	log   *logging.Logger
	board *board.Board
}

func (e *env) close() {
	if err := e.board.Close(); err != nil {
		e.log.Error().Err(err).Msg("closing board")
	}
	_ = e.log.Close()
}

// open loads the configuration, starts logging and opens the board.
func open() (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logging.New(cfg.Log, nil)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	gw, err := board.OpenGateway(cfg.Storage, log.Logger)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	log.Info().
		Str("backend", cfg.Storage.Backend).
		Str("path", cfg.Storage.Path).
		Msg("storage opened")

	return &env{cfg: cfg, log: log, board: board.New(gw, cfg, log.Logger)}, nil
}
