package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/board"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all users, tasks and settings to a JSON backup",
	Long: `Write a JSON backup. With no file argument the backup is named
taskboard_backup_YYYY-MM-DD.json in the current directory; "-" writes
to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := open()
		if err != nil {
			return err
		}
		defer e.close()

		path := board.BackupFileName(time.Now())
		if len(args) == 1 {
			path = args[0]
		}
		if path == "-" {
			return e.board.Export(cmd.OutOrStdout())
		}
		if err := e.board.ExportFile(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "exported to", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all data with a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := open()
		if err != nil {
			return err
		}
		defer e.close()

		if args[0] == "-" {
			err = e.board.Import(os.Stdin)
		} else {
			err = e.board.ImportFile(args[0])
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "imported %d users and %d tasks\n",
			len(e.board.Users().AllUsers()), len(e.board.Tasks().AllTasks()))
		return nil
	},
}
