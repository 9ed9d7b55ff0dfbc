package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/ui/stats"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Replace all data with demo users and tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := open()
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.board.CreateDemoData(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d users and %d tasks\n",
			len(e.board.Users().AllUsers()), len(e.board.Tasks().AllTasks()))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print task, user and storage statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := open()
		if err != nil {
			return err
		}
		defer e.close()

		fmt.Fprintln(cmd.OutOrStdout(), stats.Render(e.board.Stats(), e.board.StorageInfo()))
		return nil
	},
}
