package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config:           %s\n", configPath)
		fmt.Fprintf(out, "storage.backend:  %s\n", cfg.Storage.Backend)
		fmt.Fprintf(out, "storage.path:     %s\n", cfg.Storage.Path)
		fmt.Fprintf(out, "storage.quota:    %d\n", cfg.Storage.QuotaBytes)
		fmt.Fprintf(out, "log.level:        %s\n", cfg.Log.Level)
		fmt.Fprintf(out, "log.file:         %s\n", cfg.Log.File)
		fmt.Fprintf(out, "display.theme:    %s\n", cfg.Display.Theme)
		fmt.Fprintf(out, "autosave:         %t every %s\n", cfg.Autosave.Enabled, cfg.Autosave.Interval())
		fmt.Fprintf(out, "locale:           %s\n", cfg.Locale)
		fmt.Fprintf(out, "sample_data:      %t\n", cfg.SampleData)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := model.SaveConfig(configPath, model.DefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", configPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
