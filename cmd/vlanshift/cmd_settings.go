package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/vlanshift/pkg/cli"
	"github.com/newtron-network/vlanshift/pkg/settings"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.vlanshift/settings.json.

Settings provide defaults for command flags. Environment variables named
VLANSHIFT_<SETTING> (for example VLANSHIFT_WORKERS) override the file, and
flags override both.

Examples:
  vlanshift settings show
  vlanshift settings set inventory /etc/vlanshift/devices.txt
  vlanshift settings set workers 8
  vlanshift settings set redis_addr audit-redis:6379
  vlanshift settings clear`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings file: %s\n\n", app.settingsPath)

			t := cli.NewTable(out, "SETTING", "VALUE")
			for _, key := range settings.Keys() {
				value, err := app.settings.Get(key)
				if err != nil {
					return err
				}
				if value == "" {
					value = cli.Dim("(not set)")
				}
				t.Row(key, value)
			}
			return t.Flush()
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <setting> <value>",
		Short: "Set a setting value",
		Long: `Set a persistent setting value. An empty value resets the setting.

Available settings:
  ` + strings.Join(settings.Keys(), "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.settings.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := app.settings.SaveTo(app.settingsPath); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <setting>",
		Short: "Get a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := app.settings.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.settings.Clear()
			if err := app.settings.SaveTo(app.settingsPath); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings cleared")
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd, getCmd, clearCmd)
	return cmd
}
