// Vlanshift - access and voice VLAN migration for switch fleets
//
// Reads the running configuration of every switch in an inventory, finds
// the access-mode interfaces (and voice VLAN lines) carrying VLANs named in
// a mapping file, and rewrites them to the new VLANs.
//
// Dry-run by default: changes are printed but nothing is sent until -x (or
// the legacy "force" argument) is given. Applied changes are saved with
// "write memory" and every device is recorded in the audit log.
//
// Examples:
//
//	vlanshift run --inventory devices.txt --mapping vlan.txt       # preview
//	vlanshift run --inventory devices.txt --mapping vlan.txt -x    # apply and save
//	vlanshift plan sw1.cfg --mapping vlan.txt                      # offline preview
//	vlanshift show sw1.cfg --vlan 10
//	vlanshift audit --failures
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/vlanshift/pkg/cli"
	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/settings"
	"github.com/newtron-network/vlanshift/pkg/util"
	"github.com/newtron-network/vlanshift/pkg/version"
)

// App carries global flags and the state loaded before a command runs.
type App struct {
	verbose    bool
	jsonOutput bool
	noColor    bool

	settingsPath string
	settings     *settings.Settings

	// prompt asks for missing passwords.
	prompt inventory.PasswordFunc
}

func newApp() *App {
	return &App{
		settingsPath: settings.DefaultSettingsPath(),
		prompt:       inventory.TerminalPrompt(os.Stderr),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:               "vlanshift",
		Short:             "Access and voice VLAN migration for switch fleets",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		Long: `Vlanshift rewrites access and voice VLAN assignments on switch interfaces
according to a mapping of old to new VLANs.

Changes are previewed by default. Use -x (or the "force" argument) to apply
and save them.

  vlanshift run --inventory devices.txt --mapping vlan.txt [-x]`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	root.PersistentFlags().BoolVar(&app.noColor, "no-color", false, "Disable colored output")

	root.AddGroup(
		&cobra.Group{ID: "reconcile", Title: "Reconciliation:"},
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{newRunCmd(app), newPlanCmd(app)} {
		cmd.GroupID = "reconcile"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newShowCmd(app), newAuditCmd(app)} {
		cmd.GroupID = "inspect"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newSettingsCmd(app), newVersionCmd()} {
		cmd.GroupID = "meta"
		root.AddCommand(cmd)
	}
	return root
}

// init loads settings and configures logging and colors.
func (app *App) init(cmd *cobra.Command) error {
	util.SetLogOutput(cmd.ErrOrStderr())
	if app.noColor {
		cli.SetColor(false)
	}

	s, err := settings.LoadFrom(app.settingsPath)
	if err != nil {
		if !isSettingsOrHelp(cmd) {
			return fmt.Errorf("loading settings: %w", err)
		}
		util.Warnf("Could not load settings: %v", err)
		s = &settings.Settings{}
	}
	if !isSettingsOrHelp(cmd) {
		if err := s.ApplyEnv(); err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	app.settings = s

	// Quiet by default, verbose on -v
	level := "warn"
	if s.LogLevel != "" {
		level = s.LogLevel
	}
	if app.verbose {
		level = "debug"
	}
	return util.SetLogLevel(level)
}

// isSettingsOrHelp checks whether cmd (or any ancestor) works on the
// settings file itself, where the environment must not leak in.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// addOutputFlags registers --json as a local flag.
func addOutputFlags(cmd *cobra.Command, app *App) {
	cmd.Flags().BoolVar(&app.jsonOutput, "json", false, "JSON output")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout(), "vlanshift")
		},
	}
}

func printVersion(w io.Writer, tool string) {
	if version.Version == "dev" {
		fmt.Fprintf(w, "%s dev build (no version set via -ldflags)\n", tool)
	} else {
		fmt.Fprintf(w, "%s %s\n", tool, version.Info())
	}
}
