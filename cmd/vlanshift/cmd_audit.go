package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/vlanshift/pkg/audit"
	"github.com/newtron-network/vlanshift/pkg/report"
)

func newAuditCmd(app *App) *cobra.Command {
	var (
		filter audit.Filter
		last   string
		apply  bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View the audit log",
		Long: `View the audit log. Every device of every run is recorded with:
  - Timestamp and user
  - Device, address and hostname
  - Decisions and commands
  - Whether changes were applied and saved

Examples:
  vlanshift audit --device sw1
  vlanshift audit --last 24h --applied
  vlanshift audit --interface GigabitEthernet1/0/1
  vlanshift audit --run 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if last != "" {
				d, err := time.ParseDuration(last)
				if err != nil {
					return fmt.Errorf("invalid duration: %s", last)
				}
				filter.StartTime = time.Now().Add(-d)
			}
			if apply {
				filter.Operation = audit.EventTypeApply
			}

			log, err := app.openAuditLog(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			events, err := log.Query(filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if app.jsonOutput {
				return report.JSON(out, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No audit events found")
				return nil
			}
			report.Events(out, events)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.Device, "device", "", "Filter by device name, address or hostname")
	flags.StringVar(&filter.User, "user", "", "Filter by user")
	flags.StringVar(&filter.RunID, "run", "", "Filter by run ID")
	flags.StringVar(&filter.Interface, "interface", "", "Only events that touched this interface")
	flags.StringVar(&last, "last", "", "Show events from last duration (e.g., 24h)")
	flags.IntVar(&filter.Limit, "limit", 100, "Maximum events to show")
	flags.BoolVar(&filter.FailureOnly, "failures", false, "Show only failed devices")
	flags.BoolVar(&apply, "applied", false, "Show only runs with -x")
	addOutputFlags(cmd, app)
	return cmd
}
