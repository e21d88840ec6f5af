package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newtron-network/vlanshift/pkg/device"
	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/reconcile"
	"github.com/newtron-network/vlanshift/pkg/report"
)

func newPlanCmd(app *App) *cobra.Command {
	var (
		mappingPath string
		noDiff      bool
		decisions   bool
	)
	cmd := &cobra.Command{
		Use:   "plan <config-file>...",
		Short: "Preview changes against saved running configurations",
		Long: `Preview changes against saved running configurations.

Each file holds "show running-config" output. No device is contacted and
nothing is written to the audit log.

Examples:
  vlanshift plan backups/sw1.cfg --mapping vlan.txt
  vlanshift plan backups/*.cfg --decisions`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := app.loadRules(mappingPath)
			if err != nil {
				return err
			}

			devices := make([]inventory.Device, len(args))
			for i, path := range args {
				devices[i] = inventory.Device{
					Name:       filepath.Base(path),
					DeviceType: "cisco_ios",
					Transport:  inventory.TransportFile,
					ConfigFile: path,
				}
			}

			r := reconcile.New(device.FileDialer{}, rules)
			result := r.Run(cmd.Context(), devices)

			out := cmd.OutOrStdout()
			if app.jsonOutput {
				return report.JSON(out, result)
			}
			for _, rep := range result.Devices {
				report.Device(out, rep, result.Mode, report.Options{Diff: !noDiff, Skips: true})
				if decisions && len(rep.Decisions) > 0 {
					report.Decisions(out, rep.Decisions)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "VLAN mapping (CSV or YAML)")
	cmd.Flags().BoolVar(&noDiff, "no-diff", false, "Omit the unified diff")
	cmd.Flags().BoolVar(&decisions, "decisions", false, "Print the decision table")
	addOutputFlags(cmd, app)
	return cmd
}
