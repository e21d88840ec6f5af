package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/vlanshift/pkg/device"
	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/metrics"
	"github.com/newtron-network/vlanshift/pkg/reconcile"
	"github.com/newtron-network/vlanshift/pkg/report"
	"github.com/newtron-network/vlanshift/pkg/util"
)

type runOptions struct {
	inventory   string
	mapping     string
	execute     bool
	workers     int
	timeout     time.Duration
	knownHosts  string
	metricsFile string
	strict      bool
	diff        bool
	skips       bool
}

func newRunCmd(app *App) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [force]",
		Short: "Reconcile VLANs on every device in the inventory",
		Long: `Reconcile VLANs on every device in the inventory.

Each device's running configuration is fetched and the interfaces carrying
a mapped VLAN are listed with the commands that would change them. Nothing
is sent unless -x is given; "force" is accepted as a synonym for -x.

Interfaces in dynamic mode are reported as warnings and never changed.

Examples:
  vlanshift run --inventory devices.txt --mapping vlan.txt
  vlanshift run --inventory devices.txt --mapping vlan.txt -x --workers 8
  vlanshift run force`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 || (len(args) == 1 && args[0] != "force") {
				return fmt.Errorf("unexpected arguments %q: only \"force\" is accepted", args)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.execute = true
			}
			return app.run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.inventory, "inventory", "", "Device inventory (CSV or YAML)")
	flags.StringVar(&opts.mapping, "mapping", "", "VLAN mapping (CSV or YAML)")
	flags.BoolVarP(&opts.execute, "execute", "x", false, "Apply and save changes (default is dry-run)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Devices processed concurrently")
	flags.DurationVar(&opts.timeout, "timeout", 0, "SSH dial and per-command timeout")
	flags.StringVar(&opts.knownHosts, "known-hosts", "", "known_hosts file for host key checking")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	flags.BoolVar(&opts.strict, "strict", false, "Exit non-zero when any device fails")
	flags.BoolVar(&opts.diff, "diff", false, "Show a unified diff of the changed interfaces")
	flags.BoolVar(&opts.skips, "skips", false, "List skipped interfaces too")
	addOutputFlags(cmd, app)
	return cmd
}

func (app *App) run(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()
	s := app.settings

	invPath, err := pick(opts.inventory, s.Inventory, "inventory")
	if err != nil {
		return err
	}
	devices, err := inventory.Load(invPath)
	if err != nil {
		return err
	}
	rules, err := app.loadRules(opts.mapping)
	if err != nil {
		return err
	}
	if err := inventory.FillPasswords(devices, app.prompt); err != nil {
		return err
	}

	timeout := opts.timeout
	if timeout == 0 {
		timeout = s.GetTimeout()
	}
	knownHosts := opts.knownHosts
	if knownHosts == "" {
		knownHosts = s.KnownHosts
	}
	workers := opts.workers
	if workers == 0 {
		workers = s.GetWorkers()
	}

	mode := reconcile.Simulate
	if opts.execute {
		mode = reconcile.Apply
	}

	auditLog, err := app.openAuditLog(ctx)
	if err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
	} else {
		defer auditLog.Close()
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = s.MetricsFile
	}
	var rec *metrics.Recorder
	if metricsFile != "" {
		rec = metrics.New()
	}

	r := reconcile.New(
		device.NewDialer(device.Options{Timeout: timeout, KnownHostsFile: knownHosts}),
		rules,
		reconcile.WithMode(mode),
		reconcile.WithWorkers(workers),
		reconcile.WithAuditor(auditLog),
		reconcile.WithMetrics(rec),
	)
	result := r.Run(ctx, devices)

	if rec != nil {
		if err := rec.WriteFile(metricsFile); err != nil {
			util.Warnf("Writing metrics: %v", err)
		}
	}

	out := cmd.OutOrStdout()
	if app.jsonOutput {
		if err := report.JSON(out, result); err != nil {
			return err
		}
	} else {
		report.Run(out, result, report.Options{Diff: opts.diff, Skips: opts.skips})
	}

	if failed := result.Failed(); opts.strict && len(failed) > 0 {
		return fmt.Errorf("%d of %d devices failed", len(failed), len(result.Devices))
	}
	return nil
}
