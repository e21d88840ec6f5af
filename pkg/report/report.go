// Package report renders reconciliation results for operators.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/newtron-network/vlanshift/pkg/audit"
	"github.com/newtron-network/vlanshift/pkg/changeset"
	"github.com/newtron-network/vlanshift/pkg/classify"
	"github.com/newtron-network/vlanshift/pkg/cli"
	"github.com/newtron-network/vlanshift/pkg/reconcile"
)

// Options control text rendering.
type Options struct {
	// Diff prints a unified diff of the touched interface blocks.
	Diff bool

	// Skips lists skipped interfaces, not only changes and warnings.
	Skips bool
}

// Device writes the result for one device.
func Device(w io.Writer, rep *reconcile.DeviceReport, mode reconcile.Mode, opts Options) {
	name := rep.Hostname
	if name == "" {
		name = rep.Device.Label()
	}
	fmt.Fprintf(w, "%s\n", cli.Bold(fmt.Sprintf("Checking device %s with IP address %s", name, rep.Device.Host)))

	for _, d := range rep.Decisions {
		switch d.Kind {
		case changeset.Change:
			fmt.Fprintf(w, "  %s\n", d.Message())
		case changeset.WarnDynamic, changeset.RuleRejected:
			fmt.Fprintf(w, "  %s\n", cli.Yellow(d.Message()))
		default:
			if opts.Skips {
				fmt.Fprintf(w, "  %s\n", cli.Dim(d.Message()))
			}
		}
	}

	if rep.Err != nil {
		fmt.Fprintf(w, "  %s\n\n", cli.Red("ERROR: "+rep.Err.Error()))
		return
	}
	if rep.Changeset.IsEmpty() {
		fmt.Fprintf(w, "  No changes for this device\n\n")
		return
	}

	fmt.Fprintln(w, "Changes to be applied:")
	fmt.Fprint(w, rep.Changeset.String())

	if opts.Diff {
		if diff, err := Diff(name, rep.Before, rep.After); err == nil && diff != "" {
			fmt.Fprintln(w)
			fmt.Fprint(w, diff)
		}
	}

	switch {
	case rep.Saved:
		fmt.Fprintln(w, cli.Green("Changes applied and configuration saved."))
	case rep.Applied:
		fmt.Fprintln(w, cli.Yellow("Changes applied but configuration not saved."))
	case mode != reconcile.Apply:
		fmt.Fprintln(w, cli.Yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
	fmt.Fprintln(w)
}

// Run writes every device followed by a summary table.
func Run(w io.Writer, run *reconcile.RunReport, opts Options) {
	for _, rep := range run.Devices {
		Device(w, rep, run.Mode, opts)
	}
	Summary(w, run)
}

// Summary writes one row per device and the run totals.
func Summary(w io.Writer, run *reconcile.RunReport) {
	t := cli.NewTable(w, "DEVICE", "HOST", "HOSTNAME", "CHANGES", "WARNINGS", "COMMANDS", "STATUS", "DURATION")
	for _, rep := range run.Devices {
		changes, warnings := 0, 0
		for _, d := range rep.Decisions {
			switch d.Kind {
			case changeset.Change:
				changes++
			case changeset.WarnDynamic, changeset.RuleRejected:
				warnings++
			}
		}
		t.Row(
			rep.Device.Label(),
			rep.Device.Host,
			rep.Hostname,
			strconv.Itoa(changes),
			strconv.Itoa(warnings),
			strconv.Itoa(rep.Changeset.Len()),
			status(rep, run.Mode),
			rep.Duration.Round(time.Millisecond).String(),
		)
	}
	t.Flush()

	failed := len(run.Failed())
	fmt.Fprintf(w, "\n%d devices, %d failed, %d commands (%s, run %s)\n",
		len(run.Devices), failed, run.TotalCommands(), run.Mode, run.ID)
	fmt.Fprintf(w, "Total run time: %s\n", run.Duration.Round(time.Millisecond))
}

func status(rep *reconcile.DeviceReport, mode reconcile.Mode) string {
	switch {
	case rep.Err != nil:
		return cli.Red("failed")
	case rep.Changeset.IsEmpty():
		return cli.Green("in sync")
	case rep.Saved:
		return cli.Green("applied")
	case mode == reconcile.Apply:
		return cli.Yellow("not saved")
	default:
		return cli.Yellow("pending")
	}
}

// Diff returns a unified diff between the configured and projected
// interface blocks, or "" when they are equal.
func Diff(name string, before, after []string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(before),
		B:        withNewlines(after),
		FromFile: name + " (running)",
		ToFile:   name + " (projected)",
		Context:  3,
	})
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}

// Decisions writes a decision table.
func Decisions(w io.Writer, decisions []changeset.Decision) {
	t := cli.NewTable(w, "INTERFACE", "MODE", "VLAN", "RULE", "DECISION")
	for _, d := range decisions {
		t.Row(d.Interface, d.Mode, string(d.VLAN), d.Rule.String(), decisionLabel(d.Kind))
	}
	t.Flush()
}

func decisionLabel(k changeset.Kind) string {
	switch k {
	case changeset.Change:
		return cli.Green(string(k))
	case changeset.WarnDynamic, changeset.RuleRejected:
		return cli.Yellow(string(k))
	default:
		return string(k)
	}
}

// Interfaces writes the classified interfaces.
func Interfaces(w io.Writer, intfs []classify.Interface) {
	t := cli.NewTable(w, "INTERFACE", "MODE", "ACCESS", "VOICE", "CHANNEL-GROUP")
	for _, i := range intfs {
		member := ""
		if i.ChannelMember {
			member = "yes"
		}
		t.Row(i.Name, i.Mode(), i.AccessVLAN, i.VoiceVLAN, member)
	}
	t.Flush()
}

// Events writes audit events, one row each.
func Events(w io.Writer, events []*audit.Event) {
	t := cli.NewTable(w, "TIME", "USER", "DEVICE", "OPERATION", "CHANGED", "COMMANDS", "RESULT")
	for _, e := range events {
		result := cli.Green("ok")
		if !e.Success {
			result = cli.Red("failed: " + truncate(e.Error, 60))
		}
		t.Row(
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.User,
			e.Device,
			string(e.Operation),
			strconv.Itoa(e.Changed),
			strconv.Itoa(len(e.Commands)),
			result,
		)
	}
	t.Flush()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// JSON writes v indented.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
