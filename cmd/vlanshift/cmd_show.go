package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/vlanshift/pkg/classify"
	"github.com/newtron-network/vlanshift/pkg/config"
	"github.com/newtron-network/vlanshift/pkg/report"
	"github.com/newtron-network/vlanshift/pkg/util"
)

func newShowCmd(app *App) *cobra.Command {
	var (
		vlan  string
		match string
	)
	cmd := &cobra.Command{
		Use:   "show <config-file>",
		Short: "List the interfaces of a saved configuration",
		Long: `List the interfaces of a saved configuration with their switchport mode,
access and voice VLANs and channel-group membership.

Examples:
  vlanshift show sw1.cfg
  vlanshift show sw1.cfg --vlan 10,100-110
  vlanshift show sw1.cfg --match 'GigabitEthernet1/0/[0-9]$'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree := config.ParseText(string(data))

			parent := classify.IsInterface
			if match != "" {
				re, err := regexp.Compile(match)
				if err != nil {
					return fmt.Errorf("invalid --match: %w", err)
				}
				nameRe := config.Regexp(re)
				parent = func(text string) bool {
					return classify.IsInterface(text) && nameRe(text)
				}
			}

			var want map[string]bool
			if vlan != "" {
				ids, err := util.ExpandVLANRange(vlan)
				if err != nil {
					return fmt.Errorf("invalid --vlan: %w", err)
				}
				want = make(map[string]bool, len(ids))
				for _, id := range ids {
					want[strconv.Itoa(id)] = true
				}
			}

			var intfs []classify.Interface
			for _, n := range tree.FindRoots(parent) {
				intf := classify.Describe(n)
				if want != nil && !want[intf.AccessVLAN] && !want[intf.VoiceVLAN] {
					continue
				}
				intfs = append(intfs, intf)
			}

			out := cmd.OutOrStdout()
			if app.jsonOutput {
				return report.JSON(out, intfs)
			}
			if len(intfs) == 0 {
				fmt.Fprintln(out, "No matching interfaces")
				return nil
			}
			if hostname, ok := tree.Hostname(); ok {
				fmt.Fprintf(out, "Device: %s\n\n", hostname)
			}
			report.Interfaces(out, intfs)

			var access, voice []int
			for _, intf := range intfs {
				if id, err := strconv.Atoi(intf.AccessVLAN); err == nil {
					access = append(access, id)
				}
				if id, err := strconv.Atoi(intf.VoiceVLAN); err == nil {
					voice = append(voice, id)
				}
			}
			fmt.Fprintf(out, "\nAccess VLANs: %s\n", orNone(util.CompactVLANRange(access)))
			fmt.Fprintf(out, "Voice VLANs:  %s\n", orNone(util.CompactVLANRange(voice)))
			return nil
		},
	}
	cmd.Flags().StringVar(&vlan, "vlan", "", "Only interfaces with these access or voice VLANs (e.g. 10,100-110)")
	cmd.Flags().StringVar(&match, "match", "", "Only interfaces whose line matches this regexp")
	addOutputFlags(cmd, app)
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
