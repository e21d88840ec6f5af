package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newtron-network/vlanshift/pkg/cli"
)

const floorConfig = `hostname SW-FLOOR1
!
interface GigabitEthernet1/0/1
 switchport mode access
 switchport access vlan 10
 switchport voice vlan 110
interface GigabitEthernet1/0/2
 switchport access vlan 10
interface GigabitEthernet1/0/3
 switchport mode trunk
 switchport access vlan 10
!
end
`

func init() {
	cli.SetColor(false)
}

// workspace holds an inventory, mapping and config in a temp dir with HOME
// pointed there so settings and the audit log stay isolated.
type workspace struct {
	dir       string
	inventory string
	mapping   string
	config    string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("VLANSHIFT_AUDIT_LOG", filepath.Join(dir, "audit.log"))

	w := &workspace{
		dir:       dir,
		inventory: filepath.Join(dir, "devices.yaml"),
		mapping:   filepath.Join(dir, "vlan.txt"),
		config:    filepath.Join(dir, "sw1.cfg"),
	}
	write(t, w.config, floorConfig)
	write(t, w.mapping, "OLDVLAN,NEWVLAN\n10,20\n110,120\n")
	write(t, w.inventory, `devices:
  - name: sw1
    device_type: cisco_ios
    transport: file
    config_file: sw1.cfg
`)
	return w
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(newApp())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_DryRun(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "run", "--inventory", w.inventory, "--mapping", w.mapping)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assertContains(t, out,
		"Checking device SW-FLOOR1",
		"GigabitEthernet1/0/1: Changing VLAN 10->20",
		"WARNING: Interface GigabitEthernet1/0/2 is in mode dynamic auto (VLAN not changed)",
		"Changes to be applied:",
		"switchport access vlan 20",
		"switchport voice vlan 120",
		"DRY-RUN",
		"1 devices, 0 failed, 4 commands (simulate, run ",
		"Total run time:",
	)
	if strings.Contains(out, "--- SW-FLOOR1") {
		t.Error("diff printed without --diff")
	}
}

func TestRun_ExecuteOnReadOnlyTransport(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "run", "force", "--inventory", w.inventory, "--mapping", w.mapping)
	if err != nil {
		t.Fatalf("run without --strict should not fail: %v", err)
	}
	assertContains(t, out, "ERROR: sw1: apply failed:", "read-only", "1 devices, 1 failed")

	_, err = execute(t, "run", "-x", "--strict", "--inventory", w.inventory, "--mapping", w.mapping)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 devices failed") {
		t.Errorf("run --strict error = %v", err)
	}
}

func TestRun_JSONAndMetrics(t *testing.T) {
	w := newWorkspace(t)
	metricsFile := filepath.Join(w.dir, "vlanshift.prom")

	out, err := execute(t, "run", "--json", "--inventory", w.inventory, "--mapping", w.mapping,
		"--metrics-file", metricsFile)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Mode    string `json:"mode"`
		Devices []struct {
			Hostname  string `json:"hostname"`
			Changeset struct {
				Commands []string `json:"commands"`
			} `json:"changeset"`
		} `json:"devices"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if decoded.Mode != "simulate" || len(decoded.Devices) != 1 || decoded.Devices[0].Hostname != "SW-FLOOR1" {
		t.Fatalf("decoded = %+v", decoded)
	}
	if got := len(decoded.Devices[0].Changeset.Commands); got != 4 {
		t.Errorf("changeset has %d commands, want 4", got)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	assertContains(t, string(data), `vlanshift_devices_total{result="ok"} 1`)
}

func TestRun_Arguments(t *testing.T) {
	w := newWorkspace(t)

	if _, err := execute(t, "run", "now", "--inventory", w.inventory, "--mapping", w.mapping); err == nil {
		t.Error("run should reject arguments other than force")
	}
	if _, err := execute(t, "run", "--mapping", w.mapping); err == nil || !strings.Contains(err.Error(), "inventory required") {
		t.Errorf("missing inventory error = %v", err)
	}
	if _, err := execute(t, "run", "--inventory", filepath.Join(w.dir, "missing.csv"), "--mapping", w.mapping); err == nil {
		t.Error("missing inventory file should fail")
	}
}

func TestRun_UsesSettings(t *testing.T) {
	w := newWorkspace(t)

	if _, err := execute(t, "settings", "set", "inventory", w.inventory); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VLANSHIFT_MAPPING", w.mapping)

	out, err := execute(t, "run")
	if err != nil {
		t.Fatalf("run from settings: %v", err)
	}
	assertContains(t, out, "Checking device SW-FLOOR1")
}

func TestPlan(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "plan", w.config, "--mapping", w.mapping, "--decisions")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out,
		"--- SW-FLOOR1 (running)",
		"+++ SW-FLOOR1 (projected)",
		"+ switchport access vlan 20",
		"GigabitEthernet1/0/3: trunk port",
		"INTERFACE",
		"warn-dynamic",
	)

	out, err = execute(t, "plan", w.config, "--mapping", w.mapping, "--no-diff")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "(projected)") {
		t.Errorf("--no-diff still printed a diff:\n%s", out)
	}

	if _, err := execute(t, "plan", w.config); err == nil || !strings.Contains(err.Error(), "mapping required") {
		t.Errorf("plan without mapping error = %v", err)
	}
}

func TestPlan_DoesNotAudit(t *testing.T) {
	w := newWorkspace(t)
	if _, err := execute(t, "plan", w.config, "--mapping", w.mapping); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(w.dir, "audit.log")); !os.IsNotExist(err) {
		t.Errorf("plan wrote the audit log (stat err = %v)", err)
	}
}

func TestShow(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "show", w.config)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Device: SW-FLOOR1", "GigabitEthernet1/0/1", "GigabitEthernet1/0/2", "GigabitEthernet1/0/3",
		"Access VLANs: 10\n", "Voice VLANs:  110\n")

	out, err = execute(t, "show", w.config, "--vlan", "110")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "GigabitEthernet1/0/1") || strings.Contains(out, "GigabitEthernet1/0/2") {
		t.Errorf("--vlan 110:\n%s", out)
	}

	out, err = execute(t, "show", w.config, "--vlan", "100-120")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "GigabitEthernet1/0/1") || strings.Contains(out, "GigabitEthernet1/0/3") {
		t.Errorf("--vlan 100-120:\n%s", out)
	}
	if _, err := execute(t, "show", w.config, "--vlan", "5000"); err == nil {
		t.Error("--vlan 5000 should fail")
	}

	out, err = execute(t, "show", w.config, "--match", `1/0/3$`, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var intfs []map[string]any
	if err := json.Unmarshal([]byte(out), &intfs); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(intfs) != 1 || intfs[0]["name"] != "GigabitEthernet1/0/3" || intfs[0]["trunk_mode"] != true {
		t.Errorf("--match = %v", intfs)
	}

	if _, err := execute(t, "show", w.config, "--match", "("); err == nil {
		t.Error("invalid --match should fail")
	}
}

func TestAudit(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "audit")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "No audit events found")

	if _, err := execute(t, "run", "--inventory", w.inventory, "--mapping", w.mapping); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "run", "-x", "--inventory", w.inventory, "--mapping", w.mapping); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "audit", "--device", "sw1")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "sw1", "simulate", "apply", "failed: sw1: apply failed")

	out, err = execute(t, "audit", "--failures", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var events []map[string]any
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(events) != 1 || events[0]["operation"] != "apply" {
		t.Errorf("--failures = %v", events)
	}

	out, err = execute(t, "audit", "--interface", "GigabitEthernet1/0/1", "--applied")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "simulate") {
		t.Errorf("--applied listed simulate events:\n%s", out)
	}

	if _, err := execute(t, "audit", "--last", "yesterday"); err == nil {
		t.Error("invalid --last should fail")
	}
}

func TestSettingsCommands(t *testing.T) {
	newWorkspace(t)

	if _, err := execute(t, "settings", "set", "workers", "4"); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "settings", "get", "workers")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "4" {
		t.Errorf("get workers = %q", out)
	}

	out, err = execute(t, "settings", "show")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Settings file:", "SETTING", "workers", "(not set)")

	if _, err := execute(t, "settings", "set", "workers", "lots"); err == nil {
		t.Error("set workers lots should fail")
	}
	if _, err := execute(t, "settings", "set", "colour", "blue"); err == nil {
		t.Error("unknown setting should fail")
	}

	if _, err := execute(t, "settings", "clear"); err != nil {
		t.Fatal(err)
	}
	out, _ = execute(t, "settings", "get", "workers")
	if strings.TrimSpace(out) != "" {
		t.Errorf("workers after clear = %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "vlanshift")
}
