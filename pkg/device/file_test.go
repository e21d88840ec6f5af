package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/util"
)

func TestFileDialer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sw1.cfg")
	if err := os.WriteFile(path, []byte("hostname sw1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dev := inventory.Device{DeviceType: "cisco_ios", Transport: "file", ConfigFile: path}

	sess, err := NewDialer(Options{}).Dial(context.Background(), dev)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sess.Close()

	cfg, err := sess.RunningConfig(context.Background())
	if err != nil || cfg != "hostname sw1\n" {
		t.Errorf("RunningConfig = %q, %v", cfg, err)
	}
	if _, err := sess.SendConfigSet(context.Background(), []string{"x"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("SendConfigSet err = %v", err)
	}
	if _, err := sess.SaveConfig(context.Background()); !errors.Is(err, util.ErrNotConnected) {
		t.Errorf("SaveConfig err = %v", err)
	}
}

func TestFileDialer_Missing(t *testing.T) {
	dev := inventory.Device{Transport: "file", ConfigFile: filepath.Join(t.TempDir(), "nope.cfg")}
	if _, err := (FileDialer{}).Dial(context.Background(), dev); !errors.Is(err, util.ErrSession) {
		t.Errorf("err = %v, want ErrSession", err)
	}
	if _, err := (FileDialer{}).Dial(context.Background(), inventory.Device{Transport: "file"}); !errors.Is(err, util.ErrSession) {
		t.Errorf("err = %v, want ErrSession", err)
	}
}

func TestNewDialer_UnknownTransport(t *testing.T) {
	dev := inventory.Device{DeviceType: "cisco_ios", Host: "h", Username: "u", Transport: "telnet"}
	if _, err := NewDialer(Options{}).Dial(context.Background(), dev); err == nil {
		t.Error("expected error for unknown transport")
	}
}
