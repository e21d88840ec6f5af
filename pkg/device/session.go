// Package device provides sessions to switches: fetching the running
// configuration, pushing configuration commands and saving the result.
package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newtron-network/vlanshift/pkg/inventory"
)

// Session is an open channel to one device.
type Session interface {
	// RunningConfig returns the current running configuration text.
	RunningConfig(ctx context.Context) (string, error)

	// SendConfigSet enters configuration mode, sends commands in order and
	// leaves configuration mode. It returns the device output.
	SendConfigSet(ctx context.Context, commands []string) (string, error)

	// SaveConfig persists the running configuration.
	SaveConfig(ctx context.Context) (string, error)

	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, d inventory.Device) (Session, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, d inventory.Device) (Session, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, d inventory.Device) (Session, error) {
	return f(ctx, d)
}

// Platform holds the CLI dialect of a device type.
type Platform struct {
	ShowRunning string
	ConfigEnter string
	ConfigExit  string
	Save        string
	// Setup runs before anything else on interactive shells.
	Setup []string
}

var platforms = map[string]Platform{
	"cisco_ios": {
		ShowRunning: "show running-config",
		ConfigEnter: "configure terminal",
		ConfigExit:  "end",
		Save:        "write memory",
		Setup:       []string{"terminal length 0"},
	},
	"cisco_nxos": {
		ShowRunning: "show running-config",
		ConfigEnter: "configure terminal",
		ConfigExit:  "end",
		Save:        "copy running-config startup-config",
		Setup:       []string{"terminal length 0"},
	},
}

func init() {
	platforms["cisco_xe"] = platforms["cisco_ios"]
	platforms["cisco_ios_ssh"] = platforms["cisco_ios"]
}

// LookupPlatform returns the dialect for a device type.
func LookupPlatform(deviceType string) (Platform, error) {
	p, ok := platforms[strings.ToLower(deviceType)]
	if !ok {
		return Platform{}, fmt.Errorf("unsupported device type %q", deviceType)
	}
	return p, nil
}

// Options configure the default dialer.
type Options struct {
	// Timeout bounds dialing and each command. Zero means 30s.
	Timeout time.Duration

	// KnownHostsFile enables host key checking when set.
	KnownHostsFile string
}

// NewDialer returns a Dialer that picks the transport named by each device.
func NewDialer(opts Options) Dialer {
	sshDialer := &SSHDialer{Timeout: opts.Timeout, KnownHostsFile: opts.KnownHostsFile}
	fileDialer := FileDialer{}
	return DialerFunc(func(ctx context.Context, d inventory.Device) (Session, error) {
		switch d.TransportName() {
		case inventory.TransportFile:
			return fileDialer.Dial(ctx, d)
		case inventory.TransportSSH:
			return sshDialer.Dial(ctx, d)
		}
		return nil, fmt.Errorf("unknown transport %q", d.Transport)
	})
}
