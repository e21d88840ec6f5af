package device

import (
	"context"
	"fmt"
	"os"

	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/util"
)

// ErrReadOnly is returned by sessions that cannot change a device.
var ErrReadOnly = fmt.Errorf("session is read-only: %w", util.ErrNotConnected)

// FileDialer opens saved running configurations from disk. It serves offline
// planning; applying to a file session always fails.
type FileDialer struct{}

// Dial reads dev.ConfigFile.
func (FileDialer) Dial(ctx context.Context, dev inventory.Device) (Session, error) {
	if dev.ConfigFile == "" {
		return nil, fmt.Errorf("%w: no config file for %s", util.ErrSession, dev.Label())
	}
	data, err := os.ReadFile(dev.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrSession, err)
	}
	return &FileSession{Path: dev.ConfigFile, Config: string(data)}, nil
}

// FileSession returns a fixed configuration.
type FileSession struct {
	Path   string
	Config string
}

// RunningConfig returns the file contents.
func (s *FileSession) RunningConfig(ctx context.Context) (string, error) {
	return s.Config, ctx.Err()
}

// SendConfigSet fails with ErrReadOnly.
func (s *FileSession) SendConfigSet(ctx context.Context, commands []string) (string, error) {
	return "", fmt.Errorf("%s: %w", s.Path, ErrReadOnly)
}

// SaveConfig fails with ErrReadOnly.
func (s *FileSession) SaveConfig(ctx context.Context) (string, error) {
	return "", fmt.Errorf("%s: %w", s.Path, ErrReadOnly)
}

func (s *FileSession) Close() error { return nil }
