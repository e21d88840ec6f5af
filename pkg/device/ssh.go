package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/util"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrCommandRejected is returned when the device answers a configuration
// command with an error marker.
var ErrCommandRejected = errors.New("command rejected by device")

// Markers the IOS family prints in front of a rejected command.
var rejectMarkers = []string{
	"% Invalid input",
	"% Incomplete command",
	"% Ambiguous command",
	"% Invalid command",
}

// SSHDialer opens SSH sessions with password or keyboard-interactive auth.
type SSHDialer struct {
	Timeout time.Duration

	// KnownHostsFile is an OpenSSH known_hosts file. When empty, host keys
	// are not checked.
	KnownHostsFile string
}

func (d *SSHDialer) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}
	return cb, nil
}

// Dial connects to dev and returns an SSHSession.
func (d *SSHDialer) Dial(ctx context.Context, dev inventory.Device) (Session, error) {
	platform, err := LookupPlatform(dev.DeviceType)
	if err != nil {
		return nil, err
	}
	hostKey, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	password := dev.Password
	config := &ssh.ClientConfig{
		User: dev.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
		Timeout:         d.timeout(),
	}

	addr := dev.Address()
	nd := net.Dialer{Timeout: d.timeout()}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", util.ErrSession, addr, err)
	}

	// Bound the handshake; the deadline is cleared once the client is up.
	conn.SetDeadline(time.Now().Add(d.timeout()))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ssh handshake %s: %w", util.ErrSession, addr, err)
	}
	conn.SetDeadline(time.Time{})

	util.WithDevice(dev.Label()).Debugf("SSH session established to %s", addr)
	return &SSHSession{
		client:   ssh.NewClient(c, chans, reqs),
		platform: platform,
		timeout:  d.timeout(),
		label:    dev.Label(),
	}, nil
}

// SSHSession runs show commands on exec channels and configuration on an
// interactive shell.
type SSHSession struct {
	client   *ssh.Client
	platform Platform
	timeout  time.Duration
	label    string
}

// RunningConfig runs the platform's show running-config command.
func (s *SSHSession) RunningConfig(ctx context.Context) (string, error) {
	return s.exec(ctx, s.platform.ShowRunning)
}

// SendConfigSet enters configuration mode, sends commands and returns the
// transcript. Any rejected command fails the whole set.
func (s *SSHSession) SendConfigSet(ctx context.Context, commands []string) (string, error) {
	lines := make([]string, 0, len(commands)+len(s.platform.Setup)+3)
	lines = append(lines, s.platform.Setup...)
	lines = append(lines, s.platform.ConfigEnter)
	lines = append(lines, commands...)
	lines = append(lines, s.platform.ConfigExit, "exit")

	out, err := s.shell(ctx, lines)
	if err != nil {
		return out, err
	}
	if err := checkOutput(out); err != nil {
		return out, err
	}
	return out, nil
}

// SaveConfig persists the running configuration.
func (s *SSHSession) SaveConfig(ctx context.Context) (string, error) {
	out, err := s.exec(ctx, s.platform.Save)
	if err != nil {
		return out, err
	}
	return out, checkOutput(out)
}

// Close disconnects.
func (s *SSHSession) Close() error {
	util.WithDevice(s.label).Debug("closing SSH session")
	return s.client.Close()
}

func (s *SSHSession) exec(ctx context.Context, cmd string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: SSH session: %w", util.ErrSession, err)
	}
	defer session.Close()

	var out []byte
	err = s.wait(ctx, session, func() error {
		var err error
		out, err = session.CombinedOutput(cmd)
		return err
	})
	if err != nil {
		return string(out), fmt.Errorf("SSH exec '%s': %w", cmd, err)
	}
	return string(out), nil
}

func (s *SSHSession) shell(ctx context.Context, lines []string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: SSH session: %w", util.ErrSession, err)
	}
	defer session.Close()

	var out lockedBuffer
	session.Stdout = &out
	session.Stderr = &out
	stdin, err := session.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("SSH stdin: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		return "", fmt.Errorf("SSH pty: %w", err)
	}
	if err := session.Shell(); err != nil {
		return "", fmt.Errorf("SSH shell: %w", err)
	}

	for _, line := range lines {
		util.WithDevice(s.label).Debugf("> %s", line)
		if _, err := fmt.Fprintf(stdin, "%s\n", line); err != nil {
			return out.String(), fmt.Errorf("SSH write '%s': %w", strings.TrimSpace(line), err)
		}
	}
	stdin.Close()

	if err := s.wait(ctx, session, session.Wait); err != nil {
		var exitErr *ssh.ExitMissingError
		// Some platforms drop the channel without an exit status after "exit".
		if !errors.As(err, &exitErr) {
			return out.String(), fmt.Errorf("SSH shell: %w", err)
		}
	}
	return out.String(), nil
}

// wait runs fn and closes the session when ctx or the command timeout ends
// first.
func (s *SSHSession) wait(ctx context.Context, session *ssh.Session, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		session.Close()
		<-done
		return ctx.Err()
	}
}

// checkOutput returns ErrCommandRejected for the first error marker in out.
func checkOutput(out string) error {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		for _, m := range rejectMarkers {
			if !strings.HasPrefix(line, m) {
				continue
			}
			// IOS echoes the offending command above the caret line.
			cmd := ""
			for j := i - 1; j >= 0; j-- {
				prev := strings.TrimSpace(lines[j])
				if prev != "" && prev != "^" {
					cmd = prev
					break
				}
			}
			if cmd != "" {
				return fmt.Errorf("%w: %s (after %q)", ErrCommandRejected, line, cmd)
			}
			return fmt.Errorf("%w: %s", ErrCommandRejected, line)
		}
	}
	return nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
