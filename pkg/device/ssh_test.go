package device

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/util"
)

const fakeRunning = "Building configuration...\r\n\r\nhostname access-sw1\r\n!\r\ninterface GigabitEthernet1/0/1\r\n switchport mode access\r\n switchport access vlan 10\r\n!\r\nend\r\n"

// fakeSwitch is an in-process SSH server that answers like an IOS switch.
type fakeSwitch struct {
	running string
	reject  string
	block   chan struct{}
	signer  ssh.Signer

	mu    sync.Mutex
	execs []string
	shell []string
}

func (sw *fakeSwitch) start(t *testing.T) inventory.Device {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sw.signer, err = ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if c.User() == "netops" && string(pw) == "secret" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	config.AddHostKey(sw.signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go sw.serve(conn, config)
		}
	}()

	return inventory.Device{
		Name:       "access-sw1",
		DeviceType: "cisco_ios",
		Host:       "127.0.0.1",
		Port:       ln.Addr().(*net.TCPAddr).Port,
		Username:   "netops",
		Password:   "secret",
	}
}

func (sw *fakeSwitch) serve(conn net.Conn, config *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}
		go sw.session(ch, requests)
	}
}

func (sw *fakeSwitch) session(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	exit := func() {
		ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
	}
	for req := range requests {
		switch req.Type {
		case "pty-req":
			req.Reply(true, nil)
		case "exec":
			var payload struct{ Command string }
			ssh.Unmarshal(req.Payload, &payload)
			req.Reply(true, nil)
			io.WriteString(ch, sw.exec(payload.Command))
			exit()
			return
		case "shell":
			req.Reply(true, nil)
			sw.interactive(ch)
			exit()
			return
		default:
			req.Reply(false, nil)
		}
	}
}

func (sw *fakeSwitch) exec(cmd string) string {
	sw.mu.Lock()
	sw.execs = append(sw.execs, cmd)
	sw.mu.Unlock()

	switch cmd {
	case "show running-config":
		if sw.block != nil {
			<-sw.block
		}
		return sw.running
	case "write memory":
		return "Building configuration...\r\n[OK]\r\n"
	}
	return "% Invalid input detected at '^' marker.\r\n"
}

func (sw *fakeSwitch) interactive(ch ssh.Channel) {
	sc := bufio.NewScanner(ch)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		sw.mu.Lock()
		sw.shell = append(sw.shell, line)
		sw.mu.Unlock()

		fmt.Fprintf(ch, "access-sw1(config)#%s\r\n", line)
		if line == sw.reject {
			io.WriteString(ch, "                    ^\r\n% Invalid input detected at '^' marker.\r\n")
		}
		if line == "exit" {
			return
		}
	}
}

func (sw *fakeSwitch) recorded() (execs, shell []string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return append([]string(nil), sw.execs...), append([]string(nil), sw.shell...)
}

func dialFake(t *testing.T, sw *fakeSwitch, d *SSHDialer) Session {
	t.Helper()
	dev := sw.start(t)
	sess, err := d.Dial(context.Background(), dev)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestSSHSession_RunningConfig(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning}
	sess := dialFake(t, sw, &SSHDialer{Timeout: 5 * time.Second})

	got, err := sess.RunningConfig(context.Background())
	if err != nil {
		t.Fatalf("RunningConfig: %v", err)
	}
	if got != fakeRunning {
		t.Errorf("RunningConfig = %q", got)
	}
	execs, _ := sw.recorded()
	if len(execs) != 1 || execs[0] != "show running-config" {
		t.Errorf("execs = %v", execs)
	}
}

func TestSSHSession_SendConfigSet(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning}
	sess := dialFake(t, sw, &SSHDialer{Timeout: 5 * time.Second})

	cmds := []string{"interface GigabitEthernet1/0/1", " switchport access vlan 20"}
	out, err := sess.SendConfigSet(context.Background(), cmds)
	if err != nil {
		t.Fatalf("SendConfigSet: %v\n%s", err, out)
	}

	_, shell := sw.recorded()
	want := []string{
		"terminal length 0",
		"configure terminal",
		"interface GigabitEthernet1/0/1",
		" switchport access vlan 20",
		"end",
		"exit",
	}
	if strings.Join(shell, "|") != strings.Join(want, "|") {
		t.Errorf("shell lines = %q, want %q", shell, want)
	}
	if !strings.Contains(out, "switchport access vlan 20") {
		t.Errorf("transcript missing command:\n%s", out)
	}
}

func TestSSHSession_SendConfigSetRejected(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning, reject: " switchport acces vlan 20"}
	sess := dialFake(t, sw, &SSHDialer{Timeout: 5 * time.Second})

	_, err := sess.SendConfigSet(context.Background(), []string{"interface Gi1/0/1", " switchport acces vlan 20"})
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("err = %v, want ErrCommandRejected", err)
	}
	if !strings.Contains(err.Error(), "switchport acces vlan 20") {
		t.Errorf("err = %v, want offending command", err)
	}
}

func TestSSHSession_SaveConfig(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning}
	sess := dialFake(t, sw, &SSHDialer{Timeout: 5 * time.Second})

	out, err := sess.SaveConfig(context.Background())
	if err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if !strings.Contains(out, "[OK]") {
		t.Errorf("SaveConfig output = %q", out)
	}
	execs, _ := sw.recorded()
	if len(execs) != 1 || execs[0] != "write memory" {
		t.Errorf("execs = %v", execs)
	}
}

func TestSSHSession_CommandTimeout(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning, block: make(chan struct{})}
	t.Cleanup(func() { close(sw.block) })
	sess := dialFake(t, sw, &SSHDialer{Timeout: 200 * time.Millisecond})

	_, err := sess.RunningConfig(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestSSHDialer_AuthFailure(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning}
	dev := sw.start(t)
	dev.Password = "wrong"

	_, err := (&SSHDialer{Timeout: 5 * time.Second}).Dial(context.Background(), dev)
	if !errors.Is(err, util.ErrSession) {
		t.Errorf("err = %v, want ErrSession", err)
	}
}

func TestSSHDialer_UnsupportedDeviceType(t *testing.T) {
	dev := inventory.Device{DeviceType: "juniper_junos", Host: "127.0.0.1", Username: "x"}
	if _, err := (&SSHDialer{}).Dial(context.Background(), dev); err == nil {
		t.Error("expected error for unsupported device type")
	}
}

func TestSSHDialer_KnownHosts(t *testing.T) {
	sw := &fakeSwitch{running: fakeRunning}
	dev := sw.start(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{dev.Address()}, sw.signer.PublicKey())
	if err := os.WriteFile(good, []byte(line+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	sess, err := (&SSHDialer{Timeout: 5 * time.Second, KnownHostsFile: good}).Dial(context.Background(), dev)
	if err != nil {
		t.Fatalf("Dial with matching host key: %v", err)
	}
	sess.Close()

	_, other, _ := ed25519.GenerateKey(rand.Reader)
	otherSigner, _ := ssh.NewSignerFromKey(other)
	bad := filepath.Join(dir, "known_hosts.bad")
	line = knownhosts.Line([]string{dev.Address()}, otherSigner.PublicKey())
	if err := os.WriteFile(bad, []byte(line+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := (&SSHDialer{Timeout: 5 * time.Second, KnownHostsFile: bad}).Dial(context.Background(), dev); !errors.Is(err, util.ErrSession) {
		t.Errorf("Dial with mismatched host key: err = %v", err)
	}
}

func TestCheckOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr bool
	}{
		{"clean", "sw(config)#interface Gi1/0/1\nsw(config-if)#end\n", false},
		{"invalid", "sw(config-if)#switchport acces vlan 20\n  ^\n% Invalid input detected at '^' marker.\n", true},
		{"incomplete", "sw(config-if)#switchport access\n% Incomplete command.\n", true},
		{"ambiguous", "% Ambiguous command:  \"sw\"\n", true},
		{"marker inside description", "sw(config-if)#description % Invalid input\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOutput(tt.out)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkOutput() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCommandRejected) {
				t.Errorf("err = %v, want ErrCommandRejected", err)
			}
		})
	}
}

func TestLookupPlatform(t *testing.T) {
	p, err := LookupPlatform("CISCO_IOS")
	if err != nil {
		t.Fatalf("LookupPlatform: %v", err)
	}
	if p.Save != "write memory" || p.ConfigEnter != "configure terminal" {
		t.Errorf("platform = %+v", p)
	}
	if _, err := LookupPlatform("cisco_xe"); err != nil {
		t.Errorf("cisco_xe: %v", err)
	}
	if _, err := LookupPlatform("unknown"); err == nil {
		t.Error("expected error for unknown platform")
	}
}
