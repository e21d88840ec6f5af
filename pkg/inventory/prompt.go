package inventory

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordFunc returns the password for user on host.
type PasswordFunc func(user, host string) (string, error)

// FillPasswords asks fn for every device that needs a password and has none.
// Answers are reused for later devices with the same username, so an operator
// is asked once per account.
func FillPasswords(devices []Device, fn PasswordFunc) error {
	known := make(map[string]string)
	for i := range devices {
		d := &devices[i]
		if d.Password != "" || d.TransportName() == TransportFile {
			continue
		}
		if pw, ok := known[d.Username]; ok {
			d.Password = pw
			continue
		}
		pw, err := fn(d.Username, d.Host)
		if err != nil {
			return fmt.Errorf("password for %s@%s: %w", d.Username, d.Host, err)
		}
		known[d.Username] = pw
		d.Password = pw
	}
	return nil
}

// TerminalPrompt reads passwords from the controlling terminal without echo.
// It fails when stdin is not a terminal.
func TerminalPrompt(out io.Writer) PasswordFunc {
	return func(user, host string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no password in inventory and stdin is not a terminal")
		}
		fmt.Fprintf(out, "Password for %s@%s: ", user, host)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(pw), "\r\n"), nil
	}
}
