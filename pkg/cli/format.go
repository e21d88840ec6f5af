// Package cli provides shared formatting helpers for the vlanshift CLI.
package cli

import (
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

// colorEnabled is false when NO_COLOR is set (per no-color.org) or stdout
// is not a terminal.
var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd())))
}

// SetColor forces color on or off.
func SetColor(on bool) {
	colorEnabled.Store(on)
}

func paint(code, s string) string {
	if !colorEnabled.Load() {
		return s
	}
	return code + s + "\033[0m"
}

// Green wraps s in ANSI green when color is enabled.
func Green(s string) string { return paint("\033[32m", s) }

// Yellow wraps s in ANSI yellow when color is enabled.
func Yellow(s string) string { return paint("\033[33m", s) }

// Red wraps s in ANSI red when color is enabled.
func Red(s string) string { return paint("\033[31m", s) }

// Bold wraps s in ANSI bold when color is enabled.
func Bold(s string) string { return paint("\033[1m", s) }

// Dim wraps s in ANSI dim when color is enabled.
func Dim(s string) string { return paint("\033[2m", s) }

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visualLen is the printed width of s, ignoring ANSI escapes.
func visualLen(s string) int {
	return len([]rune(ansiRe.ReplaceAllString(s, "")))
}

// DotPad pads name with dots to the given width.
// Example: DotPad("access-sw1", 20) → "access-sw1 ........."
func DotPad(name string, width int) string {
	n := visualLen(name)
	if width <= 0 || n >= width-1 {
		return name
	}
	return name + " " + strings.Repeat(".", width-n-1)
}
