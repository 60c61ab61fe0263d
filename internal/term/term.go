// Package term resolves whether ANSI colors should be used and applies that
// decision to the color library shared by logging and display.
package term

import (
	"os"
	"strings"

	"github.com/gookit/color"

	"github.com/backmassage/mediaferry/internal/config"
)

var enabled bool

// Configure resolves the color mode and records the decision. Call once
// during startup (from [logging.New]).
func Configure(mode config.ColorMode) {
	enabled = Resolve(mode, os.Stdout)
	color.Enable = enabled
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return enabled }

// Resolve determines whether colors should be enabled for out based on the
// configured mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func Resolve(mode config.ColorMode, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(out) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
