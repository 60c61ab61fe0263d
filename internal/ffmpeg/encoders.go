package ffmpeg

import (
	"bufio"
	"strings"
)

// ParseEncoders extracts encoder names from `ffmpeg -hide_banner -encoders`.
// Each encoder row is "<flags> <name> <description>" and follows the
// " ------" separator line.
func ParseEncoders(out string) []string {
	var names []string
	started := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !started {
			started = strings.HasPrefix(line, "------")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			names = append(names, fields[1])
		}
	}
	return names
}

// HasEncoder reports whether name appears in `ffmpeg -encoders` output.
func HasEncoder(out, name string) bool {
	for _, n := range ParseEncoders(out) {
		if n == name {
			return true
		}
	}
	return false
}
