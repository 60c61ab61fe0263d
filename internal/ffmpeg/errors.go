package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// Reason classifies why a conversion failed.
type Reason string

const (
	ReasonEncoderUnavailable Reason = "encoder_unavailable"
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonNoSpace            Reason = "no_space"
	ReasonNoVideoStream      Reason = "no_video_stream"
	ReasonBadOutput          Reason = "bad_output"
	ReasonUnknown            Reason = "unknown"
)

// Pre-compiled regexes for classifying ffmpeg stderr. Checked in the order
// of classifiers; the first match wins.
var (
	reNoSpace = regexp.MustCompile(
		`(?i)No space left on device|Disk quota exceeded`)

	reEncoderUnavailable = regexp.MustCompile(
		`(?i)Unknown encoder|Encoder .* not found|` +
			`No NVENC capable devices found|Cannot load (lib)?nvcuda|` +
			`Cannot load libnvidia-encode|OpenEncodeSessionEx failed|` +
			`Error while opening encoder for output stream .*video`)

	reNoVideoStream = regexp.MustCompile(
		`(?i)Stream map '0:v.*' matches no streams|` +
			`Output file #?\d* ?does not contain any stream|` +
			`Output file is empty, nothing was encoded`)

	reInvalidInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`No such file or directory|moov atom not found|` +
			`could not find codec parameters|End of file`)
)

var classifiers = []struct {
	re     *regexp.Regexp
	reason Reason
}{
	{reNoSpace, ReasonNoSpace},
	{reEncoderUnavailable, ReasonEncoderUnavailable},
	{reNoVideoStream, ReasonNoVideoStream},
	{reInvalidInput, ReasonInvalidInput},
}

// Classify maps ffmpeg stderr to a Reason.
func Classify(stderr string) Reason {
	for _, c := range classifiers {
		if c.re.MatchString(stderr) {
			return c.reason
		}
	}
	return ReasonUnknown
}

// stderrTailLines bounds how much of ffmpeg's stderr an error message carries.
const stderrTailLines = 5

// ConversionError is returned by Transcoder.Convert for any failed run.
type ConversionError struct {
	Input  string
	Output string
	Reason Reason
	Stderr string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("convert %s -> %s: %s", e.Input, e.Output, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if tail := StderrTail(e.Stderr, stderrTailLines); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// StderrTail returns the last n non-blank lines of stderr.
func StderrTail(stderr string, n int) string {
	var lines []string
	for _, l := range strings.Split(stderr, "\n") {
		if l = strings.TrimRight(l, "\r "); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
