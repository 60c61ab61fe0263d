package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/naming"
	"github.com/backmassage/mediaferry/internal/probe"
)

// Prober inspects a finished output file.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.ProbeResult, error)
}

// Transcoder converts a local media file with the configured profile.
type Transcoder struct {
	bin     string
	workDir string
	profile Profile
	tee     io.Writer
	prober  Prober // nil disables output verification

	exec   func(ctx context.Context, args []string, tee io.Writer) ExecResult
	detect func(path string) (*mimetype.MIME, error)
}

// OutputMIME is the content type every converted file must have.
const OutputMIME = "video/mp4"

// New builds a Transcoder from cfg. Verbose runs mirror ffmpeg's stderr to
// os.Stderr; VerifyOutput enables a content-type sniff and an ffprobe check
// of every output.
func New(cfg *config.Config) *Transcoder {
	t := &Transcoder{
		bin:     cfg.FFmpegBinary,
		workDir: cfg.WorkDir,
		profile: ProfileFor(cfg.EncoderMode),
		exec:    Execute,
		detect:  mimetype.DetectFile,
	}
	if cfg.Verbose {
		t.tee = os.Stderr
	}
	if cfg.VerifyOutput {
		t.prober = probe.Prober{Binary: cfg.FFprobeBinary}
	}
	return t
}

// Profile returns the encoding profile in use.
func (t *Transcoder) Profile() Profile { return t.profile }

// Convert transcodes input into <WorkDir>/<stem>.converted.mp4 and returns
// that path. Any failure is a *ConversionError.
func (t *Transcoder) Convert(ctx context.Context, input string) (string, error) {
	output := naming.ConvertedPath(t.workDir, input)
	res := t.exec(ctx, Build(t.bin, input, output, t.profile), t.tee)
	if res.Err != nil {
		return "", &ConversionError{
			Input:  input,
			Output: output,
			Reason: Classify(res.Stderr),
			Stderr: res.Stderr,
			Err:    res.Err,
		}
	}

	if t.prober != nil {
		if reason, err := t.verify(ctx, output); err != nil {
			return "", &ConversionError{Input: input, Output: output, Reason: reason, Err: err}
		}
	}
	return output, nil
}

// verify checks that output is an MP4 whose primary video stream has the
// profile's scaled size.
func (t *Transcoder) verify(ctx context.Context, output string) (Reason, error) {
	mt, err := t.detect(output)
	if err != nil {
		return ReasonUnknown, fmt.Errorf("detect content type: %w", err)
	}
	if !mt.Is(OutputMIME) {
		return ReasonBadOutput, fmt.Errorf("output is %s, want %s", mt.String(), OutputMIME)
	}

	pr, err := t.prober.Probe(ctx, output)
	if err != nil {
		return ReasonUnknown, err
	}
	if !pr.HasVideo() {
		return ReasonNoVideoStream, errNoVideo
	}
	if got := pr.Resolution(); got != t.profile.Scale {
		return ReasonBadOutput, fmt.Errorf("output resolution %s, want %s", got, t.profile.Scale)
	}
	return "", nil
}

var errNoVideo = errors.New("output has no video stream")
