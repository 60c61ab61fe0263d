package pipeline

import (
	"errors"
	"fmt"

	"github.com/backmassage/mediaferry/internal/checksum"
)

// Stage names a step of a run. Used in errors, logs, metrics and the status file.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageDownload Stage = "download"
	StageConvert  Stage = "convert"
	StageUpload   Stage = "upload"
	StageArchive  Stage = "archive"
	StageCleanup  Stage = "cleanup"
)

// Fatal conditions. Every error returned by RunOnce is a *RunError whose
// Kind is one of these.
var (
	ErrNoWorkAvailable            = errors.New("no work available")
	ErrChecksumNeverMatched       = errors.New("download checksum never matched")
	ErrConversionFailed           = errors.New("conversion failed")
	ErrUploadChecksumNeverMatched = errors.New("upload checksum never matched")
	ErrTransport                  = errors.New("remote transport failed")
	ErrLocalIO                    = errors.New("local file operation failed")
	ErrInterrupted                = errors.New("interrupted")
)

// RunError is the fatal error of one run.
type RunError struct {
	Kind     error
	Stage    Stage
	File     string
	Attempts int
	Err      error
}

func (e *RunError) Error() string {
	msg := string(e.Stage)
	if e.File != "" {
		msg += " " + e.File
	}
	msg += ": " + e.Kind.Error()
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the Kind sentinel and the underlying cause to errors.Is/As.
func (e *RunError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MismatchError reports differing local and remote digests for one transfer.
type MismatchError struct {
	Path   string
	Local  checksum.Digest
	Remote checksum.Digest
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: local %s, remote %s", e.Path, e.Local, e.Remote)
}

// outcomes maps each Kind to its metrics label.
var outcomes = []struct {
	kind  error
	label string
}{
	{ErrNoWorkAvailable, "no_work"},
	{ErrChecksumNeverMatched, "checksum_never_matched"},
	{ErrConversionFailed, "conversion_failed"},
	{ErrUploadChecksumNeverMatched, "upload_checksum_never_matched"},
	{ErrTransport, "transport"},
	{ErrLocalIO, "local_io"},
	{ErrInterrupted, "interrupted"},
}

// Outcome returns a short label for a run error, "unknown" when it has no
// recognised Kind.
func Outcome(err error) string {
	for _, o := range outcomes {
		if errors.Is(err, o.kind) {
			return o.label
		}
	}
	return "unknown"
}
