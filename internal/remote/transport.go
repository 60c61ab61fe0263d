// Package remote executes listing, copy-in, copy-out, hashing, copy-rename
// and delete operations against a single remote host through the ssh and
// scp clients. Every operation blocks until the child process exits and
// none is retried here; retry policy belongs to the pipeline.
package remote

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/samber/lo"

	"github.com/backmassage/mediaferry/internal/checksum"
	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/naming"
)

// File identifies a file on the remote host by absolute POSIX path.
type File struct {
	Path string
}

// Base returns the file name.
func (f File) Base() string { return path.Base(f.Path) }

func (f File) String() string { return f.Path }

// Error is the transport failure type: the operation, the remote path it
// concerned, and the underlying cause (usually *CommandError).
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SSH is the transport backed by the ssh and scp binaries.
type SSH struct {
	target  string
	ssh     string
	scp     string
	workDir string
	run     Runner
}

// NewSSH builds a transport for cfg.Target(). A nil runner uses ExecRunner.
func NewSSH(cfg *config.Config, run Runner) *SSH {
	if run == nil {
		run = ExecRunner{}
	}
	return &SSH{
		target:  cfg.Target(),
		ssh:     cfg.SSHBinary,
		scp:     cfg.SCPBinary,
		workDir: cfg.WorkDir,
		run:     run,
	}
}

// List returns the entries of folder in the order the remote ls prints them.
func (s *SSH) List(ctx context.Context, folder string) ([]File, error) {
	out, err := s.remote(ctx, "ls", "-1", Quote(folder))
	if err != nil {
		return nil, &Error{Op: "list", Path: folder, Err: err}
	}
	rows := strings.Split(string(out), "\n")
	names := lo.Filter(rows, func(row string, _ int) bool {
		return strings.TrimRight(row, "\r") != ""
	})
	return lo.Map(names, func(name string, _ int) File {
		return File{Path: path.Join(folder, strings.TrimRight(name, "\r"))}
	}), nil
}

// Download copies f into the working directory under its base name and
// returns the local path.
func (s *SSH) Download(ctx context.Context, f File) (string, error) {
	local := naming.LocalPath(s.workDir, f.Path)
	if _, err := s.copy(ctx, s.target+":"+Quote(f.Path), local); err != nil {
		return "", &Error{Op: "download", Path: f.Path, Err: err}
	}
	return local, nil
}

// Upload copies the local file into folder under its base name.
func (s *SSH) Upload(ctx context.Context, local, folder string) (File, error) {
	dst := File{Path: naming.RemotePath(folder, local)}
	if _, err := s.copy(ctx, local, s.target+":"+Quote(dst.Path)); err != nil {
		return File{}, &Error{Op: "upload", Path: dst.Path, Err: err}
	}
	return dst, nil
}

// Digest asks the remote host to hash f. Never cached: every call runs md5sum.
func (s *SSH) Digest(ctx context.Context, f File) (checksum.Digest, error) {
	out, err := s.remote(ctx, "md5sum", Quote(f.Path))
	if err != nil {
		return "", &Error{Op: "digest", Path: f.Path, Err: err}
	}
	d, err := checksum.ParseRemote(string(out))
	if err != nil {
		return "", &Error{Op: "digest", Path: f.Path, Err: err}
	}
	return d, nil
}

// RenameViaCopy copies f into folder as <stem>.processed<ext>. The source
// is left in place.
func (s *SSH) RenameViaCopy(ctx context.Context, f File, folder string) (File, error) {
	dst := File{Path: naming.ProcessedPath(folder, f.Path)}
	if _, err := s.remote(ctx, "cp", Quote(f.Path), Quote(dst.Path)); err != nil {
		return File{}, &Error{Op: "copy", Path: f.Path, Err: err}
	}
	return dst, nil
}

// Delete removes f from the remote host.
func (s *SSH) Delete(ctx context.Context, f File) error {
	if _, err := s.remote(ctx, "rm", "-f", Quote(f.Path)); err != nil {
		return &Error{Op: "delete", Path: f.Path, Err: err}
	}
	return nil
}

// Ping runs a no-op remote command to prove the host is reachable.
func (s *SSH) Ping(ctx context.Context) error {
	if _, err := s.remote(ctx, "true"); err != nil {
		return &Error{Op: "ping", Path: s.target, Err: err}
	}
	return nil
}

// batchMode makes ssh and scp fail instead of prompting for credentials.
var batchMode = []string{"-o", "BatchMode=yes"}

// remote runs a command line on the remote host. ssh joins the words with
// spaces and hands them to the remote shell, so paths must be quoted.
func (s *SSH) remote(ctx context.Context, words ...string) ([]byte, error) {
	args := append(append(append([]string{}, batchMode...), s.target), words...)
	return s.run.Run(ctx, s.ssh, args...)
}

// copy runs scp -T from src to dst. -T disables scp's own filename check,
// which rejects the quoted remote paths.
func (s *SSH) copy(ctx context.Context, src, dst string) ([]byte, error) {
	args := append(append([]string{}, batchMode...), "-T", src, dst)
	return s.run.Run(ctx, s.scp, args...)
}

// Quote single-quotes p for a POSIX shell.
func Quote(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
