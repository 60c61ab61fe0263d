// Package check provides system diagnostics (-check mode) and the preflight
// dependency validation (CheckDeps) run before the pipeline starts: local
// tools, the configured ffmpeg encoder, remote reachability and free space
// in the work directory.
package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/disk"

	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/display"
	"github.com/backmassage/mediaferry/internal/ffmpeg"
	"github.com/backmassage/mediaferry/internal/remote"
)

// Sentinel errors returned by CheckDeps and RunCheck.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFFprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrSSHNotFound     = errors.New("ssh client not found on PATH")
	ErrSCPNotFound     = errors.New("scp client not found on PATH")
	ErrEncoderMissing  = errors.New("encoder not available in ffmpeg")
	ErrCheckFailed     = errors.New("system check failed")
)

// Pinger reports whether the remote host accepts commands.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Env holds the system hooks used by the checks. Tests replace them.
type Env struct {
	LookPath func(file string) (string, error)
	Run      remote.Runner
	DiskFree func(path string) (uint64, error)
	Remote   Pinger
}

// DefaultEnv probes the real system and the configured remote host.
func DefaultEnv(cfg *config.Config) Env {
	return Env{
		LookPath: exec.LookPath,
		Run:      remote.ExecRunner{},
		DiskFree: diskFree,
		Remote:   remote.NewSSH(cfg, nil),
	}
}

func diskFree(path string) (uint64, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// CheckDeps verifies that every binary the pipeline spawns is on PATH and
// that ffmpeg lists the encoder for the configured mode. ffprobe is only
// required when output verification is on. The remote host is not contacted.
func CheckDeps(ctx context.Context, cfg *config.Config, env Env) error {
	type tool struct {
		bin string
		err error
	}
	tools := []tool{
		{cfg.FFmpegBinary, ErrFFmpegNotFound},
		{cfg.SSHBinary, ErrSSHNotFound},
		{cfg.SCPBinary, ErrSCPNotFound},
	}
	if cfg.VerifyOutput {
		tools = append(tools, tool{cfg.FFprobeBinary, ErrFFprobeNotFound})
	}
	for _, tool := range tools {
		if _, err := env.LookPath(tool.bin); err != nil {
			return fmt.Errorf("%w: %s", tool.err, tool.bin)
		}
	}

	codec := ffmpeg.ProfileFor(cfg.EncoderMode).VideoCodec
	out, err := env.Run.Run(ctx, cfg.FFmpegBinary, "-hide_banner", "-encoders")
	if err != nil {
		return fmt.Errorf("list ffmpeg encoders: %w", err)
	}
	if !ffmpeg.HasEncoder(string(out), codec) {
		return fmt.Errorf("%w: %s", ErrEncoderMissing, codec)
	}
	return nil
}

// Row is one line of the -check report.
type Row struct {
	Item   string
	Status Status
	Detail string
}

// Status is the verdict of one check.
type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return color.Green.Sprint("ok")
	case StatusWarn:
		return color.Yellow.Sprint("warn")
	default:
		return color.Red.Sprint("FAIL")
	}
}

// Collect runs every diagnostic and returns the report rows. It never stops
// early: a missing tool is reported and the remaining checks still run.
func Collect(ctx context.Context, cfg *config.Config, env Env) []Row {
	var rows []Row

	rows = append(rows, checkFFmpeg(ctx, cfg, env)...)
	rows = append(rows, checkTool(env, "ffprobe", cfg.FFprobeBinary, cfg.VerifyOutput))
	rows = append(rows, checkTool(env, "ssh", cfg.SSHBinary, true))
	rows = append(rows, checkTool(env, "scp", cfg.SCPBinary, true))
	rows = append(rows, checkRemote(ctx, cfg, env))
	rows = append(rows, checkDisk(cfg, env))
	return rows
}

// RunCheck prints the diagnostics table to w. It returns ErrCheckFailed
// when any row failed.
func RunCheck(ctx context.Context, cfg *config.Config, env Env, w io.Writer) error {
	rows := Collect(ctx, cfg, env)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	failed := 0
	for _, r := range rows {
		if r.Status == StatusFail {
			failed++
		}
		table.Append([]string{r.Item, r.Status.String(), r.Detail})
	}
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d checks failed", ErrCheckFailed, failed, len(rows))
	}
	return nil
}

// checkFFmpeg reports the ffmpeg version and the encoders this run needs.
func checkFFmpeg(ctx context.Context, cfg *config.Config, env Env) []Row {
	if _, err := env.LookPath(cfg.FFmpegBinary); err != nil {
		return []Row{{"ffmpeg", StatusFail, "not found: " + cfg.FFmpegBinary}}
	}

	rows := make([]Row, 0, 3)
	out, err := env.Run.Run(ctx, cfg.FFmpegBinary, "-version")
	if err != nil {
		rows = append(rows, Row{"ffmpeg", StatusWarn, fmt.Sprintf("found but -version failed: %v", err)})
	} else {
		rows = append(rows, Row{"ffmpeg", StatusOK, firstLine(string(out))})
	}

	enc, err := env.Run.Run(ctx, cfg.FFmpegBinary, "-hide_banner", "-encoders")
	if err != nil {
		return append(rows, Row{"encoders", StatusFail, fmt.Sprintf("could not list encoders: %v", err)})
	}
	profile := ffmpeg.ProfileFor(cfg.EncoderMode)
	for _, name := range []string{profile.VideoCodec, profile.AudioCodec} {
		if ffmpeg.HasEncoder(string(enc), name) {
			rows = append(rows, Row{"encoder " + name, StatusOK, "available"})
		} else {
			rows = append(rows, Row{"encoder " + name, StatusFail, "not listed by ffmpeg -encoders"})
		}
	}
	return rows
}

// checkTool looks up a binary. Missing optional tools are warnings.
func checkTool(env Env, item, bin string, required bool) Row {
	p, err := env.LookPath(bin)
	switch {
	case err == nil:
		return Row{item, StatusOK, p}
	case required:
		return Row{item, StatusFail, "not found: " + bin}
	default:
		return Row{item, StatusWarn, "not found (only needed with verify-output): " + bin}
	}
}

func checkRemote(ctx context.Context, cfg *config.Config, env Env) Row {
	if cfg.Host == "" || cfg.User == "" {
		return Row{"remote", StatusWarn, "host/user not configured"}
	}
	item := "remote " + cfg.Target()
	if err := env.Remote.Ping(ctx); err != nil {
		return Row{item, StatusFail, oneLine(err.Error())}
	}
	return Row{item, StatusOK, "reachable"}
}

func checkDisk(cfg *config.Config, env Env) Row {
	item := "work dir " + cfg.WorkDir
	free, err := env.DiskFree(cfg.WorkDir)
	if err != nil {
		return Row{item, StatusFail, oneLine(err.Error())}
	}
	return Row{item, StatusOK, display.FormatBytes(int64(free)) + " free"}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
