package check

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/term"
)

const encoders = `Encoders:
 V..... = Video
 ------
 V....D libx265              libx265 H.265 / HEVC (codec hevc)
 A....D aac                  AAC (Advanced Audio Coding)
`

type scriptedRunner map[string]string

func (s scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	out, ok := s[strings.Join(args, " ")]
	if !ok {
		return nil, errors.New("unexpected command: " + name + " " + strings.Join(args, " "))
	}
	return []byte(out), nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testEnv(missing ...string) Env {
	return Env{
		LookPath: func(file string) (string, error) {
			for _, m := range missing {
				if m == file {
					return "", exec.ErrNotFound
				}
			}
			return "/usr/bin/" + file, nil
		},
		Run: scriptedRunner{
			"-version":               "ffmpeg version 7.1 Copyright (c) 2000-2024\nbuilt with gcc\n",
			"-hide_banner -encoders": encoders,
		},
		DiskFree: func(string) (uint64, error) { return 5 << 30, nil },
		Remote:   pinger{},
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Host = "nas"
	cfg.User = "media"
	return &cfg
}

func TestCheckDeps_OK(t *testing.T) {
	assert.NoError(t, CheckDeps(context.Background(), testConfig(), testEnv()))
}

func TestCheckDeps_MissingTools(t *testing.T) {
	tests := []struct {
		missing string
		verify  bool
		want    error
	}{
		{"ffmpeg", false, ErrFFmpegNotFound},
		{"ssh", false, ErrSSHNotFound},
		{"scp", false, ErrSCPNotFound},
		{"ffprobe", true, ErrFFprobeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.missing, func(t *testing.T) {
			cfg := testConfig()
			cfg.VerifyOutput = tt.verify
			err := CheckDeps(context.Background(), cfg, testEnv(tt.missing))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckDeps_FFprobeOptional(t *testing.T) {
	assert.NoError(t, CheckDeps(context.Background(), testConfig(), testEnv("ffprobe")))
}

func TestCheckDeps_EncoderMissing(t *testing.T) {
	cfg := testConfig()
	cfg.EncoderMode = config.EncoderNVENC
	err := CheckDeps(context.Background(), cfg, testEnv())
	assert.ErrorIs(t, err, ErrEncoderMissing)
	assert.ErrorContains(t, err, "hevc_nvenc")
}

func TestCollect(t *testing.T) {
	rows := Collect(context.Background(), testConfig(), testEnv("ffprobe"))

	byItem := map[string]Row{}
	for _, r := range rows {
		byItem[r.Item] = r
	}
	assert.Equal(t, "ffmpeg version 7.1 Copyright (c) 2000-2024", byItem["ffmpeg"].Detail)
	assert.Equal(t, StatusOK, byItem["encoder libx265"].Status)
	assert.Equal(t, StatusOK, byItem["encoder aac"].Status)
	assert.Equal(t, StatusWarn, byItem["ffprobe"].Status)
	assert.Equal(t, StatusOK, byItem["remote media@nas"].Status)
	assert.Equal(t, "5.0 GiB free", byItem["work dir ."].Detail)
}

func TestCollect_RemoteNotConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CheckOnly = true
	require.NoError(t, cfg.Validate())

	env := testEnv()
	env.Remote = pinger{err: errors.New("must not be called")}
	rows := Collect(context.Background(), &cfg, env)

	var remote *Row
	for i := range rows {
		if strings.HasPrefix(rows[i].Item, "remote") {
			remote = &rows[i]
		}
	}
	require.NotNil(t, remote)
	assert.Equal(t, Row{"remote", StatusWarn, "host/user not configured"}, *remote)
}

func TestRunCheck_ReportsFailures(t *testing.T) {
	term.Configure(config.ColorNever)
	env := testEnv()
	env.Remote = pinger{err: errors.New("ssh: connect to host nas port 22:\nConnection refused")}

	var out bytes.Buffer
	err := RunCheck(context.Background(), testConfig(), env, &out)
	require.ErrorIs(t, err, ErrCheckFailed)
	assert.Contains(t, out.String(), "Connection refused")
	assert.Contains(t, out.String(), "FAIL")
}

func TestRunCheck_AllOK(t *testing.T) {
	term.Configure(config.ColorNever)
	var out bytes.Buffer
	require.NoError(t, RunCheck(context.Background(), testConfig(), testEnv(), &out))
	assert.Contains(t, out.String(), "encoder libx265")
	assert.NotContains(t, out.String(), "FAIL")
}

func TestCollect_NoFFmpeg(t *testing.T) {
	rows := Collect(context.Background(), testConfig(), testEnv("ffmpeg"))
	require.NotEmpty(t, rows)
	assert.Equal(t, Row{"ffmpeg", StatusFail, "not found: ffmpeg"}, rows[0])
}
