package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mediaferry/internal/checksum"
	"github.com/backmassage/mediaferry/internal/config"
)

type call struct {
	Name string
	Args []string
}

// fakeRunner records commands and replays canned stdout/errors in order.
type fakeRunner struct {
	calls   []call
	outputs []string
	errs    []error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	i := len(f.calls)
	f.calls = append(f.calls, call{Name: name, Args: args})
	var out string
	var err error
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return []byte(out), err
}

func newTransport(r Runner) *SSH {
	cfg := config.DefaultConfig()
	cfg.Host = "mediaserver"
	cfg.User = "martin"
	cfg.WorkDir = "work"
	return NewSSH(&cfg, r)
}

func TestList_OrderAndBlankLines(t *testing.T) {
	r := &fakeRunner{outputs: []string{"zeta.mp4\nalpha.mkv\n\nMy Clip.mov\n"}}
	files, err := newTransport(r).List(context.Background(), "/volume2/in")
	require.NoError(t, err)

	want := []File{
		{Path: "/volume2/in/zeta.mp4"},
		{Path: "/volume2/in/alpha.mkv"},
		{Path: "/volume2/in/My Clip.mov"},
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	wantCall := call{Name: "ssh", Args: []string{"-o", "BatchMode=yes", "martin@mediaserver", "ls", "-1", "'/volume2/in'"}}
	if diff := cmp.Diff(wantCall, r.calls[0]); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestList_Empty(t *testing.T) {
	files, err := newTransport(&fakeRunner{outputs: []string{""}}).List(context.Background(), "/in")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCommands(t *testing.T) {
	f := File{Path: "/volume2/in/clip1.mp4"}
	ctx := context.Background()

	tests := []struct {
		name string
		op   func(*SSH) error
		want call
	}{
		{
			name: "download",
			op:   func(s *SSH) error { _, err := s.Download(ctx, f); return err },
			want: call{"scp", []string{"-o", "BatchMode=yes", "-T", "martin@mediaserver:'/volume2/in/clip1.mp4'", filepath.Join("work", "clip1.mp4")}},
		},
		{
			name: "upload",
			op: func(s *SSH) error {
				_, err := s.Upload(ctx, filepath.Join("work", "clip1.converted.mp4"), "/volume2/out")
				return err
			},
			want: call{"scp", []string{"-o", "BatchMode=yes", "-T", filepath.Join("work", "clip1.converted.mp4"), "martin@mediaserver:'/volume2/out/clip1.converted.mp4'"}},
		},
		{
			name: "rename via copy",
			op:   func(s *SSH) error { _, err := s.RenameViaCopy(ctx, f, "/volume2/out"); return err },
			want: call{"ssh", []string{"-o", "BatchMode=yes", "martin@mediaserver", "cp", "'/volume2/in/clip1.mp4'", "'/volume2/out/clip1.processed.mp4'"}},
		},
		{
			name: "delete",
			op:   func(s *SSH) error { return s.Delete(ctx, f) },
			want: call{"ssh", []string{"-o", "BatchMode=yes", "martin@mediaserver", "rm", "-f", "'/volume2/in/clip1.mp4'"}},
		},
		{
			name: "ping",
			op:   func(s *SSH) error { return s.Ping(ctx) },
			want: call{"ssh", []string{"-o", "BatchMode=yes", "martin@mediaserver", "true"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			require.NoError(t, tt.op(newTransport(r)))
			require.Len(t, r.calls, 1)
			if diff := cmp.Diff(tt.want, r.calls[0]); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDownload_ReturnsLocalPath(t *testing.T) {
	local, err := newTransport(&fakeRunner{}).Download(context.Background(), File{Path: "/in/clip1.mp4"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("work", "clip1.mp4"), local)
}

func TestRenameViaCopy_ReturnsProcessedFile(t *testing.T) {
	dst, err := newTransport(&fakeRunner{}).RenameViaCopy(context.Background(), File{Path: "/in/clip1.mp4"}, "/out")
	require.NoError(t, err)
	assert.Equal(t, File{Path: "/out/clip1.processed.mp4"}, dst)
}

func TestDigest_ParsesFirstToken(t *testing.T) {
	r := &fakeRunner{outputs: []string{"6F5902AC237024BDD0C176CB93063DC4  /in/clip1.mp4\n"}}
	d, err := newTransport(r).Digest(context.Background(), File{Path: "/in/clip1.mp4"})
	require.NoError(t, err)
	assert.Equal(t, checksum.Digest("6f5902ac237024bdd0c176cb93063dc4"), d)
	assert.Equal(t, []string{"-o", "BatchMode=yes", "martin@mediaserver", "md5sum", "'/in/clip1.mp4'"}, r.calls[0].Args)
}

func TestDigest_EmptyOutputIsTransportError(t *testing.T) {
	_, err := newTransport(&fakeRunner{outputs: []string{"\n"}}).Digest(context.Background(), File{Path: "/in/x"})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "digest", rerr.Op)
	assert.ErrorIs(t, err, checksum.ErrEmptyOutput)
}

func TestFailuresAreTransportErrors(t *testing.T) {
	cmdErr := &CommandError{Name: "ssh", ExitCode: 255, Stderr: "Connection refused\n"}
	ctx := context.Background()
	f := File{Path: "/in/clip1.mp4"}

	ops := map[string]func(*SSH) error{
		"list":     func(s *SSH) error { _, err := s.List(ctx, "/in"); return err },
		"download": func(s *SSH) error { _, err := s.Download(ctx, f); return err },
		"upload":   func(s *SSH) error { _, err := s.Upload(ctx, "clip1.mp4", "/out"); return err },
		"digest":   func(s *SSH) error { _, err := s.Digest(ctx, f); return err },
		"copy":     func(s *SSH) error { _, err := s.RenameViaCopy(ctx, f, "/out"); return err },
		"delete":   func(s *SSH) error { return s.Delete(ctx, f) },
	}
	for op, fn := range ops {
		t.Run(op, func(t *testing.T) {
			err := fn(newTransport(&fakeRunner{errs: []error{cmdErr}}))
			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, op, rerr.Op)

			var cerr *CommandError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, 255, cerr.ExitCode)
			assert.Contains(t, err.Error(), "Connection refused")
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'/in/My Clip.mp4'", Quote("/in/My Clip.mp4"))
	assert.Equal(t, `'/in/it'\''s.mp4'`, Quote("/in/it's.mp4"))
}

func TestExecRunner(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	out, err := ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "printf ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	_, err = ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "echo boom >&2; exit 3")
	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 3, cerr.ExitCode)
	assert.Equal(t, "boom\n", cerr.Stderr)
	assert.Contains(t, cerr.Error(), "status 3")

	_, err = ExecRunner{}.Run(context.Background(), filepath.Join(t.TempDir(), "no-such-binary"))
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, -1, cerr.ExitCode)
}
