package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/backmassage/mediaferry/internal/checksum"
	"github.com/backmassage/mediaferry/internal/ffmpeg"
	"github.com/backmassage/mediaferry/internal/naming"
	"github.com/backmassage/mediaferry/internal/remote"
)

// fakeHost is an in-memory remote host. Downloads and uploads move real
// bytes between its map and a local work directory.
type fakeHost struct {
	mu      sync.Mutex
	workDir string
	order   []string          // listing order of every path ever created
	files   map[string][]byte // remote path -> content
	calls   []string          // "op path"

	corruptDownloads int // first N downloads get a flipped byte
	corruptUploads   int // first N uploads get a flipped byte
	failOp           string
}

func newFakeHost(workDir string) *fakeHost {
	return &fakeHost{workDir: workDir, files: make(map[string][]byte)}
}

func (h *fakeHost) put(p string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.files[p]; !ok {
		h.order = append(h.order, p)
	}
	h.files[p] = data
}

func (h *fakeHost) get(p string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.files[p]
	return b, ok
}

func (h *fakeHost) count(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

func (h *fakeHost) record(op, p string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, op+" "+p)
	if h.failOp == op {
		return &remote.Error{Op: op, Path: p, Err: &remote.CommandError{Name: "ssh", ExitCode: 255, Stderr: "Connection reset"}}
	}
	return nil
}

func (h *fakeHost) List(_ context.Context, folder string) ([]remote.File, error) {
	if err := h.record("list", folder); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []remote.File
	for _, p := range h.order {
		if _, ok := h.files[p]; ok && path.Dir(p) == folder {
			out = append(out, remote.File{Path: p})
		}
	}
	return out, nil
}

func (h *fakeHost) Download(_ context.Context, f remote.File) (string, error) {
	if err := h.record("download", f.Path); err != nil {
		return "", err
	}
	data, ok := h.get(f.Path)
	if !ok {
		return "", &remote.Error{Op: "download", Path: f.Path, Err: os.ErrNotExist}
	}
	data = bytes.Clone(data)
	h.mu.Lock()
	if h.corruptDownloads > 0 && len(data) > 0 {
		h.corruptDownloads--
		data[0] ^= 0xff
	}
	h.mu.Unlock()
	local := naming.LocalPath(h.workDir, f.Path)
	return local, os.WriteFile(local, data, 0o644)
}

func (h *fakeHost) Upload(_ context.Context, local, folder string) (remote.File, error) {
	dst := naming.RemotePath(folder, local)
	if err := h.record("upload", dst); err != nil {
		return remote.File{}, err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return remote.File{}, err
	}
	h.mu.Lock()
	if h.corruptUploads > 0 && len(data) > 0 {
		h.corruptUploads--
		data[len(data)-1] ^= 0xff
	}
	h.mu.Unlock()
	h.put(dst, data)
	return remote.File{Path: dst}, nil
}

func (h *fakeHost) Digest(_ context.Context, f remote.File) (checksum.Digest, error) {
	if err := h.record("digest", f.Path); err != nil {
		return "", err
	}
	data, ok := h.get(f.Path)
	if !ok {
		return "", &remote.Error{Op: "digest", Path: f.Path, Err: os.ErrNotExist}
	}
	return checksum.Reader(bytes.NewReader(data), checksum.DefaultChunkSize)
}

func (h *fakeHost) RenameViaCopy(_ context.Context, f remote.File, folder string) (remote.File, error) {
	dst := naming.ProcessedPath(folder, f.Path)
	if err := h.record("copy", dst); err != nil {
		return remote.File{}, err
	}
	data, ok := h.get(f.Path)
	if !ok {
		return remote.File{}, &remote.Error{Op: "copy", Path: f.Path, Err: os.ErrNotExist}
	}
	h.put(dst, bytes.Clone(data))
	return remote.File{Path: dst}, nil
}

func (h *fakeHost) Delete(_ context.Context, f remote.File) error {
	if err := h.record("delete", f.Path); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.files, f.Path)
	return nil
}

// fakeTranscoder writes an output whose size is factor times the input.
type fakeTranscoder struct {
	workDir  string
	factor   float64
	failures int // first N conversions fail
	calls    int
	hook     func(attempt int)
}

func (t *fakeTranscoder) Convert(_ context.Context, input string) (string, error) {
	t.calls++
	if t.hook != nil {
		t.hook(t.calls)
	}
	output := naming.ConvertedPath(t.workDir, input)
	if t.calls <= t.failures {
		// A failed run may leave a partial file behind.
		_ = os.WriteFile(output, []byte("partial"), 0o644)
		return "", &ffmpeg.ConversionError{
			Input:  input,
			Output: output,
			Reason: ffmpeg.ReasonEncoderUnavailable,
			Stderr: "No NVENC capable devices found\n",
			Err:    errors.New("exit status 1"),
		}
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", err
	}
	size := int(float64(len(data)) * t.factor)
	out := make([]byte, size)
	for i := range out {
		out[i] = data[i%max(len(data), 1)] + 1
	}
	return output, os.WriteFile(output, out, 0o644)
}

func localFiles(dir string) []string {
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
