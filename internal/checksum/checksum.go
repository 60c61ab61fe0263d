// Package checksum computes and compares content digests on both sides of a
// transfer. The algorithm is MD5 because the remote side reports digests
// with md5sum; the digest is an integrity check, not a security boundary.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultChunkSize is the read size used when streaming a file into the hash.
const DefaultChunkSize = 8 * 1024

// ErrEmptyOutput is returned when the remote hashing command printed nothing.
var ErrEmptyOutput = errors.New("checksum: empty digest output")

// Digest is a lower-case hex content hash.
type Digest string

// Normalize trims whitespace and lower-cases hex so local and remote
// representations compare consistently.
func (d Digest) Normalize() Digest {
	return Digest(strings.ToLower(strings.TrimSpace(string(d))))
}

// Equal reports whether two digests name the same content. Empty digests
// never match.
func (d Digest) Equal(other Digest) bool {
	a, b := d.Normalize(), other.Normalize()
	return a != "" && a == b
}

func (d Digest) String() string { return string(d) }

// File streams the file at path through the hash in DefaultChunkSize reads.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	defer f.Close()

	d, err := Reader(f, DefaultChunkSize)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return d, nil
}

// Reader hashes r reading chunkSize bytes at a time. The result does not
// depend on chunkSize.
func Reader(r io.Reader, chunkSize int) (Digest, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	h := md5.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// ParseRemote extracts the digest from md5sum-style output: the first
// whitespace-delimited token.
func ParseRemote(output string) (Digest, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", ErrEmptyOutput
	}
	return Digest(fields[0]).Normalize(), nil
}
