package naming

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// ConvertedSuffix is inserted between the stem and the container extension
	// of every transcoded file.
	ConvertedSuffix = ".converted"
	// ConvertedExt is the container produced by the transcoder.
	ConvertedExt = ".mp4"
	// ProcessedSuffix marks an original archived unmodified in the output folder.
	ProcessedSuffix = ".processed"
)

// SplitExt splits a base name into stem and extension. A leading dot does
// not start an extension, so ".hidden" has no extension.
func SplitExt(base string) (stem, ext string) {
	ext = path.Ext(base)
	if ext == base || strings.TrimSuffix(base, ext) == "" {
		return base, ""
	}
	return strings.TrimSuffix(base, ext), ext
}

// LocalPath is where a remote file is downloaded: its base name inside workDir.
func LocalPath(workDir, remotePath string) string {
	return filepath.Join(workDir, path.Base(remotePath))
}

// ConvertedPath is the transcoder output for a local input:
// <workDir>/<stem>.converted.mp4.
func ConvertedPath(workDir, localInput string) string {
	stem, _ := SplitExt(filepath.Base(localInput))
	return filepath.Join(workDir, stem+ConvertedSuffix+ConvertedExt)
}

// RemotePath places a local file into a remote folder under the same base name.
func RemotePath(folder, localPath string) string {
	return path.Join(folder, filepath.Base(localPath))
}

// ProcessedPath is the archive name for an original copied into folder:
// <folder>/<stem>.processed<ext>.
func ProcessedPath(folder, remotePath string) string {
	stem, ext := SplitExt(path.Base(remotePath))
	return path.Join(folder, stem+ProcessedSuffix+ext)
}
