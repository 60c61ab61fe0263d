// Package probe inspects media files with a single ffprobe JSON call. The
// pipeline uses it to confirm that a transcoded file actually contains a
// playable video stream before it is uploaded.
package probe
