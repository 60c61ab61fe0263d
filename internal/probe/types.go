package probe

import "strconv"

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index         int
	Codec         string
	PixFmt        string
	Width         int
	Height        int
	IsAttachedPic bool
}

// ProbeResult is the parsed output of one ffprobe call.
// PrimaryVideo is the first non-attached-pic video stream (nil if none).
type ProbeResult struct {
	PrimaryVideo *VideoStream
}

// HasVideo reports whether the file carries a real video stream.
func (p *ProbeResult) HasVideo() bool {
	return p != nil && p.PrimaryVideo != nil
}

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (p *ProbeResult) Resolution() string {
	if !p.HasVideo() || p.PrimaryVideo.Width <= 0 || p.PrimaryVideo.Height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(p.PrimaryVideo.Width) + "x" + strconv.Itoa(p.PrimaryVideo.Height)
}
