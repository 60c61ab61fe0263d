package ffmpeg

import "github.com/backmassage/mediaferry/internal/config"

// Encoder names passed to -c:v.
const (
	EncoderLibx265   = "libx265"
	EncoderHEVCNVENC = "hevc_nvenc"
)

// Profile is the full set of encoding parameters for one conversion.
type Profile struct {
	VideoCodec   string
	Preset       string
	CRF          int
	MaxRate      string
	BufSize      string
	Scale        string
	PixFmt       string
	AudioCodec   string
	AudioBitrate string
	VideoBitrate string
	MovFlags     string
}

// baseProfile holds the parameters shared by every encoder mode.
var baseProfile = Profile{
	Preset:       "fast",
	CRF:          18,
	MaxRate:      "50M",
	BufSize:      "25M",
	Scale:        "4096x2048",
	PixFmt:       "yuv420p",
	AudioCodec:   "aac",
	AudioBitrate: "160k",
	VideoBitrate: "10M",
	MovFlags:     "faststart",
}

// ProfileFor returns the profile for an encoder mode. Unknown modes get the
// CPU encoder; config validation rejects them before this point.
func ProfileFor(mode config.EncoderMode) Profile {
	p := baseProfile
	switch mode {
	case config.EncoderNVENC:
		p.VideoCodec = EncoderHEVCNVENC
	default:
		p.VideoCodec = EncoderLibx265
	}
	return p
}
