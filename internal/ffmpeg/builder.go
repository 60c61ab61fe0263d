package ffmpeg

import "strconv"

// Build constructs the complete ffmpeg argument slice, binary first:
//
//	ffmpeg -y -i <input> -c:v <codec> -preset fast -crf 18 -maxrate 50M
//	       -bufsize 25M -vf scale=4096x2048 -pix_fmt yuv420p -c:a aac
//	       -b:a 160k -b:v 10M -movflags faststart <output>
func Build(bin, input, output string, p Profile) []string {
	args := make([]string, 0, 32)

	// --- Preamble and input ---
	args = append(args, bin, "-y", "-i", input)

	// --- Video ---
	args = append(args,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-maxrate", p.MaxRate,
		"-bufsize", p.BufSize,
		"-vf", "scale="+p.Scale,
		"-pix_fmt", p.PixFmt,
	)

	// --- Audio ---
	args = append(args, "-c:a", p.AudioCodec, "-b:a", p.AudioBitrate)

	// --- Target bitrate and container ---
	args = append(args, "-b:v", p.VideoBitrate, "-movflags", p.MovFlags)

	return append(args, output)
}
