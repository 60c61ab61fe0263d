package pipeline

// Disposition is what happens to a converted file.
type Disposition int

const (
	// DispositionUpload sends the converted file to the output folder.
	DispositionUpload Disposition = iota
	// DispositionArchive discards the conversion and copies the original to
	// the output folder as <stem>.processed<ext>.
	DispositionArchive
)

func (d Disposition) String() string {
	if d == DispositionArchive {
		return "archive"
	}
	return "upload"
}

// Outcome is the past-tense label used for metrics and logs.
func (d Disposition) Outcome() string {
	if d == DispositionArchive {
		return "archived"
	}
	return "uploaded"
}

// Decide applies the inflation rule: archive iff converted/original exceeds
// threshold; a ratio equal to threshold uploads. An empty original only
// accepts an empty result.
func Decide(original, converted int64, threshold float64) Disposition {
	if original <= 0 {
		if converted <= 0 {
			return DispositionUpload
		}
		return DispositionArchive
	}
	if converted <= original {
		return DispositionUpload
	}
	if float64(converted)/float64(original) > threshold {
		return DispositionArchive
	}
	return DispositionUpload
}
