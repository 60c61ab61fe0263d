package pipeline

// RunStats tracks aggregate counters and byte totals across runs of one
// Orchestrator.
type RunStats struct {
	Runs             int
	Uploaded         int
	Archived         int
	Failed           int
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// SpaceSaved returns the aggregate byte difference between originals and
// what ended up in the output folder. Archived runs count their original on
// both sides. Positive means outputs are smaller.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

func (s *RunStats) record(res *Result) {
	s.Runs++
	s.TotalInputBytes += res.OriginalSize
	switch res.Disposition {
	case DispositionArchive:
		s.Archived++
		s.TotalOutputBytes += res.OriginalSize
	default:
		s.Uploaded++
		s.TotalOutputBytes += res.ConvertedSize
	}
}
