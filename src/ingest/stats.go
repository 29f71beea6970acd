package ingest

// IngestStats counts what happened to every line of one ingest pass.
// It has no influence on the dataset itself.
type IngestStats struct {
	LinesRead int `json:"lines_read"`
	Applied   int `json:"applied"`
	// recognized-but-unaccumulated and unknown message kinds
	Ignored int                `json:"ignored"`
	Skipped map[SkipReason]int `json:"skipped"`
	// well-formed lines per message kind, applied or ignored
	Kinds map[string]int `json:"kinds"`
}

func newIngestStats() IngestStats {
	return IngestStats{
		Skipped: make(map[SkipReason]int),
		Kinds:   make(map[string]int),
	}
}

func (s IngestStats) TotalSkipped() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}
