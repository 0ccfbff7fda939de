package domain

// Sample is one progress reading parsed from the block-copy utility's status
// text. Either field may be missing from a given line.
type Sample struct {
	Line     string
	Bytes    int64
	HasBytes bool
	RateMBs  float64
	HasRate  bool
}

// Fraction returns Bytes/total clamped to [0, 1], or 0 when unknown.
func (s Sample) Fraction(total int64) float64 {
	if !s.HasBytes || total <= 0 || s.Bytes <= 0 {
		return 0
	}
	f := float64(s.Bytes) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}
