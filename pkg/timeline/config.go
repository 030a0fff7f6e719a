package timeline

// Default configuration values, applied by norm when a field is unset.
const (
	DefaultInstrumentalThreshold = 2.0
	DefaultMinSegmentDuration    = 1.0
	DefaultMaxSegmentDuration    = 15.0
	DefaultLastLineDuration      = 3.0
)

// Config holds the timing policy shared by the builder and the
// reconciler. A zero value gets the package defaults.
type Config struct {
	// InstrumentalThreshold is the minimum gap, in seconds, that becomes
	// an explicit instrumental segment. Smaller gaps are closed by
	// extending the preceding segment.
	InstrumentalThreshold float64

	// MinSegmentDuration is the minimum duration for a lyric segment.
	// Shorter segments are merged or borrow time from their neighbor.
	MinSegmentDuration float64

	// MaxSegmentDuration caps merges. Segments already longer than this
	// are kept intact and surfaced as a warning.
	MaxSegmentDuration float64

	// LastLineDuration is used for the final line when neither an end
	// timestamp nor the total audio duration is known.
	LastLineDuration float64
}

func (c Config) norm() Config {
	if c.InstrumentalThreshold <= 0 {
		c.InstrumentalThreshold = DefaultInstrumentalThreshold
	}
	if c.MinSegmentDuration <= 0 {
		c.MinSegmentDuration = DefaultMinSegmentDuration
	}
	if c.MaxSegmentDuration <= 0 {
		c.MaxSegmentDuration = DefaultMaxSegmentDuration
	}
	if c.LastLineDuration <= 0 {
		c.LastLineDuration = DefaultLastLineDuration
	}
	return c
}
