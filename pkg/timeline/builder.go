package timeline

import "strings"

// Line is a raw timestamped lyric line as returned by the lyrics source.
// End is optional: zero or negative means unknown. Words are optional
// word-level sub-timings.
type Line struct {
	Text  string
	Start float64
	End   float64
	Words []Word
}

// Builder turns raw lyric lines into a provisional segment sequence
// covering [0, totalDuration) with no gaps and no overlaps. The result
// is not yet guaranteed to satisfy minimum-duration invariants, that is
// the reconciler's job.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg.norm()}
}

// Build derives an end time for every line, fills silent gaps with
// instrumental segments and closes sub-threshold gaps by extending the
// preceding segment. totalDuration zero means the audio length is
// unknown and the trailing bound is left open.
func (b *Builder) Build(lines []Line, totalDuration float64) ([]Segment, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyLyrics
	}
	for i := 1; i < len(lines); i++ {
		if lines[i].Start < lines[i-1].Start {
			return nil, &MalformedTimestampsError{
				Line:  i,
				Start: lines[i].Start,
				Prev:  lines[i-1].Start,
			}
		}
	}

	// Lines sharing a start timestamp can't both get a positive duration
	// without reordering, so they are coalesced into a single line and
	// left to the short-segment policy.
	lines = coalesce(lines)

	segments := make([]Segment, 0, len(lines))
	for i, ln := range lines {
		end := ln.End
		if end <= ln.Start {
			switch {
			case i < len(lines)-1:
				end = lines[i+1].Start
			case totalDuration > ln.Start:
				end = totalDuration
			default:
				end = ln.Start + b.cfg.LastLineDuration
			}
		}
		// An explicit end must not run into the next line.
		if i < len(lines)-1 && end > lines[i+1].Start {
			end = lines[i+1].Start
		}
		segments = append(segments, Segment{
			Text:  strings.TrimSpace(ln.Text),
			Start: ln.Start,
			End:   end,
			Kind:  KindLyric,
			Words: ln.Words,
		})
	}

	// Leading silence: instrumental intro above the threshold, a plain
	// gap segment below it.
	var out []Segment
	if first := segments[0]; totalDuration > 0 && first.Start > 0 {
		kind := KindGap
		if first.Start >= b.cfg.InstrumentalThreshold {
			kind = KindInstrumental
		}
		out = append(out, Segment{Start: 0, End: first.Start, Kind: kind})
	}

	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		if i < len(segments)-1 {
			gap := segments[i+1].Start - seg.End
			switch {
			case gap >= b.cfg.InstrumentalThreshold:
				out = append(out, seg)
				out = append(out, Segment{Start: seg.End, End: segments[i+1].Start, Kind: KindInstrumental})
				continue
			case gap > 0:
				// Close small silent gaps to avoid visual flicker.
				seg.End = segments[i+1].Start
			}
		}
		out = append(out, seg)
	}

	// Trailing silence up to the known audio duration.
	if totalDuration > 0 {
		last := &out[len(out)-1]
		if last.End > totalDuration {
			last.End = totalDuration
		}
		switch gap := totalDuration - last.End; {
		case gap >= b.cfg.InstrumentalThreshold:
			out = append(out, Segment{Start: last.End, End: totalDuration, Kind: KindInstrumental})
		case gap > 0:
			last.End = totalDuration
		}
	}

	reindex(out)
	return out, nil
}

// coalesce joins consecutive lines that share a start timestamp. The
// joined line keeps the later of the two end timestamps.
func coalesce(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		if len(out) > 0 && ln.Start == out[len(out)-1].Start {
			prev := &out[len(out)-1]
			prev.Text = joinText(prev.Text, ln.Text)
			if ln.End > prev.End {
				prev.End = ln.End
			}
			prev.Words = append(prev.Words, ln.Words...)
			continue
		}
		out = append(out, ln)
	}
	return out
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " / " + b
}

func reindex(segments []Segment) {
	for i := range segments {
		segments[i].Index = i
	}
}
