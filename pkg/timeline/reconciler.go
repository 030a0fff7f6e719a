package timeline

import "fmt"

// eps absorbs float drift when comparing boundaries.
const eps = 1e-9

// Warning is a non-fatal reconciliation finding. The timeline stays
// valid, downstream stages may want to react (e.g. show the same image
// longer for an overlong segment).
type Warning struct {
	Index   int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("segment %d: %s", w.Index, w.Message)
}

// Reconciler repairs a provisional segment sequence until it satisfies
// the timeline invariants: short lyric segments are merged forward or
// borrow time from their neighbor, overlong segments are surfaced as
// warnings, indices are recomputed and the result is re-validated.
type Reconciler struct {
	cfg Config
}

func NewReconciler(cfg Config) *Reconciler {
	return &Reconciler{cfg: cfg.norm()}
}

// Reconcile returns the repaired sequence and the warnings collected
// along the way. Reconciling an already-reconciled sequence is a no-op.
func (r *Reconciler) Reconcile(segments []Segment) ([]Segment, []Warning, error) {
	if len(segments) == 0 {
		return nil, nil, &InvariantError{Reason: "empty segment sequence"}
	}
	out := cloneSegments(segments)

	var warnings []Warning
	for i := 0; i < len(out); i++ {
		seg := &out[i]
		if seg.Kind != KindLyric || seg.Duration() >= r.cfg.MinSegmentDuration-eps {
			continue
		}

		// Merge with the following lyric segment when the combined
		// duration stays within bounds.
		if i+1 < len(out) {
			next := &out[i+1]
			if next.Kind == KindLyric && next.End-seg.Start <= r.cfg.MaxSegmentDuration+eps {
				seg.Text = joinText(seg.Text, next.Text)
				seg.End = next.End
				seg.Words = append(seg.Words, next.Words...)
				out = append(out[:i+1], out[i+2:]...)
				i-- // re-check the merged segment
				continue
			}
		}

		// Otherwise borrow time from the neighbor's start, but never
		// push the neighbor itself below the minimum duration.
		if i+1 < len(out) {
			next := &out[i+1]
			need := r.cfg.MinSegmentDuration - seg.Duration()
			avail := next.Duration() - r.cfg.MinSegmentDuration
			if avail > 0 {
				if need < avail {
					avail = need
				}
				seg.End += avail
				next.Start += avail
			}
		}
		if seg.Duration() < r.cfg.MinSegmentDuration-eps {
			// No safe repair left, keep it short.
			warnings = append(warnings, Warning{
				Index:   i,
				Message: fmt.Sprintf("lyric segment %.2fs shorter than minimum %.2fs", seg.Duration(), r.cfg.MinSegmentDuration),
			})
		}
	}

	reindex(out)

	// Overlong segments are left intact: splitting lyric text would need
	// re-derived sub-timestamps.
	for i := range out {
		if d := out[i].Duration(); d > r.cfg.MaxSegmentDuration+eps {
			warnings = append(warnings, Warning{
				Index:   i,
				Message: fmt.Sprintf("segment %.2fs exceeds maximum %.2fs", d, r.cfg.MaxSegmentDuration),
			})
		}
	}

	if err := validate(out); err != nil {
		return nil, warnings, err
	}
	return out, warnings, nil
}

// validate checks the structural invariants every committed timeline
// holds: contiguous indices, strictly positive durations, non-empty
// lyric text, ascending order with no overlaps and no uncovered gaps.
func validate(segments []Segment) error {
	if len(segments) == 0 {
		return &InvariantError{Reason: "empty segment sequence"}
	}
	if segments[0].Start < 0 {
		return &InvariantError{Indices: []int{0}, Reason: "negative start time"}
	}
	for i := range segments {
		seg := &segments[i]
		if seg.Index != i {
			return &InvariantError{Indices: []int{i}, Reason: fmt.Sprintf("index %d doesn't match position", seg.Index)}
		}
		if seg.End <= seg.Start {
			return &InvariantError{Indices: []int{i}, Reason: "non-positive duration"}
		}
		if seg.Kind == KindLyric && seg.Text == "" {
			return &InvariantError{Indices: []int{i}, Reason: "lyric segment with empty text"}
		}
		if i == 0 {
			continue
		}
		prev := &segments[i-1]
		if seg.Start < prev.End-eps {
			return &InvariantError{Indices: []int{i - 1, i}, Reason: "overlapping segments"}
		}
		if seg.Start > prev.End+eps {
			return &InvariantError{Indices: []int{i - 1, i}, Reason: "uncovered gap between segments"}
		}
	}
	return nil
}
