package timeline

import (
	"errors"
	"fmt"
)

// ErrEmptyLyrics is returned when no raw lines are supplied. The caller
// should fall back to an alternate lyrics source or abort.
var ErrEmptyLyrics = errors.New("timeline: no lyric lines supplied")

// ErrImmutableField is returned when an enrichment call tries to mutate a
// timing field after reconciliation.
var ErrImmutableField = errors.New("timeline: field is immutable after reconciliation")

// MalformedTimestampsError signals non-monotonic raw input. Disordered
// timestamps indicate an upstream data problem, not something local
// repair can safely fix, so the builder refuses the whole input.
type MalformedTimestampsError struct {
	Line  int
	Start float64
	Prev  float64
}

func (e *MalformedTimestampsError) Error() string {
	return fmt.Sprintf("timeline: line %d starts at %.3fs before previous line at %.3fs", e.Line, e.Start, e.Prev)
}

// InvariantError signals that reconciliation or a snapshot load couldn't
// establish the timeline invariants. It is fatal and not retryable
// without changing the input or the configuration.
type InvariantError struct {
	Indices []int
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("timeline: invariant violated at segments %v: %s", e.Indices, e.Reason)
}

// IndexError is returned when a caller addresses a segment position that
// doesn't exist.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("timeline: index %d out of range [0, %d)", e.Index, e.Len)
}
