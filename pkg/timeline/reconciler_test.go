package timeline

import (
	"errors"
	"reflect"
	"testing"
)

func TestReconcileMergeShort(t *testing.T) {
	segments := []Segment{
		{Index: 0, Text: "Hi", Start: 0.0, End: 0.3, Kind: KindLyric},
		{Index: 1, Text: "there", Start: 0.3, End: 4.0, Kind: KindLyric},
	}
	r := NewReconciler(defaultTestConfig())
	got, warnings, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v; want none", warnings)
	}
	checkSegments(t, got, []wantSegment{
		{"Hi / there", 0.0, 4.0, KindLyric},
	})
}

func TestReconcileShortRetained(t *testing.T) {
	// A short lyric with nothing to merge with or borrow from stays
	// short and only produces a warning.
	segments := []Segment{
		{Index: 0, Text: "Hi", Start: 0.0, End: 0.3, Kind: KindLyric},
	}
	r := NewReconciler(defaultTestConfig())
	got, warnings, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("len(warnings) = %d; want 1", len(warnings))
	}
	if warnings[0].Index != 0 {
		t.Fatalf("warnings[0].Index = %d; want 0", warnings[0].Index)
	}
	checkSegments(t, got, []wantSegment{
		{"Hi", 0.0, 0.3, KindLyric},
	})
}

func TestReconcileBorrowFromNeighbor(t *testing.T) {
	// The neighbor is instrumental, so the short lyric can't merge and
	// shifts the boundary instead.
	segments := []Segment{
		{Index: 0, Text: "Hi", Start: 0.0, End: 0.4, Kind: KindLyric},
		{Index: 1, Start: 0.4, End: 5.0, Kind: KindInstrumental},
	}
	r := NewReconciler(defaultTestConfig())
	got, warnings, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v; want none", warnings)
	}
	checkSegments(t, got, []wantSegment{
		{"Hi", 0.0, 1.0, KindLyric},
		{"", 1.0, 5.0, KindInstrumental},
	})
}

func TestReconcileBorrowExhausted(t *testing.T) {
	// The neighbor can only give up time down to the minimum duration,
	// after that the short segment is flagged.
	segments := []Segment{
		{Index: 0, Text: "Hi", Start: 0.0, End: 0.2, Kind: KindLyric},
		{Index: 1, Start: 0.2, End: 1.5, Kind: KindInstrumental},
	}
	r := NewReconciler(defaultTestConfig())
	got, warnings, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("len(warnings) = %d; want 1", len(warnings))
	}
	checkSegments(t, got, []wantSegment{
		{"Hi", 0.0, 0.5, KindLyric},
		{"", 0.5, 1.5, KindInstrumental},
	})
}

func TestReconcileMergeCapped(t *testing.T) {
	// Merging would exceed the maximum duration, so the boundary shifts
	// instead.
	segments := []Segment{
		{Index: 0, Text: "Hi", Start: 0.0, End: 0.5, Kind: KindLyric},
		{Index: 1, Text: "a very long line", Start: 0.5, End: 16.5, Kind: KindLyric},
	}
	r := NewReconciler(defaultTestConfig())
	got, warnings, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	checkSegments(t, got, []wantSegment{
		{"Hi", 0.0, 1.0, KindLyric},
		{"a very long line", 1.0, 16.5, KindLyric},
	})
	// The second segment still exceeds the maximum and is surfaced.
	if len(warnings) != 1 || warnings[0].Index != 1 {
		t.Fatalf("warnings = %v; want one for segment 1", warnings)
	}
}

func TestReconcileLongWarning(t *testing.T) {
	segments := []Segment{
		{Index: 0, Text: "looooong", Start: 0.0, End: 20.0, Kind: KindLyric},
	}
	r := NewReconciler(defaultTestConfig())
	got, warnings, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	if len(warnings) != 1 || warnings[0].Index != 0 {
		t.Fatalf("warnings = %v; want one for segment 0", warnings)
	}
	checkSegments(t, got, []wantSegment{
		{"looooong", 0.0, 20.0, KindLyric},
	})
}

func TestReconcileIdempotent(t *testing.T) {
	b := NewBuilder(defaultTestConfig())
	segments, err := b.Build([]Line{
		{Text: "One", Start: 0.0, End: 0.4},
		{Text: "Two", Start: 0.4, End: 4.0},
		{Text: "Three", Start: 9.0},
	}, 30.0)
	if err != nil {
		t.Fatalf("Build() err = %v; want nil", err)
	}
	r := NewReconciler(defaultTestConfig())
	once, _, err := r.Reconcile(segments)
	if err != nil {
		t.Fatalf("Reconcile() err = %v; want nil", err)
	}
	twice, _, err := r.Reconcile(once)
	if err != nil {
		t.Fatalf("Reconcile(Reconcile()) err = %v; want nil", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second reconcile changed segments:\n%v\n%v", once, twice)
	}
}

func TestReconcileInvariantError(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
	}{
		{
			name: "negative start",
			segments: []Segment{
				{Index: 0, Text: "a", Start: -1.0, End: 2.0, Kind: KindLyric},
			},
		},
		{
			name: "overlap",
			segments: []Segment{
				{Index: 0, Text: "a", Start: 0.0, End: 3.0, Kind: KindLyric},
				{Index: 1, Text: "b", Start: 2.0, End: 5.0, Kind: KindLyric},
			},
		},
		{
			name: "uncovered gap",
			segments: []Segment{
				{Index: 0, Text: "a", Start: 0.0, End: 3.0, Kind: KindLyric},
				{Index: 1, Text: "b", Start: 4.0, End: 6.0, Kind: KindLyric},
			},
		},
		{
			name:     "empty input",
			segments: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(defaultTestConfig())
			_, _, err := r.Reconcile(tt.segments)
			var invariant *InvariantError
			if !errors.As(err, &invariant) {
				t.Fatalf("Reconcile() err = %v; want InvariantError", err)
			}
		})
	}
}

func TestBuildReconcileProperties(t *testing.T) {
	// Build followed by Reconcile must produce zero overlaps and zero
	// gaps for any monotonic input.
	tests := []struct {
		name  string
		lines []Line
		total float64
	}{
		{
			name: "verse with breaks",
			lines: []Line{
				{Text: "a", Start: 3.0}, {Text: "b", Start: 6.2},
				{Text: "c", Start: 6.9}, {Text: "d", Start: 15.0},
				{Text: "e", Start: 15.2}, {Text: "f", Start: 24.0},
			},
			total: 40.0,
		},
		{
			name: "rapid fire lines",
			lines: []Line{
				{Text: "a", Start: 0.0}, {Text: "b", Start: 0.2},
				{Text: "c", Start: 0.4}, {Text: "d", Start: 0.6},
				{Text: "e", Start: 5.0},
			},
			total: 10.0,
		},
	}
	cfg := defaultTestConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := NewBuilder(cfg).Build(tt.lines, tt.total)
			if err != nil {
				t.Fatalf("Build() err = %v; want nil", err)
			}
			got, warnings, err := NewReconciler(cfg).Reconcile(segments)
			if err != nil {
				t.Fatalf("Reconcile() err = %v; want nil", err)
			}
			for _, w := range warnings {
				t.Logf("warning: %s", w)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Start != got[i-1].End {
					t.Errorf("gap or overlap between segments %d and %d", i-1, i)
				}
			}
			for i, seg := range got {
				if seg.Index != i {
					t.Errorf("segments[%d].Index = %d", i, seg.Index)
				}
				if seg.Duration() <= 0 {
					t.Errorf("segments[%d] has non-positive duration", i)
				}
			}
		})
	}
}
