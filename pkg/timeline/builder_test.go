package timeline

import (
	"errors"
	"math"
	"testing"
)

func defaultTestConfig() Config {
	return Config{
		InstrumentalThreshold: 2.0,
		MinSegmentDuration:    1.0,
		MaxSegmentDuration:    15.0,
		LastLineDuration:      3.0,
	}
}

type wantSegment struct {
	text  string
	start float64
	end   float64
	kind  Kind
}

func checkSegments(t *testing.T, got []Segment, want []wantSegment) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(segments) = %d; want %d (%v)", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Index != i {
			t.Errorf("segments[%d].Index = %d; want %d", i, g.Index, i)
		}
		if g.Text != w.text {
			t.Errorf("segments[%d].Text = %q; want %q", i, g.Text, w.text)
		}
		if math.Abs(g.Start-w.start) > 1e-6 || math.Abs(g.End-w.end) > 1e-6 {
			t.Errorf("segments[%d] = [%v, %v]; want [%v, %v]", i, g.Start, g.End, w.start, w.end)
		}
		if g.Kind != w.kind {
			t.Errorf("segments[%d].Kind = %v; want %v", i, g.Kind, w.kind)
		}
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		total float64
		want  []wantSegment
	}{
		{
			name: "gap becomes instrumental",
			lines: []Line{
				{Text: "Hello", Start: 0.0, End: 2.0},
				{Text: "World", Start: 5.0, End: 7.0},
			},
			total: 7.0,
			want: []wantSegment{
				{"Hello", 0.0, 2.0, KindLyric},
				{"", 2.0, 5.0, KindInstrumental},
				{"World", 5.0, 7.0, KindLyric},
			},
		},
		{
			name:  "single line unknown duration",
			lines: []Line{{Text: "Hello", Start: 0.0}},
			total: 0,
			want:  []wantSegment{{"Hello", 0.0, 3.0, KindLyric}},
		},
		{
			name: "instrumental intro",
			lines: []Line{
				{Text: "First", Start: 8.0, End: 10.0},
			},
			total: 10.0,
			want: []wantSegment{
				{"", 0.0, 8.0, KindInstrumental},
				{"First", 8.0, 10.0, KindLyric},
			},
		},
		{
			name: "short intro becomes gap segment",
			lines: []Line{
				{Text: "First", Start: 1.0, End: 10.0},
			},
			total: 10.0,
			want: []wantSegment{
				{"", 0.0, 1.0, KindGap},
				{"First", 1.0, 10.0, KindLyric},
			},
		},
		{
			name: "instrumental outro",
			lines: []Line{
				{Text: "Last", Start: 0.0, End: 4.0},
			},
			total: 10.0,
			want: []wantSegment{
				{"Last", 0.0, 4.0, KindLyric},
				{"", 4.0, 10.0, KindInstrumental},
			},
		},
		{
			name: "small gap closed by extension",
			lines: []Line{
				{Text: "One", Start: 0.0, End: 3.0},
				{Text: "Two", Start: 4.0, End: 6.0},
			},
			total: 6.0,
			want: []wantSegment{
				{"One", 0.0, 4.0, KindLyric},
				{"Two", 4.0, 6.0, KindLyric},
			},
		},
		{
			name: "missing ends derived from next start",
			lines: []Line{
				{Text: "One", Start: 0.0},
				{Text: "Two", Start: 3.5},
			},
			total: 6.0,
			want: []wantSegment{
				{"One", 0.0, 3.5, KindLyric},
				{"Two", 3.5, 6.0, KindLyric},
			},
		},
		{
			name: "explicit end clamped to next start",
			lines: []Line{
				{Text: "One", Start: 0.0, End: 5.0},
				{Text: "Two", Start: 4.0, End: 6.0},
			},
			total: 6.0,
			want: []wantSegment{
				{"One", 0.0, 4.0, KindLyric},
				{"Two", 4.0, 6.0, KindLyric},
			},
		},
		{
			name: "equal start lines coalesced",
			lines: []Line{
				{Text: "One", Start: 0.0},
				{Text: "Two", Start: 0.0},
				{Text: "Three", Start: 4.0, End: 6.0},
			},
			total: 6.0,
			want: []wantSegment{
				{"One / Two", 0.0, 4.0, KindLyric},
				{"Three", 4.0, 6.0, KindLyric},
			},
		},
		{
			name: "last end clamped to total",
			lines: []Line{
				{Text: "One", Start: 0.0, End: 8.0},
			},
			total: 6.0,
			want: []wantSegment{
				{"One", 0.0, 6.0, KindLyric},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(defaultTestConfig())
			got, err := b.Build(tt.lines, tt.total)
			if err != nil {
				t.Fatalf("Build() err = %v; want nil", err)
			}
			checkSegments(t, got, tt.want)
		})
	}
}

func TestBuildEmptyLyrics(t *testing.T) {
	b := NewBuilder(defaultTestConfig())
	if _, err := b.Build(nil, 10.0); !errors.Is(err, ErrEmptyLyrics) {
		t.Fatalf("Build(nil) err = %v; want ErrEmptyLyrics", err)
	}
}

func TestBuildMalformedTimestamps(t *testing.T) {
	b := NewBuilder(defaultTestConfig())
	lines := []Line{
		{Text: "One", Start: 5.0},
		{Text: "Two", Start: 2.0},
	}
	_, err := b.Build(lines, 10.0)
	var malformed *MalformedTimestampsError
	if !errors.As(err, &malformed) {
		t.Fatalf("Build() err = %v; want MalformedTimestampsError", err)
	}
	if malformed.Line != 1 {
		t.Fatalf("malformed.Line = %d; want 1", malformed.Line)
	}
}

func TestBuildCoverage(t *testing.T) {
	// For any monotonic input the result must cover [0, total) with no
	// overlaps and no gaps.
	tests := []struct {
		name  string
		lines []Line
		total float64
	}{
		{
			name: "dense lines",
			lines: []Line{
				{Text: "a", Start: 0.5}, {Text: "b", Start: 2.1},
				{Text: "c", Start: 3.7}, {Text: "d", Start: 9.0},
			},
			total: 20.0,
		},
		{
			name: "sparse lines",
			lines: []Line{
				{Text: "a", Start: 10.0, End: 12.0},
				{Text: "b", Start: 30.0, End: 31.5},
			},
			total: 60.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(defaultTestConfig())
			got, err := b.Build(tt.lines, tt.total)
			if err != nil {
				t.Fatalf("Build() err = %v; want nil", err)
			}
			if got[0].Start != 0 {
				t.Errorf("first start = %v; want 0", got[0].Start)
			}
			if last := got[len(got)-1]; last.End != tt.total {
				t.Errorf("last end = %v; want %v", last.End, tt.total)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Start != got[i-1].End {
					t.Errorf("gap or overlap between segments %d and %d: %v != %v", i-1, i, got[i-1].End, got[i].Start)
				}
			}
		})
	}
}
