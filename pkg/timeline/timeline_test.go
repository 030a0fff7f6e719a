package timeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func testTimeline(t *testing.T, n int) *Timeline {
	t.Helper()
	segments := make([]Segment, n)
	for i := 0; i < n; i++ {
		segments[i] = Segment{
			Index: i,
			Text:  fmt.Sprintf("line %d", i),
			Start: float64(i) * 2.0,
			End:   float64(i)*2.0 + 2.0,
			Kind:  KindLyric,
		}
	}
	tl, err := New(Meta{Title: "Song", Artist: "Artist", Source: SourceLineLevel, Duration: float64(n) * 2.0}, segments)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	return tl
}

func TestTimelineSegment(t *testing.T) {
	tl := testTimeline(t, 3)
	seg, err := tl.Segment(1)
	if err != nil {
		t.Fatalf("Segment(1) err = %v; want nil", err)
	}
	if seg.Text != "line 1" {
		t.Fatalf("Segment(1).Text = %q; want %q", seg.Text, "line 1")
	}
	for _, i := range []int{-1, 3} {
		_, err := tl.Segment(i)
		var idx *IndexError
		if !errors.As(err, &idx) {
			t.Fatalf("Segment(%d) err = %v; want IndexError", i, err)
		}
	}
}

func TestTimelineTotalDuration(t *testing.T) {
	tl := testTimeline(t, 3)
	if got := tl.TotalDuration(); got != 6.0 {
		t.Fatalf("TotalDuration() = %v; want 6.0", got)
	}
}

func TestTimelineOwnsSegments(t *testing.T) {
	segments := []Segment{
		{Index: 0, Text: "a", Start: 0, End: 2, Kind: KindLyric},
	}
	tl, err := New(Meta{Title: "Song"}, segments)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	// Mutating the input or an iterated copy must not reach the
	// timeline's own state.
	segments[0].Text = "mutated"
	copied := tl.Segments()
	copied[0].Text = "also mutated"
	seg, err := tl.Segment(0)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Text != "a" {
		t.Fatalf("Segment(0).Text = %q; want %q", seg.Text, "a")
	}
}

func TestSetEnrichment(t *testing.T) {
	tl := testTimeline(t, 2)
	if err := tl.SetImageDescription(0, "a red door"); err != nil {
		t.Fatalf("SetImageDescription() err = %v; want nil", err)
	}
	if err := tl.SetImagePath(0, "images/000.png"); err != nil {
		t.Fatalf("SetImagePath() err = %v; want nil", err)
	}
	if err := tl.SetConceptTags(1, []string{"dark", "rain"}); err != nil {
		t.Fatalf("SetConceptTags() err = %v; want nil", err)
	}
	seg, err := tl.Segment(0)
	if err != nil {
		t.Fatal(err)
	}
	if !seg.Enriched() {
		t.Fatalf("Segment(0).Enriched() = false; want true")
	}
	seg, err = tl.Segment(1)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Enriched() {
		t.Fatalf("Segment(1).Enriched() = true; want false")
	}
}

func TestSetEnrichmentImmutableFields(t *testing.T) {
	tl := testTimeline(t, 1)
	for _, field := range []string{"text", "start_time", "end_time", "kind", "index", "source_words"} {
		err := tl.SetEnrichment(0, field, "value")
		if !errors.Is(err, ErrImmutableField) {
			t.Fatalf("SetEnrichment(0, %q) err = %v; want ErrImmutableField", field, err)
		}
	}
	if err := tl.SetEnrichment(0, "nope", "value"); errors.Is(err, nil) {
		t.Fatalf("SetEnrichment(0, %q) err = nil; want error", "nope")
	}
	if err := tl.SetImagePath(5, "x"); err == nil {
		t.Fatal("SetImagePath(5) err = nil; want IndexError")
	}
}

func TestConcurrentEnrichment(t *testing.T) {
	const n = 32
	tl := testTimeline(t, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := tl.SetImageDescription(i, fmt.Sprintf("description %d", i)); err != nil {
				t.Errorf("SetImageDescription(%d) err = %v", i, err)
			}
			if err := tl.SetImagePath(i, fmt.Sprintf("images/%03d.png", i)); err != nil {
				t.Errorf("SetImagePath(%d) err = %v", i, err)
			}
		}(i)
	}
	// Iterate while enrichment is in flight, each traversal is its own
	// consistent copy.
	for _, seg := range tl.Segments() {
		_ = seg.Enriched()
	}
	wg.Wait()
	for i, seg := range tl.Segments() {
		if !seg.Enriched() {
			t.Fatalf("segment %d not enriched after all workers finished", i)
		}
	}
}

func TestNewValidates(t *testing.T) {
	segments := []Segment{
		{Index: 0, Text: "a", Start: 0, End: 3, Kind: KindLyric},
		{Index: 1, Text: "b", Start: 2, End: 5, Kind: KindLyric},
	}
	_, err := New(Meta{Title: "Song"}, segments)
	var invariant *InvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("New() err = %v; want InvariantError", err)
	}
}
