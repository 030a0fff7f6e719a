package timeline

import (
	"fmt"
	"sync"
)

// Source identifies the granularity of the lyrics data the timeline was
// built from.
type Source string

const (
	SourceLineLevel Source = "line"
	SourceWordLevel Source = "word"
)

// Meta carries the song metadata attached to a timeline.
type Meta struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album,omitempty"`
	VideoID  string  `json:"video_id,omitempty"`
	Source   Source  `json:"source"`
	Duration float64 `json:"duration"`
}

// Enrichment field names accepted by SetEnrichment.
const (
	FieldConceptTags      = "concept_tags"
	FieldImageDescription = "image_description"
	FieldImagePath        = "image_path"
)

// Timeline owns the final ordered segment sequence. Timing is frozen at
// construction, only enrichment fields change afterwards. Enrichment
// calls targeting different indices may run concurrently.
type Timeline struct {
	mu       sync.RWMutex
	meta     Meta
	concept  string
	segments []Segment
}

// New builds a timeline over a reconciled segment sequence. The
// segments are copied, the caller keeps no aliases into the timeline.
func New(meta Meta, segments []Segment) (*Timeline, error) {
	if err := validate(segments); err != nil {
		return nil, err
	}
	return &Timeline{
		meta:     meta,
		segments: cloneSegments(segments),
	}, nil
}

func (t *Timeline) Meta() Meta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.meta
}

// Concept returns the video-level creative concept, empty until set.
func (t *Timeline) Concept() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.concept
}

// SetConcept attaches the video-level creative concept.
func (t *Timeline) SetConcept(concept string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.concept = concept
}

// Len returns the number of segments.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.segments)
}

// Segment returns a copy of the segment at the given position.
func (t *Timeline) Segment(i int) (Segment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.segments) {
		return Segment{}, &IndexError{Index: i, Len: len(t.segments)}
	}
	return t.segments[i].clone(), nil
}

// Segments returns an independent copy of the segment sequence in index
// order. Each call yields its own traversal, safe against concurrent
// enrichment.
func (t *Timeline) Segments() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneSegments(t.segments)
}

// TotalDuration returns the end time of the last segment.
func (t *Timeline) TotalDuration() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.segments[len(t.segments)-1].End
}

// SetEnrichment mutates one enrichment field of one segment. Timing and
// text fields are frozen and rejected with ErrImmutableField.
func (t *Timeline) SetEnrichment(i int, field string, value interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.segments) {
		return &IndexError{Index: i, Len: len(t.segments)}
	}
	seg := &t.segments[i]
	switch field {
	case FieldConceptTags:
		tags, ok := value.([]string)
		if !ok {
			return fmt.Errorf("timeline: %s wants []string, got %T", field, value)
		}
		seg.ConceptTags = append([]string(nil), tags...)
	case FieldImageDescription:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("timeline: %s wants string, got %T", field, value)
		}
		seg.ImageDescription = s
	case FieldImagePath:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("timeline: %s wants string, got %T", field, value)
		}
		seg.ImagePath = s
	case "text", "start_time", "end_time", "kind", "index", "source_words":
		return ErrImmutableField
	default:
		return fmt.Errorf("timeline: unknown enrichment field %q", field)
	}
	return nil
}

// SetConceptTags attaches concept tags to the segment at i.
func (t *Timeline) SetConceptTags(i int, tags []string) error {
	return t.SetEnrichment(i, FieldConceptTags, tags)
}

// SetImageDescription attaches an image description to the segment at i.
func (t *Timeline) SetImageDescription(i int, description string) error {
	return t.SetEnrichment(i, FieldImageDescription, description)
}

// SetImagePath attaches a generated image path to the segment at i.
func (t *Timeline) SetImagePath(i int, path string) error {
	return t.SetEnrichment(i, FieldImagePath, path)
}
