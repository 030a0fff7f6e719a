package timeline

import (
	"encoding/json"
	"fmt"
)

// Kind identifies what a segment represents on the video timeline.
type Kind int

const (
	KindLyric Kind = iota
	KindInstrumental
	KindGap
)

var kindNames = map[Kind]string{
	KindLyric:        "lyric",
	KindInstrumental: "instrumental",
	KindGap:          "gap",
}

var kindValues = map[string]Kind{
	"lyric":        KindLyric,
	"instrumental": KindInstrumental,
	"gap":          KindGap,
}

func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("unknown(%d)", int(k))
	}
	return name
}

func (k Kind) MarshalJSON() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("timeline: unknown kind: %d", int(k))
	}
	return json.Marshal(name)
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("timeline: couldn't unmarshal kind: %w", err)
	}
	v, ok := kindValues[name]
	if !ok {
		return fmt.Errorf("timeline: unknown kind: %q", name)
	}
	*k = v
	return nil
}

// Word is a word-level sub-timing inside a lyric segment.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

// Segment is one timed unit of the video timeline. Timing fields are
// frozen once the segment belongs to a reconciled timeline, only the
// enrichment fields change after that.
type Segment struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
	Kind  Kind    `json:"kind"`
	Words []Word  `json:"source_words,omitempty"`

	// Enrichment fields, filled by later pipeline stages.
	ConceptTags      []string `json:"concept_tags,omitempty"`
	ImageDescription string   `json:"image_description,omitempty"`
	ImagePath        string   `json:"image_path,omitempty"`
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	return s.End - s.Start
}

// Enriched reports whether the segment has both an image description and
// an image path. Absence is a fallback condition, not an error.
func (s *Segment) Enriched() bool {
	return s.ImageDescription != "" && s.ImagePath != ""
}

func (s *Segment) clone() Segment {
	c := *s
	if s.Words != nil {
		c.Words = append([]Word(nil), s.Words...)
	}
	if s.ConceptTags != nil {
		c.ConceptTags = append([]string(nil), s.ConceptTags...)
	}
	return c
}

func cloneSegments(segments []Segment) []Segment {
	cs := make([]Segment, len(segments))
	for i := range segments {
		cs[i] = segments[i].clone()
	}
	return cs
}
