package imageai

import (
	"context"
	"fmt"
	"strings"
)

// Concept is the overall visual direction for a video. It is decided
// once per song and drives every per-segment image description.
type Concept struct {
	Theme   string `json:"theme"`
	Style   string `json:"visual_style"`
	Palette string `json:"color_palette"`
}

func (c *Concept) String() string {
	parts := []string{}
	if c.Theme != "" {
		parts = append(parts, fmt.Sprintf("theme: %s", c.Theme))
	}
	if c.Style != "" {
		parts = append(parts, fmt.Sprintf("visual style: %s", c.Style))
	}
	if c.Palette != "" {
		parts = append(parts, fmt.Sprintf("color palette: %s", c.Palette))
	}
	return strings.Join(parts, ", ")
}

// Director decides the video concept. It returns the concept and one
// tag list per input line, aligned by position.
type Director interface {
	Concept(ctx context.Context, title, artist string, lines []string) (*Concept, [][]string, error)
}

// Describer writes the image description for a single segment.
type Describer interface {
	Describe(ctx context.Context, concept *Concept, text string, tags []string) (string, error)
}

// Generator renders an image from a segment description.
type Generator interface {
	Generate(ctx context.Context, concept *Concept, description string) ([]byte, error)
}
