package imageai

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
)

// Mock is a deterministic stand-in for the openai implementation, used
// when no API key is configured and in tests.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Concept(ctx context.Context, title, artist string, lines []string) (*Concept, [][]string, error) {
	tags := make([][]string, len(lines))
	for i, line := range lines {
		if line == "" {
			tags[i] = []string{"instrumental", "abstract"}
			continue
		}
		words := strings.Fields(strings.ToLower(line))
		if len(words) > 3 {
			words = words[:3]
		}
		tags[i] = words
	}
	concept := &Concept{
		Theme:   fmt.Sprintf("an impressionistic journey through %q", title),
		Style:   "soft painterly illustration",
		Palette: "muted blues and warm amber",
	}
	return concept, tags, nil
}

func (m *Mock) Describe(ctx context.Context, concept *Concept, text string, tags []string) (string, error) {
	if text == "" {
		return fmt.Sprintf("An abstract instrumental scene in %s.", concept.Style), nil
	}
	return fmt.Sprintf("A scene evoking %q, rendered in %s.", text, concept.Style), nil
}

func (m *Mock) Generate(ctx context.Context, concept *Concept, description string) ([]byte, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(description))
	seed := h.Sum32()

	base := color.RGBA{
		R: uint8(seed),
		G: uint8(seed >> 8),
		B: uint8(seed >> 16),
		A: 255,
	}
	const size = 512
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		// Vertical gradient towards black so mock frames can be told
		// apart at a glance.
		f := 1.0 - float64(y)/float64(size)
		c := color.RGBA{
			R: uint8(float64(base.R) * f),
			G: uint8(float64(base.G) * f),
			B: uint8(float64(base.B) * f),
			A: 255,
		}
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imageai: couldn't encode mock image: %w", err)
	}
	return buf.Bytes(), nil
}
