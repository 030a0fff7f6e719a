package imageai

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrimage/ai-lyric-video-generator/pkg/openai"
)

// OpenAI implements Director, Describer and Generator on top of the
// openai chat and image models.
type OpenAI struct {
	client *openai.Client
}

func NewOpenAI(client *openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

type conceptResponse struct {
	Theme    string `json:"theme"`
	Style    string `json:"visual_style"`
	Palette  string `json:"color_palette"`
	Segments []struct {
		Index int      `json:"index"`
		Tags  []string `json:"tags"`
	} `json:"segments"`
}

func (o *OpenAI) Concept(ctx context.Context, title, artist string, lines []string) (*Concept, [][]string, error) {
	var sb strings.Builder
	for i, line := range lines {
		text := line
		if text == "" {
			text = "(instrumental)"
		}
		fmt.Fprintf(&sb, "%d: %s\n", i, text)
	}
	msg := fmt.Sprintf(`You are directing a lyric video for the song %q by %q.
Design a single coherent visual concept for the whole video and assign 2-4 concept tags to every lyric line below.
Respond with a JSON object with keys "theme", "visual_style", "color_palette" and "segments", where "segments" is an array of {"index", "tags"} covering every line.

Lyrics:
%s`, title, artist, sb.String())

	var resp conceptResponse
	if err := o.client.ChatCompletionJSON(ctx, msg, &resp); err != nil {
		return nil, nil, fmt.Errorf("imageai: couldn't generate concept: %w", err)
	}
	if resp.Theme == "" {
		return nil, nil, fmt.Errorf("imageai: concept response has no theme")
	}
	tags := make([][]string, len(lines))
	for _, s := range resp.Segments {
		if s.Index < 0 || s.Index >= len(lines) {
			continue
		}
		tags[s.Index] = s.Tags
	}
	concept := &Concept{
		Theme:   resp.Theme,
		Style:   resp.Style,
		Palette: resp.Palette,
	}
	return concept, tags, nil
}

func (o *OpenAI) Describe(ctx context.Context, concept *Concept, text string, tags []string) (string, error) {
	subject := fmt.Sprintf("the lyric line %q", text)
	if text == "" {
		subject = "an instrumental passage with no vocals"
	}
	var tagLine string
	if len(tags) > 0 {
		tagLine = fmt.Sprintf("\nConcept tags for this moment: %s.", strings.Join(tags, ", "))
	}
	msg := fmt.Sprintf(`Video concept: %s.%s
Write one vivid image description for %s.
Describe a single still image in 2-3 sentences. No text or lettering in the image. Respond with the description only.`, concept, tagLine, subject)

	description, err := o.client.ChatCompletion(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("imageai: couldn't describe segment: %w", err)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("imageai: empty description")
	}
	return description, nil
}

func (o *OpenAI) Generate(ctx context.Context, concept *Concept, description string) ([]byte, error) {
	prompt := description
	if c := concept.String(); c != "" {
		prompt = fmt.Sprintf("%s. %s. No text or lettering.", description, c)
	}
	b, err := o.client.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("imageai: couldn't generate image: %w", err)
	}
	return b, nil
}
