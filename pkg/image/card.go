package image

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Card renders a text card: a solid background with the given lines
// centered and word-wrapped. It is used for the title screen and for
// instrumental placeholders.
func Card(lines []string, bg color.RGBA, fontPath, output string, width, height int) error {
	encode, err := getEncoder(output)
	if err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	shorterDim := width
	if height < width {
		shorterDim = height
	}
	fontSize := float64(shorterDim) * 6 / 100.0
	face, err := loadFont(fontPath, fontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	// Wrap every line to the drawable width before layout.
	maxWidth := width * 9 / 10
	var wrapped []string
	for _, line := range lines {
		wrapped = append(wrapped, wrapLine(line, face, maxWidth)...)
	}

	textColor := chooseContrastingColor(bg)
	metrics := face.Metrics()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil() * 6 / 5
	blockHeight := lineHeight * len(wrapped)
	y := (height-blockHeight)/2 + metrics.Ascent.Ceil()

	for _, line := range wrapped {
		textWidth := font.MeasureString(face, line).Ceil()
		x := (width - textWidth) / 2
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(textColor),
			Face: face,
			Dot: fixed.Point26_6{
				X: fixed.Int26_6(x << 6),
				Y: fixed.Int26_6(y << 6),
			},
		}
		d.DrawString(line)
		y += lineHeight
	}

	outputFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer outputFile.Close()
	return encode(outputFile, img)
}

// wrapLine splits a line into chunks that fit maxWidth when drawn with
// the face. Words longer than the width are kept on their own line.
func wrapLine(line string, face font.Face, maxWidth int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	var out []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			out = append(out, current)
			current = word
			continue
		}
		current = candidate
	}
	out = append(out, current)
	return out
}
