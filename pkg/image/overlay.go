package image

import (
	"image"
	"image/draw"
	"os"
)

// AddOverlay draws an overlay image centered over a base image and
// writes the result. It is used to watermark video thumbnails, the
// overlay is expected to be smaller than the base frame.
func AddOverlay(overlay, input, output string) error {
	encode, err := getEncoder(output)
	if err != nil {
		return err
	}
	base, err := loadImage(input)
	if err != nil {
		return err
	}
	mark, err := loadImage(overlay)
	if err != nil {
		return err
	}

	bounds := base.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, base, image.Point{}, draw.Src)

	// Center the overlay on the base frame.
	offset := image.Pt(
		(bounds.Dx()-mark.Bounds().Dx())/2,
		(bounds.Dy()-mark.Bounds().Dy())/2,
	)
	draw.Draw(out, mark.Bounds().Add(offset), mark, image.Point{}, draw.Over)

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	return encode(f, out)
}

// loadImage decodes an image file using the codec matching its
// extension.
func loadImage(path string) (image.Image, error) {
	decode, err := getDecoder(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}
