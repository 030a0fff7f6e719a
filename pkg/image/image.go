package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/webp"
)

// Save decodes raw image bytes and writes them re-encoded to the
// format implied by the output extension.
func Save(b []byte, output string) error {
	encode, err := getEncoder(output)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("image: couldn't decode bytes: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("image: couldn't create %s: %w", output, err)
	}
	defer f.Close()
	if err := encode(f, img); err != nil {
		return fmt.Errorf("image: couldn't encode %s: %w", output, err)
	}
	return nil
}

type Decode func(io.Reader) (image.Image, error)

func getDecoder(file string) (Decode, error) {
	inputExt := filepath.Ext(file)
	var decode Decode
	switch inputExt {
	case ".png":
		decode = png.Decode
	case ".jpg", ".jpeg":
		decode = jpeg.Decode
	case ".webp":
		decode = webp.Decode
	default:
		return nil, fmt.Errorf("image: unsupported extension: %s", inputExt)
	}
	return decode, nil
}

type Encode func(io.Writer, image.Image) error

func getEncoder(file string) (Encode, error) {
	outputExt := filepath.Ext(file)
	var encode Encode
	switch outputExt {
	case ".png":
		encode = png.Encode
	case ".jpg", ".jpeg":
		encode = func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, nil)
		}
	case ".webp":
		encode = png.Encode
	default:
		return nil, fmt.Errorf("image: unsupported extension: %s", outputExt)
	}
	return encode, nil
}
