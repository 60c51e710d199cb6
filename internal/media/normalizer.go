package media

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// DefaultImageSize is the default square edge for normalized images.
const DefaultImageSize = 224

// DecodeImage decodes image bytes in any registered format (jpeg, png, gif,
// webp, bmp, tiff). Decode failures are ordinary errors, never panics.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Normalizer converts decoded images into opaque RGB JPEGs.
type Normalizer struct {
	Quality int
}

// NewNormalizer creates a normalizer with the given JPEG quality.
// Non-positive quality falls back to DefaultQuality.
func NewNormalizer(quality int) *Normalizer {
	if quality <= 0 {
		quality = DefaultQuality
	}
	return &Normalizer{Quality: quality}
}

// EncodeJPEG re-encodes img as an opaque RGB JPEG at the configured quality.
// Dimensions and aspect ratio are preserved.
func (n *Normalizer) EncodeJPEG(img image.Image) ([]byte, error) {
	return encodeJPEG(toOpaqueRGB(img), n.Quality)
}

// Normalize stretch-resizes img to size x size, ignoring aspect ratio, and
// encodes it as an opaque RGB JPEG at the configured quality.
func (n *Normalizer) Normalize(img image.Image, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}

	src := toOpaqueRGB(img)
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	return encodeJPEG(dst, n.Quality)
}

// toOpaqueRGB composites img over an opaque black background, flattening
// palette and alpha-channel images the way the JPEG encoder expects.
func toOpaqueRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
