package pixel

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
)

// decodeEmbedded handles payloads that are a complete image file (JPEG or
// PNG) rather than bare pixels. The embedded image must agree with the
// rendition header on dimensions.
func decodeEmbedded(width, height int, data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode embedded image")
	}
	b := src.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, errors.Wrapf(ErrDimensionMismatch, "embedded %dx%d, header %dx%d",
			b.Dx(), b.Dy(), width, height)
	}
	img := newImage(width, height, FormatRGBA8)
	dst := &image.NRGBA{Pix: img.Pix, Stride: img.Stride, Rect: image.Rect(0, 0, width, height)}
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return img, nil
}
