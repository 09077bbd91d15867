package car

import (
	"image"

	"github.com/robert-malhotra/go-assetcatalog/internal/pixel"
)

// Image is a decoded raster. Pix owns its memory and stays valid after the
// source catalog is released.
type Image struct {
	Width  int
	Height int
	Stride int
	// Channels is 4 for RGBA output, 1 for grayscale.
	Channels int
	Pix      []byte
}

// GoImage wraps the raster in a standard library image for encoding.
func (im *Image) GoImage() image.Image {
	rect := image.Rect(0, 0, im.Width, im.Height)
	if im.Channels == 1 {
		return &image.Gray{Pix: im.Pix, Stride: im.Stride, Rect: rect}
	}
	return &image.NRGBA{Pix: im.Pix, Stride: im.Stride, Rect: rect}
}

// DecodeRendition expands a rendition's payload into pixels.
func DecodeRendition(r *Rendition) (*Image, error) {
	return r.Decode()
}

// Decode expands the rendition's payload into pixels. Decoding reads only
// the rendition's own bytes and allocates a fresh buffer each call, so it is
// idempotent and safe to run concurrently across renditions.
func (r *Rendition) Decode() (*Image, error) {
	img, err := pixel.Decode(r.record)
	if err != nil {
		return nil, err
	}
	return &Image{
		Width:    img.Width,
		Height:   img.Height,
		Stride:   img.Stride,
		Channels: img.Format.BytesPerPixel(),
		Pix:      img.Pix,
	}, nil
}
