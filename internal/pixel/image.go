// Package pixel decodes rendition payloads into uncompressed raster
// buffers. Decoding is a pure function of the payload bytes and the
// rendition metadata: no shared state is touched, so callers may decode any
// number of renditions concurrently.
package pixel

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-assetcatalog/internal/csi"
)

// Per-rendition decode errors. Each is scoped to the single rendition being
// decoded; the catalog the rendition came from remains valid.
var (
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrUnsupportedCompression = errors.New("unsupported compression scheme")
	ErrTruncatedPayload       = errors.New("truncated rendition payload")
	ErrDimensionMismatch      = errors.New("embedded image dimensions differ from rendition header")
	ErrNotRaster              = errors.New("rendition holds no raster data")
)

// Format describes the channel layout of a decoded image buffer.
type Format int

const (
	// FormatRGBA8 is 8-bit-per-channel RGBA, non-premultiplied row-major.
	FormatRGBA8 Format = iota
	// FormatGray8 is a single 8-bit channel.
	FormatGray8
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatGray8:
		return "Gray8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// BytesPerPixel returns the pixel width of the format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatGray8:
		return 1
	default:
		return 4
	}
}

// Image is a decoded raster. Pix is freshly allocated by the decoder and
// owns its memory: it remains valid after the source catalog buffer is
// released.
type Image struct {
	Width  int
	Height int
	Stride int
	Format Format
	Pix    []byte
}

func newImage(width, height int, format Format) *Image {
	stride := width * format.BytesPerPixel()
	return &Image{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Pix:    make([]byte, stride*height),
	}
}

// storageFormat maps a CSI pixel format tag to the in-payload pixel width
// and the decoded buffer format.
func storageFormat(pf csi.PixelFormat) (bpp int, format Format, err error) {
	switch pf {
	case csi.PixelFormatARGB:
		return 4, FormatRGBA8, nil
	case csi.PixelFormatGray:
		return 1, FormatGray8, nil
	default:
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedPixelFormat, pf)
	}
}

// fromStorage builds an owned image from raw payload pixels, swizzling
// premultiplied BGRA storage order into RGBA output.
func fromStorage(width, height int, pf csi.PixelFormat, src []byte) (*Image, error) {
	bpp, format, err := storageFormat(pf)
	if err != nil {
		return nil, err
	}
	want := width * height * bpp
	if len(src) != want {
		return nil, fmt.Errorf("%w: %d payload bytes for %dx%d (%d expected)",
			ErrTruncatedPayload, len(src), width, height, want)
	}
	img := newImage(width, height, format)
	if pf == csi.PixelFormatARGB {
		for i := 0; i < want; i += 4 {
			img.Pix[i+0] = src[i+2]
			img.Pix[i+1] = src[i+1]
			img.Pix[i+2] = src[i+0]
			img.Pix[i+3] = src[i+3]
		}
	} else {
		copy(img.Pix, src)
	}
	return img, nil
}
