package pixel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-assetcatalog/internal/csi"
)

// Decode expands a rendition's payload into an owned raster buffer. Color,
// multisize and empty payloads are not rasters and report ErrNotRaster.
func Decode(h *csi.Header) (*Image, error) {
	switch h.Payload.Kind {
	case csi.PayloadRaw:
		return decodePixels(h, csi.CompressionUncompressed, h.Payload.Data)
	case csi.PayloadThemed:
		return decodePixels(h, h.Payload.Compression, h.Payload.Data)
	default:
		return nil, errors.Wrapf(ErrNotRaster, "payload kind %v", h.Payload.Kind)
	}
}

func decodePixels(h *csi.Header, scheme csi.Compression, data []byte) (*Image, error) {
	width, height := int(h.Width), int(h.Height)
	if h.PixelFormat == csi.PixelFormatJPEG {
		return decodeEmbedded(width, height, data)
	}
	switch scheme {
	case csi.CompressionUncompressed:
		return fromStorage(width, height, h.PixelFormat, data)
	case csi.CompressionRLE:
		bpp, _, err := storageFormat(h.PixelFormat)
		if err != nil {
			return nil, err
		}
		raw, err := expandRLE(data, bpp, width*height)
		if err != nil {
			return nil, err
		}
		return fromStorage(width, height, h.PixelFormat, raw)
	case csi.CompressionZip:
		raw, err := inflate(data)
		if err != nil {
			return nil, err
		}
		return fromStorage(width, height, h.PixelFormat, raw)
	case csi.CompressionPaletteImage:
		// Quantized payloads come in two framings: a bare color table plus
		// index words, or that same stream inside an lzfse container. Only
		// the bare form is expanded here.
		if len(data) < 4 || binary.LittleEndian.Uint32(data) != paletteMagic {
			return nil, errors.Wrap(ErrUnsupportedCompression, "lzfse-framed palette-img payload")
		}
		return expandPalette(data, width, height)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, scheme)
	}
}

// expandRLE decodes the run-length scheme used by rasterized renditions.
// Each control byte either repeats the following pixel (high bit set, low
// bits plus one gives the run length) or introduces that many plus one
// literal pixels.
func expandRLE(src []byte, bpp, pixelCount int) ([]byte, error) {
	out := make([]byte, 0, pixelCount*bpp)
	pos := 0
	for pos < len(src) && len(out) < pixelCount*bpp {
		ctrl := src[pos]
		pos++
		if ctrl&0x80 != 0 {
			run := int(ctrl&0x7F) + 1
			if pos+bpp > len(src) {
				return nil, errors.Wrap(ErrTruncatedPayload, "run pixel")
			}
			px := src[pos : pos+bpp]
			pos += bpp
			for i := 0; i < run; i++ {
				out = append(out, px...)
			}
		} else {
			n := (int(ctrl) + 1) * bpp
			if pos+n > len(src) {
				return nil, errors.Wrap(ErrTruncatedPayload, "literal pixels")
			}
			out = append(out, src[pos:pos+n]...)
			pos += n
		}
	}
	if len(out) != pixelCount*bpp {
		return nil, errors.Wrapf(ErrTruncatedPayload,
			"run-length stream ended after %d of %d bytes", len(out), pixelCount*bpp)
	}
	return out, nil
}

func inflate(src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "open deflate stream")
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "inflate payload")
	}
	return raw, nil
}

const paletteMagic = 0xCAFEF00D

// expandPalette decodes a quantized image: a color table of packed 32-bit
// colors followed by 16-bit words each carrying two table indices.
func expandPalette(src []byte, width, height int) (*Image, error) {
	if len(src) < 10 {
		return nil, errors.Wrap(ErrTruncatedPayload, "palette header")
	}
	if binary.LittleEndian.Uint32(src) != paletteMagic {
		return nil, errors.New("bad palette magic")
	}
	colorCount := int(binary.LittleEndian.Uint16(src[8:]))
	pos := 10
	if pos+colorCount*4 > len(src) {
		return nil, errors.Wrap(ErrTruncatedPayload, "palette color table")
	}
	table := make([][4]byte, colorCount)
	for i := range table {
		c := binary.LittleEndian.Uint32(src[pos:])
		pos += 4
		table[i] = [4]byte{byte(c >> 8), byte(c >> 16), byte(c >> 24), byte(c)}
	}
	img := newImage(width, height, FormatRGBA8)
	n := width * height
	emit := func(out int, idx int) error {
		if idx >= colorCount {
			return errors.Errorf("palette index %d out of range (%d colors)", idx, colorCount)
		}
		copy(img.Pix[out*4:], table[idx][:])
		return nil
	}
	for i := 0; i < n; i += 2 {
		if pos+2 > len(src) {
			return nil, errors.Wrap(ErrTruncatedPayload, "palette indices")
		}
		v := binary.LittleEndian.Uint16(src[pos:])
		pos += 2
		if err := emit(i, int(v>>8)); err != nil {
			return nil, err
		}
		if i+1 < n {
			if err := emit(i+1, int(v&0xFF)); err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}
