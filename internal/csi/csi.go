// Package csi decodes CoreUI structured image records, the per-rendition
// values stored in a catalog's RENDITIONS tree. A CSI record is a fixed
// little-endian header followed by a TLV property list and a tagged payload
// envelope holding the actual pixel or data bytes.
package csi

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// Record signature, "CTSI" stored as a little-endian tag word.
var headerMagic = []byte("ISTC")

// ErrBadHeader is returned when a rendition value does not start with a
// valid CSI header.
var ErrBadHeader = errors.New("malformed CSI header")

// Fixed header size up to and including the bitmap list, excluding TLV data
// and payload. This is also the constant the reference tool adds when
// reporting size on disk.
const fixedHeaderSize = 184

// Layout describes what kind of asset a rendition holds.
type Layout uint16

const (
	LayoutTextEffect        Layout = 0x007
	LayoutVector            Layout = 0x009
	LayoutImage             Layout = 0x00C
	LayoutData              Layout = 0x3E8
	LayoutExternalLink      Layout = 0x3E9
	LayoutLayerStack        Layout = 0x3EA
	LayoutInternalReference Layout = 0x3EB
	LayoutPackedImage       Layout = 0x3EC
	LayoutNameList          Layout = 0x3ED
	LayoutUnknownAddObject  Layout = 0x3EE
	LayoutTexture           Layout = 0x3EF
	LayoutTextureImage      Layout = 0x3F0
	LayoutColor             Layout = 0x3F1
	LayoutMultisizeImage    Layout = 0x3F2
	LayoutLayerReference    Layout = 0x3F4
	LayoutContentRendition  Layout = 0x3F5
	LayoutRecognitionObject Layout = 0x3F6
)

func (l Layout) String() string {
	switch l {
	case LayoutTextEffect:
		return "Text Effect"
	case LayoutVector:
		return "Vector"
	case LayoutImage:
		return "Image"
	case LayoutData:
		return "Data"
	case LayoutColor:
		return "Color"
	case LayoutMultisizeImage:
		return "MultiSized Image"
	case LayoutPackedImage:
		return "PackedImage"
	case LayoutInternalReference:
		return "Internal Reference"
	default:
		return fmt.Sprintf("Layout(%#x)", uint16(l))
	}
}

// PixelFormat is the four-character pixel format tag of a bitmap rendition.
type PixelFormat uint32

const (
	PixelFormatNone PixelFormat = 0
	PixelFormatARGB PixelFormat = 0x41524742 // premultiplied BGRA bytes
	PixelFormatData PixelFormat = 0x44415441 // opaque data, no raster
	PixelFormatGray PixelFormat = 0x47413820 // one 8-bit channel
	PixelFormatJPEG PixelFormat = 0x4A504547 // embedded codec stream
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatNone:
		return "None"
	case PixelFormatARGB:
		return "ARGB"
	case PixelFormatData:
		return "DATA"
	case PixelFormatGray:
		return "GA8"
	case PixelFormatJPEG:
		return "JPEG"
	default:
		return fmt.Sprintf("PixelFormat(%#x)", uint32(p))
	}
}

// Compression is the payload compression scheme of a themed rendition.
type Compression uint32

const (
	CompressionUncompressed Compression = iota
	CompressionRLE
	CompressionZip
	CompressionLZVN
	CompressionLZFSE
	CompressionJPEGLZFSE
	CompressionBlurred
	CompressionASTC
	CompressionPaletteImage
	CompressionHEVC
	CompressionDeepMapLZFSE
	CompressionDeepMap2
)

func (c Compression) String() string {
	switch c {
	case CompressionUncompressed:
		return "uncompressed"
	case CompressionRLE:
		return "rle"
	case CompressionZip:
		return "zip"
	case CompressionLZVN:
		return "lzvn"
	case CompressionLZFSE:
		return "lzfse"
	case CompressionJPEGLZFSE:
		return "jpeg-lzfse"
	case CompressionBlurred:
		return "blurred"
	case CompressionASTC:
		return "astc"
	case CompressionPaletteImage:
		return "palette-img"
	case CompressionHEVC:
		return "hevc"
	case CompressionDeepMapLZFSE:
		return "deepmap-lzfse"
	case CompressionDeepMap2:
		return "deepmap2"
	default:
		return fmt.Sprintf("compression(%d)", uint32(c))
	}
}

// TemplateMode is the "render as" setting of an image rendition.
type TemplateMode uint32

const (
	TemplateAutomatic TemplateMode = iota
	TemplateOriginal
	TemplateTemplate
)

func (m TemplateMode) String() string {
	switch m {
	case TemplateAutomatic:
		return "automatic"
	case TemplateOriginal:
		return "original"
	case TemplateTemplate:
		return "template"
	default:
		return fmt.Sprintf("template(%d)", uint32(m))
	}
}

// Flags is the rendition flag word from the CSI header.
type Flags uint32

// IsVectorBased reports the vector-representation flag.
func (f Flags) IsVectorBased() bool { return f&0x1 != 0 }

// IsOpaque reports whether the bitmap carries no meaningful alpha.
func (f Flags) IsOpaque() bool { return f&0x2 != 0 }

// TemplateMode returns the template rendering mode bits.
func (f Flags) TemplateMode() TemplateMode { return TemplateMode((f >> 5) & 0x7) }

// ColorModel is derived from the low nibble of the color space word.
type ColorModel uint32

const (
	ColorModelNone ColorModel = 0
	ColorModelRGB  ColorModel = 1
	ColorModelMono ColorModel = 2
)

func (m ColorModel) String() string {
	switch m {
	case ColorModelRGB:
		return "RGB"
	case ColorModelMono:
		return "Monochrome"
	default:
		return fmt.Sprintf("ColorModel(%d)", uint32(m))
	}
}

// Header is a decoded CSI record. TLV properties and the payload are parsed
// eagerly; payload data stays a borrowed slice of the catalog buffer until a
// pixel decode copies it out.
type Header struct {
	Version     uint32
	Flags       Flags
	Width       uint32
	Height      uint32
	ScaleFactor uint32 // percent; 0 means 1x
	PixelFormat PixelFormat
	ColorSpace  uint32

	ModTime uint32
	Layout  Layout
	Name    string

	TLVLength     uint32
	PayloadLength uint32

	Properties []Property
	Payload    Payload
}

// Property is one TLV record from the header's property list.
type Property struct {
	Type uint32
	Data []byte
}

// TLV property types.
const (
	PropertySlices          = 0x3E9
	PropertyMetrics         = 0x3EB
	PropertyBlendAndOpacity = 0x3EC
	PropertyUTI             = 0x3ED
	PropertyEXIFOrientation = 0x3EE
	PropertyBitmapInfo      = 0x3EF
)

// Parse decodes a CSI record from a rendition value.
func Parse(b []byte) (*Header, error) {
	if len(b) < fixedHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrBadHeader, len(b), fixedHeaderSize)
	}
	if !bytes.Equal(b[:4], headerMagic) {
		return nil, fmt.Errorf("%w: signature %q", ErrBadHeader, b[:4])
	}
	r := binary.NewReader(b, stdbinary.LittleEndian).At(4)

	h := &Header{}
	h.Version, _ = r.ReadUint32()
	flags, _ := r.ReadUint32()
	h.Flags = Flags(flags)
	h.Width, _ = r.ReadUint32()
	h.Height, _ = r.ReadUint32()
	h.ScaleFactor, _ = r.ReadUint32()
	pf, _ := r.ReadUint32()
	h.PixelFormat = PixelFormat(pf)
	h.ColorSpace, _ = r.ReadUint32()

	// Metadata block.
	h.ModTime, _ = r.ReadUint32()
	layout, _ := r.ReadUint16()
	h.Layout = Layout(layout)
	r.Skip(2) // zero
	h.Name, _ = r.ReadFixedString(128)

	// Bitmap list block.
	h.TLVLength, _ = r.ReadUint32()
	r.Skip(4) // unknown
	r.Skip(4) // zero
	h.PayloadLength, _ = r.ReadUint32()

	tlv, err := r.ReadBytes(int(h.TLVLength))
	if err != nil {
		return nil, fmt.Errorf("%w: TLV length %d exceeds record", ErrBadHeader, h.TLVLength)
	}
	h.Properties, err = parseProperties(tlv)
	if err != nil {
		return nil, err
	}

	payload, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, err
	}
	h.Payload, err = parsePayload(payload)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func parseProperties(b []byte) ([]Property, error) {
	var props []Property
	r := binary.NewReader(b, stdbinary.LittleEndian)
	for r.Remaining() >= 8 {
		typ, _ := r.ReadUint32()
		length, _ := r.ReadUint32()
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("%w: property %#x length %d exceeds list", ErrBadHeader, typ, length)
		}
		props = append(props, Property{Type: typ, Data: data})
	}
	return props, nil
}

// UTI returns the uniform type identifier property, if present.
func (h *Header) UTI() (string, bool) {
	for _, p := range h.Properties {
		if p.Type != PropertyUTI || len(p.Data) < 8 {
			continue
		}
		n := stdbinary.LittleEndian.Uint32(p.Data)
		rest := p.Data[8:]
		if int(n) > len(rest) {
			n = uint32(len(rest))
		}
		return binary.TrimPadded(rest[:n]), true
	}
	return "", false
}

// SliceSize returns the dimensions recorded in the slices property. Some
// renditions carry zero width/height in the fixed header and only record
// their size here.
func (h *Header) SliceSize() (width, height uint32, ok bool) {
	for _, p := range h.Properties {
		if p.Type != PropertySlices || len(p.Data) < 20 {
			continue
		}
		height = stdbinary.LittleEndian.Uint32(p.Data[12:])
		width = stdbinary.LittleEndian.Uint32(p.Data[16:])
		return width, height, true
	}
	return 0, 0, false
}

// EXIFOrientation returns the EXIF orientation property, if present.
func (h *Header) EXIFOrientation() (uint32, bool) {
	for _, p := range h.Properties {
		if p.Type == PropertyEXIFOrientation && len(p.Data) >= 4 {
			return stdbinary.LittleEndian.Uint32(p.Data), true
		}
	}
	return 0, false
}

// BestSize returns the rendition dimensions, falling back to the slices
// property when the fixed header reports zero.
func (h *Header) BestSize() (width, height uint32) {
	width, height = h.Width, h.Height
	if width == 0 || height == 0 {
		if sw, sh, ok := h.SliceSize(); ok {
			if width == 0 {
				width = sw
			}
			if height == 0 {
				height = sh
			}
		}
	}
	return width, height
}

// Scale returns the integer scale factor (1 for unscaled renditions).
func (h *Header) Scale() uint32 {
	if h.ScaleFactor == 0 {
		return 1
	}
	return h.ScaleFactor / 100
}

// SizeOnDisk is the storage footprint the reference tool reports: fixed
// header plus property list plus payload.
func (h *Header) SizeOnDisk() uint32 {
	return fixedHeaderSize + h.TLVLength + h.PayloadLength
}

// ColorModel returns the color model nibble of the color space word.
func (h *Header) ColorModel() ColorModel {
	return ColorModel(h.ColorSpace & 0xF)
}
