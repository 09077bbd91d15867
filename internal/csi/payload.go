package csi

import (
	stdbinary "encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// Payload envelope tags, four-character codes stored little-endian.
const (
	tagRawData   = 0x52415744 // "RAWD"
	tagThemed    = 0x43454C4D // "CELM"
	tagColor     = 0x434F4C52 // "COLR"
	tagMultisize = 0x4D534953 // "MSIS"
	tagBlockList = 0x4342434B // "CBCK"
)

// PayloadKind discriminates the payload envelope variants.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadRaw
	PayloadThemed
	PayloadColor
	PayloadMultisize
	PayloadUnknown
)

// SizeEntry is one entry of a multisize image set.
type SizeEntry struct {
	Width  uint32
	Height uint32
	Index  uint16
	Idiom  uint16
}

// Payload is the decoded payload envelope of a rendition. Data borrows from
// the catalog buffer: decoding to pixels copies, listing does not.
type Payload struct {
	Kind    PayloadKind
	Version uint32

	// Themed payloads.
	Compression Compression

	// Raw and themed payloads.
	Data []byte

	// Color payloads.
	ColorFlags uint32
	Components []float64

	// Multisize payloads.
	Sizes []SizeEntry

	// Unknown envelopes keep their tag for diagnostics.
	Tag uint32
}

func parsePayload(b []byte) (Payload, error) {
	if len(b) == 0 {
		return Payload{Kind: PayloadNone}, nil
	}
	if len(b) < 8 {
		return Payload{}, fmt.Errorf("%w: payload envelope is %d bytes", ErrBadHeader, len(b))
	}
	r := binary.NewReader(b, stdbinary.LittleEndian)
	tag, _ := r.ReadUint32()
	version, _ := r.ReadUint32()

	switch tag {
	case tagRawData:
		length, err := r.ReadUint32()
		if err != nil {
			return Payload{}, fmt.Errorf("%w: truncated raw payload", ErrBadHeader)
		}
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return Payload{}, fmt.Errorf("%w: raw payload declares %d bytes, %d remain", ErrBadHeader, length, r.Remaining())
		}
		return Payload{Kind: PayloadRaw, Version: version, Data: data}, nil

	case tagThemed:
		return parseThemed(r, version)

	case tagColor:
		flags, _ := r.ReadUint32()
		count, err := r.ReadUint32()
		if err != nil {
			return Payload{}, fmt.Errorf("%w: truncated color payload", ErrBadHeader)
		}
		if int(count)*8 > r.Remaining() {
			return Payload{}, fmt.Errorf("%w: color payload declares %d components", ErrBadHeader, count)
		}
		components := make([]float64, count)
		for i := range components {
			components[i], _ = r.ReadFloat64()
		}
		return Payload{Kind: PayloadColor, Version: version, ColorFlags: flags, Components: components}, nil

	case tagMultisize:
		count, err := r.ReadUint32()
		if err != nil {
			return Payload{}, fmt.Errorf("%w: truncated multisize payload", ErrBadHeader)
		}
		if int(count)*12 > r.Remaining() {
			return Payload{}, fmt.Errorf("%w: multisize payload declares %d entries", ErrBadHeader, count)
		}
		sizes := make([]SizeEntry, count)
		for i := range sizes {
			sizes[i].Width, _ = r.ReadUint32()
			sizes[i].Height, _ = r.ReadUint32()
			sizes[i].Index, _ = r.ReadUint16()
			sizes[i].Idiom, _ = r.ReadUint16()
		}
		return Payload{Kind: PayloadMultisize, Version: version, Sizes: sizes}, nil

	default:
		// Unknown envelopes are preserved opaquely; the attribute universe
		// grows between catalog versions.
		data, _ := r.ReadBytes(r.Remaining())
		return Payload{Kind: PayloadUnknown, Version: version, Tag: tag, Data: data}, nil
	}
}

// Themed payloads come in two shapes: compression tag followed directly by
// a length-prefixed stream, or with an interposed CBCK block list header.
func parseThemed(r *binary.Reader, version uint32) (Payload, error) {
	comp, err := r.ReadUint32()
	if err != nil {
		return Payload{}, fmt.Errorf("%w: truncated themed payload", ErrBadHeader)
	}
	p := Payload{Kind: PayloadThemed, Version: version, Compression: Compression(comp)}

	next, err := r.ReadUint32()
	if err != nil {
		return Payload{}, fmt.Errorf("%w: truncated themed payload", ErrBadHeader)
	}

	peek := r.At(r.Pos())
	if mark, err := peek.ReadUint32(); err == nil && mark == tagBlockList {
		r.Skip(4)  // CBCK tag
		r.Skip(12) // block list fields
		length, err := r.ReadUint32()
		if err != nil {
			return Payload{}, fmt.Errorf("%w: truncated block list payload", ErrBadHeader)
		}
		p.Data, err = r.ReadBytes(int(length))
		if err != nil {
			return Payload{}, fmt.Errorf("%w: block list payload declares %d bytes, %d remain", ErrBadHeader, length, r.Remaining())
		}
		return p, nil
	}

	p.Data, err = r.ReadBytes(int(next))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: themed payload declares %d bytes, %d remain", ErrBadHeader, next, r.Remaining())
	}
	return p, nil
}
