package schema

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// Record signatures as they appear on disk (little-endian tag words).
var (
	carHeaderMagic = []byte("RATC")
	metadataMagic  = []byte("META")
	keyFormatMagic = []byte("tmfk")
)

// ErrBadRecord is returned when a schema record does not carry its expected
// signature or is shorter than its fixed layout.
var ErrBadRecord = errors.New("malformed catalog record")

// Header is the catalog header record stored under the CARHEADER variable.
type Header struct {
	CoreUIVersion      uint32
	StorageVersion     uint32
	StorageTimestamp   uint32
	RenditionCount     uint32
	MainVersionString  string
	VersionString      string
	UUID               [16]byte
	AssociatedChecksum uint32
	SchemaVersion      uint32
	ColorSpaceID       uint32
	KeySemantics       uint32
}

const headerSize = 4 + 4*4 + 128 + 256 + 16 + 4*4

// ParseHeader decodes the CARHEADER record.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: CARHEADER is %d bytes, need %d", ErrBadRecord, len(b), headerSize)
	}
	if !bytes.Equal(b[:4], carHeaderMagic) {
		return nil, fmt.Errorf("%w: CARHEADER signature %q", ErrBadRecord, b[:4])
	}
	r := binary.NewReader(b, stdbinary.LittleEndian).At(4)

	h := &Header{}
	h.CoreUIVersion, _ = r.ReadUint32()
	h.StorageVersion, _ = r.ReadUint32()
	h.StorageTimestamp, _ = r.ReadUint32()
	h.RenditionCount, _ = r.ReadUint32()
	h.MainVersionString, _ = r.ReadFixedString(128)
	h.VersionString, _ = r.ReadFixedString(256)
	uuid, _ := r.ReadBytes(16)
	copy(h.UUID[:], uuid)
	h.AssociatedChecksum, _ = r.ReadUint32()
	h.SchemaVersion, _ = r.ReadUint32()
	h.ColorSpaceID, _ = r.ReadUint32()
	h.KeySemantics, _ = r.ReadUint32()
	return h, nil
}

// ExtendedMetadata is the EXTENDED_METADATA record: authoring provenance
// strings the reference tool reports in its header object.
type ExtendedMetadata struct {
	ThinningArguments         string
	DeploymentPlatformVersion string
	DeploymentPlatform        string
	AuthoringTool             string
}

const metadataSize = 4 + 4*256

// ParseExtendedMetadata decodes the EXTENDED_METADATA record.
func ParseExtendedMetadata(b []byte) (*ExtendedMetadata, error) {
	if len(b) < metadataSize {
		return nil, fmt.Errorf("%w: EXTENDED_METADATA is %d bytes, need %d", ErrBadRecord, len(b), metadataSize)
	}
	if !bytes.Equal(b[:4], metadataMagic) {
		return nil, fmt.Errorf("%w: EXTENDED_METADATA signature %q", ErrBadRecord, b[:4])
	}
	r := binary.NewReader(b, stdbinary.LittleEndian).At(4)

	m := &ExtendedMetadata{}
	m.ThinningArguments, _ = r.ReadFixedString(256)
	m.DeploymentPlatformVersion, _ = r.ReadFixedString(256)
	m.DeploymentPlatform, _ = r.ReadFixedString(256)
	m.AuthoringTool, _ = r.ReadFixedString(256)
	return m, nil
}
