package schema

import (
	stdbinary "encoding/binary"
	"fmt"

	sha256 "github.com/minio/sha256-simd"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// KeyToken is a facet's key descriptor from the FACETKEYS tree: a sparse set
// of attribute/value pairs identifying the logical asset, most importantly
// its Identifier attribute, which links renditions back to the facet name.
type KeyToken struct {
	CursorHotspotX uint16
	CursorHotspotY uint16
	Attributes     []AttributeValue
}

// ParseKeyToken decodes a facet key token record.
func ParseKeyToken(b []byte) (*KeyToken, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("%w: key token is %d bytes", ErrBadRecord, len(b))
	}
	r := binary.NewReader(b, stdbinary.LittleEndian)

	t := &KeyToken{}
	t.CursorHotspotX, _ = r.ReadUint16()
	t.CursorHotspotY, _ = r.ReadUint16()
	count, _ := r.ReadUint16()
	if int(count)*4 > r.Remaining() {
		return nil, fmt.Errorf("%w: key token declares %d attributes in %d bytes", ErrBadRecord, count, len(b))
	}
	t.Attributes = make([]AttributeValue, count)
	for i := range t.Attributes {
		name, _ := r.ReadUint16()
		value, _ := r.ReadUint16()
		t.Attributes[i] = AttributeValue{Type: AttributeType(name), Value: value}
	}
	return t, nil
}

// Identifier returns the facet's name identifier attribute, the value that
// rendition keys carry in their Identifier slot.
func (t *KeyToken) Identifier() (uint16, bool) {
	return Find(t.Attributes, AttributeIdentifier)
}

// Digest computes the SHA-256 digest of a rendition value, reported by the
// reference tool for every asset.
func Digest(b []byte) [32]byte {
	return sha256.Sum256(b)
}
