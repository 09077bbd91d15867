package schema

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// ErrKeyWidth is returned when a rendition key's length does not match the
// total width the key format declares. The condition is scoped to the single
// key; callers skip the entry rather than abort the catalog.
var ErrKeyWidth = errors.New("rendition key width mismatch")

// Each attribute occupies one 16-bit slot in a rendition key.
const attributeWidth = 2

// KeyFormat is the KEYFORMAT descriptor: the ordered attribute types that
// give meaning to the fixed-width rendition keys of the catalog.
type KeyFormat struct {
	Version uint32
	Types   []AttributeType
}

// ParseKeyFormat decodes the KEYFORMAT record.
func ParseKeyFormat(b []byte) (*KeyFormat, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("%w: KEYFORMAT is %d bytes", ErrBadRecord, len(b))
	}
	if !bytes.Equal(b[:4], keyFormatMagic) {
		return nil, fmt.Errorf("%w: KEYFORMAT signature %q", ErrBadRecord, b[:4])
	}
	r := binary.NewReader(b, stdbinary.LittleEndian).At(4)

	kf := &KeyFormat{}
	kf.Version, _ = r.ReadUint32()
	count, _ := r.ReadUint32()
	if int(count)*4 > r.Remaining() {
		return nil, fmt.Errorf("%w: KEYFORMAT declares %d tokens in %d bytes", ErrBadRecord, count, len(b))
	}
	kf.Types = make([]AttributeType, count)
	for i := range kf.Types {
		v, _ := r.ReadUint32()
		kf.Types[i] = AttributeType(v)
	}
	return kf, nil
}

// KeyWidth returns the byte width every rendition key must have under this
// format.
func (kf *KeyFormat) KeyWidth() int {
	return len(kf.Types) * attributeWidth
}

// Decode interprets a fixed-width rendition key as attribute values in the
// format's declared order.
func (kf *KeyFormat) Decode(key []byte) ([]AttributeValue, error) {
	if len(key) != kf.KeyWidth() {
		return nil, fmt.Errorf("%w: key is %d bytes, format needs %d", ErrKeyWidth, len(key), kf.KeyWidth())
	}
	values := make([]AttributeValue, len(kf.Types))
	for i, typ := range kf.Types {
		values[i] = AttributeValue{
			Type:  typ,
			Value: stdbinary.LittleEndian.Uint16(key[i*attributeWidth:]),
		}
	}
	return values, nil
}

// Encode is the inverse of Decode: it serializes attribute values back to
// key bytes. Decode followed by Encode reproduces the original key exactly.
func (kf *KeyFormat) Encode(values []AttributeValue) ([]byte, error) {
	if len(values) != len(kf.Types) {
		return nil, fmt.Errorf("%w: %d values for %d-token format", ErrKeyWidth, len(values), len(kf.Types))
	}
	key := make([]byte, kf.KeyWidth())
	for i, v := range values {
		if v.Type != kf.Types[i] {
			return nil, fmt.Errorf("%w: value %d is %v, format expects %v", ErrKeyWidth, i, v.Type, kf.Types[i])
		}
		stdbinary.LittleEndian.PutUint16(key[i*attributeWidth:], v.Value)
	}
	return key, nil
}

// Find returns the value of the given attribute within a decoded key.
func Find(values []AttributeValue, typ AttributeType) (uint16, bool) {
	for _, v := range values {
		if v.Type == typ {
			return v.Value, true
		}
	}
	return 0, false
}
