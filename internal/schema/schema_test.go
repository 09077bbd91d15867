package schema

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("RATC")
	binary.Write(&buf, binary.LittleEndian, uint32(804))  // core UI version
	binary.Write(&buf, binary.LittleEndian, uint32(17))   // storage version
	binary.Write(&buf, binary.LittleEndian, uint32(1234)) // timestamp
	binary.Write(&buf, binary.LittleEndian, uint32(2))    // rendition count
	main := make([]byte, 128)
	copy(main, "@(#)PROGRAM:CoreUI  PROJECT:CoreUI-804")
	buf.Write(main)
	version := make([]byte, 256)
	copy(version, "IBCocoaTouchImageCatalogTool-13.0")
	buf.Write(version)
	buf.Write(bytes.Repeat([]byte{0xAB}, 16))           // uuid
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // checksum
	binary.Write(&buf, binary.LittleEndian, uint32(2))  // schema version
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // color space id
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // key semantics
	return buf.Bytes()
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader(buildHeader(t))
	require.NoError(t, err)

	assert.Equal(t, uint32(804), h.CoreUIVersion)
	assert.Equal(t, uint32(17), h.StorageVersion)
	assert.Equal(t, uint32(1234), h.StorageTimestamp)
	assert.Equal(t, uint32(2), h.RenditionCount)
	assert.Equal(t, "@(#)PROGRAM:CoreUI  PROJECT:CoreUI-804", h.MainVersionString)
	assert.Equal(t, "IBCocoaTouchImageCatalogTool-13.0", h.VersionString)
	assert.Equal(t, uint32(2), h.SchemaVersion)
}

func TestParseHeaderErrors(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		_, err := ParseHeader([]byte("RATC"))
		assert.ErrorIs(t, err, ErrBadRecord)
	})
	t.Run("bad signature", func(t *testing.T) {
		b := buildHeader(t)
		copy(b, "XXXX")
		_, err := ParseHeader(b)
		assert.ErrorIs(t, err, ErrBadRecord)
	})
}

func TestParseExtendedMetadata(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("META")
	for _, s := range []string{"thin-for-devices", "13.0", "ios", "Xcode"} {
		field := make([]byte, 256)
		copy(field, s)
		buf.Write(field)
	}

	m, err := ParseExtendedMetadata(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "thin-for-devices", m.ThinningArguments)
	assert.Equal(t, "13.0", m.DeploymentPlatformVersion)
	assert.Equal(t, "ios", m.DeploymentPlatform)
	assert.Equal(t, "Xcode", m.AuthoringTool)
}

func buildKeyFormat(types ...AttributeType) []byte {
	var buf bytes.Buffer
	buf.WriteString("tmfk")
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, uint32(len(types)))
	for _, typ := range types {
		binary.Write(&buf, binary.LittleEndian, uint32(typ))
	}
	return buf.Bytes()
}

func TestKeyFormatDecode(t *testing.T) {
	kf, err := ParseKeyFormat(buildKeyFormat(AttributeIdiom, AttributeScale))
	require.NoError(t, err)
	require.Equal(t, 4, kf.KeyWidth())

	// A two-attribute key with idiom=1, scale=2.
	values, err := kf.Decode([]byte{0x01, 0x00, 0x02, 0x00})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, AttributeIdiom, values[0].Type)
	assert.Equal(t, uint16(1), values[0].Value)
	assert.Equal(t, AttributeScale, values[1].Type)
	assert.Equal(t, uint16(2), values[1].Value)
}

func TestKeyFormatRoundTrip(t *testing.T) {
	kf, err := ParseKeyFormat(buildKeyFormat(
		AttributeElement, AttributePart, AttributeIdentifier, AttributeIdiom, AttributeScale))
	require.NoError(t, err)

	key := []byte{0x55, 0x01, 0x00, 0x00, 0x2A, 0x00, 0x02, 0x00, 0xC8, 0x00}
	values, err := kf.Decode(key)
	require.NoError(t, err)
	back, err := kf.Encode(values)
	require.NoError(t, err)
	assert.Equal(t, key, back, "decode/encode must be lossless")
}

func TestKeyFormatWidthMismatch(t *testing.T) {
	kf, err := ParseKeyFormat(buildKeyFormat(AttributeIdiom, AttributeScale))
	require.NoError(t, err)

	_, err = kf.Decode([]byte{0x01, 0x00, 0x02})
	assert.ErrorIs(t, err, ErrKeyWidth)
	_, err = kf.Decode(nil)
	assert.ErrorIs(t, err, ErrKeyWidth)
}

func TestKeyFormatUnknownAttribute(t *testing.T) {
	// Attribute 99 is not in the documented set; it must decode numerically
	// rather than fail.
	kf, err := ParseKeyFormat(buildKeyFormat(AttributeType(99)))
	require.NoError(t, err)

	values, err := kf.Decode([]byte{0x07, 0x00})
	require.NoError(t, err)
	assert.False(t, values[0].Type.Known())
	assert.Equal(t, uint16(7), values[0].Value)
	assert.Equal(t, "Attribute(99)", values[0].Type.String())
}

func TestValueAttribute(t *testing.T) {
	// The Value attribute tag (6) shares its concept name with the decoded
	// key component struct; both must stay usable side by side.
	assert.Equal(t, "Value", AttributeTypeValue.String())
	assert.Equal(t, "kCRThemeValueName", AttributeTypeValue.ThemeKeyName())

	kf, err := ParseKeyFormat(buildKeyFormat(AttributeTypeValue))
	require.NoError(t, err)
	values, err := kf.Decode([]byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []AttributeValue{{Type: AttributeTypeValue, Value: 1}}, values)
}

func TestParseKeyToken(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // hotspot x
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // hotspot y
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(AttributeIdentifier))
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint16(AttributeIdiom))
	binary.Write(&buf, binary.LittleEndian, uint16(1))

	tok, err := ParseKeyToken(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, tok.Attributes, 2)

	id, ok := tok.Identifier()
	require.True(t, ok)
	assert.Equal(t, uint16(42), id)

	idiom, ok := Find(tok.Attributes, AttributeIdiom)
	require.True(t, ok)
	assert.Equal(t, uint16(1), idiom)

	_, ok = Find(tok.Attributes, AttributeScale)
	assert.False(t, ok)
}

func TestParseKeyTokenTruncated(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(5)) // declares 5, provides 0

	_, err := ParseKeyToken(buf.Bytes())
	assert.ErrorIs(t, err, ErrBadRecord)
}
