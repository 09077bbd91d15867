package car

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	sha256 "github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-assetcatalog/internal/bom/bomtest"
)

// Attribute type codes used by the test catalogs.
const (
	attrValue      = 6
	attrScale      = 12
	attrIdiom      = 15
	attrIdentifier = 17
)

func put16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func put32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }

func buildCatalogHeader() []byte {
	var buf bytes.Buffer
	buf.WriteString("RATC")
	put32(&buf, 804)        // core ui version
	put32(&buf, 15)         // storage version
	put32(&buf, 1539543253) // timestamp
	put32(&buf, 4)          // rendition count
	main := make([]byte, 128)
	copy(main, "@(#)PROGRAM:CoreUI  PROJECT:CoreUI-498.40.1\n")
	buf.Write(main)
	version := make([]byte, 256)
	copy(version, "IBCocoaTouchImageCatalogTool-10.0")
	buf.Write(version)
	uuid := make([]byte, 16)
	for i := range uuid {
		uuid[i] = byte(i)
	}
	buf.Write(uuid)
	put32(&buf, 0) // checksum
	put32(&buf, 2) // schema version
	put32(&buf, 1) // color space id
	put32(&buf, 1) // key semantics
	return buf.Bytes()
}

func buildMetadata() []byte {
	var buf bytes.Buffer
	buf.WriteString("META")
	field := func(s string) {
		b := make([]byte, 256)
		copy(b, s)
		buf.Write(b)
	}
	field("")
	field("12.0")
	field("ios")
	field("@(#)PROGRAM:CoreThemeDefinition  PROJECT:CoreThemeDefinition-346.29\n")
	return buf.Bytes()
}

func buildKeyFormat(types ...uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("tmfk")
	put32(&buf, 0)
	put32(&buf, uint32(len(types)))
	for _, t := range types {
		put32(&buf, t)
	}
	return buf.Bytes()
}

func buildKeyToken(attrs ...[2]uint16) []byte {
	var buf bytes.Buffer
	put16(&buf, 0) // hotspot x
	put16(&buf, 0) // hotspot y
	put16(&buf, uint16(len(attrs)))
	for _, a := range attrs {
		put16(&buf, a[0])
		put16(&buf, a[1])
	}
	return buf.Bytes()
}

func renditionKey(values ...uint16) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		put16(&buf, v)
	}
	return buf.Bytes()
}

type csiSpec struct {
	flags       uint32
	width       uint32
	height      uint32
	scaleFactor uint32
	pixelFormat uint32
	colorSpace  uint32
	layout      uint16
	name        string
	payload     []byte
}

func buildCSI(s csiSpec) []byte {
	var buf bytes.Buffer
	buf.WriteString("ISTC")
	put32(&buf, 1)
	put32(&buf, s.flags)
	put32(&buf, s.width)
	put32(&buf, s.height)
	put32(&buf, s.scaleFactor)
	put32(&buf, s.pixelFormat)
	put32(&buf, s.colorSpace)
	put32(&buf, 0) // mod time
	put16(&buf, s.layout)
	put16(&buf, 0)
	name := make([]byte, 128)
	copy(name, s.name)
	buf.Write(name)
	put32(&buf, 0) // tlv length
	put32(&buf, 0) // unknown
	put32(&buf, 0)
	put32(&buf, uint32(len(s.payload)))
	buf.Write(s.payload)
	return buf.Bytes()
}

func rawPayload(pixels []byte) []byte {
	var buf bytes.Buffer
	put32(&buf, 0x52415744) // raw data tag
	put32(&buf, 1)
	put32(&buf, uint32(len(pixels)))
	buf.Write(pixels)
	return buf.Bytes()
}

func colorPayload(components ...float64) []byte {
	var buf bytes.Buffer
	put32(&buf, 0x434F4C52) // color tag
	put32(&buf, 1)
	put32(&buf, 0) // color flags
	put32(&buf, uint32(len(components)))
	for _, c := range components {
		binary.Write(&buf, binary.LittleEndian, c)
	}
	return buf.Bytes()
}

// testCatalog builds a small but complete catalog: two facets, an image
// rendition at each scale, a color rendition, and an orphan.
func testCatalog(t *testing.T) ([]byte, map[string][]byte) {
	t.Helper()
	b := bomtest.NewBuilder()
	b.AddVar("CARHEADER", b.AddBlock(buildCatalogHeader()))
	b.AddVar("EXTENDED_METADATA", b.AddBlock(buildMetadata()))
	b.AddVar("KEYFORMAT", b.AddBlock(buildKeyFormat(attrIdiom, attrScale, attrIdentifier)))

	b.AddLeafTree("FACETKEYS", []bomtest.KV{
		{Key: []byte("accent"), Value: buildKeyToken([2]uint16{attrIdentifier, 2})},
		{Key: []byte("appicon"), Value: buildKeyToken([2]uint16{attrIdentifier, 1})},
	})

	records := map[string][]byte{
		"icon@1x": buildCSI(csiSpec{
			width: 2, height: 2, scaleFactor: 100,
			pixelFormat: 0x41524742, colorSpace: 1,
			layout: 0x00C, name: "icon@1x.png",
			payload: rawPayload(bytes.Repeat([]byte{0x10, 0x20, 0x30, 0xFF}, 4)),
		}),
		"accent": buildCSI(csiSpec{
			// Color records carry whatever sits in the color space word;
			// only image layouts derive a color model from it.
			layout: 0x3F1, name: "accent.color", colorSpace: 2,
			payload: colorPayload(1, 0, 0, 0.5),
		}),
		"orphan": buildCSI(csiSpec{
			width: 1, height: 1, scaleFactor: 100,
			pixelFormat: 0x47413820, colorSpace: 2,
			layout: 0x00C, name: "orphan.png",
			payload: rawPayload([]byte{0x7F}),
		}),
		"icon@2x": buildCSI(csiSpec{
			width: 4, height: 4, scaleFactor: 200,
			pixelFormat: 0x41524742, colorSpace: 1,
			layout: 0x00C, name: "icon@2x.png",
			payload: rawPayload(bytes.Repeat([]byte{0x10, 0x20, 0x30, 0xFF}, 16)),
		}),
	}
	b.AddLeafTree("RENDITIONS", []bomtest.KV{
		{Key: renditionKey(0, 1, 1), Value: records["icon@1x"]},
		{Key: renditionKey(0, 1, 2), Value: records["accent"]},
		{Key: renditionKey(0, 1, 9), Value: records["orphan"]},
		{Key: renditionKey(0, 2, 1), Value: records["icon@2x"]},
	})

	var appearanceID bytes.Buffer
	put32(&appearanceID, 1)
	b.AddLeafTree("APPEARANCEKEYS", []bomtest.KV{
		{Key: []byte("NSAppearanceNameDarkAqua"), Value: appearanceID.Bytes()},
	})

	return b.Build(), records
}

func TestParseCatalog(t *testing.T) {
	buf, records := testCatalog(t)

	c, err := ParseCatalog(buf)
	require.NoError(t, err)
	assert.Empty(t, c.Warnings)

	assert.Equal(t, uint32(804), c.CoreUIVersion)
	assert.Equal(t, uint32(15), c.StorageVersion)
	assert.Equal(t, uint32(1539543253), c.Timestamp)
	assert.Equal(t, uint32(2), c.SchemaVersion)
	assert.Equal(t, "@(#)PROGRAM:CoreUI  PROJECT:CoreUI-498.40.1\n", c.MainVersion)

	require.NotNil(t, c.Metadata)
	assert.Equal(t, "ios", c.Metadata.DeploymentPlatform)
	assert.Equal(t, "12.0", c.Metadata.DeploymentPlatformVersion)

	assert.Equal(t, []string{
		"kCRThemeIdiomName",
		"kCRThemeScaleName",
		"kCRThemeIdentifierName",
	}, c.KeyFormat())

	require.Len(t, c.Facets, 2)
	assert.Equal(t, "accent", c.Facets[0].Name)
	assert.Equal(t, "appicon", c.Facets[1].Name)
	id, ok := c.Facets[1].Identifier()
	require.True(t, ok)
	assert.Equal(t, uint16(1), id)

	require.Len(t, c.Renditions, 4)
	assert.Equal(t, "appicon", c.Renditions[0].FacetName)
	assert.Equal(t, "accent", c.Renditions[1].FacetName)
	assert.Equal(t, "", c.Renditions[2].FacetName, "unresolved identifier keeps the rendition as an orphan")
	assert.Equal(t, "appicon", c.Renditions[3].FacetName)

	icon := c.Renditions[0]
	assert.Equal(t, "icon@1x.png", icon.Name)
	assert.Equal(t, uint32(2), icon.Width)
	assert.Equal(t, uint32(1), icon.Scale)
	assert.Equal(t, "Image", icon.AssetType())
	assert.Equal(t, uint32(184+len(rawPayload(bytes.Repeat([]byte{0x10, 0x20, 0x30, 0xFF}, 4)))), icon.SizeOnDisk)
	assert.Equal(t, sha256.Sum256(records["icon@1x"]), icon.Digest)
	idiom, ok := icon.Idiom()
	require.True(t, ok)
	assert.Equal(t, "universal", idiom)
	compression, ok := icon.Compression()
	require.True(t, ok)
	assert.Equal(t, "uncompressed", compression)

	assert.Equal(t, uint32(2), c.Renditions[3].Scale)

	assert.Equal(t, map[string]uint32{"NSAppearanceNameDarkAqua": 1}, c.Appearances)
}

func TestParseCatalogColorRendition(t *testing.T) {
	buf, _ := testCatalog(t)
	c, err := ParseCatalog(buf)
	require.NoError(t, err)

	accent := c.Renditions[1]
	assert.Equal(t, "Color", accent.AssetType())
	assert.True(t, accent.IsColor())
	components, ok := accent.ColorComponents()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0, 0.5}, components)
	space, ok := accent.Colorspace()
	require.True(t, ok)
	assert.Equal(t, "srgb", space)
	_, ok = accent.Compression()
	assert.False(t, ok)
}

func TestFacetRenditions(t *testing.T) {
	buf, _ := testCatalog(t)
	c, err := ParseCatalog(buf)
	require.NoError(t, err)

	icons := c.FacetRenditions("appicon")
	require.Len(t, icons, 2)
	assert.Equal(t, uint32(1), icons[0].Scale)
	assert.Equal(t, uint32(2), icons[1].Scale)

	_, ok := c.Facet("missing")
	assert.False(t, ok)
}

func TestParseCatalogMissingHeader(t *testing.T) {
	b := bomtest.NewBuilder()
	b.AddVar("KEYFORMAT", b.AddBlock(buildKeyFormat(attrIdentifier)))

	_, err := ParseCatalog(b.Build())
	require.ErrorIs(t, err, ErrMissingHeader)
}

func TestParseCatalogMissingKeyFormat(t *testing.T) {
	b := bomtest.NewBuilder()
	b.AddVar("CARHEADER", b.AddBlock(buildCatalogHeader()))

	_, err := ParseCatalog(b.Build())
	require.ErrorIs(t, err, ErrMissingHeader)
}

func TestParseCatalogDuplicateHeader(t *testing.T) {
	b := bomtest.NewBuilder()
	b.AddVar("CARHEADER", b.AddBlock(buildCatalogHeader()))
	b.AddVar("CARHEADER", b.AddBlock(buildCatalogHeader()))
	b.AddVar("KEYFORMAT", b.AddBlock(buildKeyFormat(attrIdentifier)))

	_, err := ParseCatalog(b.Build())
	require.ErrorIs(t, err, ErrDuplicateHeader)
}

func TestParseCatalogBadContainer(t *testing.T) {
	_, err := ParseCatalog([]byte("not a catalog at all, certainly not 32 b"))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestParseCatalogSkipsMalformedEntries(t *testing.T) {
	b := bomtest.NewBuilder()
	b.AddVar("CARHEADER", b.AddBlock(buildCatalogHeader()))
	b.AddVar("KEYFORMAT", b.AddBlock(buildKeyFormat(attrIdiom, attrScale, attrIdentifier)))

	good := buildCSI(csiSpec{
		width: 1, height: 1, scaleFactor: 100,
		pixelFormat: 0x47413820, colorSpace: 2,
		layout: 0x00C, name: "ok.png",
		payload: rawPayload([]byte{0x00}),
	})
	b.AddLeafTree("RENDITIONS", []bomtest.KV{
		// Key too short for the three-attribute format.
		{Key: renditionKey(0, 1), Value: good},
		{Key: renditionKey(0, 1, 1), Value: good},
		// Value is not a CSI record.
		{Key: renditionKey(0, 1, 2), Value: []byte("garbage")},
	})

	c, err := ParseCatalog(b.Build())
	require.NoError(t, err)
	require.Len(t, c.Renditions, 1)
	assert.Equal(t, "ok.png", c.Renditions[0].Name)

	require.Len(t, c.Warnings, 2)
	assert.Equal(t, "rendition", c.Warnings[0].Entity)
	assert.ErrorIs(t, c.Warnings[0].Err, ErrKeyWidth)
	assert.ErrorIs(t, c.Warnings[1].Err, ErrBadRendition)
}

func TestParseCatalogSkipsMalformedAppearance(t *testing.T) {
	b := bomtest.NewBuilder()
	b.AddVar("CARHEADER", b.AddBlock(buildCatalogHeader()))
	b.AddVar("KEYFORMAT", b.AddBlock(buildKeyFormat(attrIdentifier)))

	var id bytes.Buffer
	put32(&id, 1)
	b.AddLeafTree("APPEARANCEKEYS", []bomtest.KV{
		// Identifier too short to hold a 32-bit value.
		{Key: []byte("NSAppearanceNameAqua"), Value: []byte{0x01, 0x00}},
		{Key: []byte("NSAppearanceNameDarkAqua"), Value: id.Bytes()},
	})

	c, err := ParseCatalog(b.Build())
	require.NoError(t, err)
	assert.Equal(t, map[string]uint32{"NSAppearanceNameDarkAqua": 1}, c.Appearances)

	require.Len(t, c.Warnings, 1)
	assert.Equal(t, "appearance", c.Warnings[0].Entity)
	assert.Equal(t, "NSAppearanceNameAqua", c.Warnings[0].Name)
	assert.ErrorIs(t, c.Warnings[0].Err, ErrBadRecord)
}

func TestDecodeRendition(t *testing.T) {
	buf, _ := testCatalog(t)
	c, err := ParseCatalog(buf)
	require.NoError(t, err)

	img, err := c.Renditions[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, 4, img.Channels)
	// Storage order is BGRA; output is RGBA.
	assert.Equal(t, bytes.Repeat([]byte{0x30, 0x20, 0x10, 0xFF}, 4), img.Pix)

	gray, err := c.Renditions[2].Decode()
	require.NoError(t, err)
	assert.Equal(t, 1, gray.Channels)
	assert.Equal(t, []byte{0x7F}, gray.Pix)

	_, err = c.Renditions[1].Decode()
	require.ErrorIs(t, err, ErrNotRaster)
}

func TestDecodeRenditionIdempotent(t *testing.T) {
	buf, _ := testCatalog(t)
	c, err := ParseCatalog(buf)
	require.NoError(t, err)

	first, err := c.Renditions[0].Decode()
	require.NoError(t, err)
	second, err := c.Renditions[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix)

	first.Pix[0] = 0
	assert.NotEqual(t, first.Pix[0], second.Pix[0], "each decode owns its buffer")
}

func TestOpen(t *testing.T) {
	buf, _ := testCatalog(t)
	path := filepath.Join(t.TempDir(), "Assets.car")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	c, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, c.Renditions, 4)

	_, err = Open(filepath.Join(t.TempDir(), "missing.car"))
	require.Error(t, err)
}
