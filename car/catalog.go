// Package car reads compiled asset catalogs (Assets.car files): the BOM
// container, the catalog schema records inside it, and the per-rendition
// structured image records. Parsing is strict about container structure and
// lenient about individual assets: malformed facets and renditions are
// skipped and reported as warnings alongside the parsed catalog.
package car

import (
	"encoding/hex"

	"github.com/robert-malhotra/go-assetcatalog/internal/csi"
	"github.com/robert-malhotra/go-assetcatalog/internal/schema"
)

// Catalog is a fully parsed asset catalog.
type Catalog struct {
	// Fields from the catalog header record.
	CoreUIVersion  uint32
	StorageVersion uint32
	Timestamp      uint32
	RenditionCount uint32
	MainVersion    string
	Version        string
	UUID           [16]byte
	SchemaVersion  uint32
	ColorSpaceID   uint32
	KeySemantics   uint32

	// Metadata is the optional authoring provenance record.
	Metadata *Metadata

	// Appearances maps appearance names to their key attribute values.
	Appearances map[string]uint32

	// BitmapKeys are retained opaquely for diagnostic dumps.
	BitmapKeys []BitmapKey

	Facets     []Facet
	Renditions []Rendition

	// Warnings lists the per-entity problems encountered during parsing.
	Warnings []Warning

	keyFormat *schema.KeyFormat
}

// Metadata holds the authoring provenance strings of a catalog.
type Metadata struct {
	ThinningArguments         string
	DeploymentPlatformVersion string
	DeploymentPlatform        string
	AuthoringTool             string
}

// Attribute is one decoded component of a facet or rendition key.
type Attribute struct {
	Type  uint32
	Name  string
	Value uint16
}

// Facet is a logical asset: a name bound to a sparse set of key attributes.
// Renditions reference their facet through the Identifier attribute.
type Facet struct {
	Name           string
	CursorHotspotX uint16
	CursorHotspotY uint16
	Attributes     []Attribute
}

// Identifier returns the facet's name identifier attribute value.
func (f *Facet) Identifier() (uint16, bool) {
	for _, a := range f.Attributes {
		if schema.AttributeType(a.Type) == schema.AttributeIdentifier {
			return a.Value, true
		}
	}
	return 0, false
}

// BitmapKey is an entry of the optional BITMAPKEYS tree, kept as raw bytes.
type BitmapKey struct {
	Key   []byte
	Value []byte
}

// SizeVariant is one entry of a multisize image set.
type SizeVariant struct {
	Width  uint32
	Height uint32
	Index  uint16
	Idiom  string
}

// Rendition is one concrete asset variant: a decoded key plus the structured
// image record stored under it.
type Rendition struct {
	// Key is the raw rendition key as stored in the tree.
	Key []byte
	// Attributes is the key decoded against the catalog's key format.
	Attributes []Attribute

	// FacetName is resolved through the Identifier attribute. Orphan
	// renditions, whose identifier matches no facet, keep an empty name.
	FacetName string

	// Name is the file name embedded in the image record.
	Name string

	Width      uint32
	Height     uint32
	Scale      uint32
	SizeOnDisk uint32

	// Digest is the SHA-256 of the stored record bytes.
	Digest [32]byte

	record *csi.Header
}

// KeyHex renders the raw rendition key as hex, the form used to identify
// renditions in warnings and dumps.
func (r *Rendition) KeyHex() string { return hex.EncodeToString(r.Key) }

func (r *Rendition) attribute(t schema.AttributeType) (uint16, bool) {
	for _, a := range r.Attributes {
		if schema.AttributeType(a.Type) == t {
			return a.Value, true
		}
	}
	return 0, false
}

// NameIdentifier returns the key's Identifier attribute value.
func (r *Rendition) NameIdentifier() (uint16, bool) {
	return r.attribute(schema.AttributeIdentifier)
}

// Idiom returns the device class name from the key's Idiom attribute.
func (r *Rendition) Idiom() (string, bool) {
	v, ok := r.attribute(schema.AttributeIdiom)
	if !ok {
		return "", false
	}
	return schema.Idiom(v).String(), true
}

// State returns the key's State attribute as the reference tool prints it.
func (r *Rendition) State() (string, bool) {
	v, ok := r.attribute(schema.AttributeState)
	if !ok || v != 0 {
		return "", false
	}
	return "Normal", true
}

// Value returns the key's Value attribute as the reference tool prints it.
func (r *Rendition) Value() (string, bool) {
	v, ok := r.attribute(schema.AttributeTypeValue)
	if !ok || v > 1 {
		return "", false
	}
	if v == 1 {
		return "On", true
	}
	return "Off", true
}

// AppearanceValue returns the key's Appearance attribute value.
func (r *Rendition) AppearanceValue() (uint16, bool) {
	return r.attribute(schema.AttributeAppearance)
}

// AssetType names the asset class of the rendition's layout, empty for
// layouts the reference tool does not classify.
func (r *Rendition) AssetType() string {
	switch r.record.Layout {
	case csi.LayoutColor:
		return "Color"
	case csi.LayoutData:
		return "Data"
	case csi.LayoutImage:
		return "Image"
	case csi.LayoutMultisizeImage:
		return "MultiSized Image"
	default:
		return ""
	}
}

// IsImage reports whether the rendition holds a raster image.
func (r *Rendition) IsImage() bool { return r.record.Layout == csi.LayoutImage }

// IsColor reports whether the rendition holds a color definition.
func (r *Rendition) IsColor() bool { return r.record.Layout == csi.LayoutColor }

// IsVector reports the vector-representation flag.
func (r *Rendition) IsVector() bool { return r.record.Flags.IsVectorBased() }

// Opaque reports whether the bitmap carries no meaningful alpha.
func (r *Rendition) Opaque() bool { return r.record.Flags.IsOpaque() }

// TemplateMode returns the "render as" setting name.
func (r *Rendition) TemplateMode() string { return r.record.Flags.TemplateMode().String() }

// Layout returns the raw layout name of the record.
func (r *Rendition) Layout() string { return r.record.Layout.String() }

// PixelFormat returns the pixel format tag name.
func (r *Rendition) PixelFormat() string { return r.record.PixelFormat.String() }

// Compression returns the payload compression scheme name. Raw data
// payloads count as uncompressed; non-bitmap payloads report no scheme.
func (r *Rendition) Compression() (string, bool) {
	switch r.record.Payload.Kind {
	case csi.PayloadThemed:
		return r.record.Payload.Compression.String(), true
	case csi.PayloadRaw:
		return csi.CompressionUncompressed.String(), true
	default:
		return "", false
	}
}

// PayloadKind names the payload envelope variant of the record.
func (r *Rendition) PayloadKind() string {
	switch r.record.Payload.Kind {
	case csi.PayloadRaw:
		return "raw"
	case csi.PayloadThemed:
		return "themed"
	case csi.PayloadColor:
		return "color"
	case csi.PayloadMultisize:
		return "multisize"
	case csi.PayloadNone:
		return "none"
	default:
		return "unknown"
	}
}

// ColorModel returns the color model name from the record's color space.
func (r *Rendition) ColorModel() string { return r.record.ColorModel().String() }

// Colorspace names the color space the reference tool reports for bitmap
// and color renditions.
func (r *Rendition) Colorspace() (string, bool) {
	switch r.record.Payload.Kind {
	case csi.PayloadThemed, csi.PayloadColor:
		// The color model nibble is meaningful for image records only;
		// color records always report srgb.
		if r.record.Layout == csi.LayoutImage && r.record.ColorModel() == csi.ColorModelMono {
			return "gray gamma 22", true
		}
		return "srgb", true
	default:
		return "", false
	}
}

// ColorComponents returns the components of a color rendition.
func (r *Rendition) ColorComponents() ([]float64, bool) {
	if r.record.Payload.Kind != csi.PayloadColor {
		return nil, false
	}
	return r.record.Payload.Components, true
}

// Sizes returns the entries of a multisize image set.
func (r *Rendition) Sizes() []SizeVariant {
	if r.record.Payload.Kind != csi.PayloadMultisize {
		return nil
	}
	sizes := make([]SizeVariant, len(r.record.Payload.Sizes))
	for i, e := range r.record.Payload.Sizes {
		sizes[i] = SizeVariant{
			Width:  e.Width,
			Height: e.Height,
			Index:  e.Index,
			Idiom:  schema.Idiom(e.Idiom).String(),
		}
	}
	return sizes
}

// UTI returns the uniform type identifier property of a data rendition.
func (r *Rendition) UTI() (string, bool) { return r.record.UTI() }

// DataLength returns the payload length of a data rendition.
func (r *Rendition) DataLength() (uint32, bool) {
	if r.record.Layout != csi.LayoutData || r.record.Payload.Kind != csi.PayloadRaw {
		return 0, false
	}
	return uint32(len(r.record.Payload.Data)), true
}

// Data returns the raw payload bytes of a data rendition. The slice borrows
// from the catalog buffer.
func (r *Rendition) Data() ([]byte, bool) {
	if r.record.Payload.Kind != csi.PayloadRaw {
		return nil, false
	}
	return r.record.Payload.Data, true
}

// KeyFormat returns the catalog's key format as CoreUI constant names, the
// listing the reference tool prints.
func (c *Catalog) KeyFormat() []string {
	names := make([]string, len(c.keyFormat.Types))
	for i, t := range c.keyFormat.Types {
		names[i] = t.ThemeKeyName()
	}
	return names
}

// Facet returns the named facet.
func (c *Catalog) Facet(name string) (*Facet, bool) {
	for i := range c.Facets {
		if c.Facets[i].Name == name {
			return &c.Facets[i], true
		}
	}
	return nil, false
}

// FacetRenditions returns all renditions belonging to the named facet.
func (c *Catalog) FacetRenditions(name string) []*Rendition {
	var out []*Rendition
	for i := range c.Renditions {
		if c.Renditions[i].FacetName == name {
			out = append(out, &c.Renditions[i])
		}
	}
	return out
}

// AppearanceName resolves an Appearance attribute value to its name.
func (c *Catalog) AppearanceName(value uint16) (string, bool) {
	for name, id := range c.Appearances {
		if id == uint32(value) && value > 0 {
			return name, true
		}
	}
	return "", false
}
