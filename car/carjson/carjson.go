// Package carjson renders a parsed catalog in the listing format of the
// platform's assetutil tool: a JSON array holding one header object
// followed by one object per rendition.
package carjson

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-assetcatalog/car"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DumpToolVersion mirrors the tool version the reference listing reports.
const DumpToolVersion = 804.3

// Header is the leading object of a catalog listing.
type Header struct {
	Appearances        map[string]uint32 `json:"Appearances,omitempty"`
	StorageVersion     string            `json:"AssetStorageVersion"`
	AuthoringTool      string            `json:"Authoring Tool"`
	CoreUIVersion      uint32            `json:"CoreUIVersion"`
	DumpToolVersion    float64           `json:"DumpToolVersion"`
	KeyFormat          []string          `json:"Key Format"`
	MainVersion        string            `json:"MainVersion"`
	Platform           string            `json:"Platform"`
	PlatformVersion    string            `json:"PlatformVersion"`
	SchemaVersion      uint32            `json:"SchemaVersion"`
	RawStorageVersion  uint32            `json:"StorageVersion"`
	ThinningParameters string            `json:"ThinningParameters,omitempty"`
	Timestamp          uint32            `json:"Timestamp"`
}

// Entry is one rendition of a catalog listing. Optional fields follow the
// reference tool: absent rather than zero valued.
type Entry struct {
	Appearance      *string   `json:"Appearance,omitempty"`
	AssetType       *string   `json:"AssetType,omitempty"`
	BitsPerComp     *uint32   `json:"BitsPerComponent,omitempty"`
	ColorComponents []float64 `json:"Color components,omitempty"`
	ColorModel      *string   `json:"ColorModel,omitempty"`
	Colorspace      *string   `json:"Colorspace,omitempty"`
	Compression     *string   `json:"Compression,omitempty"`
	DataLength      *uint32   `json:"Data Length,omitempty"`
	Encoding        *string   `json:"Encoding,omitempty"`
	Idiom           *string   `json:"Idiom,omitempty"`
	Name            *string   `json:"Name,omitempty"`
	NameIdentifier  *uint16   `json:"NameIdentifier,omitempty"`
	Opaque          *bool     `json:"Opaque,omitempty"`
	PixelHeight     *uint32   `json:"PixelHeight,omitempty"`
	PixelWidth      *uint32   `json:"PixelWidth,omitempty"`
	RenditionName   *string   `json:"RenditionName,omitempty"`
	Scale           *uint32   `json:"Scale,omitempty"`
	SHA1Digest      *string   `json:"SHA1Digest,omitempty"`
	SizeOnDisk      *uint32   `json:"SizeOnDisk,omitempty"`
	Sizes           []string  `json:"Sizes,omitempty"`
	State           *string   `json:"State,omitempty"`
	TemplateMode    *string   `json:"Template Mode,omitempty"`
	UTI             *string   `json:"UTI,omitempty"`
	Value           *string   `json:"Value,omitempty"`
}

// HeaderOf builds the listing header for a catalog.
func HeaderOf(c *car.Catalog) Header {
	h := Header{
		Appearances:     c.Appearances,
		StorageVersion:  c.Version,
		CoreUIVersion:   c.CoreUIVersion,
		DumpToolVersion: DumpToolVersion,
		KeyFormat:       c.KeyFormat(),
		MainVersion:     c.MainVersion,
		SchemaVersion:   c.SchemaVersion,
		RawStorageVersion: c.StorageVersion,
		Timestamp:       c.Timestamp,
	}
	if c.Metadata != nil {
		h.AuthoringTool = c.Metadata.AuthoringTool
		h.Platform = c.Metadata.DeploymentPlatform
		h.PlatformVersion = c.Metadata.DeploymentPlatformVersion
		h.ThinningParameters = c.Metadata.ThinningArguments
	}
	return h
}

// EntryOf builds the listing entry for one rendition.
func EntryOf(c *car.Catalog, r *car.Rendition) Entry {
	e := Entry{
		Scale:      u32p(r.Scale),
		SHA1Digest: strp(strings.ToUpper(hex.EncodeToString(r.Digest[:]))),
		SizeOnDisk: u32p(r.SizeOnDisk),
	}

	if v, ok := r.AppearanceValue(); ok {
		if name, ok := c.AppearanceName(v); ok {
			e.Appearance = strp(name)
		}
	}
	if t := r.AssetType(); t != "" {
		e.AssetType = strp(t)
	}
	if r.FacetName != "" {
		e.Name = strp(r.FacetName)
	}
	if id, ok := r.NameIdentifier(); ok {
		e.NameIdentifier = &id
	}
	if idiom, ok := r.Idiom(); ok {
		e.Idiom = strp(idiom)
	}
	if state, ok := r.State(); ok {
		e.State = strp(state)
	}
	if value, ok := r.Value(); ok {
		e.Value = strp(value)
	}
	if components, ok := r.ColorComponents(); ok {
		e.ColorComponents = components
	}
	if space, ok := r.Colorspace(); ok {
		e.Colorspace = strp(space)
	}

	if r.IsImage() {
		e.BitsPerComp = u32p(8)
		e.ColorModel = strp(r.ColorModel())
		e.Encoding = strp(r.PixelFormat())
		opaque := r.Opaque()
		e.Opaque = &opaque
		e.PixelWidth = u32p(r.Width)
		e.PixelHeight = u32p(r.Height)
		e.RenditionName = strp(r.Name)
		if opaque || isPaletteImage(r) {
			e.TemplateMode = strp(r.TemplateMode())
		}
	}

	switch r.PayloadKind() {
	case "themed":
		if compression, ok := r.Compression(); ok {
			e.Compression = strp(compression)
		}
	case "raw":
		if n, ok := r.DataLength(); ok {
			e.Compression = strp("uncompressed")
			e.DataLength = &n
		}
	}

	if r.AssetType() == "Data" {
		uti, ok := r.UTI()
		if !ok {
			uti = "UTI-Unknown"
		}
		e.UTI = strp(uti)
	}

	if sizes := r.Sizes(); sizes != nil {
		e.Sizes = make([]string, len(sizes))
		for i, s := range sizes {
			e.Sizes[i] = fmt.Sprintf("%dx%d index:%d idiom:%s", s.Width, s.Height, s.Index, s.Idiom)
		}
	}
	return e
}

func isPaletteImage(r *car.Rendition) bool {
	compression, ok := r.Compression()
	return ok && compression == "palette-img"
}

// Dump renders the full listing: header object first, then one entry per
// rendition, ordered by asset type, name and rendition name.
func Dump(c *car.Catalog) ([]byte, error) {
	entries := make([]Entry, 0, len(c.Renditions))
	for i := range c.Renditions {
		entries = append(entries, EntryOf(c, &c.Renditions[i]))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if s, t := deref(a.AssetType), deref(b.AssetType); s != t {
			return s < t
		}
		if s, t := deref(a.Name), deref(b.Name); s != t {
			return s < t
		}
		return deref(a.RenditionName) < deref(b.RenditionName)
	})

	listing := make([]interface{}, 0, len(entries)+1)
	listing = append(listing, HeaderOf(c))
	for _, e := range entries {
		listing = append(listing, e)
	}
	out, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal catalog listing")
	}
	return out, nil
}

func u32p(v uint32) *uint32 { return &v }
func strp(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
