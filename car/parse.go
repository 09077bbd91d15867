package car

import (
	stdbinary "encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-assetcatalog/internal/bom"
	"github.com/robert-malhotra/go-assetcatalog/internal/csi"
	"github.com/robert-malhotra/go-assetcatalog/internal/schema"
)

// Named variables of the catalog schema.
const (
	varHeader         = "CARHEADER"
	varMetadata       = "EXTENDED_METADATA"
	varKeyFormat      = "KEYFORMAT"
	varFacetKeys      = "FACETKEYS"
	varRenditions     = "RENDITIONS"
	varAppearanceKeys = "APPEARANCEKEYS"
	varBitmapKeys     = "BITMAPKEYS"
)

// ParseCatalog reads an asset catalog from an in-memory buffer. Container
// damage and missing or duplicated schema records are fatal; malformed
// individual facets and renditions are skipped and recorded as warnings on
// the returned catalog.
func ParseCatalog(buf []byte) (*Catalog, error) {
	store, err := bom.Parse(buf)
	if err != nil {
		return nil, err
	}

	headerBytes, err := requiredRecord(store, varHeader)
	if err != nil {
		return nil, err
	}
	header, err := schema.ParseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	keyFormatBytes, err := requiredRecord(store, varKeyFormat)
	if err != nil {
		return nil, err
	}
	keyFormat, err := schema.ParseKeyFormat(keyFormatBytes)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		CoreUIVersion:  header.CoreUIVersion,
		StorageVersion: header.StorageVersion,
		Timestamp:      header.StorageTimestamp,
		RenditionCount: header.RenditionCount,
		MainVersion:    header.MainVersionString,
		Version:        header.VersionString,
		UUID:           header.UUID,
		SchemaVersion:  header.SchemaVersion,
		ColorSpaceID:   header.ColorSpaceID,
		KeySemantics:   header.KeySemantics,
		keyFormat:      keyFormat,
	}

	if err := c.parseMetadata(store); err != nil {
		return nil, err
	}
	if err := c.parseAppearances(store); err != nil {
		return nil, err
	}
	if err := c.parseBitmapKeys(store); err != nil {
		return nil, err
	}

	identifiers, err := c.parseFacets(store)
	if err != nil {
		return nil, err
	}
	if err := c.parseRenditions(store, identifiers); err != nil {
		return nil, err
	}
	return c, nil
}

// requiredRecord fetches a schema record that must occur exactly once.
func requiredRecord(s *bom.Store, name string) ([]byte, error) {
	switch n := s.VarCount(name); {
	case n == 0:
		return nil, errors.Wrap(ErrMissingHeader, name)
	case n > 1:
		return nil, errors.Wrapf(ErrDuplicateHeader, "%s occurs %d times", name, n)
	}
	return s.NamedBlock(name)
}

func (c *Catalog) parseMetadata(store *bom.Store) error {
	if store.VarCount(varMetadata) == 0 {
		return nil
	}
	b, err := store.NamedBlock(varMetadata)
	if err != nil {
		return err
	}
	m, err := schema.ParseExtendedMetadata(b)
	if err != nil {
		return err
	}
	c.Metadata = &Metadata{
		ThinningArguments:         m.ThinningArguments,
		DeploymentPlatformVersion: m.DeploymentPlatformVersion,
		DeploymentPlatform:        m.DeploymentPlatform,
		AuthoringTool:             m.AuthoringTool,
	}
	return nil
}

func (c *Catalog) parseAppearances(store *bom.Store) error {
	tree, ok, err := optionalTree(store, varAppearanceKeys)
	if err != nil || !ok {
		return err
	}
	c.Appearances = make(map[string]uint32)
	return tree.Walk(func(key, value []byte) error {
		name := trimName(key)
		if len(value) < 4 {
			c.warn("appearance", name, errors.Wrap(ErrBadRecord, "appearance id"))
			return nil
		}
		c.Appearances[name] = stdbinary.LittleEndian.Uint32(value)
		return nil
	})
}

func (c *Catalog) parseBitmapKeys(store *bom.Store) error {
	tree, ok, err := optionalTree(store, varBitmapKeys)
	if err != nil || !ok {
		return err
	}
	return tree.Walk(func(key, value []byte) error {
		c.BitmapKeys = append(c.BitmapKeys, BitmapKey{
			Key:   append([]byte(nil), key...),
			Value: append([]byte(nil), value...),
		})
		return nil
	})
}

// parseFacets reads the facet tree and returns the identifier-to-name map
// used to resolve renditions back to their facets.
func (c *Catalog) parseFacets(store *bom.Store) (map[uint16]string, error) {
	identifiers := make(map[uint16]string)
	tree, ok, err := optionalTree(store, varFacetKeys)
	if err != nil || !ok {
		return identifiers, err
	}
	err = tree.Walk(func(key, value []byte) error {
		name := trimName(key)
		token, err := schema.ParseKeyToken(value)
		if err != nil {
			c.warn("facet", name, err)
			return nil
		}
		facet := Facet{
			Name:           name,
			CursorHotspotX: token.CursorHotspotX,
			CursorHotspotY: token.CursorHotspotY,
			Attributes:     attributes(token.Attributes),
		}
		if id, ok := token.Identifier(); ok {
			identifiers[id] = name
		}
		c.Facets = append(c.Facets, facet)
		return nil
	})
	return identifiers, err
}

func (c *Catalog) parseRenditions(store *bom.Store, identifiers map[uint16]string) error {
	tree, ok, err := optionalTree(store, varRenditions)
	if err != nil || !ok {
		return err
	}
	return tree.Walk(func(key, value []byte) error {
		values, err := c.keyFormat.Decode(key)
		if err != nil {
			c.warn("rendition", hex.EncodeToString(key), err)
			return nil
		}
		record, err := csi.Parse(value)
		if err != nil {
			c.warn("rendition", hex.EncodeToString(key), err)
			return nil
		}

		width, height := record.BestSize()
		r := Rendition{
			Key:        append([]byte(nil), key...),
			Attributes: attributes(values),
			Name:       record.Name,
			Width:      width,
			Height:     height,
			Scale:      record.Scale(),
			SizeOnDisk: record.SizeOnDisk(),
			Digest:     schema.Digest(value),
			record:     record,
		}
		if id, ok := schema.Find(values, schema.AttributeIdentifier); ok {
			r.FacetName = identifiers[id]
		}
		c.Renditions = append(c.Renditions, r)
		return nil
	})
}

// optionalTree opens a named tree if its variable is present. A duplicated
// variable is structural damage even for optional trees.
func optionalTree(store *bom.Store, name string) (*bom.Tree, bool, error) {
	switch n := store.VarCount(name); {
	case n == 0:
		return nil, false, nil
	case n > 1:
		return nil, false, errors.Wrapf(ErrDuplicateHeader, "%s occurs %d times", name, n)
	}
	tree, err := bom.OpenNamedTree(store, name)
	if err != nil {
		return nil, false, err
	}
	return tree, true, nil
}

func (c *Catalog) warn(entity, name string, err error) {
	c.Warnings = append(c.Warnings, Warning{Entity: entity, Name: name, Err: err})
}

func attributes(values []schema.AttributeValue) []Attribute {
	out := make([]Attribute, len(values))
	for i, v := range values {
		out[i] = Attribute{Type: uint32(v.Type), Name: v.Type.String(), Value: v.Value}
	}
	return out
}

// Tree keys that hold names are stored NUL padded.
func trimName(key []byte) string {
	return strings.TrimRight(string(key), "\x00")
}
