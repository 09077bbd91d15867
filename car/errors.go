package car

import (
	"errors"

	"github.com/robert-malhotra/go-assetcatalog/internal/bom"
	"github.com/robert-malhotra/go-assetcatalog/internal/csi"
	"github.com/robert-malhotra/go-assetcatalog/internal/pixel"
	"github.com/robert-malhotra/go-assetcatalog/internal/schema"
)

// Structural errors abort the whole parse: the byte stream is not a valid
// catalog and no partial result is trustworthy.
var (
	ErrBadMagic           = bom.ErrBadMagic
	ErrTruncatedHeader    = bom.ErrTruncatedHeader
	ErrPointerOutOfBounds = bom.ErrPointerOutOfBounds
	ErrMalformedTree      = bom.ErrMalformedTree
	ErrCyclicTree         = bom.ErrCyclicTree

	ErrMissingHeader   = errors.New("catalog record missing")
	ErrDuplicateHeader = errors.New("catalog record duplicated")
)

// Per-rendition errors are recoverable: a catalog parse records them as
// warnings, and a pixel decode reports them for the one rendition asked for.
var (
	ErrBadRecord    = schema.ErrBadRecord
	ErrKeyWidth     = schema.ErrKeyWidth
	ErrBadRendition = csi.ErrBadHeader

	ErrUnsupportedPixelFormat = pixel.ErrUnsupportedPixelFormat
	ErrUnsupportedCompression = pixel.ErrUnsupportedCompression
	ErrTruncatedPayload       = pixel.ErrTruncatedPayload
	ErrDimensionMismatch      = pixel.ErrDimensionMismatch
	ErrNotRaster              = pixel.ErrNotRaster
)

// Warning is a recoverable per-entity problem encountered during a catalog
// parse. The offending entity is skipped; the rest of the catalog is valid.
type Warning struct {
	// Entity names the record class, "facet" or "rendition".
	Entity string
	// Name identifies the offending record, a facet name or a rendition
	// key rendered as hex.
	Name string
	Err  error
}

func (w Warning) Error() string {
	return w.Entity + " " + w.Name + ": " + w.Err.Error()
}

func (w Warning) Unwrap() error { return w.Err }
