// Package bom parses the BOM container format underlying Assets.car files.
//
// A BOM ("Bill of Materials") container is a single buffer holding a pointer
// table of variable-length blocks plus a set of named entry points. All
// container-level structures are big-endian; block contents are opaque at
// this layer and are interpreted by the schema packages on top.
//
// This package is purely offset bookkeeping: it validates the header and
// pointer table and exposes blocks as borrowed byte ranges, but never parses
// block contents other than the tree index structures (see tree.go).
package bom

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-assetcatalog/internal/binary"
)

// Container signature, at offset 0.
var storeMagic = []byte("BOMStore")

// Fixed header: magic, version, non-null block count, block table offset and
// length, vars offset and length.
const headerSize = 32

// Errors reported by Parse. These are structural: a buffer failing any of
// them is not a BOM container and no partial result is returned.
var (
	ErrBadMagic           = errors.New("not a BOM container: bad magic")
	ErrTruncatedHeader    = errors.New("truncated BOM header")
	ErrPointerOutOfBounds = errors.New("block pointer out of bounds")
)

// Block is one entry of the container pointer table. Offset and Length
// describe a byte range inside the source buffer. Blocks with a zero range
// are placeholders; the table routinely contains entries nothing references.
type Block struct {
	ID     uint32
	Offset uint32
	Length uint32
}

// IsNull reports whether the block is an empty placeholder entry.
func (b Block) IsNull() bool {
	return b.Offset == 0 && b.Length == 0
}

// Var is a named entry point mapping a well-known name to a block id.
type Var struct {
	Name    string
	BlockID uint32
}

// Store is a parsed container: the source buffer plus its block index and
// named entry points. A Store borrows the buffer it was parsed from and must
// not outlive it; all block lookups resolve to subslices of that buffer.
type Store struct {
	buf     []byte
	Version uint32

	blocks []Block
	vars   []Var
	byName map[string]int // name -> index into vars; first occurrence wins
}

// Parse reads the container header, pointer table and named variables from
// buf. Block contents are not touched beyond bounds validation.
func Parse(buf []byte) (*Store, error) {
	if len(buf) < headerSize {
		return nil, ErrTruncatedHeader
	}
	if !bytes.Equal(buf[:len(storeMagic)], storeMagic) {
		return nil, ErrBadMagic
	}

	r := binary.NewReader(buf, stdbinary.BigEndian).At(len(storeMagic))
	version, _ := r.ReadUint32()
	nonNull, _ := r.ReadUint32()
	blockTableOff, _ := r.ReadUint32()
	blockTableLen, _ := r.ReadUint32()
	varsOff, _ := r.ReadUint32()
	varsLen, _ := r.ReadUint32()

	s := &Store{
		buf:     buf,
		Version: version,
		byName:  make(map[string]int),
	}

	if err := s.parseBlockTable(blockTableOff, blockTableLen, nonNull); err != nil {
		return nil, err
	}
	if err := s.parseVars(varsOff, varsLen); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) parseBlockTable(off, length, nonNull uint32) error {
	if int64(off)+int64(length) > int64(len(s.buf)) || length < 4 {
		return fmt.Errorf("%w: block table at %#x+%d", ErrPointerOutOfBounds, off, length)
	}
	r := binary.NewReader(s.buf, stdbinary.BigEndian).At(int(off))
	count, _ := r.ReadUint32()
	if int64(count)*8+4 > int64(length) {
		return fmt.Errorf("%w: block table declares %d entries in %d bytes", ErrPointerOutOfBounds, count, length)
	}
	if count < nonNull {
		return fmt.Errorf("%w: %d blocks declared but %d in use", ErrPointerOutOfBounds, count, nonNull)
	}

	s.blocks = make([]Block, count)
	for i := uint32(0); i < count; i++ {
		addr, _ := r.ReadUint32()
		blen, err := r.ReadUint32()
		if err != nil {
			return fmt.Errorf("%w: block table entry %d", ErrPointerOutOfBounds, i)
		}
		if int64(addr)+int64(blen) > int64(len(s.buf)) {
			return fmt.Errorf("%w: block %d spans [%#x, %#x) beyond %#x",
				ErrPointerOutOfBounds, i, addr, addr+blen, len(s.buf))
		}
		s.blocks[i] = Block{ID: i, Offset: addr, Length: blen}
	}
	return nil
}

func (s *Store) parseVars(off, length uint32) error {
	if int64(off)+int64(length) > int64(len(s.buf)) || length < 4 {
		return fmt.Errorf("%w: vars at %#x+%d", ErrPointerOutOfBounds, off, length)
	}
	r := binary.NewReader(s.buf, stdbinary.BigEndian).At(int(off))
	count, _ := r.ReadUint32()

	for i := uint32(0); i < count; i++ {
		blockID, _ := r.ReadUint32()
		nameLen, err := r.ReadUint8()
		if err != nil {
			return fmt.Errorf("%w: var %d header", ErrPointerOutOfBounds, i)
		}
		name, err := r.ReadBytes(int(nameLen))
		if err != nil {
			return fmt.Errorf("%w: var %d name", ErrPointerOutOfBounds, i)
		}
		v := Var{Name: string(name), BlockID: blockID}
		if _, ok := s.byName[v.Name]; !ok {
			s.byName[v.Name] = len(s.vars)
		}
		s.vars = append(s.vars, v)
	}
	return nil
}

// Bytes returns the source buffer the store was parsed from.
func (s *Store) Bytes() []byte {
	return s.buf
}

// BlockCount returns the number of pointer table entries, including
// placeholders.
func (s *Store) BlockCount() int {
	return len(s.blocks)
}

// Blocks returns the pointer table in declared order. The slice is shared;
// callers must treat it as read-only.
func (s *Store) Blocks() []Block {
	return s.blocks
}

// Block resolves a block id against the pointer table.
func (s *Store) Block(id uint32) (Block, error) {
	if int(id) >= len(s.blocks) {
		return Block{}, fmt.Errorf("%w: block id %d of %d", ErrPointerOutOfBounds, id, len(s.blocks))
	}
	return s.blocks[id], nil
}

// BlockBytes resolves a block id to its byte range in the source buffer.
// The result borrows from the buffer; it is valid as long as the buffer is.
func (s *Store) BlockBytes(id uint32) ([]byte, error) {
	b, err := s.Block(id)
	if err != nil {
		return nil, err
	}
	return s.buf[b.Offset : b.Offset+b.Length], nil
}

// Vars returns the named entry points in declared order.
func (s *Store) Vars() []Var {
	return s.vars
}

// VarCount returns how many times name occurs in the variable list.
func (s *Store) VarCount(name string) int {
	n := 0
	for _, v := range s.vars {
		if v.Name == name {
			n++
		}
	}
	return n
}

// NamedBlockID looks up the block id registered under name.
func (s *Store) NamedBlockID(name string) (uint32, bool) {
	i, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	return s.vars[i].BlockID, true
}

// NamedBlock resolves a named entry point to its block bytes.
func (s *Store) NamedBlock(name string) ([]byte, error) {
	id, ok := s.NamedBlockID(name)
	if !ok {
		return nil, fmt.Errorf("no variable named %q", name)
	}
	return s.BlockBytes(id)
}
