// Package bomtest builds synthetic BOM containers in memory for tests.
//
// Production catalogs are large and opaque; tests instead assemble minimal
// containers with exactly the blocks, trees and variables under test.
package bomtest

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles a BOM container buffer. Block 0 is always the null
// placeholder entry, matching real containers.
type Builder struct {
	blocks [][]byte
	vars   []varEntry
}

type varEntry struct {
	name    string
	blockID uint32
}

// NewBuilder returns a builder with the null block preallocated.
func NewBuilder() *Builder {
	return &Builder{blocks: [][]byte{nil}}
}

// AddBlock appends a data block and returns its id.
func (b *Builder) AddBlock(data []byte) uint32 {
	b.blocks = append(b.blocks, data)
	return uint32(len(b.blocks) - 1)
}

// AddVar registers a named entry point for a block id.
func (b *Builder) AddVar(name string, blockID uint32) {
	b.vars = append(b.vars, varEntry{name: name, blockID: blockID})
}

// AddNode appends a tree node block built from (index0, index1) pairs and
// returns its id. Leaf pairs are (value id, key id); internal pairs are
// (child node id, separator key id).
func (b *Builder) AddNode(isLeaf bool, forward, backward uint32, pairs [][2]uint32) uint32 {
	var buf bytes.Buffer
	leaf := uint16(0)
	if isLeaf {
		leaf = 1
	}
	binary.Write(&buf, binary.BigEndian, leaf)
	binary.Write(&buf, binary.BigEndian, uint16(len(pairs)))
	binary.Write(&buf, binary.BigEndian, forward)
	binary.Write(&buf, binary.BigEndian, backward)
	for _, p := range pairs {
		binary.Write(&buf, binary.BigEndian, p[0])
		binary.Write(&buf, binary.BigEndian, p[1])
	}
	return b.AddBlock(buf.Bytes())
}

// AddTreeHeader appends a tree header block pointing at rootID and returns
// its id.
func (b *Builder) AddTreeHeader(rootID uint32, entryCount uint32) uint32 {
	var buf bytes.Buffer
	buf.WriteString("tree")
	binary.Write(&buf, binary.BigEndian, uint32(1)) // version
	binary.Write(&buf, binary.BigEndian, rootID)
	binary.Write(&buf, binary.BigEndian, uint32(4096)) // page size
	binary.Write(&buf, binary.BigEndian, entryCount)
	buf.WriteByte(0)
	return b.AddBlock(buf.Bytes())
}

// KV is one key/value pair for AddLeafTree.
type KV struct {
	Key   []byte
	Value []byte
}

// AddLeafTree builds a single-leaf tree holding the given pairs, registers
// it under name, and returns the tree header block id. Pairs must already be
// in key order; the builder does not sort.
func (b *Builder) AddLeafTree(name string, kvs []KV) uint32 {
	pairs := make([][2]uint32, len(kvs))
	for i, kv := range kvs {
		keyID := b.AddBlock(kv.Key)
		valueID := b.AddBlock(kv.Value)
		pairs[i] = [2]uint32{valueID, keyID}
	}
	nodeID := b.AddNode(true, 0, 0, pairs)
	treeID := b.AddTreeHeader(nodeID, uint32(len(kvs)))
	if name != "" {
		b.AddVar(name, treeID)
	}
	return treeID
}

// Build lays out the container: header, data blocks, pointer table, vars.
func (b *Builder) Build() []byte {
	const headerSize = 32

	// Data blocks start right after the fixed header.
	offsets := make([]uint32, len(b.blocks))
	pos := uint32(headerSize)
	for i, blk := range b.blocks {
		if len(blk) == 0 {
			continue
		}
		offsets[i] = pos
		pos += uint32(len(blk))
	}
	blockTableOff := pos

	var table bytes.Buffer
	binary.Write(&table, binary.BigEndian, uint32(len(b.blocks)))
	for i, blk := range b.blocks {
		binary.Write(&table, binary.BigEndian, offsets[i])
		binary.Write(&table, binary.BigEndian, uint32(len(blk)))
	}

	varsOff := blockTableOff + uint32(table.Len())
	var vars bytes.Buffer
	binary.Write(&vars, binary.BigEndian, uint32(len(b.vars)))
	for _, v := range b.vars {
		binary.Write(&vars, binary.BigEndian, v.blockID)
		vars.WriteByte(uint8(len(v.name)))
		vars.WriteString(v.name)
	}

	var out bytes.Buffer
	out.WriteString("BOMStore")
	binary.Write(&out, binary.BigEndian, uint32(1)) // version
	binary.Write(&out, binary.BigEndian, uint32(len(b.blocks)))
	binary.Write(&out, binary.BigEndian, blockTableOff)
	binary.Write(&out, binary.BigEndian, uint32(table.Len()))
	binary.Write(&out, binary.BigEndian, varsOff)
	binary.Write(&out, binary.BigEndian, uint32(vars.Len()))
	for _, blk := range b.blocks {
		out.Write(blk)
	}
	out.Write(table.Bytes())
	out.Write(vars.Bytes())
	return out.Bytes()
}
