package bom

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/go-assetcatalog/internal/bom/bomtest"
)

func TestParseStore(t *testing.T) {
	b := bomtest.NewBuilder()
	id := b.AddBlock([]byte("hello"))
	orphan := b.AddBlock([]byte("orphan block"))
	b.AddVar("GREETING", id)
	buf := b.Build()

	s, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}

	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
	if s.BlockCount() != 3 {
		t.Errorf("BlockCount = %d, want 3 (null + 2 data)", s.BlockCount())
	}

	data, err := s.NamedBlock("GREETING")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("NamedBlock = %q", data)
	}

	// Orphans are kept in the table but referenced by nothing.
	ob, err := s.BlockBytes(orphan)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ob, []byte("orphan block")) {
		t.Errorf("orphan bytes = %q", ob)
	}

	if _, err := s.NamedBlock("MISSING"); err == nil {
		t.Error("expected error for unknown variable")
	}
}

func TestParsePointerTableRoundTrip(t *testing.T) {
	b := bomtest.NewBuilder()
	b.AddBlock([]byte("aaaa"))
	b.AddBlock([]byte("bb"))
	b.AddBlock([]byte("cccccc"))
	buf := b.Build()

	s, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}

	// Every block's declared range must resolve to the exact bytes at that
	// offset in the source buffer.
	for _, blk := range s.Blocks() {
		got, err := s.BlockBytes(blk.ID)
		if err != nil {
			t.Fatalf("block %d: %v", blk.ID, err)
		}
		want := buf[blk.Offset : blk.Offset+blk.Length]
		if !bytes.Equal(got, want) {
			t.Errorf("block %d bytes differ from source range", blk.ID)
		}
	}
}

func TestParseErrors(t *testing.T) {
	valid := func() []byte {
		b := bomtest.NewBuilder()
		id := b.AddBlock([]byte("data"))
		b.AddVar("X", id)
		return b.Build()
	}

	tests := []struct {
		name    string
		corrupt func([]byte) []byte
		want    error
	}{
		{
			"empty buffer",
			func(buf []byte) []byte { return nil },
			ErrTruncatedHeader,
		},
		{
			"short header",
			func(buf []byte) []byte { return buf[:16] },
			ErrTruncatedHeader,
		},
		{
			"bad magic",
			func(buf []byte) []byte {
				out := append([]byte(nil), buf...)
				copy(out, "NOTABOM!")
				return out
			},
			ErrBadMagic,
		},
		{
			"truncated below table extent",
			func(buf []byte) []byte { return buf[:len(buf)-10] },
			ErrPointerOutOfBounds,
		},
		{
			"block offset past end",
			func(buf []byte) []byte {
				out := append([]byte(nil), buf...)
				// First real block table entry: count word, skip null entry.
				var off uint32
				for i := 16; i < 20; i++ {
					off = off<<8 | uint32(buf[i])
				}
				entry := int(off) + 4 + 8 // count + null block record
				out[entry] = 0xFF         // offset high byte → far past end
				return out
			},
			ErrPointerOutOfBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.corrupt(valid()))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDuplicateVarFirstWins(t *testing.T) {
	b := bomtest.NewBuilder()
	first := b.AddBlock([]byte("first"))
	second := b.AddBlock([]byte("second"))
	b.AddVar("DUP", first)
	b.AddVar("DUP", second)

	s, err := Parse(b.Build())
	if err != nil {
		t.Fatal(err)
	}
	if n := s.VarCount("DUP"); n != 2 {
		t.Errorf("VarCount = %d, want 2", n)
	}
	data, err := s.NamedBlock("DUP")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("first")) {
		t.Errorf("NamedBlock = %q, want first occurrence", data)
	}
}
