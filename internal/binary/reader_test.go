package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadIntegers(t *testing.T) {
	buf := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	}

	t.Run("big endian", func(t *testing.T) {
		r := NewReader(buf, binary.BigEndian)
		if v, err := r.ReadUint8(); err != nil || v != 0x01 {
			t.Errorf("ReadUint8 = %#x, %v", v, err)
		}
		if v, err := r.ReadUint16(); err != nil || v != 0x0203 {
			t.Errorf("ReadUint16 = %#x, %v", v, err)
		}
		if v, err := r.ReadUint32(); err != nil || v != 0x04050607 {
			t.Errorf("ReadUint32 = %#x, %v", v, err)
		}
		if v, err := r.ReadUint64(); err != nil || v != 0x08090A0B0C0D0E0F {
			t.Errorf("ReadUint64 = %#x, %v", v, err)
		}
	})

	t.Run("little endian", func(t *testing.T) {
		r := NewReader(buf, binary.LittleEndian)
		r.Skip(1)
		if v, err := r.ReadUint16(); err != nil || v != 0x0302 {
			t.Errorf("ReadUint16 = %#x, %v", v, err)
		}
		if v, err := r.ReadUint32(); err != nil || v != 0x07060504 {
			t.Errorf("ReadUint32 = %#x, %v", v, err)
		}
	})
}

func TestReadPastEnd(t *testing.T) {
	tests := []struct {
		name string
		read func(r *Reader) error
	}{
		{"bytes", func(r *Reader) error { _, err := r.ReadBytes(5); return err }},
		{"uint32", func(r *Reader) error { r.Skip(1); _, err := r.ReadUint32(); return err }},
		{"uint64", func(r *Reader) error { _, err := r.ReadUint64(); return err }},
		{"negative count", func(r *Reader) error { _, err := r.ReadBytes(-1); return err }},
		{"after skip past end", func(r *Reader) error { r.Skip(100); _, err := r.ReadUint8(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader([]byte{1, 2, 3, 4}, binary.BigEndian)
			if err := tt.read(r); !errors.Is(err, ErrShortRead) {
				t.Errorf("expected ErrShortRead, got %v", err)
			}
		})
	}
}

func TestAtIndependentPosition(t *testing.T) {
	r := NewReader([]byte{0xAA, 0xBB, 0xCC}, binary.BigEndian)
	r2 := r.At(2)

	if v, _ := r.ReadUint8(); v != 0xAA {
		t.Errorf("base reader read %#x, want 0xAA", v)
	}
	if v, _ := r2.ReadUint8(); v != 0xCC {
		t.Errorf("positioned reader read %#x, want 0xCC", v)
	}
	if r.Pos() != 1 || r2.Pos() != 3 {
		t.Errorf("positions = %d, %d", r.Pos(), r2.Pos())
	}
}

func TestReadBytesAliasing(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	r := NewReader(buf, binary.BigEndian)
	b, err := r.ReadBytes(4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, buf) {
		t.Errorf("ReadBytes = %v, want %v", b, buf)
	}
	if &b[0] != &buf[0] {
		t.Error("ReadBytes should alias the underlying buffer")
	}
}

func TestReadFixedString(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		n    int
		want string
	}{
		{"nul padded", []byte("abc\x00\x00\x00"), 6, "abc"},
		{"full width", []byte("abcdef"), 6, "abcdef"},
		{"empty", []byte{0, 0, 0}, 3, ""},
		{"embedded after nul", []byte("a\x00b"), 3, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.in, binary.LittleEndian)
			got, err := r.ReadFixedString(tt.n)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ReadFixedString = %q, want %q", got, tt.want)
			}
		})
	}
}
