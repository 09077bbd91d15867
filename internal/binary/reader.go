// Package binary provides low-level binary decoding over an in-memory buffer.
//
// Asset catalog files mix byte orders: the BOM container structures are
// big-endian while the CoreUI schema records inside them are little-endian.
// The reader carries its byte order so each layer configures its own.
package binary

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortRead is returned when a read would run past the end of the buffer.
var ErrShortRead = errors.New("read past end of buffer")

// Reader decodes fixed-width values from a byte slice at a running position.
// Readers created with At share the underlying buffer but have independent
// positions, so a single mapped file can back any number of them.
type Reader struct {
	buf   []byte
	order binary.ByteOrder
	pos   int
}

// NewReader creates a reader over buf using the given byte order.
func NewReader(buf []byte, order binary.ByteOrder) *Reader {
	return &Reader{buf: buf, order: order}
}

// At returns a new reader positioned at offset, sharing the same buffer.
func (r *Reader) At(offset int) *Reader {
	return &Reader{buf: r.buf, order: r.order, pos: offset}
}

// WithOrder returns a new reader at the same position using a different
// byte order.
func (r *Reader) WithOrder(order binary.ByteOrder) *Reader {
	return &Reader{buf: r.buf, order: order, pos: r.pos}
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.pos >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

// Skip advances the position by n bytes. The position may run past the end;
// the next read reports ErrShortRead.
func (r *Reader) Skip(n int) {
	r.pos += n
}

// ReadBytes returns the next n bytes as a subslice of the underlying buffer.
// The result aliases the buffer; callers that retain it must not modify it.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos < 0 || n > len(r.buf)-r.pos {
		return nil, ErrShortRead
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// ReadFloat64 reads an IEEE 754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadFixedString reads an n-byte field holding a NUL-padded string and
// returns the portion before the first NUL.
func (r *Reader) ReadFixedString(n int) (string, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return TrimPadded(b), nil
}

// TrimPadded returns the string content of a NUL-padded fixed-width field.
func TrimPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
