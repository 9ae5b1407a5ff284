// Copyright 2026 The CRDTEngine Authors
// This file is part of crdtengine.
//
// crdtengine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// crdtengine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with crdtengine. If not, see <http://www.gnu.org/licenses/>.

// Package bitstream implements the primitive binary layer the columnar
// change codec is built on: LEB128 unsigned/signed integers bounded to 32
// bits, and length-prefixed byte/string values, over a growable encoder and
// a cursored decoder.
//
// The unsigned LEB128 mechanics are delegated to go-varint; this package
// adds a 32-bit overflow bound (go-varint alone will
// happily round-trip a full uint64) and the signed layer (sign-extended
// two's-complement LEB128, not zigzag) go-varint does not provide.
package bitstream

import (
	"errors"
	"fmt"

	"github.com/multiformats/go-varint"
)

// ErrTruncated is returned when a decode runs past the end of the buffer.
var ErrTruncated = errors.New("bitstream: truncated input")

// ErrOverflow is returned when a decoded LEB128 value does not fit in 32 bits.
var ErrOverflow = errors.New("bitstream: value exceeds 32 bits")

// Encoder is a growable append-only byte buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder with a pre-sized backing array.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated buffer. The caller must not mutate it.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// AppendUvarint appends v as an unsigned LEB128 integer. v must fit in 32 bits.
func (e *Encoder) AppendUvarint(v uint64) error {
	if v > math32Mask {
		return fmt.Errorf("%w: %d", ErrOverflow, v)
	}
	e.buf = append(e.buf, varint.ToUvarint(v)...)
	return nil
}

// AppendVarint appends v as a signed, 32-bit two's-complement, sign-extended
// LEB128 integer.
func (e *Encoder) AppendVarint(v int64) error {
	if v > int64(MaxInt32) || v < int64(MinInt32) {
		return fmt.Errorf("%w: %d", ErrOverflow, v)
	}
	// Standard signed LEB128: arithmetic-shift a 32-bit value 7 bits at a
	// time, stopping once the remaining bits are pure sign extension.
	n := int32(v)
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0) {
			e.buf = append(e.buf, b)
			return nil
		}
		e.buf = append(e.buf, b|0x80)
	}
}

// AppendBytes appends a length-prefixed byte string: an unsigned LEB128
// length followed by the raw bytes.
func (e *Encoder) AppendBytes(b []byte) error {
	if err := e.AppendUvarint(uint64(len(b))); err != nil {
		return err
	}
	e.buf = append(e.buf, b...)
	return nil
}

// AppendString appends a length-prefixed UTF-8 string.
func (e *Encoder) AppendString(s string) error {
	return e.AppendBytes([]byte(s))
}

// AppendRaw appends b verbatim, with no length prefix.
func (e *Encoder) AppendRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// AppendByte appends a single byte verbatim.
func (e *Encoder) AppendByte(b byte) {
	e.buf = append(e.buf, b)
}

const math32Mask = 1<<32 - 1

// MaxInt32 and MinInt32 bound the signed LEB128 values this package accepts.
const (
	MaxInt32 = 1<<31 - 1
	MinInt32 = -1 << 31
)

// Decoder is a cursored reader over an immutable byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential decoding starting at position 0.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Done reports whether the cursor has reached the end of the buffer.
func (d *Decoder) Done() bool { return d.pos >= len(d.buf) }

// Pos returns the current cursor position.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// ReadUvarint reads an unsigned LEB128 integer bounded to 32 bits.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n, err := varint.FromUvarint(d.buf[d.pos:])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if v > math32Mask {
		return 0, fmt.Errorf("%w: %d", ErrOverflow, v)
	}
	d.pos += n
	return v, nil
}

// ReadVarint reads a signed, 32-bit two's-complement, sign-extended LEB128
// integer.
func (d *Decoder) ReadVarint() (int64, error) {
	var result uint64
	var shift uint
	start := d.pos
	for {
		if d.pos >= len(d.buf) {
			d.pos = start
			return 0, ErrTruncated
		}
		b := d.buf[d.pos]
		d.pos++
		result |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 32 && b&0x40 != 0 {
				result |= ^uint64(0) << shift
			}
			break
		}
		if shift >= 35 {
			d.pos = start
			return 0, ErrOverflow
		}
	}
	v := int64(int32(uint32(result)))
	return v, nil
}

// ReadBytes reads a length-prefixed byte string and returns a view into the
// underlying buffer (not a copy); callers that retain it across further
// decoding must copy it themselves.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if uint64(d.Remaining()) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, d.Remaining())
	}
	b := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadRaw reads exactly n bytes verbatim.
func (d *Decoder) ReadRaw(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, d.Remaining())
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadByte reads a single byte verbatim.
func (d *Decoder) ReadByte() (byte, error) {
	if d.Remaining() < 1 {
		return 0, ErrTruncated
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}
