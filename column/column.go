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

// Package column implements the run-length and delta-on-RLE column codecs
// the change codec lays its op arrays out in.
//
// A column is a sequence of (T | null) values encoded as runs, controlled by
// a header integer: positive runs repeat one value n times, negative runs
// are n literal values, and zero introduces a run of n nulls.
package column

import (
	"fmt"

	"github.com/erigontech/crdtengine/bitstream"
)

// EncodeUint RLE-encodes a sequence of present (non-null) unsigned integers.
func EncodeUint(e *bitstream.Encoder, values []uint64) error {
	return encodeRLE(e, len(values), func(i int) (any, bool) { return values[i], true },
		func(e *bitstream.Encoder, v any) error { return e.AppendUvarint(v.(uint64)) })
}

// DecodeUint decodes a uint RLE column containing exactly n present values.
func DecodeUint(d *bitstream.Decoder, n int) ([]uint64, error) {
	out := make([]uint64, 0, n)
	err := decodeRLE(d, n, func(d *bitstream.Decoder) (any, error) { return d.ReadUvarint() },
		func(v any) { out = append(out, v.(uint64)) },
		func() { out = append(out, 0) })
	return out, err
}

// EncodeInt RLE-encodes a sequence of present signed 32-bit integers.
func EncodeInt(e *bitstream.Encoder, values []int64) error {
	return encodeRLE(e, len(values), func(i int) (any, bool) { return values[i], true },
		func(e *bitstream.Encoder, v any) error { return e.AppendVarint(v.(int64)) })
}

// DecodeInt decodes a signed RLE column containing exactly n present values.
func DecodeInt(d *bitstream.Decoder, n int) ([]int64, error) {
	out := make([]int64, 0, n)
	err := decodeRLE(d, n, func(d *bitstream.Decoder) (any, error) { return d.ReadVarint() },
		func(v any) { out = append(out, v.(int64)) },
		func() { out = append(out, 0) })
	return out, err
}

// EncodeString RLE-encodes a column of *string (nil = null).
func EncodeString(e *bitstream.Encoder, values []*string) error {
	return encodeRLE(e, len(values), func(i int) (any, bool) {
		if values[i] == nil {
			return nil, false
		}
		return *values[i], true
	}, func(e *bitstream.Encoder, v any) error { return e.AppendString(v.(string)) })
}

// DecodeString decodes a string RLE column containing exactly n logical
// entries (present or null).
func DecodeString(d *bitstream.Decoder, n int) ([]*string, error) {
	out := make([]*string, 0, n)
	err := decodeRLE(d, n, func(d *bitstream.Decoder) (any, error) { return d.ReadString() },
		func(v any) { s := v.(string); out = append(out, &s) },
		func() { out = append(out, nil) })
	return out, err
}

// EncodeUintOrNull RLE-encodes a column of *uint64 (nil = null), used for
// columns like obj_ctr/obj_actor/key_ctr/key_actor where absence is meaningful.
func EncodeUintOrNull(e *bitstream.Encoder, values []*uint64) error {
	return encodeRLE(e, len(values), func(i int) (any, bool) {
		if values[i] == nil {
			return nil, false
		}
		return *values[i], true
	}, func(e *bitstream.Encoder, v any) error { return e.AppendUvarint(v.(uint64)) })
}

// DecodeUintOrNull decodes a nullable uint RLE column of n logical entries.
func DecodeUintOrNull(d *bitstream.Decoder, n int) ([]*uint64, error) {
	out := make([]*uint64, 0, n)
	err := decodeRLE(d, n, func(d *bitstream.Decoder) (any, error) { return d.ReadUvarint() },
		func(v any) { u := v.(uint64); out = append(out, &u) },
		func() { out = append(out, nil) })
	return out, err
}

// encodeRLE is the shared RLE encoder. get(i) returns the logical value at
// index i and whether it is present (false = null). write encodes one
// present value of the column's element type.
func encodeRLE(e *bitstream.Encoder, n int, get func(i int) (any, bool), write func(*bitstream.Encoder, any) error) error {
	i := 0
	var literal []any
	flushLiteral := func() error {
		if len(literal) == 0 {
			return nil
		}
		if err := e.AppendVarint(-int64(len(literal))); err != nil {
			return err
		}
		for _, v := range literal {
			if err := write(e, v); err != nil {
				return err
			}
		}
		literal = literal[:0]
		return nil
	}
	for i < n {
		v, present := get(i)
		if !present {
			if err := flushLiteral(); err != nil {
				return err
			}
			j := i
			for j < n {
				if _, p := get(j); p {
					break
				}
				j++
			}
			if err := e.AppendUvarint(0); err != nil {
				return err
			}
			if err := e.AppendUvarint(uint64(j - i)); err != nil {
				return err
			}
			i = j
			continue
		}
		// count the run of equal present values starting at i
		j := i + 1
		for j < n {
			w, p := get(j)
			if !p || !equalValue(v, w) {
				break
			}
			j++
		}
		runLen := j - i
		if runLen >= 2 {
			if err := flushLiteral(); err != nil {
				return err
			}
			if err := e.AppendVarint(int64(runLen)); err != nil {
				return err
			}
			if err := write(e, v); err != nil {
				return err
			}
			i = j
			continue
		}
		literal = append(literal, v)
		i++
	}
	return flushLiteral()
}

func equalValue(a, b any) bool { return a == b }

// decodeRLE is the shared RLE decoder. read decodes one present value;
// onValue/onNull append a decoded entry to the caller's output slice.
func decodeRLE(d *bitstream.Decoder, n int, read func(*bitstream.Decoder) (any, error), onValue func(any), onNull func()) error {
	count := 0
	for count < n {
		header, err := d.ReadVarint()
		if err != nil {
			return err
		}
		switch {
		case header > 0:
			v, err := read(d)
			if err != nil {
				return err
			}
			for k := int64(0); k < header; k++ {
				onValue(v)
				count++
			}
		case header < 0:
			for k := int64(0); k < -header; k++ {
				v, err := read(d)
				if err != nil {
					return err
				}
				onValue(v)
				count++
			}
		default:
			nulls, err := d.ReadUvarint()
			if err != nil {
				return err
			}
			for k := uint64(0); k < nulls; k++ {
				onNull()
				count++
			}
		}
	}
	if count != n {
		return fmt.Errorf("column: decoded %d entries, expected %d", count, n)
	}
	return nil
}
