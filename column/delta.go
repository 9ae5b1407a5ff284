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

package column

import "github.com/erigontech/crdtengine/bitstream"

// EncodeDeltaInt encodes values (nil entries are "no value", not zero) as a
// signed RLE column of consecutive differences; nulls pass straight through
// without perturbing the running sum.
func EncodeDeltaInt(e *bitstream.Encoder, values []*int64) error {
	var last int64
	have := false
	deltas := make([]*int64, len(values))
	for i, v := range values {
		if v == nil {
			deltas[i] = nil
			continue
		}
		if !have {
			d := *v
			deltas[i] = &d
			last = *v
			have = true
			continue
		}
		d := *v - last
		deltas[i] = &d
		last = *v
	}
	return encodeRLE(e, len(deltas), func(i int) (any, bool) {
		if deltas[i] == nil {
			return nil, false
		}
		return *deltas[i], true
	}, func(e *bitstream.Encoder, v any) error { return e.AppendVarint(v.(int64)) })
}

// DecodeDeltaInt reverses EncodeDeltaInt: running a prefix sum over the
// decoded deltas, treating null as "no value" so it does not participate in
// or reset the running sum.
func DecodeDeltaInt(d *bitstream.Decoder, n int) ([]*int64, error) {
	out := make([]*int64, 0, n)
	var last int64
	have := false
	err := decodeRLE(d, n, func(d *bitstream.Decoder) (any, error) { return d.ReadVarint() },
		func(v any) {
			delta := v.(int64)
			var cur int64
			if !have {
				cur = delta
			} else {
				cur = last + delta
			}
			last = cur
			have = true
			out = append(out, &cur)
		},
		func() { out = append(out, nil) })
	return out, err
}
