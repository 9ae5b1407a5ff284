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

// Package bloom implements the serializable Bloom filter the sync protocol
// uses to probe a peer's change set without exchanging it wholesale
//: triple-hash probing (Dillinger-Manolios) derived from the
// first 12 bytes of each 32-byte hash.
package bloom

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"

	"github.com/erigontech/crdtengine/bitstream"
	"github.com/erigontech/crdtengine/change"
)

// Default parameters yield roughly a 1% false-positive rate for
// well-distributed hashes.
const (
	DefaultBitsPerEntry = 10
	DefaultProbes       = 7
)

// Filter is a fixed, serializable Bloom filter over change hashes.
type Filter struct {
	numEntries   uint64
	bitsPerEntry uint64
	numProbes    uint64
	bits         *bitset.BitSet
}

// New builds a filter over hashes using the default parameters.
func New(hashes []change.Hash) *Filter {
	return NewWithParams(hashes, DefaultBitsPerEntry, DefaultProbes)
}

// NewWithParams builds a filter over hashes with explicit tuning
// parameters, stored in the serialized form so they may evolve without
// breaking the wire format.
func NewWithParams(hashes []change.Hash, bitsPerEntry, numProbes uint64) *Filter {
	f := &Filter{
		numEntries:   uint64(len(hashes)),
		bitsPerEntry: bitsPerEntry,
		numProbes:    numProbes,
	}
	m := f.m()
	f.bits = bitset.New(uint(m))
	for _, h := range hashes {
		for _, p := range probesFor(h, m, numProbes) {
			f.bits.Set(uint(p))
		}
	}
	return f
}

// numBytes returns the serialized bit-array length in bytes.
func numBytes(numEntries, bitsPerEntry uint64) uint64 {
	return (numEntries*bitsPerEntry + 7) / 8
}

// m is the total addressable bit count, 8 times the serialized byte-array
// length.
func (f *Filter) m() uint64 {
	return 8 * numBytes(f.numEntries, f.bitsPerEntry)
}

// probesFor derives the k probe positions for h under modulus m.
func probesFor(h change.Hash, m, k uint64) []uint64 {
	if m == 0 {
		return nil
	}
	x := uint64(binary.LittleEndian.Uint32(h[0:4]))
	y := uint64(binary.LittleEndian.Uint32(h[4:8]))
	z := uint64(binary.LittleEndian.Uint32(h[8:12]))

	probes := make([]uint64, k)
	for i := range probes {
		probes[i] = x % m
		x = (x + y) % m
		y = (y + z) % m
	}
	return probes
}

// Contains reports whether h is (possibly) in the filter. False positives
// are possible; false negatives are not.
func (f *Filter) Contains(h change.Hash) bool {
	if f.numEntries == 0 {
		return false
	}
	for _, p := range probesFor(h, f.m(), f.numProbes) {
		if !f.bits.Test(uint(p)) {
			return false
		}
	}
	return true
}

// Encode serializes the filter: numEntries,
// numBitsPerEntry, numProbes (LEB128 unsigned), then the raw bit array. An
// empty filter (zero entries) serializes to the empty byte string.
func (f *Filter) Encode() ([]byte, error) {
	if f.numEntries == 0 {
		return nil, nil
	}
	e := bitstream.NewEncoder()
	if err := e.AppendUvarint(f.numEntries); err != nil {
		return nil, err
	}
	if err := e.AppendUvarint(f.bitsPerEntry); err != nil {
		return nil, err
	}
	if err := e.AppendUvarint(f.numProbes); err != nil {
		return nil, err
	}
	nb := numBytes(f.numEntries, f.bitsPerEntry)
	e.AppendRaw(packBits(f.bits, nb))
	return e.Bytes(), nil
}

// Decode parses a filter produced by Encode. An empty input decodes to the
// empty filter.
func Decode(buf []byte) (*Filter, error) {
	if len(buf) == 0 {
		return &Filter{}, nil
	}
	d := bitstream.NewDecoder(buf)
	numEntries, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	bitsPerEntry, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	numProbes, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	nb := numBytes(numEntries, bitsPerEntry)
	body, err := d.ReadRaw(int(nb))
	if err != nil {
		return nil, err
	}
	f := &Filter{numEntries: numEntries, bitsPerEntry: bitsPerEntry, numProbes: numProbes}
	f.bits = unpackBits(body)
	return f, nil
}

// packBits renders a BitSet's first nb*8 bits into the wire byte array,
// bit i of the array landing at byte i/8, bit (i%8) (LSB first), the
// wire packing scheme, kept independent of bitset's own
// internal 64-bit-word storage layout.
func packBits(b *bitset.BitSet, nb uint64) []byte {
	out := make([]byte, nb)
	for i := uint64(0); i < nb*8; i++ {
		if b.Test(uint(i)) {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func unpackBits(body []byte) *bitset.BitSet {
	b := bitset.New(uint(len(body) * 8))
	for i, byt := range body {
		for bit := 0; bit < 8; bit++ {
			if byt&(1<<bit) != 0 {
				b.Set(uint(i*8 + bit))
			}
		}
	}
	return b
}
