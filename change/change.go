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

// Package change implements a single change: its in-memory representation,
// the columnar wire/disk codec, and the canonical SHA-256 hash that
// identifies it.
package change

import (
	"encoding/hex"
	"sort"

	"github.com/erigontech/crdtengine/opid"
)

// Version is the current change-blob format version.
const Version = 1

// Hash is a 256-bit change identity: SHA-256 of the canonical change body.
type Hash [32]byte

// String renders the hash as lowercase hex.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Less orders hashes lexicographically, the order every sorted-hash-array
// field in the wire formats uses.
func (h Hash) Less(o Hash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

// SortHashes sorts a slice of hashes ascending, in place, and returns it.
func SortHashes(hs []Hash) []Hash {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Less(hs[j]) })
	return hs
}

// Change is one atomic, hash-addressed batch of operations authored by one
// actor.
type Change struct {
	Actor   opid.Actor
	Seq     uint64
	StartOp uint64
	// Time is Unix seconds, not milliseconds: the wire encoding is an
	// unsigned LEB128 bounded to 32 bits (bitstream.AppendUvarint), which a
	// millisecond timestamp already overflows.
	Time    int64
	Message string
	Deps    []Hash
	Ops     []Op
}

// MaxOp returns the highest op counter this change assigns.
func (c *Change) MaxOp() uint64 {
	if len(c.Ops) == 0 {
		return c.StartOp - 1
	}
	return c.StartOp + uint64(len(c.Ops)) - 1
}

// OpID returns the op ID assigned to Ops[index].
func (c *Change) OpID(index int) opid.ID {
	return opid.ID{Counter: c.StartOp + uint64(index), Actor: c.Actor}
}

// Hash computes the change's canonical SHA-256 hash.
// Two changes are equal iff their hashes are equal; the hash depends only
// on (actor, seq, startOp, time, message, sorted deps, ops) and is
// independent of transport metadata.
func (c *Change) Hash() (Hash, error) {
	body, err := encodeBody(c)
	if err != nil {
		return Hash{}, err
	}
	return sha256Sum(body), nil
}
