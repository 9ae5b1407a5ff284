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

package sync

import (
	"fmt"

	"github.com/erigontech/crdtengine/bitstream"
	"github.com/erigontech/crdtengine/change"
)

// State is one peer's sync session: SharedHeads is the only persisted
// field; everything else is
// ephemeral and reset when a new State is constructed for a fresh session.
type State struct {
	SharedHeads []change.Hash

	lastSentHeads []change.Hash
	sentHashes    map[change.Hash]struct{}
	theirHeads    []change.Hash
	theirHave     []HaveEntry
	theirNeed     []change.Hash
}

// NewState returns a fresh session against a peer we have never synced
// with before.
func NewState() *State {
	return &State{}
}

// EncodeState serializes only SharedHeads, with the leading 0x43 marker
//.
func EncodeState(st *State) []byte {
	e := bitstream.NewEncoder()
	e.AppendByte(stateMarker)
	_ = appendHashes(e, st.SharedHeads) // SharedHeads length always fits 32 bits
	return e.Bytes()
}

// DecodeState parses a blob produced by EncodeState into a fresh session
// (ephemeral fields start empty).
func DecodeState(buf []byte) (*State, error) {
	d := bitstream.NewDecoder(buf)
	marker, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != stateMarker {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrBadMarker, marker, stateMarker)
	}
	heads, err := readHashes(d)
	if err != nil {
		return nil, err
	}
	return &State{SharedHeads: heads}, nil
}
