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

// Package sync implements the stateful anti-entropy reconciliation
// protocol: message and persisted-state wire codecs, and
// the generate/receive round logic.
package sync

import (
	"fmt"

	"github.com/erigontech/crdtengine/bitstream"
	"github.com/erigontech/crdtengine/change"
)

const (
	messageMarker = 0x42
	stateMarker   = 0x43
)

// HaveEntry is one Bloom snapshot offered in a sync message: a covering
// set boundary (lastSync) plus the filter itself.
type HaveEntry struct {
	LastSync []change.Hash
	Bloom    []byte
}

// Message is the wire shape of one sync round.
type Message struct {
	Heads   []change.Hash
	Need    []change.Hash
	Have    []HaveEntry
	Changes [][]byte
}

func appendHashes(e *bitstream.Encoder, hashes []change.Hash) error {
	if err := e.AppendUvarint(uint64(len(hashes))); err != nil {
		return err
	}
	for _, h := range hashes {
		e.AppendRaw(h[:])
	}
	return nil
}

func readHashes(d *bitstream.Decoder) ([]change.Hash, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	out := make([]change.Hash, n)
	for i := range out {
		raw, err := d.ReadRaw(32)
		if err != nil {
			return nil, err
		}
		copy(out[i][:], raw)
	}
	return out, nil
}

// EncodeMessage serializes m with the leading 0x42 marker.
func EncodeMessage(m *Message) ([]byte, error) {
	e := bitstream.NewEncoder()
	e.AppendByte(messageMarker)
	if err := appendHashes(e, m.Heads); err != nil {
		return nil, err
	}
	if err := appendHashes(e, m.Need); err != nil {
		return nil, err
	}
	if err := e.AppendUvarint(uint64(len(m.Have))); err != nil {
		return nil, err
	}
	for _, hv := range m.Have {
		if err := appendHashes(e, hv.LastSync); err != nil {
			return nil, err
		}
		if err := e.AppendBytes(hv.Bloom); err != nil {
			return nil, err
		}
	}
	if err := e.AppendUvarint(uint64(len(m.Changes))); err != nil {
		return nil, err
	}
	for _, c := range m.Changes {
		if err := e.AppendBytes(c); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// DecodeMessage parses a blob produced by EncodeMessage. Any bytes past
// the last decoded field are reserved for future extensions and ignored
//.
func DecodeMessage(buf []byte) (*Message, error) {
	d := bitstream.NewDecoder(buf)
	marker, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker != messageMarker {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrBadMarker, marker, messageMarker)
	}
	m := &Message{}
	if m.Heads, err = readHashes(d); err != nil {
		return nil, err
	}
	if m.Need, err = readHashes(d); err != nil {
		return nil, err
	}
	haveCount, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	m.Have = make([]HaveEntry, haveCount)
	for i := range m.Have {
		if m.Have[i].LastSync, err = readHashes(d); err != nil {
			return nil, err
		}
		if m.Have[i].Bloom, err = d.ReadBytes(); err != nil {
			return nil, err
		}
	}
	changeCount, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	m.Changes = make([][]byte, changeCount)
	for i := range m.Changes {
		raw, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		m.Changes[i] = append([]byte(nil), raw...)
	}
	return m, nil
}
