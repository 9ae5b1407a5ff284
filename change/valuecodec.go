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

package change

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/erigontech/crdtengine/opid"
)

// Value payloads are tagged with one byte: the low nibble is the ValueKind,
// the high nibble picks a datatype slot (0 none, 1 counter, 2 timestamp, 3
// "other", which is followed by a length-prefixed name before the
// kind-specific payload). This keeps the common case (no datatype) to a
// single tag byte plus the raw payload.
const (
	dtNone = iota
	dtCounter
	dtTimestamp
	dtOther
)

func datatypeCode(dt Datatype) (byte, bool) {
	switch dt {
	case DatatypeNone:
		return dtNone, false
	case DatatypeCounter:
		return dtCounter, false
	case DatatypeTimestamp:
		return dtTimestamp, false
	default:
		return dtOther, true
	}
}

func encodeValue(v Value, table *opid.Table) ([]byte, error) {
	dtCode, named := datatypeCode(v.Datatype)
	tag := dtCode<<4 | byte(v.Kind)
	out := []byte{tag}
	if named {
		out = appendLenPrefixed(out, []byte(v.Datatype))
	}
	switch v.Kind {
	case KindNull, KindFalse, KindTrue:
		// no payload
	case KindUint:
		out = append(out, uint64Bytes(v.Uint)...)
	case KindInt:
		out = append(out, uint64Bytes(uint64(v.Int))...)
	case KindFloat:
		out = append(out, uint64Bytes(math.Float64bits(v.Float))...)
	case KindString:
		out = appendLenPrefixed(out, []byte(v.Str))
	case KindBytes:
		out = appendLenPrefixed(out, v.Bytes)
	case KindRef:
		idx := table.Intern(v.Ref.Actor)
		out = append(out, uint64Bytes(v.Ref.Counter)...)
		out = append(out, uint64Bytes(uint64(idx))...)
	default:
		return nil, fmt.Errorf("change: unknown value kind %d", v.Kind)
	}
	return out, nil
}

func decodeValue(buf []byte, table *opid.Table) (Value, error) {
	if len(buf) == 0 {
		return Null(), nil
	}
	tag := buf[0]
	buf = buf[1:]
	kind := ValueKind(tag & 0x0f)
	dtCode := tag >> 4

	var dt Datatype
	switch dtCode {
	case dtNone:
		dt = DatatypeNone
	case dtCounter:
		dt = DatatypeCounter
	case dtTimestamp:
		dt = DatatypeTimestamp
	case dtOther:
		name, rest, err := readLenPrefixed(buf)
		if err != nil {
			return Value{}, err
		}
		dt = Datatype(name)
		buf = rest
	default:
		return Value{}, fmt.Errorf("change: unknown datatype code %d", dtCode)
	}

	switch kind {
	case KindNull:
		return Value{Kind: KindNull, Datatype: dt}, nil
	case KindFalse:
		return Value{Kind: KindFalse, Datatype: dt}, nil
	case KindTrue:
		return Value{Kind: KindTrue, Datatype: dt}, nil
	case KindUint:
		u, _, err := readUint64(buf)
		return Value{Kind: KindUint, Datatype: dt, Uint: u}, err
	case KindInt:
		u, _, err := readUint64(buf)
		return Value{Kind: KindInt, Datatype: dt, Int: int64(u)}, err
	case KindFloat:
		u, _, err := readUint64(buf)
		return Value{Kind: KindFloat, Datatype: dt, Float: math.Float64frombits(u)}, err
	case KindString:
		s, _, err := readLenPrefixed(buf)
		return Value{Kind: KindString, Datatype: dt, Str: string(s)}, err
	case KindBytes:
		b, _, err := readLenPrefixed(buf)
		return Value{Kind: KindBytes, Datatype: dt, Bytes: append([]byte(nil), b...)}, err
	case KindRef:
		counter, rest, err := readUint64(buf)
		if err != nil {
			return Value{}, err
		}
		idx, _, err := readUint64(rest)
		if err != nil {
			return Value{}, err
		}
		actor, err := table.ByIndex(int(idx))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindRef, Datatype: dt, Ref: opid.ID{Counter: counter, Actor: actor}}, nil
	default:
		return Value{}, fmt.Errorf("%w: value kind %d", ErrUnknownAction, kind)
	}
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, fmt.Errorf("change: truncated value payload")
	}
	return binary.LittleEndian.Uint64(buf[:8]), buf[8:], nil
}

func appendLenPrefixed(out []byte, b []byte) []byte {
	out = append(out, uint64Bytes(uint64(len(b)))...)
	return append(out, b...)
}

func readLenPrefixed(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUint64(buf)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("change: truncated value payload")
	}
	return rest[:n], rest[n:], nil
}
