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
	"fmt"

	"github.com/erigontech/crdtengine/bitstream"
	"github.com/erigontech/crdtengine/column"
	"github.com/erigontech/crdtengine/opid"
)

// DecodeOptions configures Decode. The zero value is the lenient,
// forward-compatible default.
type DecodeOptions struct {
	// StrictColumns rejects unrecognized column IDs instead of skipping
	// them.
	StrictColumns bool
}

// Encode serializes c to its wire/disk form: a version byte followed by the
// canonical change body.
func Encode(c *Change) ([]byte, error) {
	body, err := encodeBody(c)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, Version)
	out = append(out, body...)
	return out, nil
}

// Decode parses a change blob produced by Encode.
func Decode(blob []byte, opts DecodeOptions) (*Change, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("change: %w: empty blob", ErrBadVersion)
	}
	if blob[0] != Version {
		return nil, fmt.Errorf("%w: got %d", ErrBadVersion, blob[0])
	}
	return decodeBody(blob[1:], opts)
}

func encodeBody(c *Change) ([]byte, error) {
	table := opid.NewTable(c.Actor)
	for _, op := range c.Ops {
		if !op.Obj.IsRoot() {
			table.Intern(op.Obj.Actor)
		}
		if !op.Key.IsMapKey() && !op.Key.IsHead() {
			table.Intern(op.Key.Elem.Actor)
		}
		for _, p := range op.Pred {
			table.Intern(p.Actor)
		}
		if op.Value.Kind == KindRef {
			table.Intern(op.Value.Ref.Actor)
		}
	}

	e := bitstream.NewEncoder()
	if err := e.AppendBytes(c.Actor.Bytes()); err != nil {
		return nil, err
	}
	if err := e.AppendUvarint(c.Seq); err != nil {
		return nil, err
	}
	if err := e.AppendUvarint(c.StartOp); err != nil {
		return nil, err
	}
	if err := e.AppendUvarint(uint64(c.Time)); err != nil {
		return nil, err
	}
	if err := e.AppendString(c.Message); err != nil {
		return nil, err
	}

	others := table.Others()
	if err := e.AppendUvarint(uint64(len(others))); err != nil {
		return nil, err
	}
	for _, a := range others {
		if err := e.AppendBytes(a.Bytes()); err != nil {
			return nil, err
		}
	}

	deps := append([]Hash(nil), c.Deps...)
	SortHashes(deps)
	if err := e.AppendUvarint(uint64(len(deps))); err != nil {
		return nil, err
	}
	for _, h := range deps {
		e.AppendRaw(h[:])
	}

	if err := encodeColumns(e, c.Ops, table); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func encodeColumns(e *bitstream.Encoder, ops []Op, table *opid.Table) error {
	n := len(ops)
	actionVals := make([]uint64, n)
	objCtr := make([]*uint64, n)
	objActor := make([]*uint64, n)
	keyCtr := make([]*uint64, n)
	keyActor := make([]*uint64, n)
	keyStr := make([]*string, n)
	insertVals := make([]uint64, n)
	valLen := make([]uint64, n)
	var valRaw []byte
	predNum := make([]uint64, n)
	var predCtrFlat []*int64
	var predActorFlat []uint64

	for i, op := range ops {
		code, err := actionCode(op.Action, op.ObjTyp)
		if err != nil {
			return err
		}
		actionVals[i] = code

		if !op.Obj.IsRoot() {
			c := op.Obj.Counter
			objCtr[i] = &c
			idx := uint64(table.Intern(op.Obj.Actor))
			objActor[i] = &idx
		}

		switch {
		case op.Key.IsMapKey():
			s := *op.Key.MapKey
			keyStr[i] = &s
		case op.Key.IsHead():
			zero := uint64(0)
			keyCtr[i] = &zero
			keyActor[i] = &zero
		default:
			c := op.Key.Elem.Counter
			keyCtr[i] = &c
			idx := uint64(table.Intern(op.Key.Elem.Actor))
			keyActor[i] = &idx
		}

		if op.Insert {
			insertVals[i] = 1
		}

		payload, err := encodeValue(op.Value, table)
		if err != nil {
			return err
		}
		valLen[i] = uint64(len(payload))
		valRaw = append(valRaw, payload...)

		sorted := op.SortedPred()
		predNum[i] = uint64(len(sorted))
		for _, p := range sorted {
			ctr := int64(p.Counter)
			predCtrFlat = append(predCtrFlat, &ctr)
			predActorFlat = append(predActorFlat, uint64(table.Intern(p.Actor)))
		}
	}

	type col struct {
		id  int
		enc func(*bitstream.Encoder) error
	}
	cols := []col{
		{colAction, func(e *bitstream.Encoder) error { return column.EncodeUint(e, actionVals) }},
		{colObjCtr, func(e *bitstream.Encoder) error { return column.EncodeUintOrNull(e, objCtr) }},
		{colObjActor, func(e *bitstream.Encoder) error { return column.EncodeUintOrNull(e, objActor) }},
		{colKeyCtr, func(e *bitstream.Encoder) error { return column.EncodeUintOrNull(e, keyCtr) }},
		{colKeyActor, func(e *bitstream.Encoder) error { return column.EncodeUintOrNull(e, keyActor) }},
		{colKeyStr, func(e *bitstream.Encoder) error { return column.EncodeString(e, keyStr) }},
		{colInsert, func(e *bitstream.Encoder) error { return column.EncodeUint(e, insertVals) }},
		{colValLen, func(e *bitstream.Encoder) error { return column.EncodeUint(e, valLen) }},
		{colPredNum, func(e *bitstream.Encoder) error { return column.EncodeUint(e, predNum) }},
		{colPredCtr, func(e *bitstream.Encoder) error { return column.EncodeDeltaInt(e, predCtrFlat) }},
		{colPredActor, func(e *bitstream.Encoder) error { return column.EncodeUint(e, predActorFlat) }},
	}

	for _, c := range cols {
		body := bitstream.NewEncoder()
		if err := c.enc(body); err != nil {
			return err
		}
		if err := e.AppendUvarint(uint64(c.id)); err != nil {
			return err
		}
		if err := e.AppendBytes(body.Bytes()); err != nil {
			return err
		}
	}
	// colValRaw is raw bytes, not itself RLE-encoded.
	if err := e.AppendUvarint(uint64(colValRaw)); err != nil {
		return err
	}
	if err := e.AppendBytes(valRaw); err != nil {
		return err
	}
	return nil
}

func decodeBody(body []byte, opts DecodeOptions) (*Change, error) {
	d := bitstream.NewDecoder(body)
	c := &Change{}

	actorBytes, err := d.ReadBytes()
	if err != nil {
		return nil, err
	}
	c.Actor = opid.Actor(actorBytes)

	if c.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if c.StartOp, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	t, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	c.Time = int64(t)
	if c.Message, err = d.ReadString(); err != nil {
		return nil, err
	}

	numOthers, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	others := make([]opid.Actor, numOthers)
	for i := range others {
		b, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		others[i] = opid.Actor(b)
	}
	table, err := opid.NewDecodeTable(c.Actor, others)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsortedActors, err)
	}

	numDeps, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	c.Deps = make([]Hash, numDeps)
	for i := range c.Deps {
		raw, err := d.ReadRaw(32)
		if err != nil {
			return nil, err
		}
		copy(c.Deps[i][:], raw)
		if i > 0 && !c.Deps[i-1].Less(c.Deps[i]) {
			return nil, ErrUnsortedDeps
		}
	}

	ops, err := decodeColumns(d, table, opts)
	if err != nil {
		return nil, err
	}
	c.Ops = ops
	return c, nil
}

func decodeColumns(d *bitstream.Decoder, table *opid.Table, opts DecodeOptions) ([]Op, error) {
	raw := map[int][]byte{}
	for !d.Done() {
		id, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		body, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		if !isKnownColumn(int(id)) {
			if opts.StrictColumns {
				return nil, fmt.Errorf("%w: %d", ErrUnknownColumn, id)
			}
			continue
		}
		raw[int(id)] = body
	}

	actionVals, n, err := decodeUintColumn(raw[colAction])
	if err != nil {
		return nil, err
	}
	objCtr, _, err := decodeUintOrNullColumn(raw[colObjCtr], n)
	if err != nil {
		return nil, err
	}
	objActor, _, err := decodeUintOrNullColumn(raw[colObjActor], n)
	if err != nil {
		return nil, err
	}
	keyCtr, _, err := decodeUintOrNullColumn(raw[colKeyCtr], n)
	if err != nil {
		return nil, err
	}
	keyActor, _, err := decodeUintOrNullColumn(raw[colKeyActor], n)
	if err != nil {
		return nil, err
	}
	keyStr, err := column.DecodeString(bitstream.NewDecoder(raw[colKeyStr]), n)
	if err != nil {
		return nil, err
	}
	insertVals, _, err := decodeUintColumn(raw[colInsert])
	if err != nil {
		return nil, err
	}
	valLen, _, err := decodeUintColumn(raw[colValLen])
	if err != nil {
		return nil, err
	}
	valRaw := raw[colValRaw]
	predNum, _, err := decodeUintColumn(raw[colPredNum])
	if err != nil {
		return nil, err
	}
	totalPred := 0
	for _, pn := range predNum {
		totalPred += int(pn)
	}
	predCtrFlat, err := column.DecodeDeltaInt(bitstream.NewDecoder(raw[colPredCtr]), totalPred)
	if err != nil {
		return nil, err
	}
	predActorFlat, err := column.DecodeUint(bitstream.NewDecoder(raw[colPredActor]), totalPred)
	if err != nil {
		return nil, err
	}

	if len(actionVals) != n || len(objCtr) != n || len(objActor) != n || len(keyCtr) != n ||
		len(keyActor) != n || len(keyStr) != n || len(insertVals) != n || len(valLen) != n || len(predNum) != n {
		return nil, ErrMalformedOps
	}

	valOff := 0
	predOff := 0
	ops := make([]Op, n)
	for i := 0; i < n; i++ {
		action, objTyp, err := actionFromCode(actionVals[i])
		if err != nil {
			return nil, err
		}
		op := Op{Action: action, ObjTyp: objTyp}

		if objCtr[i] == nil {
			op.Obj = opid.RootSentinel
		} else {
			actor, err := table.ByIndex(int(*objActor[i]))
			if err != nil {
				return nil, err
			}
			op.Obj = opid.ID{Counter: *objCtr[i], Actor: actor}
		}

		switch {
		case keyStr[i] != nil:
			op.Key = MapKeyOf(*keyStr[i])
		case keyCtr[i] != nil && *keyCtr[i] == 0 && keyActor[i] != nil && *keyActor[i] == 0:
			op.Key = HeadKey()
		case keyCtr[i] != nil:
			actor, err := table.ByIndex(int(*keyActor[i]))
			if err != nil {
				return nil, err
			}
			op.Key = ElemKeyOf(opid.ID{Counter: *keyCtr[i], Actor: actor})
		default:
			return nil, fmt.Errorf("change: op %d has no key", i)
		}

		op.Insert = insertVals[i] != 0

		vlen := int(valLen[i])
		if valOff+vlen > len(valRaw) {
			return nil, ErrMalformedOps
		}
		val, err := decodeValue(valRaw[valOff:valOff+vlen], table)
		if err != nil {
			return nil, err
		}
		op.Value = val
		valOff += vlen

		pn := int(predNum[i])
		op.Pred = make([]opid.ID, pn)
		for j := 0; j < pn; j++ {
			actor, err := table.ByIndex(int(predActorFlat[predOff]))
			if err != nil {
				return nil, err
			}
			op.Pred[j] = opid.ID{Counter: uint64(*predCtrFlat[predOff]), Actor: actor}
			predOff++
		}

		ops[i] = op
	}
	return ops, nil
}

func isKnownColumn(id int) bool {
	switch id {
	case colAction, colObjCtr, colObjActor, colKeyCtr, colKeyActor, colKeyStr,
		colInsert, colValLen, colValRaw, colPredNum, colPredCtr, colPredActor:
		return true
	default:
		return false
	}
}

func decodeUintColumn(body []byte) ([]uint64, int, error) {
	// length is implied by caller context (action column defines n; others
	// are decoded against that same n by the caller), but to decode we must
	// know n up front for columns whose count is self-describing only via
	// total run lengths. We instead decode greedily until the column's own
	// bytes are exhausted: every RLE column encodes an exact value count
	// once fully consumed, so looping to Done() recovers the count.
	d := bitstream.NewDecoder(body)
	var out []uint64
	for !d.Done() {
		header, err := d.ReadVarint()
		if err != nil {
			return nil, 0, err
		}
		switch {
		case header > 0:
			v, err := d.ReadUvarint()
			if err != nil {
				return nil, 0, err
			}
			for k := int64(0); k < header; k++ {
				out = append(out, v)
			}
		case header < 0:
			for k := int64(0); k < -header; k++ {
				v, err := d.ReadUvarint()
				if err != nil {
					return nil, 0, err
				}
				out = append(out, v)
			}
		default:
			nulls, err := d.ReadUvarint()
			if err != nil {
				return nil, 0, err
			}
			for k := uint64(0); k < nulls; k++ {
				out = append(out, 0)
			}
		}
	}
	return out, len(out), nil
}

func decodeUintOrNullColumn(body []byte, n int) ([]*uint64, int, error) {
	out, err := column.DecodeUintOrNull(bitstream.NewDecoder(body), n)
	return out, len(out), err
}
