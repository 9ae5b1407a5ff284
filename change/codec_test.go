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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/crdtengine/opid"
)

func actor(b byte) opid.Actor { return opid.Actor([]byte{b}) }

func sampleChange() *Change {
	return &Change{
		Actor:   actor(0x01),
		Seq:     1,
		StartOp: 1,
		Time:    1000,
		Message: "hello",
		Deps:    nil,
		Ops: []Op{
			{Action: ActionMake, ObjTyp: ObjText, Obj: opid.RootSentinel, Key: MapKeyOf("text")},
			{
				Action: ActionSet,
				Obj:    opid.ID{Counter: 1, Actor: actor(0x01)},
				Key:    HeadKey(),
				Insert: true,
				Value:  String("h"),
			},
			{
				Action: ActionSet,
				Obj:    opid.ID{Counter: 1, Actor: actor(0x01)},
				Key:    HeadKey(),
				Insert: true,
				Value:  String("H"),
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := sampleChange()
	blob, err := Encode(c)
	require.NoError(t, err)
	require.Equal(t, byte(Version), blob[0])

	got, err := Decode(blob, DecodeOptions{})
	require.NoError(t, err)
	require.Equal(t, c.Actor, got.Actor)
	require.Equal(t, c.Seq, got.Seq)
	require.Equal(t, c.StartOp, got.StartOp)
	require.Equal(t, c.Time, got.Time)
	require.Equal(t, c.Message, got.Message)
	require.Len(t, got.Ops, len(c.Ops))
	for i := range c.Ops {
		require.Equal(t, c.Ops[i].Action, got.Ops[i].Action)
		require.Equal(t, c.Ops[i].Obj, got.Ops[i].Obj)
		require.Equal(t, c.Ops[i].Key, got.Ops[i].Key)
		require.Equal(t, c.Ops[i].Insert, got.Ops[i].Insert)
		require.True(t, c.Ops[i].Value.Equal(got.Ops[i].Value))
	}
}

func TestHashStableAcrossReencode(t *testing.T) {
	c := sampleChange()
	h1, err := c.Hash()
	require.NoError(t, err)

	blob, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(blob, DecodeOptions{})
	require.NoError(t, err)
	h2, err := got.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHashIgnoresTransportMetadataOnly(t *testing.T) {
	// Two changes with identical logical content must hash identically even
	// if constructed independently (no hidden non-determinism from map
	// iteration order etc).
	c1 := sampleChange()
	c2 := sampleChange()
	h1, err := c1.Hash()
	require.NoError(t, err)
	h2, err := c2.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestMultiActorPredEncoding(t *testing.T) {
	a, b := actor(0x01), actor(0x02)
	c := &Change{
		Actor:   a,
		Seq:     2,
		StartOp: 5,
		Time:    1,
		Ops: []Op{
			{
				Action: ActionSet,
				Obj:    opid.RootSentinel,
				Key:    MapKeyOf("x"),
				Value:  Int(42),
				Pred: []opid.ID{
					{Counter: 3, Actor: b},
					{Counter: 4, Actor: a},
				},
			},
		},
	}
	blob, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(blob, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, got.Ops[0].Pred, 2)
	// Pred comes back out Lamport-sorted: (3@b) before (4@a) since counter
	// 3 < 4 regardless of actor.
	require.Equal(t, uint64(3), got.Ops[0].Pred[0].Counter)
	require.Equal(t, b, got.Ops[0].Pred[0].Actor)
	require.Equal(t, uint64(4), got.Ops[0].Pred[1].Counter)
	require.Equal(t, a, got.Ops[0].Pred[1].Actor)
}

func TestCounterDatatypeRoundTrip(t *testing.T) {
	c := &Change{
		Actor: actor(0x01), Seq: 1, StartOp: 1,
		Ops: []Op{
			{Action: ActionSet, Obj: opid.RootSentinel, Key: MapKeyOf("n"), Value: Int(0).WithDatatype(DatatypeCounter)},
		},
	}
	blob, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(blob, DecodeOptions{})
	require.NoError(t, err)
	require.True(t, got.Ops[0].Value.IsCounter())
	require.Equal(t, int64(0), got.Ops[0].Value.Int)
}

func TestUnknownActionRejected(t *testing.T) {
	_, _, err := actionFromCode(999)
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestUnknownColumnSkippedUnlessStrict(t *testing.T) {
	c := sampleChange()
	blob, err := Encode(c)
	require.NoError(t, err)

	// Append a bogus trailing column (id 100, empty body) to simulate a
	// forward-compatible writer using a column this decoder predates.
	tagged := append([]byte(nil), blob...)
	tagged = append(tagged, 100, 0)

	_, err = Decode(tagged, DecodeOptions{})
	require.NoError(t, err)

	_, err = Decode(tagged, DecodeOptions{StrictColumns: true})
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestHeadKeyIsNotMapKey(t *testing.T) {
	k := HeadKey()
	require.True(t, k.IsHead())
	require.False(t, k.IsMapKey())
}

func TestRefValueRoundTrip(t *testing.T) {
	a := actor(0x01)
	target := opid.ID{Counter: 7, Actor: actor(0x02)}
	c := &Change{
		Actor: a, Seq: 1, StartOp: 1,
		Ops: []Op{
			{Action: ActionLink, Obj: opid.RootSentinel, Key: MapKeyOf("ref"), Value: RefValue(target)},
		},
	}
	blob, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(blob, DecodeOptions{})
	require.NoError(t, err)
	require.Equal(t, KindRef, got.Ops[0].Value.Kind)
	require.Equal(t, target, got.Ops[0].Value.Ref)
}
