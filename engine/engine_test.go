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

package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/opid"
	"github.com/erigontech/crdtengine/opset"
	"github.com/erigontech/crdtengine/sync"
)

func actor(b byte) opid.Actor { return opid.Actor([]byte{b}) }

func encode(t *testing.T, c *change.Change) ([]byte, change.Hash) {
	t.Helper()
	blob, err := change.Encode(c)
	require.NoError(t, err)
	h, err := c.Hash()
	require.NoError(t, err)
	return blob, h
}

// Three sequential sets of root key "x", each superseding the last, leave
// a single head (the third change) and a three-entry history.
func TestSingleActorSequentialEdits(t *testing.T) {
	a := actor(0x01)
	e := New()

	var hashes []change.Hash
	for i, v := range []int64{0, 1, 2} {
		c := &change.Change{
			Actor: a, Seq: uint64(i + 1), StartOp: uint64(i + 1), Time: int64(i + 1),
			Ops: []change.Op{{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(v)}},
		}
		if i > 0 {
			c.Deps = []change.Hash{hashes[i-1]}
			c.Ops[0].Pred = []opid.ID{{Counter: uint64(i), Actor: a}}
		}
		blob, h := encode(t, c)
		patch, err := e.ApplyLocalChange(blob)
		require.NoError(t, err)
		require.NotNil(t, patch)
		hashes = append(hashes, h)
	}

	heads := e.GetHeads()
	require.Len(t, heads, 1)
	require.Equal(t, hashes[2], heads[0])
	require.Len(t, e.History(), 3)

	root, ok := e.Object(opid.RootSentinel)
	require.True(t, ok)
	require.NotNil(t, root)
}

// Re-applying an already-applied change hash is a no-op beyond the first
// application.
func TestApplyChangeIsIdempotent(t *testing.T) {
	a := actor(0x01)
	e := New()
	c := &change.Change{Actor: a, Seq: 1, StartOp: 1, Ops: []change.Op{
		{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(7)},
	}}
	blob, _ := encode(t, c)

	_, err := e.ApplyLocalChange(blob)
	require.NoError(t, err)
	require.Len(t, e.History(), 1)

	patch, err := e.ApplyLocalChange(blob)
	require.NoError(t, err)
	require.Nil(t, patch)
	require.Len(t, e.History(), 1)
}

// TestUndoHistoryTracksLocalChangesOnly exercises WithUndoHistory.
func TestUndoHistoryTracksLocalChangesOnly(t *testing.T) {
	a := actor(0x01)
	e := New(WithUndoHistory(true))

	c := &change.Change{Actor: a, Seq: 1, StartOp: 1, Ops: []change.Op{
		{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(1)},
	}}
	blob, h := encode(t, c)
	_, err := e.ApplyLocalChange(blob)
	require.NoError(t, err)

	require.Equal(t, []change.Hash{h}, e.UndoableChanges())

	noHistory := New()
	_, err = noHistory.ApplyLocalChange(blob)
	require.NoError(t, err)
	require.Nil(t, noHistory.UndoableChanges())
}

// Two actors each make independent edits, sync bidirectionally, and land
// on identical heads.
func TestTwoActorSyncConverges(t *testing.T) {
	a, b := actor(0x01), actor(0x02)
	ea, eb := New(), New()

	mk := func(act opid.Actor, seq, startOp uint64, v int64, deps []change.Hash, pred []opid.ID) ([]byte, change.Hash) {
		c := &change.Change{Actor: act, Seq: seq, StartOp: startOp, Deps: deps, Ops: []change.Op{
			{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(v), Pred: pred},
		}}
		blob, err := change.Encode(c)
		require.NoError(t, err)
		h, err := c.Hash()
		require.NoError(t, err)
		return blob, h
	}

	blobA, hA := mk(a, 1, 1, 1, nil, nil)
	blobB, hB := mk(b, 1, 1, 2, nil, nil)

	_, err := ea.ApplyLocalChange(blobA)
	require.NoError(t, err)
	_, err = eb.ApplyLocalChange(blobB)
	require.NoError(t, err)
	_ = hA
	_ = hB

	stA, stB := sync.NewState(), sync.NewState()

	for round := 0; round < 6; round++ {
		msgA, err := ea.GenerateSyncMessage(stA)
		require.NoError(t, err)
		msgB, err := eb.GenerateSyncMessage(stB)
		require.NoError(t, err)
		if msgA == nil && msgB == nil {
			break
		}
		if msgA != nil {
			_, err = eb.ReceiveSyncMessage(stB, msgA)
			require.NoError(t, err)
		}
		if msgB != nil {
			_, err = ea.ReceiveSyncMessage(stA, msgB)
			require.NoError(t, err)
		}
	}

	headsA, headsB := ea.GetHeads(), eb.GetHeads()
	require.Len(t, headsA, 2)
	require.ElementsMatch(t, headsA, headsB)
}

// Encoding a decoded sync state must reproduce the original bytes for
// well-formed input.
func TestSyncStateEncodeDecodeRoundTrips(t *testing.T) {
	e := New()
	h := change.Hash{1, 2, 3}
	st := sync.NewState()
	st.SharedHeads = []change.Hash{h}

	blob := e.EncodeSyncState(st)
	decoded, err := e.DecodeSyncState(blob)
	require.NoError(t, err)
	require.Equal(t, blob, e.EncodeSyncState(decoded))
}

// TestIncNoTargetOptionPropagatesToUsageError wires WithIncNoTargetError
// through to the engine's classified usage-error taxonomy.
func TestIncNoTargetOptionPropagatesToUsageError(t *testing.T) {
	a := actor(0x01)
	e := New(WithIncNoTargetError(true))

	c1 := &change.Change{Actor: a, Seq: 1, StartOp: 1, Ops: []change.Op{
		{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("n"), Value: change.Int(5)},
	}}
	blob1, h1 := encode(t, c1)
	_, err := e.ApplyLocalChange(blob1)
	require.NoError(t, err)

	c2 := &change.Change{Actor: a, Seq: 2, StartOp: 2, Deps: []change.Hash{h1}, Ops: []change.Op{
		{Action: change.ActionInc, Obj: opid.RootSentinel, Key: change.MapKeyOf("n"), Value: change.Int(1),
			Pred: []opid.ID{{Counter: 1, Actor: a}}},
	}}
	blob2, _ := encode(t, c2)

	_, err = e.ApplyLocalChange(blob2)
	require.Error(t, err)
	var tagged *Error
	require.True(t, errors.As(err, &tagged))
	require.Equal(t, KindUsage, tagged.Kind)
	require.Len(t, e.History(), 1, "rejected change must not be recorded")
}

// TestClassifyTagsUnknownHashAsUsageError exercises the error taxonomy.
func TestClassifyTagsUnknownHashAsUsageError(t *testing.T) {
	e := New()
	_, err := e.GetChanges([]change.Hash{{9, 9, 9}})
	require.Error(t, err)
	var tagged *Error
	require.True(t, errors.As(err, &tagged))
	require.Equal(t, KindUsage, tagged.Kind)
}

// TestSnapshotHeadsAreFrozenAtCaptureTime exercises the versioned-snapshot
// behavior.
func TestSnapshotHeadsAreFrozenAtCaptureTime(t *testing.T) {
	a := actor(0x01)
	e := New()
	c1 := &change.Change{Actor: a, Seq: 1, StartOp: 1, Ops: []change.Op{
		{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(1)},
	}}
	blob1, h1 := encode(t, c1)
	_, err := e.ApplyLocalChange(blob1)
	require.NoError(t, err)

	snap := e.Snapshot()
	require.Equal(t, []change.Hash{h1}, snap.Heads())

	c2 := &change.Change{Actor: a, Seq: 2, StartOp: 2, Deps: []change.Hash{h1}, Ops: []change.Op{
		{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(2),
			Pred: []opid.ID{{Counter: 1, Actor: a}}},
	}}
	blob2, _ := encode(t, c2)
	_, err = e.ApplyLocalChange(blob2)
	require.NoError(t, err)

	require.Equal(t, []change.Hash{h1}, snap.Heads())
	require.Len(t, e.GetHeads(), 1)

	raw, ok := snap.GetChangeByHash(h1)
	require.True(t, ok)
	require.Equal(t, blob1, raw)
}

// Two peers applying the same change set must produce structurally equal
// documents. Checked at the patch level: independently replaying the identical
// change blob against two fresh engines must yield byte-for-byte identical
// patch trees, compared structurally with go-cmp rather than field by
// field.
func TestReplicasProduceStructurallyIdenticalPatches(t *testing.T) {
	a := actor(0x01)
	c := &change.Change{Actor: a, Seq: 1, StartOp: 1, Time: 100, Ops: []change.Op{
		{Action: change.ActionSet, Obj: opid.RootSentinel, Key: change.MapKeyOf("x"), Value: change.Int(42)},
	}}
	blob, _ := encode(t, c)

	e1, e2 := New(), New()
	p1, err := e1.ApplyLocalChange(blob)
	require.NoError(t, err)
	p2, err := e2.ApplyLocalChange(blob)
	require.NoError(t, err)

	if diff := cmp.Diff(p1, p2, cmp.AllowUnexported(opset.Patch{})); diff != "" {
		t.Fatalf("patches diverged between replicas (-e1 +e2):\n%s", diff)
	}
	require.ElementsMatch(t, e1.GetHeads(), e2.GetHeads())
}
