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

package listindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/opid"
)

func elem(c uint64, a byte) opid.ID {
	return opid.ID{Counter: c, Actor: opid.Actor([]byte{a})}
}

func TestInsertAtAppendAndPrepend(t *testing.T) {
	x := New()
	require.NoError(t, x.InsertAt(0, elem(1, 1), change.String("a")))
	require.NoError(t, x.InsertAt(1, elem(2, 1), change.String("b")))
	require.NoError(t, x.InsertAt(0, elem(3, 1), change.String("c")))
	require.Equal(t, []opid.ID{elem(3, 1), elem(1, 1), elem(2, 1)}, x.Elements())
	require.Equal(t, 3, x.Len())
}

func TestIndexOfMatchesPosition(t *testing.T) {
	x := New()
	ids := make([]opid.ID, 10)
	for i := 0; i < 10; i++ {
		ids[i] = elem(uint64(i), byte(i%3+1))
		require.NoError(t, x.InsertAt(i, ids[i], change.Null()))
	}
	for i, id := range ids {
		idx, ok := x.IndexOf(id)
		require.True(t, ok)
		require.Equal(t, i, idx)
	}
}

func TestElemAtMatchesElements(t *testing.T) {
	x := New()
	for i := 0; i < 20; i++ {
		require.NoError(t, x.InsertAt(x.Len(), elem(uint64(i), 1), change.Uint(uint64(i))))
	}
	want := x.Elements()
	for i, id := range want {
		got, err := x.ElemAt(i)
		require.NoError(t, err)
		require.Equal(t, id, got)
	}
}

func TestRemoveAtShiftsSubsequentIndices(t *testing.T) {
	x := New()
	for i := 0; i < 5; i++ {
		require.NoError(t, x.InsertAt(i, elem(uint64(i), 1), change.Null()))
	}
	removed, err := x.RemoveAt(2)
	require.NoError(t, err)
	require.Equal(t, elem(2, 1), removed)
	require.Equal(t, 4, x.Len())
	require.False(t, x.Contains(elem(2, 1)))

	idx, ok := x.IndexOf(elem(3, 1))
	require.True(t, ok)
	require.Equal(t, 2, idx)
	idx, ok = x.IndexOf(elem(4, 1))
	require.True(t, ok)
	require.Equal(t, 3, idx)
}

func TestRemoveElemByID(t *testing.T) {
	x := New()
	for i := 0; i < 5; i++ {
		require.NoError(t, x.InsertAt(i, elem(uint64(i), 1), change.Null()))
	}
	idx, err := x.RemoveElem(elem(3, 1))
	require.NoError(t, err)
	require.Equal(t, 3, idx)
	require.False(t, x.Contains(elem(3, 1)))

	_, err = x.RemoveElem(elem(99, 1))
	require.ErrorIs(t, err, ErrUnknownElement)
}

func TestOutOfRangeErrors(t *testing.T) {
	x := New()
	require.ErrorIs(t, x.InsertAt(1, elem(1, 1), change.Null()), ErrOutOfRange)
	require.NoError(t, x.InsertAt(0, elem(1, 1), change.Null()))
	_, err := x.RemoveAt(5)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = x.ElemAt(5)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestShadowGetSet(t *testing.T) {
	x := New()
	id := elem(1, 1)
	require.NoError(t, x.InsertAt(0, id, change.String("initial")))
	v, ok := x.Shadow(id)
	require.True(t, ok)
	require.True(t, v.Equal(change.String("initial")))

	require.NoError(t, x.SetShadow(id, change.String("updated")))
	v, ok = x.Shadow(id)
	require.True(t, ok)
	require.True(t, v.Equal(change.String("updated")))

	require.ErrorIs(t, x.SetShadow(elem(2, 1), change.Null()), ErrUnknownElement)
}

func TestDuplicateInsertRejected(t *testing.T) {
	x := New()
	id := elem(1, 1)
	require.NoError(t, x.InsertAt(0, id, change.Null()))
	require.Error(t, x.InsertAt(0, id, change.Null()))
}
