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

package opid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	id, err := Parse("3@01ab")
	require.NoError(t, err)
	require.Equal(t, uint64(3), id.Counter)
	require.Equal(t, "3@01ab", id.String())

	head, err := Parse("_head")
	require.NoError(t, err)
	require.True(t, head.IsHead())
}

func TestLamportOrder(t *testing.T) {
	a := ID{Counter: 1, Actor: Actor("\x01")}
	b := ID{Counter: 1, Actor: Actor("\x02")}
	c := ID{Counter: 2, Actor: Actor("\x00")}
	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	require.False(t, c.Less(a))
}

func TestActorTableInterning(t *testing.T) {
	author := Actor("\x05")
	tbl := NewTable(author)
	require.Equal(t, 0, tbl.Intern(author))

	other1 := Actor("\x09")
	other2 := Actor("\x01")
	tbl.Intern(other1)
	tbl.Intern(other2)
	// indices are final only once every actor is interned.
	idx1 := tbl.Intern(other1)
	idx2 := tbl.Intern(other2)
	require.NotEqual(t, idx1, idx2)

	// others must come back out sorted lexicographically regardless of
	// intern order.
	others := tbl.Others()
	require.Len(t, others, 2)
	require.Equal(t, other2, others[0])
	require.Equal(t, other1, others[1])

	a1, err := tbl.ByIndex(idx1)
	require.NoError(t, err)
	require.Equal(t, other1, a1)
}

func TestDecodeTableRejectsUnsorted(t *testing.T) {
	_, err := NewDecodeTable(Actor("\x01"), []Actor{"\x05", "\x02"})
	require.Error(t, err)
}
