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

package bloom

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/crdtengine/change"
)

func hashOf(s string) change.Hash {
	return sha256.Sum256([]byte(s))
}

func TestEmptyFilterContainsNothing(t *testing.T) {
	f := New(nil)
	require.False(t, f.Contains(hashOf("anything")))

	blob, err := f.Encode()
	require.NoError(t, err)
	require.Empty(t, blob)

	got, err := Decode(blob)
	require.NoError(t, err)
	require.False(t, got.Contains(hashOf("anything")))
}

func TestContainsAllMembers(t *testing.T) {
	hashes := make([]change.Hash, 50)
	for i := range hashes {
		hashes[i] = hashOf(string(rune('a' + i%26)) + string(rune(i)))
	}
	f := New(hashes)
	for _, h := range hashes {
		require.True(t, f.Contains(h))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hashes := []change.Hash{hashOf("one"), hashOf("two"), hashOf("three")}
	f := New(hashes)

	blob, err := f.Encode()
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	got, err := Decode(blob)
	require.NoError(t, err)
	for _, h := range hashes {
		require.True(t, got.Contains(h))
	}

	reblob, err := got.Encode()
	require.NoError(t, err)
	require.Equal(t, blob, reblob)
}

func TestAbsentHashUsuallyNotContained(t *testing.T) {
	hashes := []change.Hash{hashOf("present")}
	f := New(hashes)
	// Not a property test (false positives are allowed by design) — just
	// sanity-checks that an arbitrary unrelated hash isn't always reported
	// as a member by a single-entry filter.
	require.False(t, f.Contains(hashOf("absent-and-different-enough")))
}
