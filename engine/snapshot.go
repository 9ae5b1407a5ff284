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
	"github.com/erigontech/crdtengine/change"
)

// Snapshot is a versioned read view: Heads is copied at the moment Snapshot was
// taken, so it never changes under the reader even if the live engine goes
// on to apply more changes. GetChangeByHash instead reads through to the
// live engine's change-by-hash table, which is append-only for any hash a
// snapshot could already name — once a hash is applied its raw blob is
// never mutated or removed, only ever joined by new, unrelated hashes — so
// reading through remains race-free for any hash present at snapshot time.
//
// This is narrower than a fully persistent document snapshot: it does not
// freeze materialized object state (opset.State's field maps are plain
// Go maps, not copy-on-write pages), so embedders needing a stable
// materialization must take one without further mutation in between.
type Snapshot struct {
	heads []change.Hash
	g     interface {
		GetChangeByHash(change.Hash) ([]byte, bool)
	}
}

// Heads returns the heads as of when the snapshot was taken.
func (s *Snapshot) Heads() []change.Hash {
	out := make([]change.Hash, len(s.heads))
	copy(out, s.heads)
	return out
}

// GetChangeByHash reads through to the live engine's applied-change table.
func (s *Snapshot) GetChangeByHash(h change.Hash) ([]byte, bool) {
	return s.g.GetChangeByHash(h)
}
