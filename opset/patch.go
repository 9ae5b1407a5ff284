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

package opset

import (
	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/opid"
)

// EditKind tags a list/text structural edit.
type EditKind byte

const (
	EditInsert EditKind = iota
	EditRemove
)

// Edit is a single positional list/text structural change, emitted in the
// order the index was mutated.
type Edit struct {
	Kind  EditKind
	Index int
	Elem  opid.ID
}

// ValuePatch is one concurrent winner at a field: the value an observer
// would see if they picked this particular op.
type ValuePatch struct {
	OpID  opid.ID
	Value change.Value
	// Child is set when this value is itself an object reference (the op
	// created or linked a child object); embedders walk into Child instead
	// of reading Value.
	Child *ObjectPatch
}

// ObjectPatch describes everything one change touched on one object. Keys
// in Props are map keys for map/table objects; for lists/text they start
// out as textual element IDs and are rewritten to integer-index strings by
// reindexProps once every op in the change has been applied.
type ObjectPatch struct {
	ObjectID opid.ID
	Type     change.ObjType
	Props    map[string][]ValuePatch
	Edits    []Edit
}

// Patch is the full structural description of one applied change, keyed by
// the objects it touched, in first-touched order.
type Patch struct {
	order   []opid.ID
	Objects map[opid.ID]*ObjectPatch
}

func newPatch() *Patch {
	return &Patch{Objects: make(map[opid.ID]*ObjectPatch)}
}

func (p *Patch) objectPatch(obj *Object) *ObjectPatch {
	op, ok := p.Objects[obj.ID]
	if !ok {
		op = &ObjectPatch{ObjectID: obj.ID, Type: obj.Type, Props: make(map[string][]ValuePatch)}
		p.Objects[obj.ID] = op
		p.order = append(p.order, obj.ID)
	}
	return op
}

// Ordered returns the touched objects in first-touched order (a newly made
// object comes before the parent it is assigned into),
// so embedders can apply them as a flat sequence without a tree walk.
func (p *Patch) Ordered() []*ObjectPatch {
	out := make([]*ObjectPatch, len(p.order))
	for i, id := range p.order {
		out[i] = p.Objects[id]
	}
	return out
}
