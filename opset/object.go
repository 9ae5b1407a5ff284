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
	"sort"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/listindex"
	"github.com/erigontech/crdtengine/opid"
)

// LiveOp is one operation currently visible at a field, paired with the op
// ID it was assigned (op.Obj/op.Key are the op's own fields; OpID is what
// other ops' Pred sets reference to supersede it).
type LiveOp struct {
	OpID opid.ID
	Op   change.Op
}

// Object is the state of one document object: a field map
// (keyed by map-key string, or by element ID for lists/text), the inbound
// back-reference set, and — for lists/text — the RGA insertion tree plus
// the order-statistics index over currently-visible elements.
type Object struct {
	ID   opid.ID
	Type change.ObjType

	fields  map[string][]LiveOp  // map objects
	elemOps map[opid.ID][]LiveOp // list/text objects, keyed by element id

	inbound map[opid.ID]struct{}

	// RGA insertion tree: following[parent] lists parent's direct children,
	// kept sorted Lamport-descending.
	// parent == opid.HeadSentinel for top-level (document-head) children.
	following       map[opid.ID][]opid.ID
	insertionParent map[opid.ID]opid.ID

	// Index is non-nil only for list/text objects.
	Index *listindex.Index
}

func newObject(id opid.ID, typ change.ObjType) *Object {
	o := &Object{
		ID:      id,
		Type:    typ,
		inbound: make(map[opid.ID]struct{}),
	}
	if typ == change.ObjMap || typ == change.ObjTable {
		o.fields = make(map[string][]LiveOp)
	} else {
		o.elemOps = make(map[opid.ID][]LiveOp)
		o.following = map[opid.ID][]opid.ID{opid.HeadSentinel: nil}
		o.insertionParent = make(map[opid.ID]opid.ID)
		o.Index = listindex.New()
	}
	return o
}

func (o *Object) isListLike() bool {
	return o.Type == change.ObjList || o.Type == change.ObjText
}

// insertChild records elem as a new child of parent in the RGA tree,
// maintaining the Lamport-descending sibling order.
func (o *Object) insertChild(parent, elem opid.ID) {
	siblings := o.following[parent]
	i := sort.Search(len(siblings), func(i int) bool { return siblings[i].Less(elem) })
	siblings = append(siblings, opid.ID{})
	copy(siblings[i+1:], siblings[i:])
	siblings[i] = elem
	o.following[parent] = siblings
	o.insertionParent[elem] = parent
	o.elemOps[elem] = nil
}

// getNext returns the element immediately after elem in document order, or
// the zero ID with ok=false at the end of the document. elem may be
// opid.HeadSentinel to start traversal from the beginning.
func (o *Object) getNext(elem opid.ID) (opid.ID, bool) {
	if children := o.following[elem]; len(children) > 0 {
		return children[0], true
	}
	cur := elem
	for !cur.IsHead() {
		parent := o.insertionParent[cur]
		siblings := o.following[parent]
		idx := indexOfElem(siblings, cur)
		if idx+1 < len(siblings) {
			return siblings[idx+1], true
		}
		cur = parent
	}
	return opid.ID{}, false
}

// getPrevious returns the element immediately before elem in document
// order, or ok=false if elem is the first element (or the head sentinel).
func (o *Object) getPrevious(elem opid.ID) (opid.ID, bool) {
	if elem.IsHead() {
		return opid.ID{}, false
	}
	parent := o.insertionParent[elem]
	siblings := o.following[parent]
	idx := indexOfElem(siblings, elem)
	if idx == 0 {
		if parent.IsHead() {
			return opid.ID{}, false
		}
		return parent, true
	}
	cur := siblings[idx-1]
	for {
		children := o.following[cur]
		if len(children) == 0 {
			return cur, true
		}
		cur = children[len(children)-1]
	}
}

func indexOfElem(s []opid.ID, id opid.ID) int {
	for i, e := range s {
		if e == id {
			return i
		}
	}
	return -1
}

// lamportDescending sorts ops by Lamport op ID descending — the canonical
// visible-ops order.
func lamportDescending(ops []LiveOp) {
	sort.Slice(ops, func(i, j int) bool { return ops[j].OpID.Less(ops[i].OpID) })
}
