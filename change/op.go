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
	"sort"

	"github.com/erigontech/crdtengine/opid"
)

// Action is the tagged operation kind. Using a single enum
// with one Make action (carrying the object kind as data) rather than four
// separate Make* actions keeps dispatch a plain switch.
type Action byte

const (
	ActionMake Action = iota
	ActionSet
	ActionDel
	ActionInc
	ActionLink
)

// ObjType is the immutable type tag an object is created with.
type ObjType byte

const (
	ObjMap ObjType = iota
	ObjList
	ObjText
	ObjTable
)

func (t ObjType) String() string {
	switch t {
	case ObjMap:
		return "map"
	case ObjList:
		return "list"
	case ObjText:
		return "text"
	case ObjTable:
		return "table"
	default:
		return "unknown"
	}
}

// actionTable fixes the wire index for each (Action, ObjType) pair so the
// "action" column can be a plain RLE uint. Index 0 is set; a code at or
// past the end of the table is rejected as "unknown action".
var actionTable = []struct {
	action Action
	objTyp ObjType
	isMake bool
}{
	{action: ActionSet, isMake: false},
	{action: ActionDel, isMake: false},
	{action: ActionInc, isMake: false},
	{action: ActionLink, isMake: false},
	{action: ActionMake, objTyp: ObjMap, isMake: true},
	{action: ActionMake, objTyp: ObjList, isMake: true},
	{action: ActionMake, objTyp: ObjText, isMake: true},
	{action: ActionMake, objTyp: ObjTable, isMake: true},
}

func actionCode(a Action, t ObjType) (uint64, error) {
	for i, e := range actionTable {
		if e.isMake && a == ActionMake && e.objTyp == t {
			return uint64(i), nil
		}
		if !e.isMake && e.action == a {
			return uint64(i), nil
		}
	}
	return 0, fmt.Errorf("change: no action code for %v/%v", a, t)
}

func actionFromCode(code uint64) (Action, ObjType, error) {
	if code >= uint64(len(actionTable)) {
		return 0, 0, fmt.Errorf("%w: unknown action code %d", ErrUnknownAction, code)
	}
	e := actionTable[code]
	return e.action, e.objTyp, nil
}

// Key is either a map-key string or a list/text element reference. Exactly
// one of the two forms applies.
type Key struct {
	MapKey *string  // non-nil => map key
	Elem   opid.ID  // used when MapKey == nil; Elem.IsHead() => "_head"
}

// MapKeyOf constructs a map-key Key.
func MapKeyOf(s string) Key { return Key{MapKey: &s} }

// ElemKeyOf constructs a list/text Key referencing an existing element.
func ElemKeyOf(id opid.ID) Key { return Key{Elem: id} }

// HeadKey is the Key meaning "insert at the beginning of the list".
func HeadKey() Key { return Key{Elem: opid.HeadSentinel} }

// IsMapKey reports whether k is a string map key.
func (k Key) IsMapKey() bool { return k.MapKey != nil }

// IsHead reports whether k is the head-insert sentinel.
func (k Key) IsHead() bool { return k.MapKey == nil && k.Elem.IsHead() }

func (k Key) String() string {
	if k.IsMapKey() {
		return *k.MapKey
	}
	return k.Elem.String()
}

// Op is one logical operation inside a change. Obj and Pred
// carry fully resolved op IDs (real actor bytes); the columnar codec is
// responsible for rewriting these to/from the change's actor-index table.
type Op struct {
	Action Action
	ObjTyp ObjType // meaningful only when Action == ActionMake
	Obj    opid.ID // target object; opid.RootSentinel for the document root
	Key    Key
	Insert bool
	Value  Value
	Pred   []opid.ID
}

// SortedPred returns a copy of op.Pred sorted into Lamport order, the
// canonical order the codec requires before delta-encoding pred_ctr; op
// IDs within a set need the same determinism as deps and the other-actor
// table, so the sorted-order rule extends to Pred.
func (op Op) SortedPred() []opid.ID {
	out := make([]opid.ID, len(op.Pred))
	copy(out, op.Pred)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
