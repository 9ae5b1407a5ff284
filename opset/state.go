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

// Package opset is the op-set state machine: it applies the
// operations of one causally-ready change against the per-object field
// maps and list-order indices, resolves conflicts, and produces a patch.
package opset

import (
	"fmt"
	"strconv"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/opid"
)

// Options tunes behavior deliberately left configurable.
type Options struct {
	// IncNoTargetIsError makes an inc op against a field with no eligible
	// counter a usage error instead of the default silent no-op
	//.
	IncNoTargetIsError bool
}

// State holds every object in the document, keyed by object ID.
type State struct {
	objects map[opid.ID]*Object
	// seen records every applied op ID. Live field maps shed superseded
	// ops, so uniqueness needs its own ledger: a reused counter on a plain
	// set/del/inc would otherwise slip through unnoticed.
	seen map[opid.ID]struct{}
	opts Options
}

// New returns a state with just the document root (an empty map object).
func New(opts Options) *State {
	s := &State{
		objects: make(map[opid.ID]*Object),
		seen:    make(map[opid.ID]struct{}),
		opts:    opts,
	}
	s.objects[opid.RootSentinel] = newObject(opid.RootSentinel, change.ObjMap)
	return s
}

// Object returns the object with the given ID, if any.
func (s *State) Object(id opid.ID) (*Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// ApplyChange applies every op of c in order and returns the resulting
// patch. On any fatal error no state is
// mutated: every op is validated against the pre-change object set (plus
// objects this same change creates) before any mutation begins.
func (s *State) ApplyChange(c *change.Change) (*Patch, error) {
	if err := s.validate(c); err != nil {
		return nil, err
	}
	patch := newPatch()
	for i, op := range c.Ops {
		if err := s.applyOp(c.OpID(i), op, patch); err != nil {
			return nil, fmt.Errorf("opset: invariant violated applying validated op: %w", err)
		}
	}
	for i := range c.Ops {
		s.seen[c.OpID(i)] = struct{}{}
	}
	if err := s.reindexProps(patch); err != nil {
		return nil, err
	}
	return patch, nil
}

// validate performs the structural checks that must hold before any
// mutation: every op ID is globally fresh, every referenced object
// resolves (either pre-existing or created earlier in this same change),
// object IDs are not reused, and insert/element-key ops only target
// list/text objects.
func (s *State) validate(c *change.Change) error {
	created := make(map[opid.ID]change.ObjType, len(c.Ops))
	resolveType := func(id opid.ID) (change.ObjType, bool) {
		if t, ok := created[id]; ok {
			return t, true
		}
		if obj, ok := s.objects[id]; ok {
			return obj.Type, true
		}
		return 0, false
	}

	for i, op := range c.Ops {
		opID := c.OpID(i)
		if _, dup := s.seen[opID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOpID, opID)
		}
		typ, ok := resolveType(op.Obj)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownObject, op.Obj)
		}

		if op.Action == change.ActionMake {
			if _, exists := resolveType(opID); exists {
				return fmt.Errorf("%w: %s", ErrDuplicateObject, opID)
			}
			created[opID] = op.ObjTyp
		}

		isListLike := typ == change.ObjList || typ == change.ObjText
		if op.Insert {
			if !isListLike {
				return fmt.Errorf("%w: %s", ErrNotListObject, op.Obj)
			}
			if real, ok := s.objects[op.Obj]; ok {
				if _, dup := real.insertionParent[opID]; dup {
					return fmt.Errorf("%w: %s", ErrDuplicateElement, opID)
				}
			}
		} else if !op.Key.IsMapKey() && !op.Key.IsHead() && !isListLike {
			return fmt.Errorf("%w: element-id key against non-list object %s", ErrMalformedOp, op.Obj)
		}

		if op.Action == change.ActionInc && s.opts.IncNoTargetIsError && !s.incHasTarget(op) {
			return fmt.Errorf("%w: %s has no eligible counter among its pred set", ErrIncNoTarget, op.Obj)
		}
	}
	return nil
}

// incHasTarget reports whether op (an inc) overwrites at least one
// currently-live set-of-a-counter op at its target field, using
// pre-change state. The default behavior
// is a silent no-op regardless of the answer; this check only runs when
// Options.IncNoTargetIsError opts into treating it as a usage error
// instead. An inc whose pred references an op created earlier in this
// same change (rather than already-applied state) is not visible to this
// pre-change check — a narrow limitation noted in DESIGN.md.
func (s *State) incHasTarget(op change.Op) bool {
	obj, ok := s.objects[op.Obj]
	if !ok {
		return false
	}
	var current []LiveOp
	if obj.isListLike() {
		current = obj.elemOps[op.Key.Elem]
	} else if op.Key.IsMapKey() {
		current = obj.fields[*op.Key.MapKey]
	}
	predSet := make(map[opid.ID]struct{}, len(op.Pred))
	for _, p := range op.Pred {
		predSet[p] = struct{}{}
	}
	for _, lo := range current {
		if _, hit := predSet[lo.OpID]; !hit {
			continue
		}
		if lo.Op.Action == change.ActionSet && lo.Op.Value.IsCounter() {
			return true
		}
	}
	return false
}

// applyOp applies a single validated operation: make, insert, and assign.
func (s *State) applyOp(opID opid.ID, op change.Op, patch *Patch) error {
	obj := s.objects[op.Obj]

	if op.Action == change.ActionMake {
		child := newObject(opID, op.ObjTyp)
		s.objects[opID] = child
		patch.objectPatch(child) // ensure the new object surfaces even if never referenced again
	}

	if op.Insert {
		obj.insertChild(op.Key.Elem, opID)
	}

	return s.assign(obj, opID, op, patch)
}

// assign is the write path shared by set/del/inc/link and the implicit
// assignment after a make: partitioning
// overwritten vs. remaining live ops, the inc special case, inbound-set
// maintenance, and list-index maintenance.
func (s *State) assign(obj *Object, opID opid.ID, op change.Op, patch *Patch) error {
	isList := obj.isListLike()

	var key string
	var elem opid.ID
	if op.Insert {
		elem = opID
	} else if isList {
		elem = op.Key.Elem
	} else {
		key = *op.Key.MapKey
	}

	var current []LiveOp
	if isList {
		current = obj.elemOps[elem]
	} else {
		current = obj.fields[key]
	}

	predSet := make(map[opid.ID]struct{}, len(op.Pred))
	for _, p := range op.Pred {
		predSet[p] = struct{}{}
	}

	if op.Action == change.ActionInc {
		s.applyInc(current, predSet, op)
		s.emitFieldPatch(patch, obj, key, elem, isList, current, nil)
		return nil
	}

	remaining := make([]LiveOp, 0, len(current)+1)
	for _, lo := range current {
		if _, overwritten := predSet[lo.OpID]; overwritten {
			s.unlinkChild(lo)
			continue
		}
		remaining = append(remaining, lo)
	}

	switch op.Action {
	case change.ActionSet, change.ActionMake, change.ActionLink:
		s.linkChild(opID, op)
		remaining = append(remaining, LiveOp{OpID: opID, Op: op})
	case change.ActionDel:
		// op itself contributes nothing beyond superseding its preds.
	}

	lamportDescending(remaining)

	if isList {
		obj.elemOps[elem] = remaining
	} else {
		obj.fields[key] = remaining
	}

	var edit *Edit
	if isList {
		var err error
		edit, err = s.maintainIndex(obj, elem, remaining)
		if err != nil {
			return err
		}
	}

	s.emitFieldPatch(patch, obj, key, elem, isList, remaining, edit)
	return nil
}

// applyInc adjusts, in place, every remaining op referenced by op.Pred that
// is a set op tagged as a counter.
func (s *State) applyInc(current []LiveOp, predSet map[opid.ID]struct{}, op change.Op) {
	for i := range current {
		if _, hit := predSet[current[i].OpID]; !hit {
			continue
		}
		target := current[i].Op
		if target.Action != change.ActionSet || !target.Value.IsCounter() {
			continue // silent no-op; incHasTarget already rejected this case when IncNoTargetIsError is set
		}
		v := target.Value
		switch v.Kind {
		case change.KindInt:
			v.Int += op.Value.Int
		case change.KindUint:
			v.Uint += uint64(op.Value.Int)
		case change.KindFloat:
			v.Float += float64(op.Value.Int)
		}
		target.Value = v
		current[i].Op = target
	}
}

func (s *State) unlinkChild(lo LiveOp) {
	var childID opid.ID
	switch lo.Op.Action {
	case change.ActionMake:
		childID = lo.OpID
	case change.ActionLink:
		childID = lo.Op.Value.Ref
	default:
		return
	}
	if child, ok := s.objects[childID]; ok {
		delete(child.inbound, lo.OpID)
	}
}

func (s *State) linkChild(opID opid.ID, op change.Op) {
	var childID opid.ID
	switch op.Action {
	case change.ActionMake:
		childID = opID
	case change.ActionLink:
		childID = op.Value.Ref
	default:
		return
	}
	if child, ok := s.objects[childID]; ok {
		child.inbound[opID] = struct{}{}
	}
}

// maintainIndex keeps the element-order index in step with an element's
// visible-ops list after an assignment.
func (s *State) maintainIndex(obj *Object, elem opid.ID, remaining []LiveOp) (*Edit, error) {
	wasIndexed := obj.Index.Contains(elem)

	if len(remaining) == 0 {
		if !wasIndexed {
			return nil, nil
		}
		idx, _ := obj.Index.IndexOf(elem)
		if _, err := obj.Index.RemoveElem(elem); err != nil {
			return nil, err
		}
		return &Edit{Kind: EditRemove, Index: idx, Elem: elem}, nil
	}

	shadow := remaining[0].Op.Value
	if wasIndexed {
		if err := obj.Index.SetShadow(elem, shadow); err != nil {
			return nil, err
		}
		return nil, nil
	}

	pos := 0
	cur := elem
	for {
		prev, ok := obj.getPrevious(cur)
		if !ok {
			pos = 0
			break
		}
		if idx, ok2 := obj.Index.IndexOf(prev); ok2 {
			pos = idx + 1
			break
		}
		cur = prev
	}
	if err := obj.Index.InsertAt(pos, elem, shadow); err != nil {
		return nil, err
	}
	return &Edit{Kind: EditInsert, Index: pos, Elem: elem}, nil
}

// emitFieldPatch records the current visible-ops list for one field into
// the change's patch.
func (s *State) emitFieldPatch(patch *Patch, obj *Object, key string, elem opid.ID, isList bool, remaining []LiveOp, edit *Edit) {
	op := patch.objectPatch(obj)
	propKey := key
	if isList {
		propKey = elem.String()
	}

	if len(remaining) == 0 {
		delete(op.Props, propKey)
	} else {
		vps := make([]ValuePatch, 0, len(remaining))
		for _, lo := range remaining {
			vp := ValuePatch{OpID: lo.OpID, Value: lo.Op.Value}
			switch lo.Op.Action {
			case change.ActionMake:
				if child, ok := s.objects[lo.OpID]; ok {
					vp.Child = patch.objectPatch(child)
				}
			case change.ActionLink:
				if child, ok := s.objects[lo.Op.Value.Ref]; ok {
					vp.Child = patch.objectPatch(child)
				}
			}
			vps = append(vps, vp)
		}
		op.Props[propKey] = vps
	}

	if edit != nil {
		op.Edits = append(op.Edits, *edit)
	}
}

// reindexProps rewrites list/text element-ID prop keys to their final
// integer-index string form.
func (s *State) reindexProps(patch *Patch) error {
	for _, id := range patch.order {
		op := patch.Objects[id]
		if op.Type != change.ObjList && op.Type != change.ObjText {
			continue
		}
		obj := s.objects[id]
		rewritten := make(map[string][]ValuePatch, len(op.Props))
		for key, vps := range op.Props {
			elemID, err := opid.Parse(key)
			if err != nil {
				return fmt.Errorf("opset: malformed element key %q: %w", key, err)
			}
			idx, ok := obj.Index.IndexOf(elemID)
			if !ok {
				return fmt.Errorf("%w: %s", ErrIndexNotFound, key)
			}
			rewritten[strconv.Itoa(idx)] = vps
		}
		op.Props = rewritten
	}
	return nil
}
