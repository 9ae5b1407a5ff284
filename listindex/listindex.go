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

// Package listindex implements the order-statistics element index lists and
// text objects need: index<->element-ID lookup in O(log n),
// plus a per-element "shadow value" cache for the first visible write.
//
// The structure is an implicit (Cartesian) treap: a binary tree ordered by
// position rather than key, with random priorities for balance and
// subtree-size augmentation for rank queries. No library in the retrieval
// pack offers order-statistics trees (google/btree and tidwall/btree are
// both keyed maps, not rank-queryable sequences), so this is hand-rolled.
package listindex

import (
	"errors"
	"math/rand"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/opid"
)

// ErrOutOfRange is returned by position-based lookups given an invalid index.
var ErrOutOfRange = errors.New("listindex: index out of range")

// ErrUnknownElement is returned when an element ID is not present.
var ErrUnknownElement = errors.New("listindex: unknown element")

type node struct {
	elem     opid.ID
	shadow   change.Value
	priority uint64
	size     int
	left     *node
	right    *node
	parent   *node
}

func sizeOf(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func update(n *node) {
	if n == nil {
		return
	}
	n.size = 1 + sizeOf(n.left) + sizeOf(n.right)
	if n.left != nil {
		n.left.parent = n
	}
	if n.right != nil {
		n.right.parent = n
	}
}

// split divides n into a left part of exactly k nodes (in order) and a
// right part of the rest. 0 <= k <= sizeOf(n).
func split(n *node, k int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if sizeOf(n.left) < k {
		l, r := split(n.right, k-sizeOf(n.left)-1)
		n.right = l
		n.parent = nil
		update(n)
		return n, r
	}
	l, r := split(n.left, k)
	n.left = r
	n.parent = nil
	update(n)
	return l, n
}

func merge(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	var root *node
	if l.priority > r.priority {
		l.right = merge(l.right, r)
		root = l
	} else {
		r.left = merge(l, r.left)
		root = r
	}
	root.parent = nil
	update(root)
	return root
}

// Index is an order-statistics sequence of element IDs.
type Index struct {
	root *node
	byID map[opid.ID]*node
	rng  *rand.Rand
}

// New returns an empty index.
func New() *Index {
	return &Index{byID: make(map[opid.ID]*node), rng: rand.New(rand.NewSource(1))}
}

// Len returns the number of indexed elements.
func (x *Index) Len() int { return sizeOf(x.root) }

// Contains reports whether elem currently has an assigned index.
func (x *Index) Contains(elem opid.ID) bool {
	_, ok := x.byID[elem]
	return ok
}

// InsertAt inserts elem at position index (0 <= index <= Len()), caching
// shadow as its shadow value.
func (x *Index) InsertAt(index int, elem opid.ID, shadow change.Value) error {
	if index < 0 || index > x.Len() {
		return ErrOutOfRange
	}
	if _, exists := x.byID[elem]; exists {
		return errors.New("listindex: duplicate element id")
	}
	n := &node{elem: elem, shadow: shadow, priority: x.rng.Uint64(), size: 1}
	l, r := split(x.root, index)
	x.root = merge(merge(l, n), r)
	x.byID[elem] = n
	return nil
}

// RemoveAt removes the element at position index and returns its ID.
func (x *Index) RemoveAt(index int) (opid.ID, error) {
	if index < 0 || index >= x.Len() {
		return opid.ID{}, ErrOutOfRange
	}
	l, mid := split(x.root, index)
	target, r := split(mid, 1)
	x.root = merge(l, r)
	delete(x.byID, target.elem)
	return target.elem, nil
}

// RemoveElem removes elem wherever it currently sits, returning its index
// prior to removal.
func (x *Index) RemoveElem(elem opid.ID) (int, error) {
	idx, ok := x.IndexOf(elem)
	if !ok {
		return 0, ErrUnknownElement
	}
	if _, err := x.RemoveAt(idx); err != nil {
		return 0, err
	}
	return idx, nil
}

// IndexOf returns elem's current position, if indexed.
func (x *Index) IndexOf(elem opid.ID) (int, bool) {
	n, ok := x.byID[elem]
	if !ok {
		return 0, false
	}
	idx := sizeOf(n.left)
	for cur := n; cur.parent != nil; cur = cur.parent {
		p := cur.parent
		if p.right == cur {
			idx += sizeOf(p.left) + 1
		}
	}
	return idx, true
}

// ElemAt returns the element ID at position index.
func (x *Index) ElemAt(index int) (opid.ID, error) {
	if index < 0 || index >= x.Len() {
		return opid.ID{}, ErrOutOfRange
	}
	cur := x.root
	for {
		l := sizeOf(cur.left)
		switch {
		case index < l:
			cur = cur.left
		case index == l:
			return cur.elem, nil
		default:
			index -= l + 1
			cur = cur.right
		}
	}
}

// Shadow returns the cached shadow value for elem.
func (x *Index) Shadow(elem opid.ID) (change.Value, bool) {
	n, ok := x.byID[elem]
	if !ok {
		return change.Value{}, false
	}
	return n.shadow, true
}

// SetShadow updates the cached shadow value for an already-indexed elem.
func (x *Index) SetShadow(elem opid.ID, v change.Value) error {
	n, ok := x.byID[elem]
	if !ok {
		return ErrUnknownElement
	}
	n.shadow = v
	return nil
}

// Elements returns all indexed element IDs in position order. Intended for
// tests and small debug dumps, not the hot path.
func (x *Index) Elements() []opid.ID {
	out := make([]opid.ID, 0, x.Len())
	var walk func(*node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, n.elem)
		walk(n.right)
	}
	walk(x.root)
	return out
}
