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

// Package opid implements operation identifiers, actor IDs, and the Lamport
// total order used for conflict tie-breaking, plus the
// per-change actor interning table the columnar codec needs.
package opid

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Actor is an opaque replica identifier, compared bytewise lexicographically.
// It is a string (of raw bytes, not text) rather than a []byte so that IDs
// are comparable and usable as map keys throughout the engine.
type Actor string

// String renders the actor as lowercase hex.
func (a Actor) String() string { return hex.EncodeToString([]byte(a)) }

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Actor) Compare(b Actor) int { return strings.Compare(string(a), string(b)) }

// Bytes returns the actor's raw byte form, as written to the wire.
func (a Actor) Bytes() []byte { return []byte(a) }

// ParseActor parses a lowercase-hex actor string.
func ParseActor(s string) (Actor, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("opid: invalid actor hex %q: %w", s, err)
	}
	return Actor(b), nil
}

// ID is an operation ID: a 1-based per-change-author counter paired with the
// actor that authored it.
type ID struct {
	Counter uint64
	Actor   Actor
}

// HeadSentinel is the logical element ID used for "insert at the beginning
// of a list", spelled "_head" in textual form.
var HeadSentinel = ID{Counter: 0, Actor: ""}

// IsHead reports whether id is the head sentinel.
func (id ID) IsHead() bool { return id.Counter == 0 && len(id.Actor) == 0 }

// RootSentinel is the fixed object ID of the document root, distinct from
// any op ID.
var RootSentinel = ID{Counter: 0, Actor: Actor("root")}

// IsRoot reports whether id is the root object sentinel.
func (id ID) IsRoot() bool {
	return id.Counter == 0 && string(id.Actor) == "root"
}

// Less implements the Lamport total order: counter ascending, then actor
// ascending.
func (id ID) Less(other ID) bool {
	if id.Counter != other.Counter {
		return id.Counter < other.Counter
	}
	return id.Actor.Compare(other.Actor) < 0
}

// Compare returns -1, 0, 1 under Lamport order.
func (id ID) Compare(other ID) int {
	if id.Counter != other.Counter {
		if id.Counter < other.Counter {
			return -1
		}
		return 1
	}
	return id.Actor.Compare(other.Actor)
}

// String renders the op ID in "counter@actor-hex" form, or "_head".
func (id ID) String() string {
	if id.IsHead() {
		return "_head"
	}
	if id.IsRoot() {
		return "root"
	}
	return strconv.FormatUint(id.Counter, 10) + "@" + id.Actor.String()
}

// Parse parses the textual form "counter@actor-hex" or "_head".
func Parse(s string) (ID, error) {
	if s == "_head" {
		return HeadSentinel, nil
	}
	if s == "root" {
		return RootSentinel, nil
	}
	i := strings.IndexByte(s, '@')
	if i < 0 {
		return ID{}, fmt.Errorf("opid: malformed op id %q", s)
	}
	counter, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("opid: malformed counter in %q: %w", s, err)
	}
	if counter == 0 {
		return ID{}, fmt.Errorf("opid: counter must be >= 1, got %q", s)
	}
	actor, err := ParseActor(s[i+1:])
	if err != nil {
		return ID{}, err
	}
	return ID{Counter: counter, Actor: actor}, nil
}

// Table interns the actors referenced by a single change: index 0 is always
// the change's author, indices 1..N are the other-actor table sorted
// lexicographically, matching the layout the change codec writes to the
// wire.
type Table struct {
	author Actor
	others []Actor
	index  map[string]int // actor string -> table index (0 = author)
}

// NewTable seeds an interning table with the change's author.
func NewTable(author Actor) *Table {
	t := &Table{author: author, index: map[string]int{string(author): 0}}
	return t
}

// Author returns the change's author actor.
func (t *Table) Author() Actor { return t.author }

// Intern records actor (if not already known) and returns its table index.
// Interning a new actor re-sorts the table, so an index returned earlier
// for a lexicographically larger actor can change; indices are final only
// once every actor has been interned.
func (t *Table) Intern(actor Actor) int {
	if idx, ok := t.index[string(actor)]; ok {
		return idx
	}
	t.others = append(t.others, actor)
	sort.Slice(t.others, func(i, j int) bool { return t.others[i].Compare(t.others[j]) < 0 })
	// re-index everything: table is small (number of distinct foreign actors
	// referenced by one change), and canonical order is required anyway.
	t.index = map[string]int{string(t.author): 0}
	for i, a := range t.others {
		t.index[string(a)] = i + 1
	}
	return t.index[string(actor)]
}

// ByIndex resolves a table index back to an actor. Index 0 is the author.
func (t *Table) ByIndex(idx int) (Actor, error) {
	if idx == 0 {
		return t.author, nil
	}
	i := idx - 1
	if i < 0 || i >= len(t.others) {
		return "", fmt.Errorf("opid: actor index %d out of range", idx)
	}
	return t.others[i], nil
}

// Others returns the sorted other-actor table (excluding the author), as
// written to the wire.
func (t *Table) Others() []Actor { return t.others }

// NewDecodeTable rebuilds an interning table from a decoded author and a
// sorted other-actor list, validating the sort order the canonical
// encoding requires.
func NewDecodeTable(author Actor, others []Actor) (*Table, error) {
	for i := 1; i < len(others); i++ {
		if others[i-1].Compare(others[i]) >= 0 {
			return nil, fmt.Errorf("opid: other-actor table not strictly sorted")
		}
	}
	t := NewTable(author)
	t.others = others
	for i, a := range others {
		t.index[string(a)] = i + 1
	}
	return t, nil
}
