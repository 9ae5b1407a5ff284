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

package sync

import (
	"github.com/erigontech/crdtengine/bloom"
	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/graph"
	"github.com/erigontech/crdtengine/internal/logutil"
	"github.com/erigontech/crdtengine/opset"
)

var log = logutil.New("sync")

func hashSet(hs []change.Hash) map[change.Hash]struct{} {
	m := make(map[change.Hash]struct{}, len(hs))
	for _, h := range hs {
		m[h] = struct{}{}
	}
	return m
}

func hashesEqual(a, b []change.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	bs := hashSet(b)
	for _, h := range a {
		if _, ok := bs[h]; !ok {
			return false
		}
	}
	return true
}

// Generate produces the next sync message to send to this peer, or nil if
// both sides are already at a fixed point.
func Generate(g *graph.Graph, st *State) ([]byte, error) {
	ourHeads := g.Heads()

	need := append([]change.Hash(nil), g.MissingDeps()...)
	needSet := hashSet(need)
	for _, h := range st.theirHeads {
		if _, known := g.GetChangeByHash(h); known {
			continue
		}
		if _, already := needSet[h]; already {
			continue
		}
		need = append(need, h)
		needSet[h] = struct{}{}
	}
	need = change.SortHashes(need)

	theirHeadSet := hashSet(st.theirHeads)
	includeBloom := true
	for _, h := range need {
		if _, known := theirHeadSet[h]; !known {
			includeBloom = false
			break
		}
	}

	resetNeeded := false
	for _, hv := range st.theirHave {
		for _, h := range hv.LastSync {
			if _, known := g.GetChangeByHash(h); !known {
				resetNeeded = true
			}
		}
	}
	if resetNeeded {
		log.Warn("peer lastSync references unknown hashes, requesting sync reset")
	}

	var have []HaveEntry
	var changesToSend []change.Hash
	var err error
	switch {
	case resetNeeded:
		have = []HaveEntry{{}}
		need = nil
	case includeBloom:
		nonAncestors, e := g.NonAncestorHashes(st.SharedHeads)
		if e != nil {
			return nil, e
		}
		bf := bloom.New(nonAncestors)
		blob, e := bf.Encode()
		if e != nil {
			return nil, e
		}
		have = []HaveEntry{{LastSync: append([]change.Hash(nil), st.SharedHeads...), Bloom: blob}}
	}

	if !resetNeeded {
		changesToSend, err = computeChangesToSend(g, st.theirHave, st.theirNeed)
		if err != nil {
			return nil, err
		}
	}

	raws := make([][]byte, 0, len(changesToSend))
	var justSent []change.Hash
	for _, h := range changesToSend {
		if st.sentHashes != nil {
			if _, already := st.sentHashes[h]; already {
				continue
			}
		}
		raw, ok := g.GetChangeByHash(h)
		if !ok {
			continue
		}
		raws = append(raws, raw)
		justSent = append(justSent, h)
	}

	if !resetNeeded && len(raws) == 0 && len(need) == 0 &&
		hashesEqual(ourHeads, st.lastSentHeads) && hashesEqual(ourHeads, st.theirHeads) {
		return nil, nil
	}

	msg := &Message{Heads: ourHeads, Need: need, Have: have, Changes: raws}
	blob, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}

	st.lastSentHeads = ourHeads
	if st.sentHashes == nil {
		st.sentHashes = make(map[change.Hash]struct{})
	}
	for _, h := range justSent {
		st.sentHashes[h] = struct{}{}
	}

	return blob, nil
}

// computeChangesToSend picks the changes the peer provably (or probably)
// lacks: the Bloom-negative set over non-shared candidates, expanded with
// its transitive dependents, plus everything explicitly asked for.
func computeChangesToSend(g *graph.Graph, theirHave []HaveEntry, theirNeed []change.Hash) ([]change.Hash, error) {
	if len(theirHave) == 0 {
		var out []change.Hash
		for _, h := range theirNeed {
			if _, ok := g.GetChangeByHash(h); ok {
				out = append(out, h)
			}
		}
		return out, nil
	}

	unionSeen := make(map[change.Hash]struct{})
	var unionSince []change.Hash
	for _, hv := range theirHave {
		for _, h := range hv.LastSync {
			if _, ok := unionSeen[h]; ok {
				continue
			}
			unionSeen[h] = struct{}{}
			unionSince = append(unionSince, h)
		}
	}

	candidates, err := g.NonAncestorHashes(unionSince)
	if err != nil {
		return nil, err
	}
	candidateSet := hashSet(candidates)

	toSend := make(map[change.Hash]struct{})
	for _, h := range candidates {
		negative := true
		for _, hv := range theirHave {
			bf, err := bloom.Decode(hv.Bloom)
			if err != nil {
				return nil, err
			}
			if bf.Contains(h) {
				negative = false
				break
			}
		}
		if negative {
			toSend[h] = struct{}{}
		}
	}

	dependents := make(map[change.Hash][]change.Hash)
	for _, h := range candidates {
		c, ok := g.DecodedChange(h)
		if !ok {
			continue
		}
		for _, d := range c.Deps {
			if _, ok := candidateSet[d]; ok {
				dependents[d] = append(dependents[d], h)
			}
		}
	}
	queue := make([]change.Hash, 0, len(toSend))
	for h := range toSend {
		queue = append(queue, h)
	}
	for len(queue) > 0 {
		h := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, dep := range dependents[h] {
			if _, already := toSend[dep]; already {
				continue
			}
			toSend[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}

	for _, h := range theirNeed {
		if _, ok := g.GetChangeByHash(h); ok {
			toSend[h] = struct{}{}
		}
	}

	out := make([]change.Hash, 0, len(toSend))
	for _, h := range g.History() {
		if _, ok := toSend[h]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// Receive applies an incoming sync message and updates st for the next
// Generate call.
func Receive(g *graph.Graph, st *State, blob []byte) ([]*opset.Patch, error) {
	msg, err := DecodeMessage(blob)
	if err != nil {
		return nil, err
	}

	preHeads := g.Heads()

	var patches []*opset.Patch
	if len(msg.Changes) > 0 {
		patches, err = g.ApplyChanges(msg.Changes)
		if err != nil {
			return patches, err
		}
	}

	newHeads := g.Heads()
	allTheirsKnown := true
	for _, h := range msg.Heads {
		if _, ok := g.GetChangeByHash(h); !ok {
			allTheirsKnown = false
			break
		}
	}

	if allTheirsKnown {
		st.SharedHeads = change.SortHashes(append([]change.Hash(nil), msg.Heads...))
	} else {
		newHeadSet := hashSet(newHeads)
		var kept []change.Hash
		for _, h := range st.SharedHeads {
			if _, stillHead := newHeadSet[h]; stillHead {
				kept = append(kept, h)
				continue
			}
			if isAncestorOfAny(g, h, newHeads) {
				continue
			}
			kept = append(kept, h)
		}
		st.SharedHeads = change.SortHashes(kept)
	}

	if len(msg.Heads) == 0 {
		log.Debug("peer reports no heads, restarting session bookkeeping")
		st.lastSentHeads = nil
		st.sentHashes = nil
	}

	st.theirHeads = append([]change.Hash(nil), msg.Heads...)
	st.theirHave = msg.Have
	st.theirNeed = msg.Need

	if len(msg.Changes) == 0 && hashesEqual(msg.Heads, preHeads) {
		st.lastSentHeads = append([]change.Hash(nil), msg.Heads...)
	}

	return patches, nil
}

func isAncestorOfAny(g *graph.Graph, h change.Hash, heads []change.Hash) bool {
	for _, head := range heads {
		if g.IsAncestor(h, head) {
			return true
		}
	}
	return false
}
