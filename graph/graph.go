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

// Package graph is the hash-indexed change DAG: causal-readiness queuing, heads,
// change-by-hash lookup, and the get_changes/missing_deps queries the sync
// protocol reads.
package graph

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/internal/logutil"
	"github.com/erigontech/crdtengine/opid"
	"github.com/erigontech/crdtengine/opset"
)

// changeInfo is the bookkeeping record kept per applied change
//.
type changeInfo struct {
	hash       change.Hash
	actor      opid.Actor
	seq        uint64
	startOp    uint64
	maxOp      uint64
	raw        []byte
	deps       []change.Hash
	historyIdx int
}

// queuedChange is a change received but not yet causally ready.
type queuedChange struct {
	c    *change.Change
	hash change.Hash
	raw  []byte
}

// decodedCacheSize bounds the LRU of decoded change bodies; the
// change-by-hash and sync-resend paths re-read the same changes often
// enough that re-running the columnar decoder every time is wasteful.
const decodedCacheSize = 1024

// Graph holds the full applied-change DAG plus the causal-readiness queue.
// It is not safe for concurrent mutation; the embedder serializes
// mutating calls.
type Graph struct {
	opts       Options
	log        logutil.Logger
	opsetState *opset.State

	changes map[change.Hash]*changeInfo
	states  map[string][]change.Hash // actor (as string key) -> ordered hashes

	heads   *btree.BTreeG[change.Hash]
	maxOp   uint64
	history []change.Hash
	queue   []*queuedChange
	decoded *lru.Cache[change.Hash, *change.Change]
}

// Options configures decode strictness and the opset's inc-on-empty-field
// behavior.
type Options struct {
	DecodeOptions change.DecodeOptions
	OpsetOptions  opset.Options
	Logger        logutil.Logger
}

// New returns an empty graph (just the document root, no changes applied).
func New(opts Options) *Graph {
	if opts.Logger == nil {
		opts.Logger = logutil.New("graph")
	}
	cache, err := lru.New[change.Hash, *change.Change](decodedCacheSize)
	if err != nil {
		panic(err) // only fails for non-positive size, which decodedCacheSize never is
	}
	return &Graph{
		opts:       opts,
		log:        opts.Logger,
		opsetState: opset.New(opts.OpsetOptions),
		changes:    make(map[change.Hash]*changeInfo),
		states:     make(map[string][]change.Hash),
		heads:      btree.NewG(32, func(a, b change.Hash) bool { return a.Less(b) }),
		decoded:    cache,
	}
}

// Opset exposes the underlying object-state machine for read paths
// (materialization, the engine facade's object walks).
func (g *Graph) Opset() *opset.State { return g.opsetState }

// Heads returns the current heads, sorted ascending.
func (g *Graph) Heads() []change.Hash {
	out := make([]change.Hash, 0, g.heads.Len())
	g.heads.Ascend(func(h change.Hash) bool {
		out = append(out, h)
		return true
	})
	return out
}

// MaxOp returns the highest op counter applied so far.
func (g *Graph) MaxOp() uint64 { return g.maxOp }

// GetChangeByHash returns the raw blob of an applied change.
func (g *Graph) GetChangeByHash(h change.Hash) ([]byte, bool) {
	info, ok := g.changes[h]
	if !ok {
		return nil, false
	}
	return info.raw, true
}

// DecodedChange returns the decoded form of an applied change, consulting
// (and populating) the LRU cache.
func (g *Graph) DecodedChange(h change.Hash) (*change.Change, bool) {
	if c, ok := g.decoded.Get(h); ok {
		return c, true
	}
	info, ok := g.changes[h]
	if !ok {
		return nil, false
	}
	c, err := change.Decode(info.raw, g.opts.DecodeOptions)
	if err != nil {
		g.log.Error("cached change failed to redecode", "hash", h.String(), "err", err.Error())
		return nil, false
	}
	g.decoded.Add(h, c)
	return c, true
}

// ApplyChanges applies each raw change blob in order. Application is
// atomic at the change boundary: each change applies wholly or not at all, and a failure
// at change k leaves changes 0..k-1 applied. Returns the patches produced
// by every change that was actually applied this call (including any
// queued changes the new arrivals causally unblocked).
func (g *Graph) ApplyChanges(raws [][]byte) ([]*opset.Patch, error) {
	var all []*opset.Patch
	for _, raw := range raws {
		c, h, err := g.decodeAndHash(raw)
		if err != nil {
			return all, err
		}
		if _, exists := g.changes[h]; exists {
			continue // idempotent: already applied
		}
		patches, err := g.admit(c, h, raw)
		if err != nil {
			return all, err
		}
		all = append(all, patches...)
	}
	return all, nil
}

// ApplyOne applies a single raw change blob. A nil, nil result means the
// change was either a duplicate (idempotent) or queued pending deps.
func (g *Graph) ApplyOne(raw []byte) (*opset.Patch, error) {
	c, h, err := g.decodeAndHash(raw)
	if err != nil {
		return nil, err
	}
	if _, exists := g.changes[h]; exists {
		return nil, nil
	}
	patches, err := g.admit(c, h, raw)
	if err != nil {
		return nil, err
	}
	if len(patches) == 0 {
		return nil, nil
	}
	return patches[0], nil
}

func (g *Graph) decodeAndHash(raw []byte) (*change.Change, change.Hash, error) {
	c, err := change.Decode(raw, g.opts.DecodeOptions)
	if err != nil {
		return nil, change.Hash{}, err
	}
	h, err := c.Hash()
	if err != nil {
		return nil, change.Hash{}, err
	}
	return c, h, nil
}

// admit either applies c immediately (deps satisfied) or defers it to the
// queue, then drains whatever the queue now unblocks.
func (g *Graph) admit(c *change.Change, h change.Hash, raw []byte) ([]*opset.Patch, error) {
	if !g.depsReady(c) {
		g.queue = append(g.queue, &queuedChange{c: c, hash: h, raw: raw})
		g.log.Debug("queued change pending deps", "hash", h.String(), "actor", c.Actor.String())
		return nil, nil
	}
	patch, err := g.apply(c, h, raw)
	if err != nil {
		return nil, err
	}
	patches := []*opset.Patch{patch}
	patches = append(patches, g.drainQueue()...)
	return patches, nil
}

func (g *Graph) depsReady(c *change.Change) bool {
	for _, d := range c.Deps {
		if _, ok := g.changes[d]; !ok {
			return false
		}
	}
	return true
}

// apply records and applies a change whose deps are already known to be
// satisfied: dense-seq and startOp validation, op-set application, then
// heads/history bookkeeping.
func (g *Graph) apply(c *change.Change, h change.Hash, raw []byte) (*opset.Patch, error) {
	actorKey := string(c.Actor)
	wantSeq := uint64(len(g.states[actorKey])) + 1
	if c.Seq != wantSeq {
		return nil, fmt.Errorf("%w: actor %s seq %d, want %d", ErrSeqMismatch, c.Actor, c.Seq, wantSeq)
	}

	wantStartOp := uint64(1)
	for _, d := range c.Deps {
		depInfo, ok := g.changes[d]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHash, d) // unreachable: depsReady already checked
		}
		if depInfo.maxOp+1 > wantStartOp {
			wantStartOp = depInfo.maxOp + 1
		}
	}
	if c.StartOp != wantStartOp {
		return nil, fmt.Errorf("%w: change %s startOp %d, want %d", ErrStartOpMismatch, h, c.StartOp, wantStartOp)
	}

	// A change after the actor's first must reach its own predecessor
	// through deps. Without this, seq=2 with empty deps would pass both
	// checks above (wantStartOp defaults to 1), leave the previous change
	// stranded in heads, and free the actor to reuse its op counters.
	if prior := g.states[actorKey]; len(prior) > 0 {
		prev := prior[len(prior)-1]
		covered := false
		for _, d := range c.Deps {
			if g.IsAncestor(prev, d) {
				covered = true
				break
			}
		}
		if !covered {
			return nil, fmt.Errorf("%w: actor %s seq %d does not depend on its previous change %s",
				ErrMissingPredecessor, c.Actor, c.Seq, prev)
		}
	}

	patch, err := g.opsetState.ApplyChange(c)
	if err != nil {
		return nil, err
	}

	idx := len(g.history)
	info := &changeInfo{
		hash: h, actor: c.Actor, seq: c.Seq, startOp: c.StartOp,
		maxOp: c.MaxOp(), raw: raw, deps: c.Deps, historyIdx: idx,
	}
	g.changes[h] = info
	g.states[actorKey] = append(g.states[actorKey], h)
	for _, d := range c.Deps {
		g.heads.Delete(d)
	}
	g.heads.ReplaceOrInsert(h)
	if c.MaxOp() > g.maxOp {
		g.maxOp = c.MaxOp()
	}
	g.history = append(g.history, h)
	g.decoded.Add(h, c)
	g.log.Info("applied change", "hash", h.String(), "actor", c.Actor.String(), "seq", c.Seq)
	return patch, nil
}

// drainQueue re-scans the queue until a full pass makes no progress
//.
func (g *Graph) drainQueue() []*opset.Patch {
	var patches []*opset.Patch
	for {
		progressed := false
		var remaining []*queuedChange
		for _, qc := range g.queue {
			if _, exists := g.changes[qc.hash]; exists {
				progressed = true
				continue
			}
			if !g.depsReady(qc.c) {
				remaining = append(remaining, qc)
				continue
			}
			p, err := g.apply(qc.c, qc.hash, qc.raw)
			if err != nil {
				g.log.Warn("queued change rejected on drain", "hash", qc.hash.String(), "err", err.Error())
				continue
			}
			patches = append(patches, p)
			progressed = true
		}
		g.queue = remaining
		if !progressed {
			break
		}
	}
	return patches
}

// MissingDeps returns every dep hash referenced by a queued change that is
// neither applied nor itself queued, sorted ascending.
func (g *Graph) MissingDeps() []change.Hash {
	queued := make(map[change.Hash]struct{}, len(g.queue))
	for _, qc := range g.queue {
		queued[qc.hash] = struct{}{}
	}
	seen := make(map[change.Hash]struct{})
	var out []change.Hash
	for _, qc := range g.queue {
		for _, d := range qc.c.Deps {
			if _, ok := g.changes[d]; ok {
				continue
			}
			if _, ok := queued[d]; ok {
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return change.SortHashes(out)
}

// ancestorBitmap marks (by dense history index) every hash in since plus
// its full transitive dependency closure.
func (g *Graph) ancestorBitmap(since []change.Hash) (*roaring.Bitmap, error) {
	visited := roaring.New()
	stack := make([]change.Hash, 0, len(since))
	for _, h := range since {
		info, ok := g.changes[h]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHash, h)
		}
		if visited.CheckedAdd(uint32(info.historyIdx)) {
			stack = append(stack, h)
		}
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		info := g.changes[h]
		for _, d := range info.deps {
			depInfo := g.changes[d]
			if visited.CheckedAdd(uint32(depInfo.historyIdx)) {
				stack = append(stack, d)
			}
		}
	}
	return visited, nil
}

// GetChanges returns every applied change not an ancestor of (or equal to)
// any hash in since, in history order. Fails if any element
// of since is unknown.
func (g *Graph) GetChanges(since []change.Hash) ([][]byte, error) {
	visited, err := g.ancestorBitmap(since)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(g.history))
	for _, h := range g.history {
		info := g.changes[h]
		if visited.Contains(uint32(info.historyIdx)) {
			continue
		}
		out = append(out, info.raw)
	}
	return out, nil
}

// NonAncestorHashes is GetChanges restricted to hashes rather than raw
// blobs: the set the sync protocol's Bloom filter is built from (hashes
// of changes not ancestral to the peer's sharedHeads).
func (g *Graph) NonAncestorHashes(since []change.Hash) ([]change.Hash, error) {
	visited, err := g.ancestorBitmap(since)
	if err != nil {
		return nil, err
	}
	out := make([]change.Hash, 0, len(g.history))
	for _, h := range g.history {
		info := g.changes[h]
		if visited.Contains(uint32(info.historyIdx)) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// IsAncestor reports whether anc is h itself or a transitive dependency of
// h. Used by the sync layer to test Bloom-have lastSync coverage.
func (g *Graph) IsAncestor(anc, h change.Hash) bool {
	if anc == h {
		return true
	}
	info, ok := g.changes[h]
	if !ok {
		return false
	}
	visited := make(map[change.Hash]struct{})
	stack := append([]change.Hash(nil), info.deps...)
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if d == anc {
			return true
		}
		if _, seen := visited[d]; seen {
			continue
		}
		visited[d] = struct{}{}
		if di, ok := g.changes[d]; ok {
			stack = append(stack, di.deps...)
		}
	}
	return false
}

// History returns the insertion-ordered sequence of applied change hashes.
func (g *Graph) History() []change.Hash {
	out := make([]change.Hash, len(g.history))
	copy(out, g.history)
	return out
}
