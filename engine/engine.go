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

// Package engine is the embedder-facing facade: it glues the change
// graph, the op-set state machine, and the sync protocol behind the single
// `Engine` type an embedder drives. It carries no transport, no document
// read/write ergonomics, and no CLI or filesystem dependency; those stay
// the responsibility of the embedder.
package engine

import (
	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/graph"
	"github.com/erigontech/crdtengine/internal/logutil"
	"github.com/erigontech/crdtengine/opid"
	"github.com/erigontech/crdtengine/opset"
	"github.com/erigontech/crdtengine/sync"
)

// Engine is one document's full engine state: the applied-change DAG, the
// materialized object set reachable through it, and (optionally) a record
// of locally-applied change hashes for an embedder's undo façade. It is not
// safe for concurrent mutation: callers serialize mutating
// calls, typically behind a mutex or a single-threaded task.
type Engine struct {
	opts  Options
	log   logutil.Logger
	graph *graph.Graph

	// localChanges records, in apply order, the hash of every change
	// applied through ApplyLocalChange while opts.UndoHistory is set
	//.
	localChanges []change.Hash
}

// New returns an empty engine: just the document root, no changes applied.
func New(opts ...Option) *Engine {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	graphLog := o.Logger
	if graphLog == nil {
		graphLog = logutil.New("graph")
	}
	if o.Logger == nil {
		o.Logger = logutil.New("engine")
	}
	return &Engine{
		opts: o,
		log:  o.Logger,
		graph: graph.New(graph.Options{
			DecodeOptions: o.decodeOptions(),
			OpsetOptions:  o.opsetOptions(),
			Logger:        graphLog,
		}),
	}
}

// ApplyChanges applies each raw change blob in order. Each change applies
// wholly, not at all, or is queued; a failure at change k leaves changes
// 0..k-1 applied.
func (e *Engine) ApplyChanges(raws [][]byte) ([]*opset.Patch, error) {
	patches, err := e.graph.ApplyChanges(raws)
	if err != nil {
		return patches, classify(err)
	}
	return patches, nil
}

// ApplyLocalChange has identical semantics to a single-element
// ApplyChanges, plus: on success, the change's hash is recorded in the
// undo-history stack when WithUndoHistory was set.
func (e *Engine) ApplyLocalChange(raw []byte) (*opset.Patch, error) {
	patch, err := e.graph.ApplyOne(raw)
	if err != nil {
		return nil, classify(err)
	}
	if e.opts.UndoHistory && patch != nil {
		if c, err := change.Decode(raw, e.opts.decodeOptions()); err == nil {
			if h, err := c.Hash(); err == nil {
				e.localChanges = append(e.localChanges, h)
			}
		}
	}
	return patch, nil
}

// UndoableChanges returns the hashes of locally-applied changes recorded
// while WithUndoHistory is enabled, oldest first. Nil when undo tracking
// is off. The embedder's undo façade (out of engine scope) decides what
// "undo" means for a given hash — typically composing a compensating
// change that restores the pred set this change's ops overwrote.
func (e *Engine) UndoableChanges() []change.Hash {
	if !e.opts.UndoHistory {
		return nil
	}
	out := make([]change.Hash, len(e.localChanges))
	copy(out, e.localChanges)
	return out
}

// GetHeads returns the current set of change hashes with no applied
// descendants, sorted ascending.
func (e *Engine) GetHeads() []change.Hash { return e.graph.Heads() }

// GetChangeByHash returns the raw blob of an applied change, if any.
func (e *Engine) GetChangeByHash(h change.Hash) ([]byte, bool) {
	return e.graph.GetChangeByHash(h)
}

// GetChanges returns every applied change not an ancestor of (or equal to)
// any hash in since, in history order.
func (e *Engine) GetChanges(since []change.Hash) ([][]byte, error) {
	out, err := e.graph.GetChanges(since)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// GetMissingDeps returns every dep hash referenced by a queued change that
// the engine has neither applied nor itself queued, sorted ascending.
func (e *Engine) GetMissingDeps() []change.Hash { return e.graph.MissingDeps() }

// GenerateSyncMessage produces the next sync message to send to st's peer,
// or nil if both sides are already at a fixed point.
func (e *Engine) GenerateSyncMessage(st *sync.State) ([]byte, error) {
	blob, err := sync.Generate(e.graph, st)
	if err != nil {
		return nil, classify(err)
	}
	return blob, nil
}

// ReceiveSyncMessage decodes and applies an incoming sync message, updating
// st for the next GenerateSyncMessage call.
func (e *Engine) ReceiveSyncMessage(st *sync.State, blob []byte) ([]*opset.Patch, error) {
	patches, err := sync.Receive(e.graph, st, blob)
	if err != nil {
		return patches, classify(err)
	}
	return patches, nil
}

// EncodeSyncState serializes the persisted fields of a sync session
//.
func (e *Engine) EncodeSyncState(st *sync.State) []byte { return sync.EncodeState(st) }

// DecodeSyncState parses a blob produced by EncodeSyncState.
func (e *Engine) DecodeSyncState(blob []byte) (*sync.State, error) {
	st, err := sync.DecodeState(blob)
	if err != nil {
		return nil, classify(err)
	}
	return st, nil
}

// Object returns the materialized state of one object in the document,
// keyed by its creating op ID (opid.RootSentinel for the root). Embedders
// building a typed document façade read
// through this rather than re-deriving state from the patch stream.
func (e *Engine) Object(id opid.ID) (*opset.Object, bool) {
	return e.graph.Opset().Object(id)
}

// History returns the insertion-ordered sequence of applied change hashes.
func (e *Engine) History() []change.Hash { return e.graph.History() }

// Snapshot returns a read-only view of the engine's current heads and
// applied-change lookups, safe to pass to a concurrent reader for the
// duration between two mutating calls; read-only queries may run
// concurrently with each other but never concurrently with a mutation.
// See Snapshot's doc comment for exactly what is and is not copy-on-write.
func (e *Engine) Snapshot() *Snapshot {
	return &Snapshot{heads: e.graph.Heads(), g: e.graph}
}
