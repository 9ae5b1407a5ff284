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
	"errors"
	"fmt"

	"github.com/erigontech/crdtengine/bitstream"
	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/graph"
	"github.com/erigontech/crdtengine/opset"
	"github.com/erigontech/crdtengine/sync"
)

// Kind tags an engine error with its taxonomy class, so an embedder
// can `errors.As` once and branch rather than string-matching messages or
// maintaining its own code-generated error-code enum.
type Kind int

const (
	// KindMalformed: truncated buffers, overlong LEB128, unsorted hash
	// arrays, a sync message or state blob with a bad marker, or any other
	// wire-format violation.
	KindMalformed Kind = iota
	// KindSemantic: duplicate op ID, unknown object, non-dense per-actor
	// sequence, startOp mismatch, and similar graph/op-set rule violations.
	KindSemantic
	// KindDeferred: a dependency is missing; the caller should not treat
	// this as failure — apply_changes already queues the change for
	// later and folds this into its return rather than surfacing it here,
	// but the tag exists for embedders that want to distinguish the two
	// at the boundary.
	KindDeferred
	// KindUsage: querying with an unknown `since` hash and other
	// caller-input mistakes.
	KindUsage
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindSemantic:
		return "semantic"
	case KindDeferred:
		return "deferred"
	case KindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Error wraps an underlying package error with its taxonomy tag.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("crdtengine: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// classify tags err with the taxonomy kind its originating package implies.
// Unrecognized errors default to KindSemantic: every fatal path in graph
// and opset already rejects the change without mutating state, which is
// the semantic-violation contract regardless of the specific cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, bitstream.ErrTruncated),
		errors.Is(err, bitstream.ErrOverflow),
		errors.Is(err, change.ErrUnknownAction),
		errors.Is(err, change.ErrBadVersion),
		errors.Is(err, change.ErrUnsortedDeps),
		errors.Is(err, change.ErrUnsortedActors),
		errors.Is(err, change.ErrUnknownColumn),
		errors.Is(err, change.ErrMalformedOps),
		errors.Is(err, sync.ErrBadMarker),
		errors.Is(err, opset.ErrMalformedOp):
		return &Error{Kind: KindMalformed, Err: err}
	case errors.Is(err, graph.ErrUnknownHash),
		errors.Is(err, opset.ErrIncNoTarget):
		return &Error{Kind: KindUsage, Err: err}
	case errors.Is(err, graph.ErrSeqMismatch),
		errors.Is(err, graph.ErrStartOpMismatch),
		errors.Is(err, graph.ErrMissingPredecessor),
		errors.Is(err, opset.ErrDuplicateOpID),
		errors.Is(err, opset.ErrUnknownObject),
		errors.Is(err, opset.ErrDuplicateObject),
		errors.Is(err, opset.ErrDuplicateElement),
		errors.Is(err, opset.ErrNotListObject),
		errors.Is(err, opset.ErrIndexNotFound):
		return &Error{Kind: KindSemantic, Err: err}
	default:
		return &Error{Kind: KindSemantic, Err: err}
	}
}
