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

package graph

import "errors"

var (
	// ErrSeqMismatch is a fatal error: the change's seq does not extend the
	// actor's existing dense sequence by exactly one.
	ErrSeqMismatch = errors.New("graph: actor sequence is not dense")
	// ErrStartOpMismatch is a fatal error: startOp does not equal one plus
	// the maximum op counter reachable through the change's deps.
	ErrStartOpMismatch = errors.New("graph: startOp does not match deps")
	// ErrMissingPredecessor is a fatal error: the change's deps do not
	// reach, directly or transitively, the actor's own previous change.
	ErrMissingPredecessor = errors.New("graph: deps do not cover the actor's previous change")
	// ErrUnknownHash is a usage error: a query referenced a hash the graph
	// has not applied.
	ErrUnknownHash = errors.New("graph: unknown change hash")
)
