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

import "errors"

// Fatal errors: the change must be rejected. State.validate raises all of
// these except ErrIndexNotFound against the pre-change object set, before
// the mutating pass begins, so no state is mutated; ErrIndexNotFound is
// raised by reindexProps after the ops have been applied.
var (
	ErrDuplicateOpID    = errors.New("opset: op id already applied")
	ErrUnknownObject    = errors.New("opset: reference to unknown object")
	ErrDuplicateObject  = errors.New("opset: duplicate object creation")
	ErrDuplicateElement = errors.New("opset: duplicate element id")
	ErrNotListObject    = errors.New("opset: insert against non-list/text object")
	ErrMalformedOp      = errors.New("opset: malformed operation")
	ErrIndexNotFound    = errors.New("opset: element has no assigned index")
)

// ErrIncNoTarget is a usage error: an inc op's pred set names
// no currently-live set-of-a-counter op, surfaced only when
// Options.IncNoTargetIsError opts in; the default is a silent no-op.
var ErrIncNoTarget = errors.New("opset: inc has no eligible counter target")
