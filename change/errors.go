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

import "errors"

// Sentinel errors surfaced by Decode. All are malformed-input errors: the
// caller gets a tagged error and the decode is aborted without
// any partial state.
var (
	ErrUnknownAction  = errors.New("change: unknown action")
	ErrBadVersion     = errors.New("change: unsupported version byte")
	ErrUnsortedDeps   = errors.New("change: deps not strictly sorted")
	ErrUnsortedActors = errors.New("change: other-actor table not strictly sorted")
	ErrUnknownColumn  = errors.New("change: unknown column id")
	ErrMalformedOps   = errors.New("change: op column lengths disagree")
)
