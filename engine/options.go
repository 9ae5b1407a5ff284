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
	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/internal/logutil"
	"github.com/erigontech/crdtengine/opset"
)

// Options collects every knob an embedder can set on New, matching the
// `With...`-option-struct convention Erigon's component constructors use
// rather than a global config singleton.
type Options struct {
	StrictColumns      bool
	IncNoTargetIsError bool
	Logger             logutil.Logger
	UndoHistory        bool
}

// Option mutates an Options value during New.
type Option func(*Options)

// WithStrictColumns opts a decoder into treating an unrecognized column ID
// as a fatal malformed-input error instead of skipping it. The default is
// the lenient, forward-compatible behavior.
func WithStrictColumns(strict bool) Option {
	return func(o *Options) { o.StrictColumns = strict }
}

// WithIncNoTargetError makes an inc op against a field with no eligible
// counter a usage error rather than the default silent no-op.
func WithIncNoTargetError(isError bool) Option {
	return func(o *Options) { o.IncNoTargetIsError = isError }
}

// WithLogger injects a logger for change-rejection reasons and queue
// admission/drain; the change graph logs through it. Sync round decisions
// are logged by the sync package's own "sync" component logger, not this
// one. When unset, the engine uses logutil.New("engine") and the graph
// logutil.New("graph").
func WithLogger(l logutil.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithUndoHistory enables tracking of locally-applied change hashes in
// apply order, so an embedder's undo/redo façade (out of this engine's
// scope) has a stack to build on.
func WithUndoHistory(enabled bool) Option {
	return func(o *Options) { o.UndoHistory = enabled }
}

func (o Options) decodeOptions() change.DecodeOptions {
	return change.DecodeOptions{StrictColumns: o.StrictColumns}
}

func (o Options) opsetOptions() opset.Options {
	return opset.Options{IncNoTargetIsError: o.IncNoTargetIsError}
}
