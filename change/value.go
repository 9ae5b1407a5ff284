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

import "github.com/erigontech/crdtengine/opid"

// ValueKind tags the primitive shape of an operation's value.
type ValueKind byte

const (
	KindNull ValueKind = iota
	KindFalse
	KindTrue
	KindUint
	KindInt
	KindFloat
	KindString
	KindBytes
	KindRef // a reference to another object's op ID (used by the "link" action)
)

// Datatype is an opaque tag carried alongside a value. The core only ever
// special-cases DatatypeCounter; all other
// tags are round-tripped without interpretation.
type Datatype string

const (
	DatatypeNone      Datatype = ""
	DatatypeCounter   Datatype = "counter"
	DatatypeTimestamp Datatype = "timestamp"
)

// Value is the tagged union an operation's value column holds.
type Value struct {
	Kind     ValueKind
	Datatype Datatype
	Uint     uint64
	Int      int64
	Float    float64
	Str      string
	Bytes    []byte
	Ref      opid.ID
}

// Null, Bool, Uint, Int, Float, String, Bytes, and RefValue construct
// untagged values; use WithDatatype to attach an opaque datatype.

func Null() Value { return Value{Kind: KindNull} }

func Bool(b bool) Value {
	if b {
		return Value{Kind: KindTrue}
	}
	return Value{Kind: KindFalse}
}

func Uint(u uint64) Value { return Value{Kind: KindUint, Uint: u} }

func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

func RefValue(id opid.ID) Value { return Value{Kind: KindRef, Ref: id} }

// WithDatatype returns a copy of v tagged with dt.
func (v Value) WithDatatype(dt Datatype) Value {
	v.Datatype = dt
	return v
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsCounter reports whether v is a "set" value tagged as a counter.
func (v Value) IsCounter() bool { return v.Datatype == DatatypeCounter }

// Equal reports deep equality between two values, used by tests.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Datatype != o.Datatype {
		return false
	}
	switch v.Kind {
	case KindUint:
		return v.Uint == o.Uint
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindString:
		return v.Str == o.Str
	case KindBytes:
		return string(v.Bytes) == string(o.Bytes)
	case KindRef:
		return v.Ref == o.Ref
	default:
		return true
	}
}

// Native returns v as a plain Go value, for embedders that want to read it
// without switching on Kind themselves. Ref values are returned as their
// opid.ID.
func (v Value) Native() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindFalse:
		return false
	case KindTrue:
		return true
	case KindUint:
		return v.Uint
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindBytes:
		return v.Bytes
	case KindRef:
		return v.Ref
	default:
		return nil
	}
}
