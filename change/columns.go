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

// Column IDs, in wire order. Each op column is written as
// columnID + length-prefixed body; an ID this decoder does not recognize is
// skipped rather than rejected (forward compatibility), unless the decoder
// is run in StrictColumns mode.
//
// Column layout mirrors the documented-constant-table style of
// erigon-lib/kv.tables.go: one line per column, a comment stating what it
// carries and which codec it uses.
const (
	// colAction - RLE uint. Index into actionTable (op.go).
	colAction = 1

	// colObjCtr - RLE uint, nullable. Object ID counter; null means root.
	colObjCtr = 2
	// colObjActor - RLE uint, nullable. Object ID actor-table index; null means root.
	colObjActor = 3

	// colKeyCtr - RLE uint, nullable. Element-ID key counter; null when key is a string.
	colKeyCtr = 4
	// colKeyActor - RLE uint, nullable. Element-ID key actor-table index; null when key is a string.
	colKeyActor = 5
	// colKeyStr - RLE string, nullable. Map-key string; null otherwise.
	colKeyStr = 6

	// colInsert - RLE uint (0/1). Insert flag.
	colInsert = 7

	// colValLen - RLE uint. Byte length of each encoded value (0 if absent).
	colValLen = 8
	// colValRaw - raw bytes. Concatenated value payloads.
	colValRaw = 9

	// colPredNum - RLE uint. Count of pred IDs per op.
	colPredNum = 10
	// colPredCtr - delta-RLE int, flattened across ops. Pred counter.
	colPredCtr = 11
	// colPredActor - RLE uint, flattened across ops. Pred actor-table index.
	colPredActor = 12
)
