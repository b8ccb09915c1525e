// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lists

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrow-contrib/listgather/internal/debug"
)

// levelKind is the set of shapes gatherLevel knows how to copy.
type levelKind int8

const (
	// leafLevel values are copied element by element by the take kernel.
	leafLevel levelKind = iota
	// listLevel values are copied a whole row at a time, then the rows'
	// elements are gathered one level down.
	listLevel
)

func kindOf(dt arrow.DataType) levelKind {
	switch dt.ID() {
	case arrow.LIST, arrow.LARGE_LIST, arrow.MAP:
		return listLevel
	}
	return leafLevel
}

// nestingDepth counts the list levels from arr down to its first leaf.
func nestingDepth(arr arrow.Array) int {
	depth := 0
	for kindOf(arr.DataType()) == listLevel {
		arr = arr.(array.ListLike).ListValues()
		depth++
	}
	return depth
}

// gatherLevel builds an array of len(indices) where entry p is
// values[indices[p]], or null when indices[p] is null or that value is null.
// depth is the number of list levels left below values.
func gatherLevel(ctx context.Context, mem memory.Allocator, values arrow.Array, indices *array.Int64, depth int) (arrow.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kindOf(values.DataType()) {
	case listLevel:
		debug.Assert(depth > 0, "list level reached with no depth left")
		return gatherRows(ctx, mem, values.(array.ListLike), indices, depth)
	default:
		debug.Assert(depth == 0, "leaf level reached before depth ran out")
		out, err := compute.TakeArrayOpts(compute.WithAllocator(ctx, mem), values, indices,
			compute.TakeOptions{BoundsCheck: true})
		if err != nil {
			return nil, fmt.Errorf("gather %s elements: %w", values.DataType(), err)
		}
		return out, nil
	}
}

// gatherRows copies whole rows of lst. Output row p is a copy of
// lst[indices[p]] with its offsets renumbered to where it lands; the row's
// elements are gathered by recursing into the child array.
func gatherRows(ctx context.Context, mem memory.Allocator, lst array.ListLike, indices *array.Int64, depth int) (arrow.Array, error) {
	var scope bufferScope
	defer scope.release()

	var (
		n     = indices.Len()
		rows  = int64(lst.Len())
		idx   = indices.Int64Values()
		nulls = 0
	)

	validity := newValidityBitmap(&scope, mem, n)
	valid := validity.Bytes()
	for p := 0; p < n; p++ {
		if indices.IsNull(p) {
			nulls++
			continue
		}
		r := idx[p]
		if r < 0 || r >= rows {
			return nil, fmt.Errorf("%w: index %d out of bounds for %d list rows", arrow.ErrIndex, r, rows)
		}
		if lst.IsNull(int(r)) {
			nulls++
			continue
		}
		bitutil.SetBit(valid, p)
	}

	offs, err := exclusiveScan(&scope, mem, n, func(p int) int64 {
		if !bitutil.BitIsSet(valid, p) {
			return 0
		}
		start, end := lst.ValueOffsets(int(idx[p]))
		return end - start
	})
	if err != nil {
		return nil, err
	}

	childIndices := expandRows(&scope, mem, lst, idx, valid, offs)
	scope.track(childIndices)

	child, err := gatherLevel(ctx, mem, lst.ListValues(), childIndices, depth-1)
	if err != nil {
		return nil, err
	}
	scope.track(child)

	offsets, err := offsetsBuffer(mem, lst.DataType().ID(), offs)
	if err != nil {
		return nil, err
	}
	scope.trackBuffer(offsets)
	debug.Logf("list level %d: %d rows, %d elements, %d nulls", depth, n, offs[n], nulls)

	data := array.NewData(lst.DataType(), n,
		[]*memory.Buffer{finishValidity(validity, nulls), offsets},
		[]arrow.ArrayData{child.Data()}, nulls, 0)
	scope.track(data)
	return array.MakeFromData(data), nil
}

// expandRows lists every child position of the selected rows, in output
// order. None of the positions are null.
func expandRows(s *bufferScope, mem memory.Allocator, lst array.ListLike, idx []int64, valid []byte, offs []int64) *array.Int64 {
	total := offs[len(offs)-1]
	buf := s.newBuffer(mem, arrow.Int64Traits.BytesRequired(int(total)))
	out := arrow.Int64Traits.CastFromBytes(buf.Bytes())

	for p := 0; p < len(idx); p++ {
		if !bitutil.BitIsSet(valid, p) {
			continue
		}
		start, _ := lst.ValueOffsets(int(idx[p]))
		dst := out[offs[p]:offs[p+1]]
		for k := range dst {
			dst[k] = start + int64(k)
		}
	}

	data := array.NewData(arrow.PrimitiveTypes.Int64, int(total), []*memory.Buffer{nil, buf}, nil, 0, 0)
	defer data.Release()
	return array.NewInt64Data(data)
}
