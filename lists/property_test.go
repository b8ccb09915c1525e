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

package lists_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrow-contrib/listgather/internal/testutils"
	"github.com/arrow-contrib/listgather/lists"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const randomSeed = 0x0ff1ce

// checkGathered verifies out against src and gm one element at a time:
// row lengths come from gm, row validity from src and gm, and every element
// either matches the source element it resolves to or is null.
func checkGathered(t *testing.T, src, gm, out arrow.Array, policy lists.OutOfBoundsPolicy) {
	t.Helper()

	var (
		srcList  = src.(array.ListLike)
		mapList  = gm.(array.ListLike)
		outList  = out.(array.ListLike)
		srcChild = srcList.ListValues()
		outChild = outList.ListValues()
		indices  = mapList.ListValues().(*array.Int32).Int32Values()
	)

	require.Equal(t, gm.Len(), out.Len())
	for i := 0; i < out.Len(); i++ {
		assert.Equalf(t, src.IsValid(i) && gm.IsValid(i), out.IsValid(i), "row %d validity", i)

		mapStart, mapEnd := mapList.ValueOffsets(i)
		outStart, outEnd := outList.ValueOffsets(i)
		require.Equalf(t, mapEnd-mapStart, outEnd-outStart, "row %d length", i)

		srcStart, srcEnd := srcList.ValueOffsets(i)
		rowLen := srcEnd - srcStart
		for j := int64(0); j < outEnd-outStart; j++ {
			idx := int64(indices[mapStart+j])
			if idx < 0 {
				idx += rowLen
			}
			pos := outStart + j
			if idx < 0 || idx >= rowLen {
				require.Equal(t, lists.Nullify, policy, "out of range index generated for DONT_CHECK")
				assert.Truef(t, outChild.IsNull(int(pos)), "row %d element %d should be null", i, j)
				continue
			}

			want := array.NewSlice(srcChild, srcStart+idx, srcStart+idx+1)
			got := array.NewSlice(outChild, pos, pos+1)
			assert.Truef(t, array.Equal(want, got), "row %d element %d: expected %s, got %s", i, j, want, got)
			want.Release()
			got.Release()
		}
	}
}

func TestGatherProperties(t *testing.T) {
	tests := []struct {
		depth      int
		large      bool
		nullProb   float64
		outOfRange float64
		policy     lists.OutOfBoundsPolicy
	}{
		{1, false, 0, 0, lists.DontCheck},
		{1, false, 0.2, 0.3, lists.Nullify},
		{1, true, 0.1, 0.1, lists.Nullify},
		{2, false, 0.1, 0, lists.DontCheck},
		{2, false, 0.25, 0.25, lists.Nullify},
		{3, true, 0.1, 0.2, lists.Nullify},
		{4, false, 0.05, 0, lists.DontCheck},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("depth=%d/large=%t/nulls=%.2f/oob=%.2f/%s", tt.depth, tt.large, tt.nullProb, tt.outOfRange, tt.policy)
		t.Run(name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
			defer mem.AssertSize(t, 0)

			gen := testutils.NewListGenerator(randomSeed+uint64(tt.depth), mem)
			src := gen.NestedList(200, tt.depth, 6, tt.nullProb, tt.large)
			defer src.Release()
			gm := gen.GatherMap(src, 8, tt.outOfRange)
			defer gm.Release()

			out, err := lists.SegmentedGatherOpts(context.Background(), mem, src, gm,
				lists.GatherOptions{BoundsPolicy: tt.policy, ChunkSize: 64, Parallelism: 3})
			require.NoError(t, err)
			defer out.Release()

			assert.True(t, arrow.TypeEqual(src.DataType(), out.DataType()))
			checkGathered(t, src, gm, out, tt.policy)
		})
	}
}

func TestIdentityLaw(t *testing.T) {
	for depth := 1; depth <= 3; depth++ {
		for _, policy := range []lists.OutOfBoundsPolicy{lists.DontCheck, lists.Nullify} {
			t.Run(fmt.Sprintf("depth=%d/%s", depth, policy), func(t *testing.T) {
				mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
				defer mem.AssertSize(t, 0)

				gen := testutils.NewListGenerator(randomSeed, mem)
				src := gen.NestedList(100, depth, 5, 0.15, depth%2 == 0)
				defer src.Release()
				gm := testutils.IdentityMap(mem, src)
				defer gm.Release()

				out, err := lists.SegmentedGather(context.Background(), mem, src, gm, policy)
				require.NoError(t, err)
				defer out.Release()

				assert.Truef(t, array.Equal(src, out), "expected: %s\ngot: %s", src, out)
			})
		}
	}
}

func TestNullifyNeverReadsOutOfRange(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	// every index is past its row; the output must be all nulls even though
	// the flat positions would land inside neighboring rows
	gen := testutils.NewListGenerator(randomSeed, mem)
	src := gen.NestedList(50, 2, 4, 0, false)
	defer src.Release()
	gm := gen.GatherMap(src, 5, 1)
	defer gm.Release()

	out, err := lists.SegmentedGather(context.Background(), mem, src, gm, lists.Nullify)
	require.NoError(t, err)
	defer out.Release()

	child := out.(array.ListLike).ListValues()
	assert.Equal(t, child.Len(), child.NullN())
}
