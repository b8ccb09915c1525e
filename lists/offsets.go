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
	"fmt"
	"math"

	"github.com/JohnCGriffin/overflow"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// exclusiveScan returns n+1 offsets starting at zero where entry i+1 is
// entry i plus length(i). The offsets live in a buffer from mem that s
// releases.
func exclusiveScan(s *bufferScope, mem memory.Allocator, n int, length func(i int) int64) ([]int64, error) {
	buf := s.newBuffer(mem, arrow.Int64Traits.BytesRequired(n+1))
	out := arrow.Int64Traits.CastFromBytes(buf.Bytes())
	out[0] = 0
	for i := 0; i < n; i++ {
		next, ok := overflow.Add64(out[i], length(i))
		if !ok {
			return nil, fmt.Errorf("%w: list offsets overflow int64 at row %d", arrow.ErrInvalid, i)
		}
		out[i+1] = next
	}
	return out, nil
}

// planOffsets lays out the output rows. The result only depends on the row
// lengths of the gather map.
func planOffsets(s *bufferScope, mem memory.Allocator, gm array.ListLike) ([]int64, error) {
	return exclusiveScan(s, mem, gm.Len(), func(i int) int64 {
		start, end := gm.ValueOffsets(i)
		return end - start
	})
}

// rowOf returns the row of plan that holds flat position p, skipping empty
// rows. plan[len(plan)-1] must be greater than p.
func rowOf(plan []int64, p int64) int {
	lo, hi := 0, len(plan)-1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if plan[mid+1] <= p {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// offsetsBuffer writes offs in the offset width of the list type id. The
// caller owns the returned buffer.
func offsetsBuffer(mem memory.Allocator, id arrow.Type, offs []int64) (*memory.Buffer, error) {
	buf := memory.NewResizableBuffer(mem)
	switch id {
	case arrow.LARGE_LIST:
		buf.Resize(arrow.Int64Traits.BytesRequired(len(offs)))
		copy(arrow.Int64Traits.CastFromBytes(buf.Bytes()), offs)
	case arrow.LIST, arrow.MAP:
		if last := offs[len(offs)-1]; last > math.MaxInt32 {
			buf.Release()
			return nil, fmt.Errorf("%w: %d list elements do not fit int32 offsets, use a large list",
				arrow.ErrInvalid, last)
		}
		buf.Resize(arrow.Int32Traits.BytesRequired(len(offs)))
		out := arrow.Int32Traits.CastFromBytes(buf.Bytes())
		for i, o := range offs {
			out[i] = int32(o)
		}
	default:
		buf.Release()
		return nil, fmt.Errorf("%w: no offsets layout for %s", arrow.ErrNotImplemented, id)
	}
	return buf, nil
}
