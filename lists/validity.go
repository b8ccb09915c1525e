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
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// newValidityBitmap allocates a tracked bitmap of n cleared bits.
func newValidityBitmap(s *bufferScope, mem memory.Allocator, n int) *memory.Buffer {
	buf := s.newBuffer(mem, int(bitutil.BytesForBits(int64(n))))
	if n > 0 {
		memory.Set(buf.Bytes(), 0)
	}
	return buf
}

// finishValidity drops the bitmap when every bit is set, so the output
// carries no validity buffer in that case.
func finishValidity(buf *memory.Buffer, nulls int) *memory.Buffer {
	if nulls == 0 {
		return nil
	}
	return buf
}

// composeRowValidity computes the row level validity of the output: a row is
// valid when both the source row and the gather map row are. Row contents
// are left as the gather map laid them out.
func composeRowValidity(s *bufferScope, mem memory.Allocator, src, gm arrow.Array) (*memory.Buffer, int) {
	if src.NullN() == 0 && gm.NullN() == 0 {
		return nil, 0
	}

	n := src.Len()
	buf := newValidityBitmap(s, mem, n)
	bits := buf.Bytes()
	nulls := 0
	for i := 0; i < n; i++ {
		if src.IsValid(i) && gm.IsValid(i) {
			bitutil.SetBit(bits, i)
		} else {
			nulls++
		}
	}
	return finishValidity(buf, nulls), nulls
}
