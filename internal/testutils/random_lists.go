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

// Package testutils builds random nested list arrays and gather maps for
// property style tests of the lists package.
package testutils

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ListGenerator produces reproducible random list arrays for a seed.
type ListGenerator struct {
	seed  uint64
	extra uint64
	rnd   *rand.Rand
	mem   memory.Allocator
}

func NewListGenerator(seed uint64, mem memory.Allocator) *ListGenerator {
	return &ListGenerator{seed: seed, rnd: rand.New(rand.NewSource(seed)), mem: mem}
}

// validity fills a fresh bitmap of n bits where each bit is clear with
// probability nullProb. It returns nil when no bit is clear.
func (g *ListGenerator) validity(n int, nullProb float64) (*memory.Buffer, int) {
	if nullProb <= 0 {
		return nil, 0
	}

	g.extra++
	dist := distuv.Bernoulli{P: 1 - nullProb, Src: rand.NewSource(g.seed + g.extra)}

	buf := memory.NewResizableBuffer(g.mem)
	buf.Resize(int(bitutil.BytesForBits(int64(n))))
	bits := buf.Bytes()
	for i := range bits {
		bits[i] = 0
	}

	nulls := 0
	for i := 0; i < n; i++ {
		if dist.Rand() != 0 {
			bitutil.SetBit(bits, i)
		} else {
			nulls++
		}
	}
	if nulls == 0 {
		buf.Release()
		return nil, 0
	}
	return buf, nulls
}

// Int64s returns n random values in [-1000, 1000).
func (g *ListGenerator) Int64s(n int, nullProb float64) arrow.Array {
	values := memory.NewResizableBuffer(g.mem)
	values.Resize(arrow.Int64Traits.BytesRequired(n))
	defer values.Release()
	out := arrow.Int64Traits.CastFromBytes(values.Bytes())
	for i := range out {
		out[i] = g.rnd.Int63n(2000) - 1000
	}

	validity, nulls := g.validity(n, nullProb)
	if validity != nil {
		defer validity.Release()
	}

	data := array.NewData(arrow.PrimitiveTypes.Int64, n, []*memory.Buffer{validity, values}, nil, nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// lengths returns n row lengths in [0, maxLen].
func (g *ListGenerator) lengths(n, maxLen int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(g.rnd.Intn(maxLen + 1))
	}
	return out
}

// wrap builds a list array over child. When large is set the result is a
// large list. Null rows keep their random, possibly non-empty, spans.
func (g *ListGenerator) wrap(child arrow.Array, lens []int64, nullProb float64, large bool) arrow.Array {
	n := len(lens)
	offsets := memory.NewResizableBuffer(g.mem)
	defer offsets.Release()

	dt := arrow.DataType(arrow.ListOf(child.DataType()))
	if large {
		dt = arrow.LargeListOf(child.DataType())
		offsets.Resize(arrow.Int64Traits.BytesRequired(n + 1))
		offs := arrow.Int64Traits.CastFromBytes(offsets.Bytes())
		offs[0] = 0
		for i, l := range lens {
			offs[i+1] = offs[i] + l
		}
	} else {
		offsets.Resize(arrow.Int32Traits.BytesRequired(n + 1))
		offs := arrow.Int32Traits.CastFromBytes(offsets.Bytes())
		offs[0] = 0
		for i, l := range lens {
			offs[i+1] = offs[i] + int32(l)
		}
	}

	validity, nulls := g.validity(n, nullProb)
	if validity != nil {
		defer validity.Release()
	}

	data := array.NewData(dt, n, []*memory.Buffer{validity, offsets}, []arrow.ArrayData{child.Data()}, nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// NestedList returns rows of depth nested lists over int64 leaves; depth 1
// is list<int64>. Every level has rows up to maxLen long and nulls with
// probability nullProb.
func (g *ListGenerator) NestedList(rows, depth, maxLen int, nullProb float64, large bool) arrow.Array {
	levels := make([][]int64, depth)
	n := rows
	for d := 0; d < depth; d++ {
		levels[d] = g.lengths(n, maxLen)
		total := 0
		for _, l := range levels[d] {
			total += int(l)
		}
		n = total
	}

	arr := g.Int64s(n, nullProb)
	for d := depth - 1; d >= 0; d-- {
		next := g.wrap(arr, levels[d], nullProb, large)
		arr.Release()
		arr = next
	}
	return arr
}

// GatherMap returns a list<int32> with one row per source row. Indices fall
// within [-n, n) of their source row of length n, except that with
// probability outOfRange an index lands past either end instead. Rows of an
// empty source row are left empty unless outOfRange is positive.
func (g *ListGenerator) GatherMap(source arrow.Array, maxLen int, outOfRange float64) arrow.Array {
	src := source.(array.ListLike)
	bldr := array.NewListBuilder(g.mem, arrow.PrimitiveTypes.Int32)
	defer bldr.Release()
	vb := bldr.ValueBuilder().(*array.Int32Builder)

	for i := 0; i < src.Len(); i++ {
		bldr.Append(true)
		start, end := src.ValueOffsets(i)
		rowLen := int32(end - start)
		m := g.rnd.Intn(maxLen + 1)
		if rowLen == 0 && outOfRange <= 0 {
			m = 0
		}
		for j := 0; j < m; j++ {
			switch {
			case rowLen == 0 || g.rnd.Float64() < outOfRange:
				offset := int32(g.rnd.Intn(3))
				if g.rnd.Intn(2) == 0 {
					vb.Append(rowLen + offset)
				} else {
					vb.Append(-rowLen - 1 - offset)
				}
			default:
				vb.Append(int32(g.rnd.Intn(int(2*rowLen))) - rowLen)
			}
		}
	}
	return bldr.NewArray()
}

// IdentityMap returns the gather map [0, 1, ..., n-1] for every source row
// of length n.
func IdentityMap(mem memory.Allocator, source arrow.Array) arrow.Array {
	src := source.(array.ListLike)
	bldr := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int64)
	defer bldr.Release()
	vb := bldr.ValueBuilder().(*array.Int64Builder)

	for i := 0; i < src.Len(); i++ {
		bldr.Append(true)
		start, end := src.ValueOffsets(i)
		for j := int64(0); j < end-start; j++ {
			vb.Append(j)
		}
	}
	return bldr.NewArray()
}
