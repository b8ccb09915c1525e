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
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrow-contrib/listgather/internal/debug"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

// flatIndexBuilder turns the (row, position) pairs of a gather map into
// positions within the source's child array. A position that must come out
// null is left unset in the validity bitmap rather than given a special
// value.
type flatIndexBuilder struct {
	src    array.ListLike
	gm     array.ListLike
	plan   []int64
	policy OutOfBoundsPolicy

	// one past the last valid child position, used to clamp unchecked
	// indices so they cannot wrap around
	childLen int64

	out   []int64
	valid []byte
}

// buildFlatIndices returns an Int64 array with one entry per gather map
// element, addressing the source's child array.
func buildFlatIndices(ctx context.Context, mem memory.Allocator, src, gm array.ListLike, plan []int64, opts GatherOptions) (*array.Int64, error) {
	var scope bufferScope
	defer scope.release()

	total := plan[len(plan)-1]
	values := scope.newBuffer(mem, arrow.Int64Traits.BytesRequired(int(total)))

	b := &flatIndexBuilder{
		src:      src,
		gm:       gm,
		plan:     plan,
		policy:   opts.BoundsPolicy,
		childLen: int64(src.ListValues().Len()),
		out:      arrow.Int64Traits.CastFromBytes(values.Bytes()),
	}

	var validity *memory.Buffer
	if b.policy == Nullify {
		validity = newValidityBitmap(&scope, mem, int(total))
		b.valid = validity.Bytes()
	}

	nulls, err := b.run(ctx, gm.ListValues(), opts)
	if err != nil {
		return nil, err
	}
	debug.Logf("flat indices: %d positions, %d nulls, policy %s", total, nulls, b.policy)

	data := array.NewData(arrow.PrimitiveTypes.Int64, int(total),
		[]*memory.Buffer{finishValidity(validity, nulls), values}, nil, nulls, 0)
	defer data.Release()
	return array.NewInt64Data(data), nil
}

func (b *flatIndexBuilder) run(ctx context.Context, indices arrow.Array, opts GatherOptions) (int, error) {
	switch arr := indices.(type) {
	case *array.Int8:
		return fillChunks(ctx, b, arr.Int8Values(), opts)
	case *array.Int16:
		return fillChunks(ctx, b, arr.Int16Values(), opts)
	case *array.Int32:
		return fillChunks(ctx, b, arr.Int32Values(), opts)
	case *array.Int64:
		return fillChunks(ctx, b, arr.Int64Values(), opts)
	case *array.Uint8:
		return fillChunks(ctx, b, arr.Uint8Values(), opts)
	case *array.Uint16:
		return fillChunks(ctx, b, arr.Uint16Values(), opts)
	case *array.Uint32:
		return fillChunks(ctx, b, arr.Uint32Values(), opts)
	case *array.Uint64:
		return fillChunks(ctx, b, arr.Uint64Values(), opts)
	}
	return 0, fmt.Errorf("%w: gather map elements must be integers, got %s",
		ErrTypeContract, indices.DataType())
}

// fillChunks splits the flat positions into chunks that start on a byte
// boundary of the validity bitmap and fills them concurrently.
func fillChunks[T constraints.Integer](ctx context.Context, b *flatIndexBuilder, raw []T, opts GatherOptions) (int, error) {
	total := b.plan[len(b.plan)-1]
	if total == 0 {
		return 0, ctx.Err()
	}

	size := int64(opts.chunkSize())
	nchunks := int((total + size - 1) / size)
	nulls := make([]int, nchunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.parallelism())
	for c := 0; c < nchunks; c++ {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := int64(c) * size
			hi := min(lo+size, total)
			nulls[c] = fillRange(b, raw, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, n := range nulls {
		count += n
	}
	return count, nil
}

// fillRange resolves the flat positions [lo, hi) and returns how many of
// them are null.
func fillRange[T constraints.Integer](b *flatIndexBuilder, raw []T, lo, hi int64) int {
	nulls := 0
	row := rowOf(b.plan, lo)
	for p := lo; p < hi; row++ {
		rowEnd := b.plan[row+1]
		if rowEnd <= p {
			continue
		}

		mapStart, _ := b.gm.ValueOffsets(row)
		srcStart, srcEnd := b.src.ValueOffsets(row)
		rowLen := srcEnd - srcStart
		debug.Assert(mapStart >= 0, "negative gather map offset")

		stop := min(rowEnd, hi)
		for ; p < stop; p++ {
			eff, ok := resolveRaw(raw[mapStart+p-b.plan[row]], rowLen, b.policy)
			if !ok {
				b.out[p] = 0
				nulls++
				continue
			}
			b.out[p] = b.clamp(srcStart, eff)
			if b.valid != nil {
				bitutil.SetBit(b.valid, int(p))
			}
		}
	}
	return nulls
}

// clamp adds a row offset to the row start. Results outside the child
// array are pinned to its length so the child level rejects them.
func (b *flatIndexBuilder) clamp(start, eff int64) int64 {
	if eff < -start || eff >= b.childLen-start {
		return b.childLen
	}
	return start + eff
}
