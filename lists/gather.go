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
	"runtime"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrow-contrib/listgather/internal/debug"
)

// DefaultChunkSize is the number of gather map elements resolved by one
// unit of work when GatherOptions.ChunkSize is not set.
const DefaultChunkSize = 64 * 1024

// GatherOptions configures SegmentedGatherOpts and the
// "list_segmented_gather" compute function.
type GatherOptions struct {
	BoundsPolicy OutOfBoundsPolicy
	// Parallelism caps the number of goroutines resolving indices.
	// Zero or less means runtime.GOMAXPROCS(0).
	Parallelism int
	// ChunkSize is rounded up to a multiple of 8. Zero or less means
	// DefaultChunkSize.
	ChunkSize int
}

// DefaultGatherOptions returns options with the DontCheck policy and
// default parallelism and chunk size.
func DefaultGatherOptions() *GatherOptions {
	return &GatherOptions{BoundsPolicy: DontCheck}
}

// TypeName implements compute.FunctionOptions.
func (GatherOptions) TypeName() string { return "GatherOptions" }

func (o GatherOptions) parallelism() int {
	if o.Parallelism <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Parallelism
}

func (o GatherOptions) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return (o.ChunkSize + 7) &^ 7
}

// SegmentedGather reorders or subsets the elements within each row of
// source according to the matching row of gatherMap, using policy for
// indices that fall outside their row.
//
// source must be a list or large list array of any element type, nested
// to any depth. gatherMap must be a list or large list of integers with
// the same number of rows as source and no null indices. The result has
// source's type and gatherMap's row lengths; its memory comes from mem and
// it must be released by the caller.
func SegmentedGather(ctx context.Context, mem memory.Allocator, source, gatherMap arrow.Array, policy OutOfBoundsPolicy) (arrow.Array, error) {
	opts := DefaultGatherOptions()
	opts.BoundsPolicy = policy
	return SegmentedGatherOpts(ctx, mem, source, gatherMap, *opts)
}

// SegmentedGatherOpts is SegmentedGather with full control over the
// options.
func SegmentedGatherOpts(ctx context.Context, mem memory.Allocator, source, gatherMap arrow.Array, opts GatherOptions) (arrow.Array, error) {
	src, gm, err := validateInputs(source, gatherMap)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scope bufferScope
	defer scope.release()

	plan, err := planOffsets(&scope, mem, gm)
	if err != nil {
		return nil, err
	}

	offsets, err := offsetsBuffer(mem, source.DataType().ID(), plan)
	if err != nil {
		return nil, err
	}
	scope.trackBuffer(offsets)

	validity, nulls := composeRowValidity(&scope, mem, source, gatherMap)

	flat, err := buildFlatIndices(ctx, mem, src, gm, plan, opts)
	if err != nil {
		return nil, err
	}
	scope.track(flat)

	values := src.ListValues()
	child, err := gatherLevel(ctx, mem, values, flat, nestingDepth(values))
	if err != nil {
		return nil, err
	}
	scope.track(child)
	debug.Logf("segmented gather: %d rows, %d elements, %d null rows", source.Len(), child.Len(), nulls)

	data := array.NewData(source.DataType(), source.Len(),
		[]*memory.Buffer{validity, offsets},
		[]arrow.ArrayData{child.Data()}, nulls, 0)
	scope.track(data)
	return array.MakeFromData(data), nil
}
