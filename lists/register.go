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
	"github.com/apache/arrow/go/v17/arrow/compute"
)

// FuncName is the name SegmentedGather is registered under by
// RegisterListGather.
const FuncName = "list_segmented_gather"

const listGatherDescription = "Row i of the output holds the elements of source row i picked by the\n" +
	"integer indices of gather_map row i. Negative indices count from the end\n" +
	"of the row. Indices outside of their row are handled according to\n" +
	"GatherOptions.BoundsPolicy."

var listGatherDoc = compute.FunctionDoc{
	Summary:     "Gather the elements of each list row using a list of indices",
	Description: listGatherDescription,
	ArgNames:    []string{"source", "gather_map"},
	OptionsType: "GatherOptions",
}

// RegisterListGather adds the "list_segmented_gather" meta function to reg.
// It takes a source list array and a gather map array along with optional
// *GatherOptions, and allocates from compute.GetAllocator(ctx).
func RegisterListGather(reg compute.FunctionRegistry) {
	fn := compute.NewMetaFunction(FuncName, compute.Binary(), listGatherDoc,
		func(ctx context.Context, opts compute.FunctionOptions, args ...compute.Datum) (compute.Datum, error) {
			for _, a := range args {
				if a.Kind() != compute.KindArray {
					return nil, fmt.Errorf("%w: %s expects array arguments, got %s",
						arrow.ErrNotImplemented, FuncName, a.Kind())
				}
			}

			gatherOpts := DefaultGatherOptions()
			if o, ok := opts.(*GatherOptions); ok && o != nil {
				gatherOpts = o
			}

			source := args[0].(*compute.ArrayDatum).MakeArray()
			defer source.Release()
			gatherMap := args[1].(*compute.ArrayDatum).MakeArray()
			defer gatherMap.Release()

			out, err := SegmentedGatherOpts(ctx, compute.GetAllocator(ctx), source, gatherMap, *gatherOpts)
			if err != nil {
				return nil, err
			}
			defer out.Release()
			return compute.NewDatum(out), nil
		})
	reg.AddFunction(fn, false)
}
