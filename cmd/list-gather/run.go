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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/arrow-contrib/listgather/lists"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/goccy/go-json"
)

// report is the json form of a gather result.
type report struct {
	File   string          `json:"file"`
	Policy string          `json:"policy"`
	Rows   int             `json:"rows"`
	Nulls  int             `json:"null_rows"`
	Result json.RawMessage `json:"result"`
}

func run(ctx context.Context, cfg config, logger log.Logger, w io.Writer) error {
	mem := memory.NewGoAllocator()

	source, gatherMap, err := loadColumns(ctx, mem, cfg)
	if err != nil {
		return err
	}
	defer source.Release()
	defer gatherMap.Release()
	level.Debug(logger).Log("msg", "loaded columns", "source", source.DataType(), "gather_map", gatherMap.DataType(), "rows", source.Len())

	opts := cfg.gatherOptions()
	out, err := lists.SegmentedGatherOpts(ctx, mem, source, gatherMap, opts)
	if err != nil {
		return err
	}
	defer out.Release()
	level.Info(logger).Log("msg", "gathered", "rows", out.Len(), "null_rows", out.NullN(), "policy", opts.BoundsPolicy)

	switch cfg.Output {
	case "json":
		return writeJSON(w, cfg, out)
	case "ipc":
		return writeIPC(w, mem, cfg, out)
	default:
		_, err := fmt.Fprintln(w, out)
		return err
	}
}

func writeJSON(w io.Writer, cfg config, out arrow.Array) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("could not encode result: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report{
		File:   cfg.File,
		Policy: cfg.gatherOptions().BoundsPolicy.String(),
		Rows:   out.Len(),
		Nulls:  out.NullN(),
		Result: raw,
	})
}

func writeIPC(w io.Writer, mem memory.Allocator, cfg config, out arrow.Array) error {
	schema := arrow.NewSchema([]arrow.Field{{Name: cfg.Source, Type: out.DataType(), Nullable: true}}, nil)
	rec := array.NewRecord(schema, []arrow.Array{out}, int64(out.Len()))
	defer rec.Release()

	opts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(mem)}
	switch cfg.Compression {
	case "zstd":
		opts = append(opts, ipc.WithZstd())
	case "lz4":
		opts = append(opts, ipc.WithLZ4())
	}

	ww := ipc.NewWriter(w, opts...)
	if err := ww.Write(rec); err != nil {
		ww.Close()
		return fmt.Errorf("could not write ARROW stream: %w", err)
	}
	if err := ww.Close(); err != nil {
		return fmt.Errorf("could not close output ARROW stream: %w", err)
	}
	return nil
}
