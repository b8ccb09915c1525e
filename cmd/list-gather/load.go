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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

// loadColumns returns the source and gather map columns named in cfg, each
// combined into a single array.
func loadColumns(ctx context.Context, mem memory.Allocator, cfg config) (source, gatherMap arrow.Array, err error) {
	var recs []arrow.Record
	switch cfg.Format {
	case "parquet":
		recs, err = readParquet(ctx, mem, cfg.File)
	default:
		recs, err = readIPC(mem, cfg.File)
	}
	if err != nil {
		return nil, nil, err
	}
	defer releaseAll(recs)

	if source, err = column(mem, recs, cfg.Source); err != nil {
		return nil, nil, err
	}
	if gatherMap, err = column(mem, recs, cfg.Map); err != nil {
		source.Release()
		return nil, nil, err
	}
	return source, gatherMap, nil
}

func column(mem memory.Allocator, recs []arrow.Record, name string) (arrow.Array, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("column %q: input holds no records", name)
	}

	idx := recs[0].Schema().FieldIndices(name)
	if len(idx) != 1 {
		return nil, fmt.Errorf("column %q: found %d matching fields in schema %s", name, len(idx), recs[0].Schema())
	}

	chunks := make([]arrow.Array, 0, len(recs))
	for _, rec := range recs {
		chunks = append(chunks, rec.Column(idx[0]))
	}
	if len(chunks) == 1 {
		chunks[0].Retain()
		return chunks[0], nil
	}

	arr, err := array.Concatenate(chunks, mem)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return arr, nil
}

// readIPC reads every record of an Arrow IPC file or stream. The two are
// told apart by the leading magic bytes of the file format.
func readIPC(mem memory.Allocator, path string) ([]arrow.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open ARROW file %q: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, len(ipc.Magic))
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("could not read ARROW file %q: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if n == len(magic) && bytes.Equal(magic, ipc.Magic) {
		return readIPCFile(mem, f)
	}
	return readIPCStream(mem, f)
}

func readIPCFile(mem memory.Allocator, f *os.File) ([]arrow.Record, error) {
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("could not create ARROW file reader: %w", err)
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			releaseAll(recs)
			return nil, fmt.Errorf("could not read ARROW record %d: %w", i, err)
		}
		rec.Retain()
		recs = append(recs, rec)
	}
	return recs, nil
}

func readIPCStream(mem memory.Allocator, f *os.File) ([]arrow.Record, error) {
	r, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("could not create ARROW stream reader: %w", err)
	}
	defer r.Release()

	var recs []arrow.Record
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := r.Err(); err != nil {
		releaseAll(recs)
		return nil, fmt.Errorf("could not read ARROW stream: %w", err)
	}
	return recs, nil
}

func readParquet(ctx context.Context, mem memory.Allocator, path string) ([]arrow.Record, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("could not open parquet file %q: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("could not create parquet arrow reader: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read parquet table: %w", err)
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()

	var recs []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	return recs, nil
}

func releaseAll(recs []arrow.Record) {
	for _, rec := range recs {
		rec.Release()
	}
}
