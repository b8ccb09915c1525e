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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/docopt/docopt-go"
	"github.com/go-kit/log"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	reordered = `[["a" "b" "d" "c"] ["2" "4" "3"] []]`
	nullified = `[["a" "d" (null) (null)] ["2" "4" (null)] []]`
)

func lettersRecord(t *testing.T, mem memory.Allocator, gatherMap string) arrow.Record {
	t.Helper()

	source, _, err := array.FromJSON(mem, arrow.ListOf(arrow.BinaryTypes.String),
		strings.NewReader(`[["a", "b", "c", "d"], ["1", "2", "3", "4"], ["x", "y", "z"]]`))
	require.NoError(t, err)
	defer source.Release()

	gm, _, err := array.FromJSON(mem, arrow.ListOf(arrow.PrimitiveTypes.Int32), strings.NewReader(gatherMap))
	require.NoError(t, err)
	defer gm.Release()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "source", Type: source.DataType(), Nullable: true},
		{Name: "gather_map", Type: gm.DataType(), Nullable: true},
	}, nil)
	return array.NewRecord(schema, []arrow.Array{source, gm}, int64(source.Len()))
}

func writeIPCFile(t *testing.T, recs ...arrow.Record) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "letters.arrow")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(recs[0].Schema()))
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
	return path
}

func writeIPCStream(t *testing.T, rec arrow.Record) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "letters.stream")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := ipc.NewWriter(f, ipc.WithSchema(rec.Schema()))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return path
}

func writeParquet(t *testing.T, rec arrow.Record) string {
	t.Helper()

	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithDictionaryDefault(false))
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, math.MaxInt64, props, pqarrow.DefaultWriterProps()))

	path := filepath.Join(t.TempDir(), "letters.parquet")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func testConfig(path string) config {
	return config{
		Policy:      "DONT_CHECK",
		Source:      "source",
		Map:         "gather_map",
		Format:      "ipc",
		Output:      "text",
		Compression: "none",
		Parallelism: "0",
		LogLevel:    "info",
		File:        path,
	}
}

func runText(t *testing.T, cfg config) string {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, log.NewNopLogger(), &out))
	return strings.TrimSpace(out.String())
}

func TestParseConfig(t *testing.T) {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}

	cfg, err := parseConfig(parser, []string{"letters.arrow"})
	require.NoError(t, err)
	assert.Equal(t, testConfig("letters.arrow"), cfg)
	assert.Equal(t, "DONT_CHECK", cfg.gatherOptions().BoundsPolicy.String())

	cfg, err = parseConfig(parser, []string{"--nullify", "--format=parquet", "--output=json",
		"--map=idx", "--parallelism=4", "--log-level=debug", "letters.parquet"})
	require.NoError(t, err)
	assert.True(t, cfg.Nullify)
	assert.Equal(t, "parquet", cfg.Format)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "idx", cfg.Map)
	assert.Equal(t, "letters.parquet", cfg.File)

	opts := cfg.gatherOptions()
	assert.Equal(t, "NULLIFY", opts.BoundsPolicy.String())
	assert.Equal(t, 4, opts.Parallelism)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"format", []string{"--format=csv", "f"}, "--format"},
		{"output", []string{"--output=xml", "f"}, "--output"},
		{"compression", []string{"--compression=gzip", "f"}, "--compression"},
		{"log level", []string{"--log-level=trace", "f"}, "--log-level"},
		{"policy", []string{"--policy=clamp", "f"}, "--policy"},
		{"negative parallelism", []string{"--parallelism=-2", "f"}, "--parallelism"},
		{"parallelism not a number", []string{"--parallelism=many", "f"}, "--parallelism"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(parser, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := parseConfig(parser, nil)
	assert.Error(t, err, "missing <file>")
}

func TestParseConfigPolicy(t *testing.T) {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}

	for _, tt := range []struct {
		args []string
		want string
	}{
		{[]string{"f"}, "DONT_CHECK"},
		{[]string{"--policy=nullify", "f"}, "NULLIFY"},
		{[]string{"--policy=Nullify", "f"}, "NULLIFY"},
		{[]string{"--policy=dont_check", "f"}, "DONT_CHECK"},
		{[]string{"--nullify", "f"}, "NULLIFY"},
	} {
		cfg, err := parseConfig(parser, tt.args)
		require.NoErrorf(t, err, "args %v", tt.args)
		assert.Equalf(t, tt.want, cfg.gatherOptions().BoundsPolicy.String(), "args %v", tt.args)
	}

	_, err := parseConfig(parser, []string{"--nullify", "--policy=NULLIFY", "f"})
	assert.Error(t, err, "--nullify and --policy are exclusive")
}

func TestRunPolicyOption(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0, -1, 4, -5], [1, 3, 5], []]`)
	defer rec.Release()

	cfg := testConfig(writeIPCFile(t, rec))
	cfg.Policy = "Nullify"
	assert.Equal(t, nullified, runText(t, cfg))
}

func TestRunIPCFile(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0, 1, 3, 2], [1, 3, 2], []]`)
	defer rec.Release()

	assert.Equal(t, reordered, runText(t, testConfig(writeIPCFile(t, rec))))
}

func TestRunIPCStream(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0, -1, 4, -5], [1, 3, 5], []]`)
	defer rec.Release()

	cfg := testConfig(writeIPCStream(t, rec))
	cfg.Nullify = true
	assert.Equal(t, nullified, runText(t, cfg))
}

func TestRunConcatenatesRecordBatches(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0, 1, 3, 2], [1, 3, 2], []]`)
	defer rec.Release()
	head, tail := rec.NewSlice(0, 2), rec.NewSlice(2, 3)
	defer head.Release()
	defer tail.Release()

	assert.Equal(t, reordered, runText(t, testConfig(writeIPCFile(t, head, tail))))
}

func TestRunParquet(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0, -1, 4, -5], [1, 3, 5], []]`)
	defer rec.Release()

	cfg := testConfig(writeParquet(t, rec))
	cfg.Format = "parquet"
	cfg.Nullify = true
	assert.Equal(t, nullified, runText(t, cfg))
}

func TestRunJSONOutput(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0, -1, 4, -5], [1, 3, 5], []]`)
	defer rec.Release()

	cfg := testConfig(writeIPCFile(t, rec))
	cfg.Nullify = true
	cfg.Output = "json"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, log.NewNopLogger(), &out))

	var got struct {
		Policy string      `json:"policy"`
		Rows   int         `json:"rows"`
		Nulls  int         `json:"null_rows"`
		Result [][]*string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "NULLIFY", got.Policy)
	assert.Equal(t, 3, got.Rows)
	assert.Zero(t, got.Nulls)
	require.Len(t, got.Result, 3)
	assert.Len(t, got.Result[0], 4)
	assert.Nil(t, got.Result[0][2])
	assert.Equal(t, "d", *got.Result[0][1])
	assert.Empty(t, got.Result[2])
}

func TestRunIPCOutput(t *testing.T) {
	for _, codec := range []string{"none", "zstd", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
			defer mem.AssertSize(t, 0)

			rec := lettersRecord(t, mem, `[[0, 1, 3, 2], [1, 3, 2], []]`)
			defer rec.Release()

			cfg := testConfig(writeIPCFile(t, rec))
			cfg.Output = "ipc"
			cfg.Compression = codec

			var out bytes.Buffer
			require.NoError(t, run(context.Background(), cfg, log.NewNopLogger(), &out))

			r, err := ipc.NewReader(&out)
			require.NoError(t, err)
			defer r.Release()

			require.True(t, r.Next())
			got := r.Record()
			assert.Equal(t, "source", got.Schema().Field(0).Name)
			assert.Equal(t, reordered, got.Column(0).String())
			assert.False(t, r.Next())
			assert.NoError(t, r.Err())
		})
	}
}

func TestRunMissingColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0], [0], [0]]`)
	defer rec.Release()

	cfg := testConfig(writeIPCFile(t, rec))
	cfg.Map = "indices"

	err := run(context.Background(), cfg, log.NewNopLogger(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "indices"`)
}

func TestRunReportsGatherErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := lettersRecord(t, mem, `[[0], [0], [0]]`)
	defer rec.Release()

	cfg := testConfig(writeIPCFile(t, rec))
	cfg.Source, cfg.Map = "gather_map", "source"

	err := run(context.Background(), cfg, log.NewNopLogger(), &bytes.Buffer{})
	assert.ErrorIs(t, err, arrow.ErrType)
}
