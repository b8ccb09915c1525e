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

// Command list-gather applies a segmented gather to two list columns of an
// Arrow IPC or Parquet file and prints or re-encodes the result.
//
// Example:
//
//	$> list-gather --nullify ./testdata/letters.arrow
//	[["a" "d" (null) (null)] ["2" "4" (null)] []]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arrow-contrib/listgather/lists"
	"github.com/docopt/docopt-go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const usage = `List Gather.
Usage:
  list-gather -h | --help
  list-gather [--nullify | --policy=POLICY] [--source=COL] [--map=COL] [--format=FMT] [--output=OUT]
              [--compression=CODEC] [--parallelism=N] [--log-level=LEVEL] <file>
Options:
  -h --help              Show this screen.
  --nullify              Shorthand for --policy=NULLIFY.
  --policy=POLICY        Handling of out of range indices, DONT_CHECK or NULLIFY [default: DONT_CHECK].
  --source=COL           Name of the list column to gather from [default: source].
  --map=COL              Name of the list column holding the indices [default: gather_map].
  --format=FMT           Input format, ipc or parquet [default: ipc].
  --output=OUT           Output format, text, json or ipc [default: text].
  --compression=CODEC    Compression of ipc output, none, zstd or lz4 [default: none].
  --parallelism=N        Goroutines resolving indices, 0 uses every CPU [default: 0].
  --log-level=LEVEL      Log level, debug, info, warn or error [default: info].`

type config struct {
	Nullify     bool   `docopt:"--nullify"`
	Policy      string `docopt:"--policy"`
	Source      string `docopt:"--source"`
	Map         string `docopt:"--map"`
	Format      string `docopt:"--format"`
	Output      string `docopt:"--output"`
	Compression string `docopt:"--compression"`
	Parallelism string `docopt:"--parallelism"`
	LogLevel    string `docopt:"--log-level"`
	File        string `docopt:"<file>"`
}

func (c config) validate() error {
	check := func(flag, val string, allowed ...string) error {
		for _, a := range allowed {
			if val == a {
				return nil
			}
		}
		return fmt.Errorf("invalid %s %q, expected one of %s", flag, val, strings.Join(allowed, ", "))
	}

	for _, err := range []error{
		check("--format", c.Format, "ipc", "parquet"),
		check("--output", c.Output, "text", "json", "ipc"),
		check("--compression", c.Compression, "none", "zstd", "lz4"),
		check("--log-level", c.LogLevel, "debug", "info", "warn", "error"),
	} {
		if err != nil {
			return err
		}
	}
	if _, err := lists.ParseOutOfBoundsPolicy(c.Policy); err != nil {
		return fmt.Errorf("invalid --policy: %w", err)
	}
	if n, err := strconv.Atoi(c.Parallelism); err != nil || n < 0 {
		return fmt.Errorf("invalid --parallelism %q, expected a non-negative integer", c.Parallelism)
	}
	return nil
}

func (c config) gatherOptions() lists.GatherOptions {
	// validate has already rejected what these cannot parse.
	n, _ := strconv.Atoi(c.Parallelism)
	policy, _ := lists.ParseOutOfBoundsPolicy(c.Policy)
	opts := lists.GatherOptions{BoundsPolicy: policy, Parallelism: n}
	if c.Nullify {
		opts.BoundsPolicy = lists.Nullify
	}
	return opts
}

func parseConfig(p *docopt.Parser, argv []string) (config, error) {
	var cfg config
	opts, err := p.ParseArgs(usage, argv, "")
	if err != nil {
		return cfg, err
	}
	if err := opts.Bind(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}
	return level.NewFilter(logger, allow)
}

func main() {
	cfg, err := parseConfig(docopt.DefaultParser, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)
	if err := run(context.Background(), cfg, logger, os.Stdout); err != nil {
		level.Error(logger).Log("msg", "list gather failed", "file", cfg.File, "err", err)
		os.Exit(1)
	}
}
